package bot

import (
	"context"
	"errors"
	"strconv"
	"time"

	sentrygo "github.com/getsentry/sentry-go"

	"github.com/garyellow/rentcar-bot/internal/ctxutil"
	apperrors "github.com/garyellow/rentcar-bot/internal/errors"
	"github.com/garyellow/rentcar-bot/internal/flow"
	"github.com/garyellow/rentcar-bot/internal/logger"
	"github.com/garyellow/rentcar-bot/internal/metrics"
	"github.com/garyellow/rentcar-bot/internal/workerpool"
)

// ErrorReporter receives every error that escapes routing, guarding or a
// handler.
type ErrorReporter interface {
	Report(ctx context.Context, ev Event, handler string, err error)
}

// DispatcherConfig holds the dispatcher's collaborators. Pool may be nil when
// only Dispatch is used, e.g. in tests.
type DispatcherConfig struct {
	Registry    *Registry
	Guard       *flow.Guard
	Pool        *workerpool.Pool
	Reporter    ErrorReporter
	Logger      *logger.Logger
	Metrics     *metrics.Metrics
	Middlewares []Middleware
}

// Dispatcher routes events to handlers.
//
// Events of the same chat are not serialized: two updates from one chat may
// run on different workers at the same time and interleave their session
// writes.
type Dispatcher struct {
	registry    *Registry
	guard       *flow.Guard
	pool        *workerpool.Pool
	reporter    ErrorReporter
	logger      *logger.Logger
	metrics     *metrics.Metrics
	middlewares []Middleware
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		registry:    cfg.Registry,
		guard:       cfg.Guard,
		pool:        cfg.Pool,
		reporter:    cfg.Reporter,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		middlewares: cfg.Middlewares,
	}
}

// Submit queues ev on the worker pool. It returns workerpool.ErrRejected when
// the pool is saturated and workerpool.ErrClosed during shutdown.
func (d *Dispatcher) Submit(ev Event) error {
	if d.pool == nil {
		return workerpool.ErrClosed
	}
	return d.pool.Submit(func() {
		_ = d.Dispatch(context.Background(), ev)
	})
}

// Dispatch resolves, guards and runs the handler for ev on the calling
// goroutine. A non-nil result has already been passed to the reporter.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) (err error) {
	start := time.Now()
	ctx = eventContext(ctx, ev)
	route := Route{Kind: ev.Kind, Name: "unresolved"}

	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
		d.finish(ctx, ev, route, err, time.Since(start))
	}()

	route, err = d.registry.Resolve(ev)
	if err != nil {
		route = Route{Kind: ev.Kind, Name: "unresolved"}
		return apperrors.NewValidationError("event", err.Error())
	}

	if d.guard != nil {
		if err := d.guard.Validate(ev.ChatID, route.Phases); err != nil {
			if fce, ok := apperrors.AsFlowContext(err); ok && d.metrics != nil {
				d.metrics.RecordGuardRejection(fce.Phase)
			}
			return err
		}
	}

	return chain(route, d.middlewares)(ctx, ev)
}

func (d *Dispatcher) finish(ctx context.Context, ev Event, route Route, err error, elapsed time.Duration) {
	status := dispatchStatus(err)
	if d.metrics != nil {
		d.metrics.RecordDispatch(ev.Kind.String(), route.Label(), status, elapsed.Seconds())
	}
	if err == nil {
		return
	}

	var pe *PanicError
	if errors.As(err, &pe) && d.metrics != nil {
		d.metrics.RecordPoolPanic("dispatch")
	}
	if d.reporter != nil {
		d.reporter.Report(ctx, ev, route.Label(), err)
	} else if d.logger != nil {
		d.logger.WithError(err).WithField("handler", route.Label()).ErrorContext(ctx, "Dispatch failed")
	}
}

func dispatchStatus(err error) string {
	var pe *PanicError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &pe):
		return "panic"
	case apperrors.Kind(err) == "flow_context":
		return "rejected"
	default:
		return "error"
	}
}

// eventContext attaches the ids used by the log handler and a hub for error
// tracking to ctx.
func eventContext(ctx context.Context, ev Event) context.Context {
	if ev.ChatID != 0 {
		ctx = ctxutil.WithChatID(ctx, ev.ChatID)
	}
	if ev.UserID != 0 {
		ctx = ctxutil.WithUserID(ctx, ev.UserID)
	}
	if ev.UpdateID != 0 {
		ctx = ctxutil.WithRequestID(ctx, strconv.Itoa(ev.UpdateID))
	}
	if sentrygo.GetHubFromContext(ctx) == nil {
		ctx = sentrygo.SetHubOnContext(ctx, sentrygo.CurrentHub().Clone())
	}
	return ctx
}

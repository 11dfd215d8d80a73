package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/garyellow/rentcar-bot/internal/logger"
)

// Middleware wraps the action of a resolved route.
type Middleware func(route Route, next Action) Action

// PanicError carries a recovered handler panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}

func recoverAction(next Action) Action {
	return func(ctx context.Context, ev Event) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &PanicError{Value: r, Stack: debug.Stack()}
			}
		}()
		return next(ctx, ev)
	}
}

// LoggingMiddleware logs handler execution with timing.
func LoggingMiddleware(log *logger.Logger) Middleware {
	return func(route Route, next Action) Action {
		return func(ctx context.Context, ev Event) error {
			start := time.Now()
			err := next(ctx, ev)

			l := log.WithField("handler", route.Label()).
				WithField("event_kind", route.Kind.String()).
				WithField("duration_ms", time.Since(start).Milliseconds())
			if err != nil {
				l = l.WithError(err)
			}
			l.DebugContext(ctx, "Handler completed")
			return err
		}
	}
}

func chain(route Route, mws []Middleware) Action {
	action := route.Handle
	for i := len(mws) - 1; i >= 0; i-- {
		action = mws[i](route, action)
	}
	return recoverAction(action)
}

package email

import (
	"context"
	"time"

	"github.com/garyellow/rentcar-bot/internal/logger"
	"github.com/garyellow/rentcar-bot/internal/metrics"
	"github.com/garyellow/rentcar-bot/internal/workerpool"
)

// Notifier queues booking emails. It is satisfied by *Service.
type Notifier interface {
	Notify(name Template, to string, data BookingData) error
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	// Sender may be nil, which turns every notification into a log line.
	Sender      Sender
	Workers     int
	QueueSize   int
	MaxAttempts int
	RetryDelay  time.Duration
	Logger      *logger.Logger
	Metrics     *metrics.Metrics
}

// Service delivers notifications in the background. Failures are logged and
// counted but never reach the conversation.
type Service struct {
	sender      Sender
	pool        *workerpool.Pool
	maxAttempts int
	retryDelay  time.Duration
	logger      *logger.Logger
	metrics     *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
}

// NewService creates a service with its own worker pool.
func NewService(cfg ServiceConfig) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		sender:      cfg.Sender,
		maxAttempts: max(cfg.MaxAttempts, 1),
		retryDelay:  cfg.RetryDelay,
		logger:      cfg.Logger.WithModule("email"),
		metrics:     cfg.Metrics,
		ctx:         ctx,
		cancel:      cancel,
	}
	if cfg.Sender != nil {
		s.pool = workerpool.New(workerpool.Config{
			Name:      "email",
			Workers:   max(cfg.Workers, 1),
			QueueSize: max(cfg.QueueSize, 1),
			OnReject: func(name string) {
				if cfg.Metrics != nil {
					cfg.Metrics.RecordPoolRejected(name)
				}
			},
			OnPanic: func(name string, recovered any, _ []byte) {
				s.logger.WithField("panic", recovered).Error("Email worker panicked")
				if cfg.Metrics != nil {
					cfg.Metrics.RecordPoolPanic(name)
				}
			},
		})
	}
	return s
}

// Enabled reports whether a sender is configured.
func (s *Service) Enabled() bool {
	return s.sender != nil
}

// Notify renders the template and queues delivery. An empty address or a
// disabled service is a no-op. The returned error only reports rendering
// problems or a full queue.
func (s *Service) Notify(name Template, to string, data BookingData) error {
	log := s.logger.WithField("template", string(name))
	if to == "" {
		log.Debug("No email address, skipping notification")
		return nil
	}
	msg, err := Render(name, to, data)
	if err != nil {
		return err
	}
	if s.sender == nil {
		log.Info("Email disabled, notification not sent")
		s.record(name, "disabled")
		return nil
	}

	if err := s.pool.Submit(func() { s.deliver(name, msg) }); err != nil {
		s.record(name, "rejected")
		log.WithError(err).Warn("Email queue full, notification dropped")
		return err
	}
	return nil
}

func (s *Service) deliver(name Template, msg Message) {
	log := s.logger.WithField("template", string(name))
	attempts, err := retryFixed(s.ctx, s.maxAttempts, s.retryDelay, func(attempt int) error {
		err := s.sender.Send(s.ctx, msg)
		if err != nil {
			s.record(name, "retry")
			log.WithError(err).WithField("attempt", attempt).Warn("Email delivery attempt failed")
		}
		return err
	})
	if err != nil {
		s.record(name, "failed")
		log.WithError(err).WithField("attempts", attempts).Error("Email delivery failed")
		return
	}
	s.record(name, "sent")
	log.WithField("attempts", attempts).Debug("Email delivered")
}

func (s *Service) record(name Template, status string) {
	if s.metrics != nil {
		s.metrics.RecordEmailAttempt(string(name), status)
	}
}

// Shutdown drains queued notifications. When ctx expires first, pending
// retries are abandoned.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.pool == nil {
		s.cancel()
		return nil
	}
	err := s.pool.Shutdown(ctx)
	s.cancel()
	return err
}

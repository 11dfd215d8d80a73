package telegram

import (
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/garyellow/rentcar-bot/internal/bot"
	apperrors "github.com/garyellow/rentcar-bot/internal/errors"
	"github.com/garyellow/rentcar-bot/internal/logger"
	"github.com/garyellow/rentcar-bot/internal/metrics"
	"github.com/garyellow/rentcar-bot/internal/ratelimit"
	"github.com/garyellow/rentcar-bot/internal/workerpool"
)

// ErrIgnored is returned for updates that carry nothing to dispatch.
var ErrIgnored = errors.New("telegram: update ignored")

// Submitter queues events for dispatch. It is satisfied by *bot.Dispatcher.
type Submitter interface {
	Submit(ev bot.Event) error
}

// Ingress is the shared entry point of the webhook and the poller:
// normalize, rate-limit per chat, submit.
type Ingress struct {
	submitter Submitter
	limiter   *ratelimit.KeyedLimiter
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

// NewIngress creates an ingress. A nil limiter disables per-chat limits.
func NewIngress(s Submitter, limiter *ratelimit.KeyedLimiter, log *logger.Logger, m *metrics.Metrics) *Ingress {
	return &Ingress{submitter: s, limiter: limiter, logger: log, metrics: m}
}

// Accept submits the update. It returns ErrIgnored for unroutable updates,
// errors.ErrRateLimited for chats over their budget and the pool's error
// when the dispatch queue is full or closed.
func (in *Ingress) Accept(u tgbotapi.Update) (bot.Event, error) {
	ev, ok := Normalize(u)
	if !ok {
		in.record("ignored", "ignored")
		return bot.Event{}, ErrIgnored
	}
	kind := ev.Kind.String()

	if in.limiter != nil && !in.limiter.Allow(ev.ChatID) {
		in.record(kind, "rate_limited")
		in.logger.WithChatID(ev.ChatID).WithField("event_kind", kind).Debug("Chat rate limit exceeded, dropping update")
		return ev, apperrors.ErrRateLimited
	}

	if err := in.submitter.Submit(ev); err != nil {
		status := "error"
		if errors.Is(err, workerpool.ErrRejected) {
			status = "rejected"
		}
		in.record(kind, status)
		in.logger.WithChatID(ev.ChatID).WithError(err).Warn("Failed to queue update")
		return ev, err
	}

	in.record(kind, "accepted")
	return ev, nil
}

func (in *Ingress) record(kind, status string) {
	if in.metrics != nil {
		in.metrics.RecordWebhook(kind, status)
	}
}

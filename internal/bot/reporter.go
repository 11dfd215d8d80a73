package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	apperrors "github.com/garyellow/rentcar-bot/internal/errors"
	"github.com/garyellow/rentcar-bot/internal/flow"
	"github.com/garyellow/rentcar-bot/internal/logger"
	"github.com/garyellow/rentcar-bot/internal/metrics"
	"github.com/garyellow/rentcar-bot/internal/navigation"
	"github.com/garyellow/rentcar-bot/internal/sentry"
)

// MsgApology is sent when a handler fails without a user-facing message.
const MsgApology = "Sorry, something went wrong. Please start again from the main menu."

// MainMenuLabel is the caption of the button that returns to the main menu.
const MainMenuLabel = "🏠 Main menu"

// Notifier is the outbound messaging the reporter needs.
type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// ReporterConfig holds the reporter's collaborators.
type ReporterConfig struct {
	Notifier   Notifier
	Navigation *navigation.Stack
	Phases     flow.PhaseReader
	Logger     *logger.Logger
	Metrics    *metrics.Metrics
}

// Reporter is the error boundary of the dispatcher. Flow-context rejections
// get their own message and leave the chat untouched; every other error gets
// an apology, loses its back-history and is sent to error tracking.
type Reporter struct {
	notifier   Notifier
	navigation *navigation.Stack
	phases     flow.PhaseReader
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

// NewReporter creates a reporter.
func NewReporter(cfg ReporterConfig) *Reporter {
	return &Reporter{
		notifier:   cfg.Notifier,
		navigation: cfg.Navigation,
		phases:     cfg.Phases,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

// MainMenuMarkup is a keyboard with a single main menu button.
func MainMenuMarkup() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(MainMenuLabel, KeyMainMenu)),
	)
	return &kb
}

// Report handles err raised while dispatching ev to handler.
func (r *Reporter) Report(ctx context.Context, ev Event, handler string, err error) {
	if err == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.WithField("panic", rec).ErrorContext(ctx, "Error reporter panicked")
		}
	}()

	chatID := ev.ReplyChat()
	kind := apperrors.Kind(err)
	if r.metrics != nil {
		r.metrics.RecordReportedError(kind)
	}

	log := r.logger.WithModule("bot").
		WithField("handler", handler).
		WithField("event_kind", ev.Kind.String()).
		WithField("error_kind", kind).
		WithError(err)

	if fce, ok := apperrors.AsFlowContext(err); ok {
		log.WithField("flow_phase", fce.Phase).InfoContext(ctx, "Handler not available in current phase")
		r.notify(ctx, ev, chatID, fce.Message, log)
		return
	}

	var phase string
	if r.phases != nil {
		if p, ok := r.phases.Phase(chatID); ok {
			phase = p.String()
		}
	}
	if apperrors.IsInvalidData(err) {
		log.WarnContext(ctx, "Handler rejected input")
	} else {
		log.ErrorContext(ctx, "Handler failed")
	}
	sentry.CaptureError(ctx, err, sentry.Event{
		ChatID:  chatID,
		UserID:  ev.UserID,
		Kind:    ev.Kind.String(),
		Handler: handler,
		Phase:   phase,
	})

	if r.navigation != nil && chatID != 0 {
		r.navigation.Clear(chatID)
	}
	r.notify(ctx, ev, chatID, apperrors.GetUserMessage(err, MsgApology), log)
}

func (r *Reporter) notify(ctx context.Context, ev Event, chatID int64, text string, log *logger.Logger) {
	if r.notifier == nil {
		return
	}
	if ev.Kind == KindCallback && ev.CallbackID != "" {
		if err := r.notifier.AnswerCallback(ctx, ev.CallbackID, ""); err != nil {
			log.WithField("notify_error", err.Error()).DebugContext(ctx, "Failed to answer callback")
		}
	}
	if chatID == 0 {
		log.WarnContext(ctx, "No chat to notify about error")
		return
	}
	if err := r.notifier.SendMessage(ctx, chatID, text, MainMenuMarkup()); err != nil {
		log.WithField("notify_error", err.Error()).WarnContext(ctx, "Failed to send error message")
	}
}

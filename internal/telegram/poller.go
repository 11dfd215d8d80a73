package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/garyellow/rentcar-bot/internal/config"
	"github.com/garyellow/rentcar-bot/internal/logger"
)

// UpdateSource is the long-polling part of *tgbotapi.BotAPI.
type UpdateSource interface {
	GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Poller receives updates with getUpdates when no public webhook URL is
// configured.
type Poller struct {
	source  UpdateSource
	ingress *Ingress
	logger  *logger.Logger
	timeout int
}

// NewPoller creates a poller.
func NewPoller(source UpdateSource, ingress *Ingress, log *logger.Logger) *Poller {
	return &Poller{
		source:  source,
		ingress: ingress,
		logger:  log,
		timeout: config.TelegramPollTimeout,
	}
}

// Run polls until ctx is cancelled or the source closes its channel.
func (p *Poller) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = p.timeout
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := p.source.GetUpdatesChan(u)
	p.logger.Info("Long polling started")

	for {
		select {
		case <-ctx.Done():
			p.source.StopReceivingUpdates()
			p.logger.Info("Long polling stopped")
			return nil
		case upd, ok := <-updates:
			if !ok {
				p.logger.Info("Update channel closed")
				return nil
			}
			// Errors are logged and counted by the ingress.
			_, _ = p.ingress.Accept(upd)
		}
	}
}

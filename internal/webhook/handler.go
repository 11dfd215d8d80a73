// Package webhook receives Telegram updates over HTTPS and hands them to the
// shared ingress.
package webhook

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/garyellow/rentcar-bot/internal/bot"
	apperrors "github.com/garyellow/rentcar-bot/internal/errors"
	"github.com/garyellow/rentcar-bot/internal/logger"
	"github.com/garyellow/rentcar-bot/internal/metrics"
	"github.com/garyellow/rentcar-bot/internal/telegram"
	"github.com/garyellow/rentcar-bot/internal/workerpool"
)

// SecretHeader carries the secret registered with setWebhook.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Acceptor takes one decoded update. It is satisfied by *telegram.Ingress.
type Acceptor interface {
	Accept(u tgbotapi.Update) (bot.Event, error)
}

// Handler handles Telegram webhook requests
type Handler struct {
	acceptor Acceptor
	secret   string
	maxBytes int64
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

// HandlerConfig holds configuration for creating a new Handler
type HandlerConfig struct {
	Acceptor Acceptor
	Secret   string // empty disables the header check
	MaxBytes int64
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
}

// NewHandler creates a new webhook handler.
func NewHandler(cfg HandlerConfig) *Handler {
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	return &Handler{
		acceptor: cfg.Acceptor,
		secret:   cfg.Secret,
		maxBytes: maxBytes,
		logger:   cfg.Logger.WithModule("webhook"),
		metrics:  cfg.Metrics,
	}
}

// Handle is the Gin handler for the webhook endpoint.
//
// Telegram redelivers an update until it sees a 2xx, so only a full dispatch
// queue answers 503. Everything else the bot chose not to process, including
// rate-limited and unroutable updates, is acknowledged with 200.
func (h *Handler) Handle(c *gin.Context) {
	start := time.Now()
	defer func() {
		if h.metrics != nil {
			h.metrics.ObserveWebhookDuration(time.Since(start).Seconds())
		}
	}()

	if !h.authorized(c.GetHeader(SecretHeader)) {
		h.record("unknown", "unauthorized")
		h.logger.WithField("remote_ip", c.ClientIP()).Warn("Webhook secret mismatch")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var update tgbotapi.Update
	body := http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	if err := json.NewDecoder(body).Decode(&update); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.record("unknown", "too_large")
			h.logger.WithField("limit", h.maxBytes).Warn("Webhook body too large")
			c.AbortWithStatus(http.StatusRequestEntityTooLarge)
			return
		}
		h.record("unknown", "bad_request")
		h.logger.WithError(err).Warn("Failed to decode update")
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	ev, err := h.acceptor.Accept(update)
	switch {
	case err == nil:
	case errors.Is(err, workerpool.ErrRejected), errors.Is(err, workerpool.ErrClosed):
		h.logger.WithField("update_id", update.UpdateID).
			WithChatID(ev.ChatID).
			Warn("Dispatch queue unavailable, asking Telegram to retry")
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	case errors.Is(err, telegram.ErrIgnored), errors.Is(err, apperrors.ErrRateLimited):
		h.logger.WithField("update_id", update.UpdateID).WithError(err).Debug("Update dropped")
	default:
		h.logger.WithField("update_id", update.UpdateID).WithError(err).Error("Failed to accept update")
	}
	c.Status(http.StatusOK)
}

func (h *Handler) authorized(got string) bool {
	if h.secret == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) == 1
}

func (h *Handler) record(kind, status string) {
	if h.metrics != nil {
		h.metrics.RecordWebhook(kind, status)
	}
}

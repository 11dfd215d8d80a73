package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/garyellow/rentcar-bot/internal/config"
	"github.com/garyellow/rentcar-bot/internal/logger"
	"github.com/garyellow/rentcar-bot/internal/metrics"
	"github.com/garyellow/rentcar-bot/internal/ratelimit"
)

// ClientConfig configures a Bot API client.
type ClientConfig struct {
	Token string
	// Endpoint is a Bot API endpoint format such as
	// "https://api.telegram.org/bot%s/%s". Empty uses the public API.
	Endpoint string
	// GlobalRPS caps outbound calls per second across all chats.
	GlobalRPS float64
	Timeout   time.Duration
	Logger    *logger.Logger
	Metrics   *metrics.Metrics
}

// Client is the Bot API backed Messenger.
type Client struct {
	api     *tgbotapi.BotAPI
	limiter *ratelimit.Limiter
	timeout time.Duration
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewClient connects to the Bot API and verifies the token with getMe.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram: token is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.TelegramRequest
	}
	rps := cfg.GlobalRPS
	if rps <= 0 {
		rps = config.TelegramGlobalRPS
	}

	// getUpdates holds the connection for the poll timeout, so the HTTP
	// client allows for it on top of the per-call budget.
	httpClient := &http.Client{Timeout: timeout + config.TelegramPollTimeout*time.Second}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", err)
	}

	return &Client{
		api:     api,
		limiter: ratelimit.New(rps, rps),
		timeout: timeout,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}, nil
}

// API exposes the underlying Bot API client, used by the poller.
func (c *Client) API() *tgbotapi.BotAPI {
	return c.api
}

// Username is the bot's @username.
func (c *Client) Username() string {
	return c.api.Self.UserName
}

// SendMessage sends a text message. Text longer than the transport limit is
// truncated.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, truncate(text, config.TelegramMaxTextLength))
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	return c.call(ctx, "sendMessage", func() error {
		_, err := c.api.Send(msg)
		return err
	})
}

// SendPhoto sends a photo by URL with an optional caption.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, markup *tgbotapi.InlineKeyboardMarkup) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(photoURL))
	photo.Caption = truncate(caption, config.TelegramMaxCaptionLength)
	if markup != nil {
		photo.ReplyMarkup = *markup
	}
	return c.call(ctx, "sendPhoto", func() error {
		_, err := c.api.Send(photo)
		return err
	})
}

// AnswerCallback answers a callback query.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	cb := tgbotapi.NewCallback(callbackID, text)
	return c.call(ctx, "answerCallbackQuery", func() error {
		_, err := c.api.Request(cb)
		return err
	})
}

// EditMessageKeyboard replaces the inline keyboard of a sent message. A nil
// markup removes the keyboard.
func (c *Client) EditMessageKeyboard(ctx context.Context, chatID int64, messageID int, markup *tgbotapi.InlineKeyboardMarkup) error {
	kb := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
	if markup != nil {
		kb = *markup
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, kb)
	err := c.call(ctx, "editMessageReplyMarkup", func() error {
		_, err := c.api.Request(edit)
		return err
	})
	if isNotModified(err) {
		return nil
	}
	return err
}

// SetWebhook registers url with Telegram. The secret token is sent back in
// the X-Telegram-Bot-Api-Secret-Token header of every delivery.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	allowed, err := json.Marshal([]string{"message", "callback_query"})
	if err != nil {
		return err
	}
	params := tgbotapi.Params{"url": url, "allowed_updates": string(allowed)}
	params.AddNonEmpty("secret_token", secret)
	return c.call(ctx, "setWebhook", func() error {
		_, err := c.api.MakeRequest("setWebhook", params)
		return err
	})
}

// DeleteWebhook switches the bot back to getUpdates.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", func() error {
		_, err := c.api.Request(tgbotapi.DeleteWebhookConfig{})
		return err
	})
}

// call waits for a global token, runs fn and records the outcome.
// tgbotapi has no context support, so ctx only bounds the token wait.
func (c *Client) call(ctx context.Context, method string, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		c.record(method, "rate_limited", start)
		return fmt.Errorf("telegram: %s: %w", method, err)
	}

	err := fn()
	status := "success"
	if err != nil {
		status = "error"
		if isNotModified(err) {
			status = "not_modified"
		}
	}
	c.record(method, status, start)
	if err != nil {
		return fmt.Errorf("telegram: %s: %w", method, err)
	}
	return nil
}

func (c *Client) record(method, status string, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordTelegramCall(method, status, time.Since(start).Seconds())
	}
	if status != "success" && c.logger != nil {
		c.logger.WithField("method", method).WithField("status", status).Debug("Bot API call did not succeed")
	}
}

func isNotModified(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return strings.Contains(apiErr.Message, "message is not modified")
	}
	return false
}

// truncate cuts s to at most limit runes.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-1]) + "…"
}

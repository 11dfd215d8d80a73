package config

import (
	"errors"
	"fmt"
	"time"
)

// Telegram Bot API limits.
const (
	TelegramMaxTextLength     = 4096
	TelegramMaxCaptionLength  = 1024
	TelegramMaxCallbackLength = 64
	TelegramGlobalRPS         = 30
)

// BotConfig holds dispatch and ingress settings.
type BotConfig struct {
	// Dispatch pool
	DispatchWorkers      int           // Core workers, always running
	DispatchBurstWorkers int           // Extra workers started when the queue is full
	DispatchQueueSize    int           // Buffered tasks before burst workers are needed
	BurstIdleTimeout     time.Duration // Burst worker lifetime without work

	// Rate limits
	GlobalRateRPS  float64 // Outbound Bot API calls per second
	ChatRateBurst  float64 // Inbound updates per chat (burst)
	ChatRateRefill float64 // Inbound tokens per second per chat

	// Ingress limits
	MaxUpdateBytes      int64 // Maximum webhook body size
	MaxTextLength       int   // Longer texts are rejected before dispatch
	MaxCallbackDataSize int   // Telegram limit on callback_data

	// Catalog
	MaxCarsPerPage int
}

// DefaultBotConfig returns default configuration values.
func DefaultBotConfig() BotConfig {
	return BotConfig{
		DispatchWorkers:      8,
		DispatchBurstWorkers: 16,
		DispatchQueueSize:    256,
		BurstIdleTimeout:     30 * time.Second,

		GlobalRateRPS:  TelegramGlobalRPS - 5, // keep headroom below the Bot API limit
		ChatRateBurst:  10,
		ChatRateRefill: 1,

		MaxUpdateBytes:      1 << 20,
		MaxTextLength:       TelegramMaxTextLength,
		MaxCallbackDataSize: TelegramMaxCallbackLength,

		MaxCarsPerPage: 10,
	}
}

// Validate checks if configuration values are valid.
func (c *BotConfig) Validate() error {
	var errs []error

	if c.DispatchWorkers <= 0 {
		errs = append(errs, fmt.Errorf("dispatch workers must be positive, got %d", c.DispatchWorkers))
	}
	if c.DispatchBurstWorkers < 0 {
		errs = append(errs, fmt.Errorf("dispatch burst workers cannot be negative, got %d", c.DispatchBurstWorkers))
	}
	if c.DispatchQueueSize <= 0 {
		errs = append(errs, fmt.Errorf("dispatch queue size must be positive, got %d", c.DispatchQueueSize))
	}
	if c.DispatchBurstWorkers > 0 && c.BurstIdleTimeout <= 0 {
		errs = append(errs, errors.New("burst idle timeout must be positive when burst workers are enabled"))
	}
	if c.GlobalRateRPS <= 0 {
		errs = append(errs, fmt.Errorf("global rate must be positive, got %v", c.GlobalRateRPS))
	}
	if c.ChatRateBurst < 1 {
		errs = append(errs, fmt.Errorf("chat rate burst must be at least 1, got %v", c.ChatRateBurst))
	}
	if c.ChatRateRefill <= 0 {
		errs = append(errs, fmt.Errorf("chat rate refill must be positive, got %v", c.ChatRateRefill))
	}
	if c.MaxUpdateBytes <= 0 {
		errs = append(errs, fmt.Errorf("max update bytes must be positive, got %d", c.MaxUpdateBytes))
	}
	if c.MaxTextLength <= 0 || c.MaxTextLength > TelegramMaxTextLength {
		errs = append(errs, fmt.Errorf("max text length must be in 1..%d, got %d", TelegramMaxTextLength, c.MaxTextLength))
	}
	if c.MaxCallbackDataSize <= 0 || c.MaxCallbackDataSize > TelegramMaxCallbackLength {
		errs = append(errs, fmt.Errorf("max callback data must be in 1..%d, got %d", TelegramMaxCallbackLength, c.MaxCallbackDataSize))
	}
	if c.MaxCarsPerPage <= 0 {
		errs = append(errs, fmt.Errorf("max cars per page must be positive, got %d", c.MaxCarsPerPage))
	}

	return errors.Join(errs...)
}

// Package config provides application configuration management.
// It loads settings from environment variables (optionally from a .env file)
// and validates them before the server starts.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Telegram
	TelegramToken    string
	TelegramEndpoint string // Bot API endpoint format, empty for the public API
	WebhookURL       string // Public webhook URL; empty switches to long polling
	WebhookSecret    string // Expected X-Telegram-Bot-Api-Secret-Token, empty = unchecked

	// Metrics Authentication
	MetricsUsername string
	MetricsPassword string // Empty disables Basic Auth on /metrics

	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration

	// Data Configuration
	DataDir string

	// Better Stack log shipping (optional)
	BetterStackToken    string
	BetterStackEndpoint string

	Bot      BotConfig
	Email    EmailConfig
	Photo    PhotoConfig
	Sentry   SentryConfig
	Reminder ReminderConfig
}

// EmailConfig configures outbound booking emails.
type EmailConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	Workers     int
	QueueSize   int
	MaxAttempts int
	RetryDelay  time.Duration
}

// Enabled reports whether an SMTP relay is configured.
func (c EmailConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// PhotoConfig configures the S3-compatible bucket holding car photos.
type PhotoConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	URLExpiry       time.Duration
}

// Enabled reports whether photo storage is configured.
func (c PhotoConfig) Enabled() bool {
	return c.Bucket != "" && c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// SentryConfig configures error tracking.
type SentryConfig struct {
	Token       string
	Host        string
	Environment string
	Release     string
	SampleRate  float64
}

// ReminderConfig configures the daily pickup reminder.
type ReminderConfig struct {
	Enabled  bool
	Hour     int // Local hour (0-23) at which reminders are sent
	Timezone string
}

// Mode selects which settings are required.
type Mode int

const (
	// ServerMode is the bot server; Telegram credentials are required.
	ServerMode Mode = iota
	// SeedMode is the offline fleet tool; only storage settings matter.
	SeedMode
)

// Load reads the server configuration from environment variables.
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	return LoadForMode(ServerMode)
}

// LoadForMode reads configuration and validates what mode needs.
func LoadForMode(mode Mode) (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	bot := DefaultBotConfig()
	cfg := &Config{
		TelegramToken:    getEnv(EnvTelegramToken, ""),
		TelegramEndpoint: getEnv(EnvTelegramEndpoint, ""),
		WebhookURL:       getEnv(EnvWebhookURL, ""),
		WebhookSecret:    getEnv(EnvWebhookSecret, ""),

		MetricsUsername: getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),

		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),

		DataDir: getEnv(EnvDataDir, getDefaultDataDir()),

		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, ""),

		Bot: BotConfig{
			DispatchWorkers:      getIntEnv(EnvDispatchWorkers, bot.DispatchWorkers),
			DispatchBurstWorkers: getIntEnv(EnvDispatchBurstWorkers, bot.DispatchBurstWorkers),
			DispatchQueueSize:    getIntEnv(EnvDispatchQueueSize, bot.DispatchQueueSize),
			BurstIdleTimeout:     getDurationEnv(EnvBurstIdleTimeout, bot.BurstIdleTimeout),
			GlobalRateRPS:        getFloatEnv(EnvGlobalRateRPS, bot.GlobalRateRPS),
			ChatRateBurst:        getFloatEnv(EnvChatRateBurst, bot.ChatRateBurst),
			ChatRateRefill:       getFloatEnv(EnvChatRateRefill, bot.ChatRateRefill),
			MaxUpdateBytes:       bot.MaxUpdateBytes,
			MaxTextLength:        bot.MaxTextLength,
			MaxCallbackDataSize:  bot.MaxCallbackDataSize,
			MaxCarsPerPage:       bot.MaxCarsPerPage,
		},

		Email: EmailConfig{
			Host:        getEnv(EnvSMTPHost, ""),
			Port:        getIntEnv(EnvSMTPPort, 587),
			Username:    getEnv(EnvSMTPUsername, ""),
			Password:    getEnv(EnvSMTPPassword, ""),
			From:        getEnv(EnvSMTPFrom, ""),
			Workers:     getIntEnv(EnvEmailWorkers, 2),
			QueueSize:   getIntEnv(EnvEmailQueueSize, 64),
			MaxAttempts: getIntEnv(EnvEmailAttempts, 3),
			RetryDelay:  getDurationEnv(EnvEmailRetryDelay, 5*time.Second),
		},

		Photo: PhotoConfig{
			Endpoint:        getEnv(EnvPhotoEndpoint, ""),
			Region:          getEnv(EnvPhotoRegion, "auto"),
			AccessKeyID:     getEnv(EnvPhotoAccessKeyID, ""),
			SecretAccessKey: getEnv(EnvPhotoSecretAccessKey, ""),
			Bucket:          getEnv(EnvPhotoBucket, ""),
			URLExpiry:       getDurationEnv(EnvPhotoURLExpiry, time.Hour),
		},

		Sentry: SentryConfig{
			Token:       getEnv(EnvSentryToken, ""),
			Host:        getEnv(EnvSentryHost, ""),
			Environment: getEnv(EnvSentryEnvironment, "production"),
			Release:     getEnv(EnvSentryRelease, ""),
			SampleRate:  getFloatEnv(EnvSentrySampleRate, 1.0),
		},

		Reminder: ReminderConfig{
			Enabled:  getBoolEnv(EnvReminderEnabled, true),
			Hour:     getIntEnv(EnvReminderHour, 18),
			Timezone: getEnv(EnvReminderTimezone, "UTC"),
		},
	}

	if err := cfg.validate(mode); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	return c.validate(ServerMode)
}

func (c *Config) validate(mode Mode) error {
	var errs []error

	if mode == SeedMode {
		if c.DataDir == "" {
			errs = append(errs, fmt.Errorf("%s is required", EnvDataDir))
		}
		return errors.Join(errs...)
	}

	if c.TelegramToken == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvTelegramToken))
	}
	if c.Port == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvPort))
	}
	if c.DataDir == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvDataDir))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvShutdownTimeout, c.ShutdownTimeout))
	}
	if c.WebhookURL != "" && !strings.HasPrefix(c.WebhookURL, "https://") {
		errs = append(errs, fmt.Errorf("%s must be an https URL", EnvWebhookURL))
	}
	if err := c.Bot.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("bot config: %w", err))
	}
	if c.Email.Enabled() {
		if c.Email.Workers <= 0 || c.Email.QueueSize <= 0 {
			errs = append(errs, errors.New("email workers and queue size must be positive"))
		}
		if c.Email.MaxAttempts < 1 {
			errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", EnvEmailAttempts, c.Email.MaxAttempts))
		}
		if c.Email.RetryDelay < 0 {
			errs = append(errs, fmt.Errorf("%s cannot be negative", EnvEmailRetryDelay))
		}
	}
	if c.Photo.Enabled() && c.Photo.URLExpiry <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", EnvPhotoURLExpiry))
	}
	if c.Sentry.Token != "" && c.Sentry.Host == "" {
		errs = append(errs, fmt.Errorf("%s is required when %s is set", EnvSentryHost, EnvSentryToken))
	}
	if c.Reminder.Enabled {
		if c.Reminder.Hour < 0 || c.Reminder.Hour > 23 {
			errs = append(errs, fmt.Errorf("%s must be 0-23, got %d", EnvReminderHour, c.Reminder.Hour))
		}
		if _, err := time.LoadLocation(c.Reminder.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvReminderTimezone, err))
		}
	}

	return errors.Join(errs...)
}

// UsePolling reports whether updates are fetched with getUpdates instead of
// being pushed to the webhook.
func (c *Config) UsePolling() bool {
	return c.WebhookURL == ""
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getBoolEnv retrieves boolean environment variable with fallback to default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}

// SQLitePath returns the full path to the SQLite database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "rentcar.db")
}

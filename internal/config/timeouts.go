// Package config provides centralized timeout constants for the application.
//
// Telegram retries a webhook delivery when it does not get a 2xx answer in
// time, so the webhook only enqueues work and returns. Handler I/O (Bot API,
// SQLite, SMTP, S3) owns its own timeouts below; the dispatcher adds none.
package config

import "time"

// Webhook timeouts
const (
	// WebhookHTTPRead is the HTTP server read timeout for webhook requests.
	// Telegram sends small JSON payloads.
	WebhookHTTPRead = 10 * time.Second

	// WebhookHTTPWrite is the HTTP server write timeout. The webhook answers
	// before any handler runs.
	WebhookHTTPWrite = 15 * time.Second

	// WebhookHTTPIdle is the HTTP server idle timeout for keep-alive connections.
	WebhookHTTPIdle = 120 * time.Second
)

// Outbound call timeouts
const (
	// TelegramRequest bounds a single Bot API call, including the wait for a
	// global rate limiter token.
	TelegramRequest = 15 * time.Second

	// TelegramPollTimeout is the long-polling timeout in seconds passed to
	// getUpdates when no webhook URL is configured.
	TelegramPollTimeout = 30

	// SMTPSend bounds a single SMTP delivery attempt.
	SMTPSend = 20 * time.Second

	// PhotoLookup bounds an S3 HeadObject / presign call.
	PhotoLookup = 5 * time.Second
)

// Database timeouts
const (
	// DatabaseBusyTimeout is SQLite busy_timeout pragma value.
	DatabaseBusyTimeout = 5 * time.Second

	// DatabaseConnMaxLifetime is the maximum lifetime of database connections.
	DatabaseConnMaxLifetime = time.Hour

	// DatabaseQuery bounds a single repository call made by a handler.
	DatabaseQuery = 5 * time.Second
)

// Background job intervals
const (
	// MetricsUpdateInterval is how often session and limiter gauges are refreshed.
	MetricsUpdateInterval = time.Minute

	// RateLimiterCleanupInterval is how often idle per-chat limiters are dropped.
	RateLimiterCleanupInterval = 5 * time.Minute

	// ReminderJobTimeout bounds one run of the daily reminder job.
	ReminderJobTimeout = 2 * time.Minute
)

// Graceful shutdown
const (
	// GracefulShutdown is the timeout for graceful server shutdown.
	// Allows in-flight requests to complete before forceful termination.
	GracefulShutdown = 30 * time.Second
)

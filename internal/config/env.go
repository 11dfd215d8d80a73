package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Core (Required)
	EnvTelegramToken = "CARBOT_TELEGRAM_TOKEN"

	// Telegram ingress
	EnvWebhookURL       = "CARBOT_WEBHOOK_URL"
	EnvWebhookSecret    = "CARBOT_WEBHOOK_SECRET"
	EnvTelegramEndpoint = "CARBOT_TELEGRAM_API_ENDPOINT"

	// Server
	EnvPort            = "CARBOT_PORT"
	EnvLogLevel        = "CARBOT_LOG_LEVEL"
	EnvShutdownTimeout = "CARBOT_SHUTDOWN_TIMEOUT"

	// Data
	EnvDataDir = "CARBOT_DATA_DIR"

	// Dispatch pool
	EnvDispatchWorkers      = "CARBOT_DISPATCH_WORKERS"
	EnvDispatchBurstWorkers = "CARBOT_DISPATCH_BURST_WORKERS"
	EnvDispatchQueueSize    = "CARBOT_DISPATCH_QUEUE_SIZE"
	EnvBurstIdleTimeout     = "CARBOT_BURST_IDLE_TIMEOUT"

	// Rate Limits
	EnvGlobalRateRPS  = "CARBOT_GLOBAL_RATE_RPS"
	EnvChatRateBurst  = "CARBOT_CHAT_RATE_BURST"
	EnvChatRateRefill = "CARBOT_CHAT_RATE_REFILL"

	// Email Feature
	EnvSMTPHost        = "CARBOT_SMTP_HOST"
	EnvSMTPPort        = "CARBOT_SMTP_PORT"
	EnvSMTPUsername    = "CARBOT_SMTP_USERNAME"
	EnvSMTPPassword    = "CARBOT_SMTP_PASSWORD"
	EnvSMTPFrom        = "CARBOT_SMTP_FROM"
	EnvEmailWorkers    = "CARBOT_EMAIL_WORKERS"
	EnvEmailQueueSize  = "CARBOT_EMAIL_QUEUE_SIZE"
	EnvEmailAttempts   = "CARBOT_EMAIL_MAX_ATTEMPTS"
	EnvEmailRetryDelay = "CARBOT_EMAIL_RETRY_DELAY"

	// Car photo storage (S3 compatible)
	EnvPhotoEndpoint        = "CARBOT_PHOTO_ENDPOINT"
	EnvPhotoRegion          = "CARBOT_PHOTO_REGION"
	EnvPhotoAccessKeyID     = "CARBOT_PHOTO_ACCESS_KEY_ID"
	EnvPhotoSecretAccessKey = "CARBOT_PHOTO_SECRET_ACCESS_KEY"
	EnvPhotoBucket          = "CARBOT_PHOTO_BUCKET"
	EnvPhotoURLExpiry       = "CARBOT_PHOTO_URL_EXPIRY"

	// Reminder job
	EnvReminderEnabled  = "CARBOT_REMINDER_ENABLED"
	EnvReminderHour     = "CARBOT_REMINDER_HOUR"
	EnvReminderTimezone = "CARBOT_REMINDER_TIMEZONE"

	// Sentry Feature
	EnvSentryToken       = "CARBOT_SENTRY_TOKEN"
	EnvSentryHost        = "CARBOT_SENTRY_HOST"
	EnvSentryEnvironment = "CARBOT_SENTRY_ENVIRONMENT"
	EnvSentryRelease     = "CARBOT_SENTRY_RELEASE"
	EnvSentrySampleRate  = "CARBOT_SENTRY_SAMPLE_RATE"

	// Better Stack Feature
	EnvBetterStackToken    = "CARBOT_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "CARBOT_BETTERSTACK_ENDPOINT"

	// Metrics Auth Feature
	EnvMetricsUsername = "CARBOT_METRICS_USERNAME"
	EnvMetricsPassword = "CARBOT_METRICS_PASSWORD"
)

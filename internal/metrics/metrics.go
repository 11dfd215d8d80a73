// Package metrics defines the Prometheus metrics exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Dispatch metrics
	DispatchTotal           *prometheus.CounterVec
	DispatchDurationSeconds *prometheus.HistogramVec
	GuardRejectionsTotal    *prometheus.CounterVec
	ErrorsReportedTotal     *prometheus.CounterVec

	// Worker pool metrics
	PoolQueueDepth    *prometheus.GaugeVec
	PoolBurstWorkers  *prometheus.GaugeVec
	PoolRejectedTotal *prometheus.CounterVec
	PoolPanicsTotal   *prometheus.CounterVec

	// Ingress metrics
	WebhookUpdatesTotal    *prometheus.CounterVec
	WebhookDurationSeconds prometheus.Histogram

	// Outbound metrics
	TelegramCallsTotal          *prometheus.CounterVec
	TelegramCallDurationSeconds *prometheus.HistogramVec
	EmailAttemptsTotal          *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec
	RateLimiterActive  *prometheus.GaugeVec

	// Domain metrics
	BookingsTotal *prometheus.CounterVec
	JobRunsTotal  *prometheus.CounterVec

	// Conversation state
	SessionActiveChats    prometheus.Gauge
	NavigationActiveChats prometheus.Gauge

	// Log shipping
	LogRecordsLost *prometheus.GaugeVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	f := promauto.With(registry)
	m := &Metrics{
		DispatchTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentcar_dispatch_total",
				Help: "Total number of dispatched events by kind, handler and status",
			},
			[]string{"kind", "handler", "status"}, // status: success, error, flow_context, panic
		),

		DispatchDurationSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rentcar_dispatch_duration_seconds",
				Help:    "Handler execution time by event kind",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"kind"},
		),

		GuardRejectionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentcar_guard_rejections_total",
				Help: "Handlers rejected because the chat was in another flow phase",
			},
			[]string{"phase"}, // phase: none, browsing, booking_flow, ...
		),

		ErrorsReportedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentcar_errors_reported_total",
				Help: "Errors handled by the reporter by kind",
			},
			[]string{"kind"},
		),

		PoolQueueDepth: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rentcar_pool_queue_depth",
				Help: "Queued tasks per worker pool",
			},
			[]string{"pool"}, // pool: dispatch, email
		),

		PoolBurstWorkers: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rentcar_pool_burst_workers",
				Help: "Burst workers currently running per pool",
			},
			[]string{"pool"},
		),

		PoolRejectedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentcar_pool_rejected_total",
				Help: "Tasks rejected because the pool was saturated or closed",
			},
			[]string{"pool"},
		),

		PoolPanicsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentcar_pool_panics_total",
				Help: "Panics recovered inside pool workers",
			},
			[]string{"pool"},
		),

		WebhookUpdatesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentcar_webhook_updates_total",
				Help: "Inbound Telegram updates by event kind and outcome",
			},
			[]string{"kind", "status"}, // status: accepted, ignored, rate_limited, rejected, unauthorized
		),

		WebhookDurationSeconds: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rentcar_webhook_duration_seconds",
				Help:    "Time to accept a webhook request",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
		),

		TelegramCallsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentcar_telegram_calls_total",
				Help: "Outbound Telegram Bot API calls by method and status",
			},
			[]string{"method", "status"},
		),

		TelegramCallDurationSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rentcar_telegram_call_duration_seconds",
				Help:    "Outbound Telegram call latency including rate limiter wait",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method"},
		),

		EmailAttemptsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentcar_email_attempts_total",
				Help: "Email delivery attempts by template and status",
			},
			[]string{"template", "status"}, // status: sent, retry, failed, skipped
		),

		RateLimiterDropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentcar_rate_limiter_dropped_total",
				Help: "Total number of requests dropped by rate limiter",
			},
			[]string{"limiter_type"}, // limiter_type: chat, global
		),

		RateLimiterActive: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rentcar_rate_limiter_active_keys",
				Help: "Keys currently tracked by a keyed rate limiter",
			},
			[]string{"limiter_type"},
		),

		BookingsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentcar_bookings_total",
				Help: "Booking lifecycle events",
			},
			[]string{"action"}, // action: created, updated, cancelled, reminded
		),

		JobRunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentcar_job_runs_total",
				Help: "Background job runs by job and status",
			},
			[]string{"job", "status"},
		),

		SessionActiveChats: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "rentcar_session_active_chats",
				Help: "Chats with a live session entry",
			},
		),

		NavigationActiveChats: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "rentcar_navigation_active_chats",
				Help: "Chats with a navigation history",
			},
		),

		LogRecordsLost: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rentcar_log_records_lost",
				Help: "Log records that never reached Better Stack since start, by reason",
			},
			[]string{"reason"}, // buffer_full, closed, failed
		),
	}

	return m
}

// RecordDispatch records one handled event.
func (m *Metrics) RecordDispatch(kind, handler, status string, duration float64) {
	m.DispatchTotal.WithLabelValues(kind, handler, status).Inc()
	m.DispatchDurationSeconds.WithLabelValues(kind).Observe(duration)
}

// RecordGuardRejection records a flow-context rejection.
func (m *Metrics) RecordGuardRejection(phase string) {
	if phase == "" {
		phase = "none"
	}
	m.GuardRejectionsTotal.WithLabelValues(phase).Inc()
}

// RecordReportedError records an error reaching the reporter.
func (m *Metrics) RecordReportedError(kind string) {
	m.ErrorsReportedTotal.WithLabelValues(kind).Inc()
}

// SetPoolQueueDepth updates the queue depth gauge.
func (m *Metrics) SetPoolQueueDepth(pool string, depth int) {
	m.PoolQueueDepth.WithLabelValues(pool).Set(float64(depth))
}

// SetPoolBurstWorkers updates the burst worker gauge.
func (m *Metrics) SetPoolBurstWorkers(pool string, n int) {
	m.PoolBurstWorkers.WithLabelValues(pool).Set(float64(n))
}

// RecordPoolRejected records a rejected submission.
func (m *Metrics) RecordPoolRejected(pool string) {
	m.PoolRejectedTotal.WithLabelValues(pool).Inc()
}

// RecordPoolPanic records a recovered worker panic.
func (m *Metrics) RecordPoolPanic(pool string) {
	m.PoolPanicsTotal.WithLabelValues(pool).Inc()
}

// RecordWebhook records an inbound update
func (m *Metrics) RecordWebhook(kind, status string) {
	m.WebhookUpdatesTotal.WithLabelValues(kind, status).Inc()
}

// ObserveWebhookDuration records the time spent accepting a webhook call.
func (m *Metrics) ObserveWebhookDuration(seconds float64) {
	m.WebhookDurationSeconds.Observe(seconds)
}

// RecordTelegramCall records an outbound Bot API call.
func (m *Metrics) RecordTelegramCall(method, status string, duration float64) {
	m.TelegramCallsTotal.WithLabelValues(method, status).Inc()
	m.TelegramCallDurationSeconds.WithLabelValues(method).Observe(duration)
}

// RecordEmailAttempt records one delivery attempt.
func (m *Metrics) RecordEmailAttempt(template, status string) {
	m.EmailAttemptsTotal.WithLabelValues(template, status).Inc()
}

// RecordRateLimiterDrop records a request dropped by rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiterType string) {
	m.RateLimiterDropped.WithLabelValues(limiterType).Inc()
}

// SetRateLimiterActive updates the tracked key count of a keyed limiter.
func (m *Metrics) SetRateLimiterActive(limiterType string, count int) {
	m.RateLimiterActive.WithLabelValues(limiterType).Set(float64(count))
}

// RecordBooking records a booking lifecycle event.
func (m *Metrics) RecordBooking(action string) {
	m.BookingsTotal.WithLabelValues(action).Inc()
}

// RecordJob records a background job run.
func (m *Metrics) RecordJob(job, status string) {
	m.JobRunsTotal.WithLabelValues(job, status).Inc()
}

// SetLogRecordsLost publishes the remote log shipper's running totals.
func (m *Metrics) SetLogRecordsLost(bufferFull, closed, failed uint64) {
	m.LogRecordsLost.WithLabelValues("buffer_full").Set(float64(bufferFull))
	m.LogRecordsLost.WithLabelValues("closed").Set(float64(closed))
	m.LogRecordsLost.WithLabelValues("failed").Set(float64(failed))
}

// SetActiveChats updates the conversation state gauges.
func (m *Metrics) SetActiveChats(sessions, navigation int) {
	m.SessionActiveChats.Set(float64(sessions))
	m.NavigationActiveChats.Set(float64(navigation))
}

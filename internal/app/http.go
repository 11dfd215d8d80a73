package app

import (
	"context"
	"net/http"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyellow/rentcar-bot/internal/buildinfo"
	"github.com/garyellow/rentcar-bot/internal/ctxutil"
	"github.com/garyellow/rentcar-bot/internal/logger"
	"github.com/garyellow/rentcar-bot/internal/photos"
)

const readinessTimeout = 3 * time.Second

func (a *Application) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(a.logger))

	router.GET("/livez", a.livenessCheck)
	router.HEAD("/livez", a.livenessCheck)
	router.GET("/readyz", a.readinessCheck)
	router.HEAD("/readyz", a.readinessCheck)

	if a.webhook != nil {
		router.POST("/webhook", a.webhook.Handle)
	}
	if a.registry != nil {
		var username, password string
		if a.cfg != nil {
			username, password = a.cfg.MetricsUsername, a.cfg.MetricsPassword
		}
		router.GET("/metrics",
			metricsAuthMiddleware(username, password),
			gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
	}
	return router
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		a.logger.WithError(err).Warn("Readiness check failed: database unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "database unavailable",
		})
		return
	}

	body := gin.H{
		"status":   "ready",
		"database": "connected",
		"mode":     a.mode(),
		"features": a.features(),
		"build":    buildinfo.Get(),
	}
	if a.pool != nil {
		st := a.pool.Stats()
		body["dispatch"] = gin.H{
			"queued":       st.Queued,
			"queue_size":   st.QueueSize,
			"workers":      st.Workers,
			"burst_active": st.BurstActive,
			"burst_max":    st.BurstMax,
		}
	}
	c.JSON(http.StatusOK, body)
}

func (a *Application) features() map[string]bool {
	_, noPhotos := a.photos.(photos.Disabled)
	return map[string]bool{
		"email":     a.email != nil && a.email.Enabled(),
		"photos":    a.photos != nil && !noPhotos,
		"reminders": a.reminder != nil,
	}
}

// securityHeadersMiddleware adds security headers to responses.
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Content-Security-Policy", "default-src 'none'")
		c.Header("X-Permitted-Cross-Domain-Policies", "none")
		c.Next()
	}
}

// loggingMiddleware logs HTTP requests: 5xx at error, 4xx at warn, the rest
// at debug.
func loggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-Id")
		if requestID != "" {
			c.Request = c.Request.WithContext(ctxutil.WithRequestID(c.Request.Context(), requestID))
		}

		c.Next()

		status := c.Writer.Status()
		entry := log.WithField("http_method", c.Request.Method).
			WithField("http_path", c.Request.URL.Path).
			WithField("http_status", status).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			WithField("client_ip", c.ClientIP())
		if requestID != "" {
			entry = entry.WithRequestID(requestID)
		}

		switch {
		case status >= 500:
			entry.Error("HTTP request failed")
		case status >= 400 && status != http.StatusNotFound:
			entry.Warn("HTTP request rejected")
		default:
			entry.Debug("HTTP request completed")
		}
	}
}

// Package app wires the bot together and manages its lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/garyellow/rentcar-bot/internal/bot"
	"github.com/garyellow/rentcar-bot/internal/buildinfo"
	"github.com/garyellow/rentcar-bot/internal/config"
	"github.com/garyellow/rentcar-bot/internal/email"
	"github.com/garyellow/rentcar-bot/internal/flow"
	"github.com/garyellow/rentcar-bot/internal/logger"
	"github.com/garyellow/rentcar-bot/internal/metrics"
	"github.com/garyellow/rentcar-bot/internal/modules"
	"github.com/garyellow/rentcar-bot/internal/modules/booking"
	"github.com/garyellow/rentcar-bot/internal/modules/catalog"
	"github.com/garyellow/rentcar-bot/internal/modules/menu"
	"github.com/garyellow/rentcar-bot/internal/modules/mybookings"
	"github.com/garyellow/rentcar-bot/internal/navigation"
	"github.com/garyellow/rentcar-bot/internal/photos"
	"github.com/garyellow/rentcar-bot/internal/ratelimit"
	"github.com/garyellow/rentcar-bot/internal/reminder"
	"github.com/garyellow/rentcar-bot/internal/sentry"
	"github.com/garyellow/rentcar-bot/internal/session"
	"github.com/garyellow/rentcar-bot/internal/storage"
	"github.com/garyellow/rentcar-bot/internal/telegram"
	"github.com/garyellow/rentcar-bot/internal/webhook"
	"github.com/garyellow/rentcar-bot/internal/workerpool"
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg      *config.Config
	logger   *logger.Logger
	db       *storage.DB
	metrics  *metrics.Metrics
	registry *prometheus.Registry

	telegram   *telegram.Client
	sessions   *session.Store
	navigation *navigation.Stack
	pool       *workerpool.Pool
	ingress    *telegram.Ingress
	limiter    *ratelimit.KeyedLimiter
	email      *email.Service
	photos     photos.Resolver
	reminder   *reminder.Job
	webhook    *webhook.Handler
	server     *http.Server
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(logger.Options{
		Level:               cfg.LogLevel,
		Writer:              os.Stdout,
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})
	build := buildinfo.Get()
	log = log.WithField("service", "rentcar-bot").WithField("version", build.Version)
	if build.Commit != "" {
		log = log.WithField("commit", build.Commit)
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}
	// Package-level slog calls (storage, sentry) go through the same handler.
	slog.SetDefault(log.Logger)

	log.Info("Initializing application...")

	release := cfg.Sentry.Release
	if release == "" {
		release = build.Release()
	}
	if err := sentry.Initialize(sentry.Config{
		Token:       cfg.Sentry.Token,
		Host:        cfg.Sentry.Host,
		Environment: cfg.Sentry.Environment,
		Release:     release,
		SampleRate:  cfg.Sentry.SampleRate,
	}); err != nil {
		log.WithError(err).Warn("Sentry initialization failed, error tracking disabled")
	} else if sentry.IsEnabled() {
		log.WithField("environment", cfg.Sentry.Environment).Info("Sentry error tracking enabled")
	}

	db, err := storage.New(ctx, cfg.SQLitePath())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	seeded, err := db.SeedIfEmpty(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed fleet: %w", err)
	}
	log.WithField("path", cfg.SQLitePath()).WithField("seeded_cars", seeded).Info("Database connected")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	tg, err := telegram.NewClient(telegram.ClientConfig{
		Token:     cfg.TelegramToken,
		Endpoint:  cfg.TelegramEndpoint,
		GlobalRPS: cfg.Bot.GlobalRateRPS,
		Logger:    log,
		Metrics:   m,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("telegram: %w", err)
	}
	log.WithField("bot", tg.Username()).Info("Connected to Telegram")

	var resolver photos.Resolver = photos.Disabled{}
	if cfg.Photo.Enabled() {
		store, err := photos.New(ctx, photos.Config{
			Endpoint:    cfg.Photo.Endpoint,
			Region:      cfg.Photo.Region,
			AccessKeyID: cfg.Photo.AccessKeyID,
			SecretKey:   cfg.Photo.SecretAccessKey,
			Bucket:      cfg.Photo.Bucket,
			URLExpiry:   cfg.Photo.URLExpiry,
		})
		if err != nil {
			log.WithError(err).Warn("Photo storage unavailable, cars are shown without pictures")
		} else {
			resolver = store
			log.WithField("bucket", cfg.Photo.Bucket).Info("Photo storage enabled")
		}
	}

	var sender email.Sender
	if cfg.Email.Enabled() {
		sender = email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			Timeout:  config.SMTPSend,
		})
		log.WithField("smtp_host", cfg.Email.Host).Info("Booking emails enabled")
	}
	mailer := email.NewService(email.ServiceConfig{
		Sender:      sender,
		Workers:     cfg.Email.Workers,
		QueueSize:   cfg.Email.QueueSize,
		MaxAttempts: cfg.Email.MaxAttempts,
		RetryDelay:  cfg.Email.RetryDelay,
		Logger:      log,
		Metrics:     m,
	})

	loc, err := time.LoadLocation(cfg.Reminder.Timezone)
	if err != nil {
		log.WithError(err).Warn("Unknown timezone, using UTC")
		loc = time.UTC
	}

	sessions := session.NewStore()
	nav := navigation.NewStack()

	deps := &modules.Deps{
		Messenger:      tg,
		Sessions:       sessions,
		Navigation:     nav,
		DB:             db,
		Photos:         resolver,
		Email:          mailer,
		Screens:        modules.NewScreens(),
		Logger:         log,
		Metrics:        m,
		Location:       loc,
		MaxCarsPerPage: cfg.Bot.MaxCarsPerPage,
	}
	bookingHandler := booking.NewHandler(deps)
	botRegistry, err := modules.NewRegistry(
		menu.NewHandler(deps),
		catalog.NewHandler(deps),
		bookingHandler,
		mybookings.NewHandler(deps, bookingHandler),
	)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("handler registry: %w", err)
	}

	pool := workerpool.New(workerpool.Config{
		Name:             "dispatch",
		Workers:          cfg.Bot.DispatchWorkers,
		BurstWorkers:     cfg.Bot.DispatchBurstWorkers,
		QueueSize:        cfg.Bot.DispatchQueueSize,
		BurstIdleTimeout: cfg.Bot.BurstIdleTimeout,
		OnReject:         m.RecordPoolRejected,
		OnPanic: func(name string, recovered any, stack []byte) {
			m.RecordPoolPanic(name)
			log.WithField("pool", name).
				WithField("panic", recovered).
				WithField("stack", string(stack)).
				Error("Worker panicked")
		},
	})

	dispatcher := bot.NewDispatcher(bot.DispatcherConfig{
		Registry: botRegistry,
		Guard:    flow.NewGuard(sessions),
		Pool:     pool,
		Reporter: bot.NewReporter(bot.ReporterConfig{
			Notifier:   tg,
			Navigation: nav,
			Phases:     sessions,
			Logger:     log,
			Metrics:    m,
		}),
		Logger:      log,
		Metrics:     m,
		Middlewares: []bot.Middleware{bot.LoggingMiddleware(log)},
	})

	limiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:          "chat",
		Burst:         cfg.Bot.ChatRateBurst,
		RefillRate:    cfg.Bot.ChatRateRefill,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		OnDrop:        m.RecordRateLimiterDrop,
		OnActive:      m.SetRateLimiterActive,
	})
	ingress := telegram.NewIngress(dispatcher, limiter, log, m)

	app := &Application{
		cfg:        cfg,
		logger:     log,
		db:         db,
		metrics:    m,
		registry:   registry,
		telegram:   tg,
		sessions:   sessions,
		navigation: nav,
		pool:       pool,
		ingress:    ingress,
		limiter:    limiter,
		email:      mailer,
		photos:     resolver,
		webhook: webhook.NewHandler(webhook.HandlerConfig{
			Acceptor: ingress,
			Secret:   cfg.WebhookSecret,
			MaxBytes: cfg.Bot.MaxUpdateBytes,
			Logger:   log,
			Metrics:  m,
		}),
	}

	if cfg.Reminder.Enabled {
		app.reminder = reminder.New(reminder.Config{
			Store:    db,
			Sender:   tg,
			Hour:     cfg.Reminder.Hour,
			Location: loc,
			Timeout:  config.ReminderJobTimeout,
			Logger:   log,
			Metrics:  m,
		})
	}

	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.routes(),
		ReadHeaderTimeout: config.WebhookHTTPRead,
		ReadTimeout:       config.WebhookHTTPRead,
		WriteTimeout:      config.WebhookHTTPWrite,
		IdleTimeout:       config.WebhookHTTPIdle,
	}

	log.WithField("mode", app.mode()).Info("Initialization complete")
	return app, nil
}

func (a *Application) mode() string {
	if a.cfg != nil && a.cfg.UsePolling() {
		return "polling"
	}
	return "webhook"
}

// Run serves until ctx is cancelled, then shuts down.
//
// Shutdown order: stop taking updates (HTTP server or poller), drain the
// dispatch pool, drain the email pool, close the database, flush logs and
// error tracking. Handlers still running while the pool drains can use every
// resource they need.
func (a *Application) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if err := a.startIngress(gctx, g); err != nil {
		a.shutdown()
		return err
	}

	g.Go(func() error {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		a.logger.Info("Stopping HTTP server...")
		return a.server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		a.updateGauges(gctx)
		return nil
	})
	if a.reminder != nil {
		g.Go(func() error {
			a.reminder.Start(gctx)
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		a.logger.WithError(err).Error("Server stopped with error")
	}
	a.shutdown()
	return err
}

// startIngress registers the webhook with Telegram, or removes it and starts
// long polling when no public URL is configured.
func (a *Application) startIngress(ctx context.Context, g *errgroup.Group) error {
	if !a.cfg.UsePolling() {
		if err := a.telegram.SetWebhook(ctx, a.cfg.WebhookURL, a.cfg.WebhookSecret); err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		a.logger.WithField("url", a.cfg.WebhookURL).Info("Webhook registered")
		return nil
	}

	if err := a.telegram.DeleteWebhook(ctx); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	poller := telegram.NewPoller(a.telegram.API(), a.ingress, a.logger)
	g.Go(func() error {
		return poller.Run(ctx)
	})
	return nil
}

// shutdown releases resources once nothing feeds the dispatch pool anymore.
func (a *Application) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Draining dispatch pool...")
	if err := a.pool.Shutdown(ctx); err != nil {
		a.logger.WithError(err).Warn("Dispatch pool did not drain in time")
	}

	a.logger.Info("Draining email queue...")
	if err := a.email.Shutdown(ctx); err != nil {
		a.logger.WithError(err).Warn("Email queue did not drain in time")
	}

	if a.limiter != nil {
		a.limiter.Stop()
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "database").Error("Component close error")
	}

	if !sentry.Flush(2 * time.Second) {
		a.logger.Warn("Sentry flush timed out")
	}

	a.logger.Info("Shutdown complete")
	if err := a.logger.Shutdown(ctx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "logger shutdown: %v\n", err)
	}
}

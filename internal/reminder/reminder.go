// Package reminder sends a pickup reminder the day before a rental starts.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/garyellow/rentcar-bot/internal/logger"
	"github.com/garyellow/rentcar-bot/internal/metrics"
	"github.com/garyellow/rentcar-bot/internal/rental"
	"github.com/garyellow/rentcar-bot/internal/storage"
	"github.com/garyellow/rentcar-bot/internal/telegram"
)

// Store is the part of storage the job needs.
type Store interface {
	ListBookingsStartingOn(ctx context.Context, day time.Time) ([]storage.BookingDetail, error)
	MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Sender delivers the reminder text.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) error
}

// Config configures a Job.
type Config struct {
	Store    Store
	Sender   Sender
	Hour     int
	Location *time.Location
	Timeout  time.Duration
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
}

// Job runs once a day at Hour in Location.
type Job struct {
	store   Store
	sender  Sender
	hour    int
	loc     *time.Location
	timeout time.Duration
	logger  *logger.Logger
	metrics *metrics.Metrics

	now func() time.Time
}

// Result summarizes one run.
type Result struct {
	Due    int
	Sent   int
	Failed int
}

// New creates a job. A nil Location means UTC.
func New(cfg Config) *Job {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Job{
		store:   cfg.Store,
		sender:  cfg.Sender,
		hour:    cfg.Hour,
		loc:     loc,
		timeout: cfg.Timeout,
		logger:  cfg.Logger.WithModule("reminder"),
		metrics: cfg.Metrics,
		now:     time.Now,
	}
}

// NextRun returns the first run time strictly after now.
func (j *Job) NextRun(now time.Time) time.Time {
	local := now.In(j.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), j.hour, 0, 0, 0, j.loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start blocks, running the job every day until ctx is done.
func (j *Job) Start(ctx context.Context) {
	for {
		next := j.NextRun(j.now())
		j.logger.WithField("next_run", next.Format(time.DateTime)).Debug("Pickup reminders scheduled")

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		runCtx := ctx
		cancel := context.CancelFunc(func() {})
		if j.timeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, j.timeout)
		}
		if _, err := j.Run(runCtx); err != nil {
			j.logger.WithError(err).Error("Pickup reminder run failed")
		}
		cancel()
	}
}

// Run reminds every customer whose rental starts tomorrow in the job's
// timezone. A booking is marked only after its message went out.
func (j *Job) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	local := j.now().In(j.loc)
	tomorrow := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, time.UTC)

	due, err := j.store.ListBookingsStartingOn(ctx, tomorrow)
	if err != nil {
		j.record("error")
		return Result{}, fmt.Errorf("list bookings starting %s: %w", tomorrow.Format(rental.DateLayout), err)
	}

	res := Result{Due: len(due)}
	var errs []error
	for _, d := range due {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		log := j.logger.WithField("booking_id", d.ID.String()).WithChatID(d.Customer.TelegramID)

		if err := j.sender.SendMessage(ctx, d.Customer.TelegramID, Text(d), telegram.MainMenu()); err != nil {
			res.Failed++
			log.WithError(err).Warn("Failed to send pickup reminder")
			errs = append(errs, err)
			continue
		}
		if err := j.store.MarkReminded(ctx, d.ID, j.now()); err != nil {
			res.Failed++
			log.WithError(err).Error("Reminder sent but not recorded")
			errs = append(errs, err)
			continue
		}
		res.Sent++
	}

	status := "ok"
	if len(errs) > 0 {
		status = "partial"
	}
	j.record(status)
	j.logger.WithFields(map[string]any{
		"due":      res.Due,
		"sent":     res.Sent,
		"failed":   res.Failed,
		"duration": time.Since(start).String(),
	}).Info("Pickup reminders complete")
	return res, errors.Join(errs...)
}

func (j *Job) record(status string) {
	if j.metrics != nil {
		j.metrics.RecordJob("pickup_reminder", status)
	}
}

// Text renders the reminder for one booking.
func Text(d storage.BookingDetail) string {
	return fmt.Sprintf("⏰ Reminder: you pick up the %s tomorrow (%s).\nReturn date: %s, %d day(s), total %s.",
		d.Car.Name(),
		d.Start.Format(rental.DateLayout),
		d.End.Format(rental.DateLayout),
		d.Days(),
		rental.FormatMoney(d.Total),
	)
}

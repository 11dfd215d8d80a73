// Package sentry wraps the Sentry Go SDK for error tracking. Events go to a
// Sentry-compatible backend (Better Stack Errors) built from a token and host.
package sentry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
)

// Config holds Sentry configuration for Better Stack integration.
type Config struct {
	// Token is the Better Stack Errors application token.
	Token string

	// Host is the Better Stack Errors ingesting host (e.g., "errors.betterstack.com").
	Host string

	Environment string
	Release     string

	// SampleRate controls error sampling (0.0-1.0, default 1.0 = 100%).
	SampleRate float64

	Debug bool
}

// Initialize sets up the Sentry SDK. If Token is empty, Sentry stays
// disabled and nil is returned. The DSN is https://$TOKEN@$HOST/1.
func Initialize(cfg Config) error {
	if cfg.Token == "" {
		return nil
	}

	if cfg.Host == "" {
		return fmt.Errorf("sentry host is required when token is provided")
	}

	// The project ID (/1) is required by the SDK but ignored by Better Stack.
	dsn := fmt.Sprintf("https://%s@%s/1", cfg.Token, cfg.Host)

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
	})
}

// Flush waits for buffered events to be sent to the server.
// Returns true if all events were sent within the timeout, or when no
// client is configured and nothing can be buffered.
func Flush(timeout time.Duration) bool {
	if !IsEnabled() {
		return true
	}
	return sentry.Flush(timeout)
}

// IsEnabled returns true if Sentry is initialized and active.
func IsEnabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// Event describes where an error happened in the conversation.
type Event struct {
	ChatID  int64
	UserID  int64
	Kind    string // command, text, callback
	Handler string
	Phase   string
}

// CaptureError reports err with the conversation tags of ev. The hub is
// taken from ctx when one is attached (e.g. by the gin middleware).
func CaptureError(ctx context.Context, err error, ev Event) {
	if err == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if hub.Client() == nil {
		return
	}

	hub.WithScope(func(scope *sentry.Scope) {
		if ev.ChatID != 0 {
			scope.SetTag("chat_id", strconv.FormatInt(ev.ChatID, 10))
		}
		if ev.UserID != 0 {
			scope.SetUser(sentry.User{ID: strconv.FormatInt(ev.UserID, 10)})
		}
		if ev.Kind != "" {
			scope.SetTag("event_kind", ev.Kind)
		}
		if ev.Handler != "" {
			scope.SetTag("handler", ev.Handler)
		}
		if ev.Phase != "" {
			scope.SetTag("flow_phase", ev.Phase)
		}
		hub.CaptureException(err)
	})
}

// Package bot is the dispatch engine: it classifies inbound events, resolves
// them to exactly one handler, checks the handler against the chat's flow
// phase and runs it on a bounded worker pool.
package bot

import (
	"context"

	"github.com/garyellow/rentcar-bot/internal/flow"
)

// FallbackKey marks the catch-all handler of a category. Each category must
// register exactly one. Fallbacks accept every phase.
const FallbackKey = "\x00fallback"

// Action is the body of a handler.
type Action func(ctx context.Context, ev Event) error

// CommandHandler handles a "/command" matched exactly after case folding.
type CommandHandler struct {
	Command string
	Phases  flow.PhaseSet
	Handle  Action
}

// CallbackHandler handles callback payloads that start with Key.
type CallbackHandler struct {
	Key    string
	Phases flow.PhaseSet
	Handle Action
}

// TextHandler handles free text accepted by Match. Text handlers are tried in
// registration order and the first match wins.
type TextHandler struct {
	Name   string
	Match  func(text string) bool
	Phases flow.PhaseSet
	Handle Action
}

// Route is a resolved handler ready to be guarded and invoked.
type Route struct {
	Kind     Kind
	Name     string
	Phases   flow.PhaseSet
	Handle   Action
	Fallback bool
}

// Label is the name used in logs and metrics.
func (r Route) Label() string {
	if r.Fallback {
		return r.Kind.String() + "_fallback"
	}
	return r.Name
}

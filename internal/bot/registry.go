package bot

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/garyellow/rentcar-bot/internal/flow"
)

// Registry construction errors.
var (
	ErrMissingFallback   = errors.New("bot: missing fallback handler")
	ErrDuplicateFallback = errors.New("bot: more than one fallback handler")
	ErrDuplicateKey      = errors.New("bot: duplicate handler key")
	ErrInvalidHandler    = errors.New("bot: invalid handler")
)

// Registry holds the three handler indexes. It is immutable after
// NewRegistry returns and safe for concurrent use.
type Registry struct {
	commands        map[string]CommandHandler
	commandFallback Route

	callbacks        map[string]CallbackHandler
	callbackKeys     []string // longest first
	callbackFallback Route

	texts        []TextHandler
	textFallback Route
}

// NewRegistry validates and indexes the handlers. Every category needs
// exactly one handler registered under FallbackKey. All problems are
// reported together.
func NewRegistry(cmds []CommandHandler, cbs []CallbackHandler, texts []TextHandler) (*Registry, error) {
	r := &Registry{
		commands:  make(map[string]CommandHandler, len(cmds)),
		callbacks: make(map[string]CallbackHandler, len(cbs)),
	}
	var errs []error

	var cmdFallbacks int
	for i, h := range cmds {
		if h.Handle == nil {
			errs = append(errs, fmt.Errorf("%w: command %d (%q) has no action", ErrInvalidHandler, i, h.Command))
			continue
		}
		if h.Command == FallbackKey {
			cmdFallbacks++
			r.commandFallback = Route{Kind: KindCommand, Name: FallbackKey, Phases: flow.AnyPhase, Handle: h.Handle, Fallback: true}
			continue
		}
		key := FoldCommand(h.Command)
		if key == "" || key == "/" {
			errs = append(errs, fmt.Errorf("%w: command %d has an empty key", ErrInvalidHandler, i))
			continue
		}
		if !strings.HasPrefix(key, "/") {
			key = "/" + key
		}
		if _, dup := r.commands[key]; dup {
			errs = append(errs, fmt.Errorf("%w: command %q", ErrDuplicateKey, key))
			continue
		}
		h.Command = key
		r.commands[key] = h
	}
	errs = append(errs, fallbackCount("command", cmdFallbacks))

	var cbFallbacks int
	for i, h := range cbs {
		if h.Handle == nil {
			errs = append(errs, fmt.Errorf("%w: callback %d (%q) has no action", ErrInvalidHandler, i, h.Key))
			continue
		}
		if h.Key == FallbackKey {
			cbFallbacks++
			r.callbackFallback = Route{Kind: KindCallback, Name: FallbackKey, Phases: flow.AnyPhase, Handle: h.Handle, Fallback: true}
			continue
		}
		if h.Key == "" {
			errs = append(errs, fmt.Errorf("%w: callback %d has an empty key", ErrInvalidHandler, i))
			continue
		}
		if _, dup := r.callbacks[h.Key]; dup {
			errs = append(errs, fmt.Errorf("%w: callback %q", ErrDuplicateKey, h.Key))
			continue
		}
		r.callbacks[h.Key] = h
		r.callbackKeys = append(r.callbackKeys, h.Key)
	}
	errs = append(errs, fallbackCount("callback", cbFallbacks))

	// Keys are unique, so ordering by length then value is total.
	slices.SortFunc(r.callbackKeys, func(a, b string) int {
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})

	var textFallbacks int
	for i, h := range texts {
		if h.Handle == nil {
			errs = append(errs, fmt.Errorf("%w: text %d (%q) has no action", ErrInvalidHandler, i, h.Name))
			continue
		}
		if h.Name == FallbackKey {
			textFallbacks++
			r.textFallback = Route{Kind: KindText, Name: FallbackKey, Phases: flow.AnyPhase, Handle: h.Handle, Fallback: true}
			continue
		}
		if h.Match == nil {
			errs = append(errs, fmt.Errorf("%w: text %d (%q) has no predicate", ErrInvalidHandler, i, h.Name))
			continue
		}
		if h.Name == "" {
			h.Name = fmt.Sprintf("text_%d", i)
		}
		r.texts = append(r.texts, h)
	}
	errs = append(errs, fallbackCount("text", textFallbacks))

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return r, nil
}

func fallbackCount(category string, n int) error {
	switch {
	case n == 0:
		return fmt.Errorf("%w: %s", ErrMissingFallback, category)
	case n > 1:
		return fmt.Errorf("%w: %s has %d", ErrDuplicateFallback, category, n)
	}
	return nil
}

// Resolve picks the handler for an event. It never fails for a classified
// event because every category has a fallback.
func (r *Registry) Resolve(ev Event) (Route, error) {
	switch ev.Kind {
	case KindCommand:
		return r.ResolveCommand(ev.Text), nil
	case KindCallback:
		return r.ResolveCallback(ev.Data), nil
	case KindText:
		return r.ResolveText(ev.Text), nil
	default:
		return Route{}, fmt.Errorf("bot: cannot route %s event", ev.Kind)
	}
}

// ResolveCommand looks the whole command text up case-insensitively. Extra
// words make it a different command, which falls back.
func (r *Registry) ResolveCommand(cmd string) Route {
	if h, ok := r.commands[FoldCommand(cmd)]; ok {
		return Route{Kind: KindCommand, Name: h.Command, Phases: h.Phases, Handle: h.Handle}
	}
	return r.commandFallback
}

// ResolveCallback returns the handler with the longest key that prefixes the
// payload.
func (r *Registry) ResolveCallback(data string) Route {
	for _, key := range r.callbackKeys {
		if strings.HasPrefix(data, key) {
			h := r.callbacks[key]
			return Route{Kind: KindCallback, Name: h.Key, Phases: h.Phases, Handle: h.Handle}
		}
	}
	return r.callbackFallback
}

// ResolveText returns the first text handler whose predicate accepts text.
func (r *Registry) ResolveText(text string) Route {
	for _, h := range r.texts {
		if h.Match(text) {
			return Route{Kind: KindText, Name: h.Name, Phases: h.Phases, Handle: h.Handle}
		}
	}
	return r.textFallback
}

// Commands lists the registered command keys, sorted.
func (r *Registry) Commands() []string {
	keys := make([]string, 0, len(r.commands))
	for k := range r.commands {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// CallbackKeys lists the callback keys in match order.
func (r *Registry) CallbackKeys() []string {
	return slices.Clone(r.callbackKeys)
}

package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/garyellow/rentcar-bot/internal/flow"
)

func noop(context.Context, Event) error { return nil }

func fallbacks() ([]CommandHandler, []CallbackHandler, []TextHandler) {
	return []CommandHandler{{Command: FallbackKey, Handle: noop}},
		[]CallbackHandler{{Key: FallbackKey, Handle: noop}},
		[]TextHandler{{Name: FallbackKey, Handle: noop}}
}

func TestNewRegistry_Fallbacks(t *testing.T) {
	t.Parallel()

	cmds, cbs, texts := fallbacks()

	tests := []struct {
		name  string
		cmds  []CommandHandler
		cbs   []CallbackHandler
		texts []TextHandler
		want  error
	}{
		{name: "all present", cmds: cmds, cbs: cbs, texts: texts},
		{name: "missing command fallback", cmds: nil, cbs: cbs, texts: texts, want: ErrMissingFallback},
		{name: "missing callback fallback", cmds: cmds, cbs: nil, texts: texts, want: ErrMissingFallback},
		{name: "missing text fallback", cmds: cmds, cbs: cbs, texts: nil, want: ErrMissingFallback},
		{name: "two command fallbacks", cmds: append(cmds[:1:1], cmds[0]), cbs: cbs, texts: texts, want: ErrDuplicateFallback},
		{name: "two text fallbacks", cmds: cmds, cbs: cbs, texts: append(texts[:1:1], texts[0]), want: ErrDuplicateFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, err := NewRegistry(tt.cmds, tt.cbs, tt.texts)
			if tt.want == nil {
				if err != nil || r == nil {
					t.Fatalf("NewRegistry() = %v, %v; want registry", r, err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("NewRegistry() error = %v, want %v", err, tt.want)
			}
			if r != nil {
				t.Error("NewRegistry() returned a registry together with an error")
			}
		})
	}
}

func TestNewRegistry_InvalidHandlers(t *testing.T) {
	t.Parallel()

	cmds, cbs, texts := fallbacks()

	tests := []struct {
		name  string
		cmds  []CommandHandler
		cbs   []CallbackHandler
		texts []TextHandler
		want  error
	}{
		{name: "empty command", cmds: []CommandHandler{{Command: "", Handle: noop}}, want: ErrInvalidHandler},
		{name: "nil command action", cmds: []CommandHandler{{Command: "/start"}}, want: ErrInvalidHandler},
		{name: "duplicate command after folding", cmds: []CommandHandler{{Command: "/start", Handle: noop}, {Command: "/START", Handle: noop}}, want: ErrDuplicateKey},
		{name: "empty callback key", cbs: []CallbackHandler{{Key: "", Handle: noop}}, want: ErrInvalidHandler},
		{name: "duplicate callback", cbs: []CallbackHandler{{Key: "BOOK", Handle: noop}, {Key: "BOOK", Handle: noop}}, want: ErrDuplicateKey},
		{name: "nil predicate", texts: []TextHandler{{Name: "phone", Handle: noop}}, want: ErrInvalidHandler},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewRegistry(append(tt.cmds, cmds...), append(tt.cbs, cbs...), append(tt.texts, texts...))
			if !errors.Is(err, tt.want) {
				t.Fatalf("NewRegistry() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewRegistry_ReportsAllProblems(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry(nil, nil, []TextHandler{{Name: "x", Handle: noop}})
	if !errors.Is(err, ErrMissingFallback) || !errors.Is(err, ErrInvalidHandler) {
		t.Fatalf("error = %v, want both missing fallback and invalid handler", err)
	}
}

func TestResolveCommand_CaseInsensitive(t *testing.T) {
	t.Parallel()

	cmds, cbs, texts := fallbacks()
	cmds = append(cmds, CommandHandler{Command: "/Start", Phases: flow.AnyPhase, Handle: noop})
	r, err := NewRegistry(cmds, cbs, texts)
	if err != nil {
		t.Fatal(err)
	}

	for _, in := range []string{"/start", "/START", "/sTaRt", "/start@RentCarBot"} {
		if got := r.ResolveCommand(in); got.Fallback || got.Name != "/start" {
			t.Errorf("ResolveCommand(%q) = %q (fallback=%v), want /start", in, got.Name, got.Fallback)
		}
	}
	for _, in := range []string{"/stop", "/start now", "/START@RentCarBot now", "/starts"} {
		if got := r.ResolveCommand(in); !got.Fallback {
			t.Errorf("ResolveCommand(%q) = %q, want fallback", in, got.Name)
		}
	}

	tests := []struct {
		text         string
		wantFallback bool
	}{
		{"/START", false},
		{"  /start@RentCarBot ", false},
		{"/start now", true},
		{"/Start   tomorrow please", true},
	}
	for _, tt := range tests {
		route, err := r.Resolve(NewMessageEvent(1, 10, 10, tt.text))
		if err != nil {
			t.Fatalf("Resolve(%q): %v", tt.text, err)
		}
		if route.Fallback != tt.wantFallback {
			t.Errorf("Resolve(%q) = %s (fallback=%v), want fallback=%v", tt.text, route.Label(), route.Fallback, tt.wantFallback)
		}
	}
	if got := r.Commands(); len(got) != 1 || got[0] != "/start" {
		t.Errorf("Commands() = %v", got)
	}
}

func TestResolveCallback_LongestPrefixWins(t *testing.T) {
	t.Parallel()

	cmds, cbs, texts := fallbacks()
	// Registration order must not matter.
	cbs = append(cbs,
		CallbackHandler{Key: "BOOK", Handle: noop},
		CallbackHandler{Key: "BOOKING_CANCEL", Handle: noop},
		CallbackHandler{Key: "BOOKING", Handle: noop},
	)
	r, err := NewRegistry(cmds, cbs, texts)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		data string
		want string
	}{
		{"BOOK:6f1c", "BOOK"},
		{"BOOKING:6f1c", "BOOKING"},
		{"BOOKING_CANCEL:6f1c", "BOOKING_CANCEL"},
		{"BOOKING_EDIT:6f1c", "BOOKING"},
		{"BOOK", "BOOK"},
		{"BOO", FallbackKey},
		{"", FallbackKey},
		{"book:6f1c", FallbackKey},
	}
	for _, tt := range tests {
		if got := r.ResolveCallback(tt.data).Name; got != tt.want {
			t.Errorf("ResolveCallback(%q) = %q, want %q", tt.data, got, tt.want)
		}
	}

	want := []string{"BOOKING_CANCEL", "BOOKING", "BOOK"}
	got := r.CallbackKeys()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("CallbackKeys() = %v, want %v", got, want)
		}
	}
}

func TestResolveText_FirstMatchWins(t *testing.T) {
	t.Parallel()

	var fallbackMatched bool
	cmds, cbs, _ := fallbacks()
	texts := []TextHandler{
		{Name: "digits", Match: func(s string) bool { return s != "" && s[0] >= '0' && s[0] <= '9' }, Handle: noop},
		{Name: "anything", Match: func(string) bool { return true }, Handle: noop},
		{Name: FallbackKey, Match: func(string) bool { fallbackMatched = true; return true }, Handle: noop},
	}
	r, err := NewRegistry(cmds, cbs, texts)
	if err != nil {
		t.Fatal(err)
	}

	if got := r.ResolveText("0912345678").Name; got != "digits" {
		t.Errorf("ResolveText(digits) = %q", got)
	}
	if got := r.ResolveText("hello").Name; got != "anything" {
		t.Errorf("ResolveText(hello) = %q", got)
	}
	if fallbackMatched {
		t.Error("fallback predicate was evaluated")
	}
}

func TestResolve_FallbackAcceptsAllPhases(t *testing.T) {
	t.Parallel()

	cmds, cbs, texts := fallbacks()
	cmds[0].Phases = flow.Only(flow.BookingFlow)
	r, err := NewRegistry(cmds, cbs, texts)
	if err != nil {
		t.Fatal(err)
	}
	got, err := r.Resolve(Event{Kind: KindCommand, Text: "/nope"})
	if err != nil {
		t.Fatal(err)
	}
	if !got.Fallback || !got.Phases.IsAny() {
		t.Errorf("fallback route = %+v, want any-phase fallback", got)
	}
	if got.Label() != "command_fallback" {
		t.Errorf("Label() = %q", got.Label())
	}

	if _, err := r.Resolve(Event{}); err == nil {
		t.Error("Resolve(unknown kind) should fail")
	}
}

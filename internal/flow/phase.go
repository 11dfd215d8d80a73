// Package flow defines the conversation phases a chat can be in and the guard
// that keeps handlers from running outside the phases they accept.
package flow

import (
	"slices"
	"strings"
)

// Phase is the top-level conversation a chat is currently inside.
// A chat has zero or one phase at a time.
type Phase string

const (
	Browsing          Phase = "browsing"
	BookingFlow       Phase = "booking_flow"
	EditBookingFlow   Phase = "edit_booking_flow"
	ReviewingBookings Phase = "reviewing_bookings"
)

// Phases lists every known phase in declaration order.
var Phases = []Phase{Browsing, BookingFlow, EditBookingFlow, ReviewingBookings}

// Valid reports whether p is one of the declared phases.
func (p Phase) Valid() bool {
	return slices.Contains(Phases, p)
}

func (p Phase) String() string { return string(p) }

// PhaseSet is the set of phases a handler accepts. The zero value accepts
// nothing; use AnyPhase for handlers that run regardless of phase.
type PhaseSet struct {
	any    bool
	phases []Phase
}

// AnyPhase accepts every phase, including the "no phase" state.
var AnyPhase = PhaseSet{any: true}

// Only returns a set restricted to the given phases.
func Only(phases ...Phase) PhaseSet {
	cp := slices.Clone(phases)
	slices.Sort(cp)
	return PhaseSet{phases: slices.Compact(cp)}
}

// IsAny reports whether the set accepts every phase.
func (s PhaseSet) IsAny() bool { return s.any }

// Contains reports whether p is accepted.
func (s PhaseSet) Contains(p Phase) bool {
	return s.any || slices.Contains(s.phases, p)
}

// Phases returns the restricted phases, nil for AnyPhase.
func (s PhaseSet) Phases() []Phase {
	return slices.Clone(s.phases)
}

func (s PhaseSet) String() string {
	if s.any {
		return "*"
	}
	names := make([]string, len(s.phases))
	for i, p := range s.phases {
		names[i] = string(p)
	}
	return "[" + strings.Join(names, ",") + "]"
}

package flow

import (
	"testing"

	"github.com/garyellow/rentcar-bot/internal/errors"
)

type phaseMap map[int64]Phase

func (m phaseMap) Phase(chatID int64) (Phase, bool) {
	p, ok := m[chatID]
	return p, ok
}

func TestGuardValidate(t *testing.T) {
	t.Parallel()

	const (
		idle    int64 = 1
		booking int64 = 2
		editing int64 = 3
	)
	g := NewGuard(phaseMap{booking: BookingFlow, editing: EditBookingFlow})

	tests := []struct {
		name    string
		chat    int64
		allowed PhaseSet
		wantErr bool
		wantMsg string
	}{
		{"any phase with no phase", idle, AnyPhase, false, ""},
		{"restricted with no phase is denied", idle, Only(BookingFlow), true, MsgNotAvailable},
		{"matching phase", booking, Only(BookingFlow, EditBookingFlow), false, ""},
		{"single required phase names it", booking, Only(EditBookingFlow), true, requiredMessages[EditBookingFlow]},
		{"multi required phase names current", editing, Only(Browsing, ReviewingBookings), true, currentMessages[EditBookingFlow]},
		{"any phase inside a flow", editing, AnyPhase, false, ""},
		{"empty set denies everything", booking, PhaseSet{}, true, currentMessages[BookingFlow]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := g.Validate(tt.chat, tt.allowed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			fce, ok := errors.AsFlowContext(err)
			if !ok {
				t.Fatalf("expected FlowContextError, got %T", err)
			}
			if fce.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", fce.Message, tt.wantMsg)
			}
		})
	}
}

func TestPhaseSet(t *testing.T) {
	t.Parallel()

	s := Only(EditBookingFlow, BookingFlow, BookingFlow)
	if got := len(s.Phases()); got != 2 {
		t.Errorf("expected duplicates removed, got %d phases", got)
	}
	if !s.Contains(BookingFlow) || s.Contains(Browsing) {
		t.Errorf("unexpected membership for %s", s)
	}
	if AnyPhase.Phases() != nil {
		t.Error("AnyPhase should not list phases")
	}
	if !AnyPhase.Contains(ReviewingBookings) {
		t.Error("AnyPhase should contain every phase")
	}
	if Phase("parked").Valid() {
		t.Error("unknown phase reported valid")
	}
}

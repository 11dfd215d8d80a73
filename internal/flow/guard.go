package flow

import (
	"github.com/garyellow/rentcar-bot/internal/errors"
)

// PhaseReader exposes the chat's current phase. It is satisfied by the
// session store.
type PhaseReader interface {
	Phase(chatID int64) (Phase, bool)
}

// MsgNotAvailable is shown when a restricted handler is hit by a chat that
// has no active flow.
const MsgNotAvailable = "That option is not available right now. Use /menu to start over."

// requiredMessages explains which flow a handler belongs to.
var requiredMessages = map[Phase]string{
	Browsing:          "That button belongs to the car catalog. Open it again from the main menu.",
	BookingFlow:       "That button only works while you are making a booking.",
	EditBookingFlow:   "That button only works while you are editing a booking.",
	ReviewingBookings: "That button only works while you are looking at your bookings.",
}

// currentMessages explains what the chat is busy with.
var currentMessages = map[Phase]string{
	Browsing:          "That is not available while browsing cars.",
	BookingFlow:       "That is not available while you are making a booking. Finish it or press Cancel.",
	EditBookingFlow:   "That is not available while you are editing a booking. Finish it or press Cancel.",
	ReviewingBookings: "That is not available while you are reviewing your bookings.",
}

// Guard checks a handler's accepted phases against the chat's phase.
type Guard struct {
	phases PhaseReader
}

// NewGuard creates a guard reading phases from r.
func NewGuard(r PhaseReader) *Guard {
	return &Guard{phases: r}
}

// Validate returns a *errors.FlowContextError when allowed does not cover the
// chat's phase. A chat without a phase only passes AnyPhase.
//
// When the handler belongs to exactly one phase the message names that flow,
// otherwise it names what the chat is currently doing.
func (g *Guard) Validate(chatID int64, allowed PhaseSet) error {
	if allowed.IsAny() {
		return nil
	}

	current, ok := g.phases.Phase(chatID)
	if !ok {
		return errors.NewFlowContextError("", MsgNotAvailable)
	}
	if allowed.Contains(current) {
		return nil
	}

	return errors.NewFlowContextError(string(current), rejectionMessage(current, allowed))
}

func rejectionMessage(current Phase, allowed PhaseSet) string {
	if required := allowed.Phases(); len(required) == 1 {
		if msg, ok := requiredMessages[required[0]]; ok {
			return msg
		}
	}
	if msg, ok := currentMessages[current]; ok {
		return msg
	}
	return MsgNotAvailable
}

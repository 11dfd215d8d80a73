package booking

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/garyellow/rentcar-bot/internal/bot"
	"github.com/garyellow/rentcar-bot/internal/rental"
	"github.com/garyellow/rentcar-bot/internal/session"
	"github.com/garyellow/rentcar-bot/internal/storage"
	"github.com/garyellow/rentcar-bot/internal/telegram"
)

// MsgEditSummary presents new dates for an existing booking.
const MsgEditSummary = "New dates for your %s booking:\n%s\n💶 New total: %s\nSave the change?"

// StartEdit opens date selection for an existing booking. The chat must
// already be in the edit phase with the booking and its car in session.
func (h *Handler) StartEdit(ctx context.Context, ev bot.Event, carName string, current time.Time) error {
	today := h.deps.Today()
	month := current
	if month.Before(today) {
		month = today
	}
	text := fmt.Sprintf("📅 Changing the dates of your %s booking.\n%s", carName, MsgAskDates)
	return h.askDates(ctx, ev, text, month)
}

func (h *Handler) showEditSummary(ctx context.Context, ev bot.Event, car *storage.Car, start, end time.Time, quote *big.Rat) error {
	h.deps.Sessions.Put(ev.ReplyChat(), session.FieldAwaiting, session.String(AwaitConfirm))
	text := fmt.Sprintf(MsgEditSummary, car.Name(), DateLine(start, end), rental.FormatMoney(quote))
	return h.deps.Reply(ctx, ev, text, telegram.Confirm(bot.KeyEditConfirm))
}

// AskDatesAgain restarts date selection, e.g. after the picked dates were
// lost to another booking.
func (h *Handler) AskDatesAgain(ctx context.Context, ev bot.Event, text string, near time.Time) error {
	if today := h.deps.Today(); near.Before(today) {
		near = today
	}
	return h.askDates(ctx, ev, text, near)
}

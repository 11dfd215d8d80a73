package booking

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyellow/rentcar-bot/internal/bot"
	domerrors "github.com/garyellow/rentcar-bot/internal/errors"
	"github.com/garyellow/rentcar-bot/internal/flow"
	"github.com/garyellow/rentcar-bot/internal/rental"
	"github.com/garyellow/rentcar-bot/internal/session"
	"github.com/garyellow/rentcar-bot/internal/storage"
	"github.com/garyellow/rentcar-bot/internal/telegram"
)

var dateRangeRegex = regexp.MustCompile(`(?i)^(\d{4}-\d{2}-\d{2})\s*(?:to|until|-|–|→)\s*(\d{4}-\d{2}-\d{2})$`)

// ParseDateRange reads "YYYY-MM-DD to YYYY-MM-DD". The order of the dates is
// not checked.
func ParseDateRange(text string) (start, end time.Time, ok bool) {
	m := dateRangeRegex.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return time.Time{}, time.Time{}, false
	}
	start, err := rental.ParseDate(m[1])
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err = rental.ParseDate(m[2])
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// LooksLikeDateRange is the text predicate for typed date ranges.
func LooksLikeDateRange(text string) bool {
	_, _, ok := ParseDateRange(text)
	return ok
}

// DateLine renders a rental period.
func DateLine(start, end time.Time) string {
	days, _ := rental.Days(start, end)
	return fmt.Sprintf("📅 %s → %s (%d day(s))", start.Format(rental.DateLayout), end.Format(rental.DateLayout), days)
}

func monthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// askDates restarts date selection with a calendar showing month.
func (h *Handler) askDates(ctx context.Context, ev bot.Event, text string, month time.Time) error {
	chatID := ev.ReplyChat()
	h.deps.Sessions.Remove(chatID, session.FieldStartDate)
	h.deps.Sessions.Remove(chatID, session.FieldEndDate)
	h.deps.Sessions.Remove(chatID, session.FieldQuote)
	h.deps.Sessions.Put(chatID, session.FieldAwaiting, session.String(AwaitStart))
	return h.sendCalendar(ctx, ev, text, month)
}

func (h *Handler) sendCalendar(ctx context.Context, ev bot.Event, text string, month time.Time) error {
	month = monthOf(month)
	h.deps.Sessions.Put(ev.ReplyChat(), session.FieldCalendarMonth, session.Date(month))
	return h.deps.Reply(ctx, ev, text, telegram.Calendar(month, h.deps.Today()))
}

// handleCalendarNav flips the calendar in place. Months before the current
// one are refused.
func (h *Handler) handleCalendarNav(ctx context.Context, ev bot.Event) error {
	cb := bot.ParseCallback(ev.Data)
	dir, err := cb.Arg(0)
	if err != nil {
		return err
	}
	shown, err := cb.Month(1)
	if err != nil {
		return err
	}

	var target time.Time
	switch dir {
	case "prev":
		target = shown.AddDate(0, -1, 0)
	case "next":
		target = shown.AddDate(0, 1, 0)
	default:
		return domerrors.NewValidationError("callback", "calendar direction "+dir)
	}

	today := h.deps.Today()
	if target.Before(monthOf(today)) {
		h.deps.Ack(ctx, ev, MsgNoPastMonth)
		return nil
	}

	chatID := ev.ReplyChat()
	h.deps.Sessions.Put(chatID, session.FieldCalendarMonth, session.Date(target))
	if ev.MessageID == 0 {
		return h.deps.Reply(ctx, ev, MsgAskDates, telegram.Calendar(target, today))
	}
	h.deps.Ack(ctx, ev, "")
	return h.deps.Messenger.EditMessageKeyboard(ctx, chatID, ev.MessageID, telegram.Calendar(target, today))
}

// handleCalendarPick takes the pickup date first and the return date second.
// A pick after both are set starts over.
func (h *Handler) handleCalendarPick(ctx context.Context, ev bot.Event) error {
	day, err := bot.ParseCallback(ev.Data).Date(0)
	if err != nil {
		return err
	}

	chatID := ev.ReplyChat()
	today := h.deps.Today()
	if day.Before(today) {
		return h.sendCalendar(ctx, ev, MsgPastDate, today)
	}

	start, hasStart := h.deps.Sessions.Date(chatID, session.FieldStartDate)
	_, hasEnd := h.deps.Sessions.Date(chatID, session.FieldEndDate)
	if !hasStart || hasEnd {
		h.deps.Sessions.Remove(chatID, session.FieldEndDate)
		h.deps.Sessions.Remove(chatID, session.FieldQuote)
		h.deps.Sessions.Put(chatID, session.FieldStartDate, session.Date(day))
		h.deps.Sessions.Put(chatID, session.FieldAwaiting, session.String(AwaitEnd))
		return h.sendCalendar(ctx, ev, fmt.Sprintf(MsgAskEnd, day.Format(rental.DateLayout)), day)
	}

	if day.Before(start) {
		return h.sendCalendar(ctx, ev, fmt.Sprintf(MsgEndBefore, start.Format(rental.DateLayout)), start)
	}
	h.deps.Sessions.Put(chatID, session.FieldEndDate, session.Date(day))
	return h.datesChosen(ctx, ev)
}

func (h *Handler) handleDateRange(ctx context.Context, ev bot.Event) error {
	start, end, _ := ParseDateRange(ev.Text)
	today := h.deps.Today()
	switch {
	case start.Before(today):
		return h.askDates(ctx, ev, MsgPastDate, today)
	case end.Before(start):
		return h.askDates(ctx, ev, fmt.Sprintf(MsgEndBefore, start.Format(rental.DateLayout)), start)
	}

	chatID := ev.ReplyChat()
	h.deps.Sessions.Put(chatID, session.FieldStartDate, session.Date(start))
	h.deps.Sessions.Put(chatID, session.FieldEndDate, session.Date(end))
	return h.datesChosen(ctx, ev)
}

// datesChosen checks availability, stores the quote and moves on: to the
// contact steps for a new booking, to the change summary for an edit.
func (h *Handler) datesChosen(ctx context.Context, ev bot.Event) error {
	chatID := ev.ReplyChat()
	car, err := h.draftCar(ctx, chatID)
	if err != nil {
		return err
	}
	start, _ := h.deps.Sessions.Date(chatID, session.FieldStartDate)
	end, _ := h.deps.Sessions.Date(chatID, session.FieldEndDate)

	phase, _ := h.deps.Sessions.Phase(chatID)
	exclude := uuid.Nil
	if phase == flow.EditBookingFlow {
		exclude, _ = h.deps.Sessions.ID(chatID, session.FieldBookingID)
	}

	qctx, cancel := h.deps.Query(ctx)
	taken, err := h.deps.DB.HasOverlap(qctx, car.ID, start, end, exclude)
	cancel()
	if err != nil {
		return fmt.Errorf("check availability: %w", err)
	}
	if taken {
		return h.datesTaken(ctx, ev, car, start)
	}

	quote, err := rental.Quote(start, end, car.DailyRate)
	if err != nil {
		return err
	}
	h.deps.Sessions.Put(chatID, session.FieldQuote, session.Decimal(quote))

	if phase == flow.EditBookingFlow {
		return h.showEditSummary(ctx, ev, car, start, end, quote)
	}
	return h.next(ctx, ev)
}

func (h *Handler) datesTaken(ctx context.Context, ev bot.Event, car *storage.Car, near time.Time) error {
	return h.askDates(ctx, ev, fmt.Sprintf(MsgTaken, car.Name()), near)
}

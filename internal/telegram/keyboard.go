package telegram

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/garyellow/rentcar-bot/internal/bot"
	"github.com/garyellow/rentcar-bot/internal/rental"
)

// Button captions.
const (
	LabelBack       = "⬅️ Back"
	LabelBrowse     = "🚗 Browse cars"
	LabelMyBookings = "📋 My bookings"
	LabelBook       = "📅 Book this car"
	LabelConfirm    = "✅ Confirm"
	LabelAbort      = "✖️ Cancel"
	LabelEdit       = "✏️ Change dates"
	LabelCancelBook = "🗑 Cancel booking"
)

// ListItem is one button of a vertical list.
type ListItem struct {
	Label string
	Data  string
}

// Markup wraps rows into a keyboard.
func Markup(rows ...[]tgbotapi.InlineKeyboardButton) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// Button is a callback button.
func Button(label, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(label, data)
}

// NavRow holds the back and main menu buttons.
func NavRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		Button(LabelBack, bot.KeyBack),
		Button(bot.MainMenuLabel, bot.KeyMainMenu),
	)
}

// MainMenu is the root screen keyboard.
func MainMenu() *tgbotapi.InlineKeyboardMarkup {
	return Markup(
		tgbotapi.NewInlineKeyboardRow(Button(LabelBrowse, bot.KeyBrowse)),
		tgbotapi.NewInlineKeyboardRow(Button(LabelMyBookings, bot.KeyMyBookings)),
	)
}

// Categories lists every car category, two per row.
func Categories() *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(rental.Categories); i += 2 {
		row := []tgbotapi.InlineKeyboardButton{categoryButton(rental.Categories[i])}
		if i+1 < len(rental.Categories) {
			row = append(row, categoryButton(rental.Categories[i+1]))
		}
		rows = append(rows, row)
	}
	rows = append(rows, NavRow())
	return Markup(rows...)
}

func categoryButton(c rental.Category) tgbotapi.InlineKeyboardButton {
	return Button(c.Label(), bot.BuildCallback(bot.KeyCategory, string(c)))
}

// List renders one button per item followed by the given extra rows and
// the navigation row.
func List(items []ListItem, extra ...[]tgbotapi.InlineKeyboardButton) *tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(items)+len(extra)+1)
	for _, it := range items {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(Button(it.Label, it.Data)))
	}
	rows = append(rows, extra...)
	rows = append(rows, NavRow())
	return Markup(rows...)
}

// ModeToggleRow switches the catalog between list and gallery.
func ModeToggleRow(current rental.BrowseMode) []tgbotapi.InlineKeyboardButton {
	next := current.Toggle()
	label := "🖼 Show photos"
	if next == rental.ModeList {
		label = "📝 Show as list"
	}
	return tgbotapi.NewInlineKeyboardRow(Button(label, bot.BuildCallback(bot.KeyMode, string(next))))
}

// CarDetail offers booking the car.
func CarDetail(carID uuid.UUID) *tgbotapi.InlineKeyboardMarkup {
	return Markup(
		tgbotapi.NewInlineKeyboardRow(Button(LabelBook, bot.BuildCallback(bot.KeyBook, carID.String()))),
		NavRow(),
	)
}

// Confirm asks to confirm or abandon a flow. confirmKey is CONFIRM for new
// bookings and EDIT_CONFIRM for edits.
func Confirm(confirmKey string) *tgbotapi.InlineKeyboardMarkup {
	return Markup(tgbotapi.NewInlineKeyboardRow(
		Button(LabelConfirm, confirmKey),
		Button(LabelAbort, bot.KeyAbort),
	))
}

// Abort is a single cancel button for steps that wait for typed input.
func Abort() *tgbotapi.InlineKeyboardMarkup {
	return Markup(tgbotapi.NewInlineKeyboardRow(Button(LabelAbort, bot.KeyAbort)))
}

// BookingActions offers changing or cancelling a booking.
func BookingActions(bookingID uuid.UUID, editable bool) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if editable {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			Button(LabelEdit, bot.BuildCallback(bot.KeyBookingEdit, bookingID.String())),
			Button(LabelCancelBook, bot.BuildCallback(bot.KeyBookingCancel, bookingID.String())),
		))
	}
	rows = append(rows, NavRow())
	return Markup(rows...)
}

var weekdays = [...]string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}

// Calendar renders month as a Monday-first grid. Days before today are
// inert; the others carry CAL_PICK:YYYY-MM-DD. The header navigates with
// CAL_NAV:prev|next:YYYY-MM relative to the shown month.
func Calendar(month, today time.Time) *tgbotapi.InlineKeyboardMarkup {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	shown := first.Format(bot.MonthLayout)

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			Button("◀", bot.BuildCallback(bot.KeyCalendarNav, "prev", shown)),
			Button(first.Format("January 2006"), bot.KeyNoop),
			Button("▶", bot.BuildCallback(bot.KeyCalendarNav, "next", shown)),
		),
	}

	header := make([]tgbotapi.InlineKeyboardButton, 0, len(weekdays))
	for _, d := range weekdays {
		header = append(header, Button(d, bot.KeyNoop))
	}
	rows = append(rows, header)

	// Monday = 0
	offset := (int(first.Weekday()) + 6) % 7
	week := make([]tgbotapi.InlineKeyboardButton, 0, 7)
	for range offset {
		week = append(week, Button(" ", bot.KeyNoop))
	}
	for day := first; day.Month() == first.Month(); day = day.AddDate(0, 0, 1) {
		if day.Before(today) {
			week = append(week, Button("·", bot.KeyNoop))
		} else {
			week = append(week, Button(fmt.Sprint(day.Day()), bot.BuildCallback(bot.KeyCalendarPick, day.Format(rental.DateLayout))))
		}
		if len(week) == 7 {
			rows = append(rows, week)
			week = make([]tgbotapi.InlineKeyboardButton, 0, 7)
		}
	}
	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, Button(" ", bot.KeyNoop))
		}
		rows = append(rows, week)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(Button(LabelAbort, bot.KeyAbort)))
	return Markup(rows...)
}

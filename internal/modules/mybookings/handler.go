// Package mybookings shows a customer's bookings and lets them cancel one or
// change its dates.
package mybookings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/garyellow/rentcar-bot/internal/bot"
	"github.com/garyellow/rentcar-bot/internal/email"
	domerrors "github.com/garyellow/rentcar-bot/internal/errors"
	"github.com/garyellow/rentcar-bot/internal/flow"
	"github.com/garyellow/rentcar-bot/internal/modules"
	"github.com/garyellow/rentcar-bot/internal/modules/booking"
	"github.com/garyellow/rentcar-bot/internal/rental"
	"github.com/garyellow/rentcar-bot/internal/session"
	"github.com/garyellow/rentcar-bot/internal/storage"
	"github.com/garyellow/rentcar-bot/internal/telegram"
)

// ModuleName identifies the module in logs.
const ModuleName = "mybookings"

// CmdBookings lists the chat's bookings.
const CmdBookings = "/bookings"

// listLimit caps the bookings shown at once.
const listLimit = 10

const (
	MsgNoBookings   = "You have no bookings yet. Browse the fleet to make one."
	MsgListHeader   = "Your bookings, latest pickup first:"
	MsgCancelled    = "🗑 Booking %s was cancelled."
	MsgLocked       = "This booking has already started or was cancelled, so it can't be changed."
	MsgUpdated      = "✅ Booking %s now runs %s → %s. New total: %s."
	MsgEditMissing  = "Pick the new dates first."
	MsgEditConflict = "Sorry, the car is taken on some of those days. Please pick other dates."
)

// Handler serves the mybookings module.
type Handler struct {
	deps    *modules.Deps
	booking *booking.Handler
}

// NewHandler creates the handler and registers the booking list screens.
// Date selection during an edit is delegated to bk.
func NewHandler(deps *modules.Deps, bk *booking.Handler) *Handler {
	h := &Handler{deps: deps, booking: bk}
	deps.Screens.Register(modules.ScreenBookings, func(ctx context.Context, ev bot.Event, _ string) error {
		return h.ShowList(ctx, ev)
	})
	deps.Screens.Register(modules.ScreenBooking, func(ctx context.Context, ev bot.Event, arg string) error {
		id, err := uuid.Parse(arg)
		if err != nil {
			return domerrors.NewValidationError("screen", "booking id "+arg)
		}
		h.enterReview(ev.ReplyChat())
		return h.ShowBooking(ctx, ev, id)
	})
	deps.Screens.Register(modules.ScreenBookingEdit, func(ctx context.Context, ev bot.Event, arg string) error {
		id, err := uuid.Parse(arg)
		if err != nil {
			return domerrors.NewValidationError("screen", "booking id "+arg)
		}
		return h.startEdit(ctx, ev, id)
	})
	return h
}

// Name returns the module name.
func (h *Handler) Name() string {
	return ModuleName
}

func (h *Handler) Commands() []bot.CommandHandler {
	return []bot.CommandHandler{
		{Command: CmdBookings, Phases: flow.AnyPhase, Handle: h.handleList},
	}
}

func (h *Handler) Callbacks() []bot.CallbackHandler {
	reviewing := flow.Only(flow.ReviewingBookings)
	return []bot.CallbackHandler{
		{Key: bot.KeyMyBookings, Phases: flow.AnyPhase, Handle: h.handleList},
		{Key: bot.KeyBooking, Phases: reviewing, Handle: h.handleShow},
		{Key: bot.KeyBookingCancel, Phases: reviewing, Handle: h.handleCancel},
		{Key: bot.KeyBookingEdit, Phases: reviewing, Handle: h.handleEdit},
		{Key: bot.KeyEditConfirm, Phases: flow.Only(flow.EditBookingFlow), Handle: h.handleEditConfirm},
	}
}

func (h *Handler) Texts() []bot.TextHandler { return nil }

func (h *Handler) enterReview(chatID int64) {
	h.deps.ResetDraft(chatID)
	h.deps.Sessions.SetPhase(chatID, flow.ReviewingBookings)
}

// customer returns the chat's customer record, or nil when the user never
// booked anything.
func (h *Handler) customer(ctx context.Context, ev bot.Event) (*storage.Customer, error) {
	qctx, cancel := h.deps.Query(ctx)
	defer cancel()
	cust, err := h.deps.DB.GetCustomerByTelegramID(qctx, ev.UserID)
	if errors.Is(err, domerrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domerrors.NewWrapper(ModuleName, "load_customer").Wrap(err, "I couldn't load your bookings right now.")
	}
	return cust, nil
}

func (h *Handler) handleList(ctx context.Context, ev bot.Event) error {
	return h.ShowList(ctx, ev)
}

// ShowList enters the review phase and lists the customer's bookings.
func (h *Handler) ShowList(ctx context.Context, ev bot.Event) error {
	chatID := ev.ReplyChat()
	h.enterReview(chatID)

	cust, err := h.customer(ctx, ev)
	if err != nil {
		return err
	}
	var list []storage.BookingDetail
	if cust != nil {
		qctx, cancel := h.deps.Query(ctx)
		list, err = h.deps.DB.ListCustomerBookings(qctx, cust.ID, listLimit)
		cancel()
		if err != nil {
			return domerrors.NewWrapper(ModuleName, "list_bookings").Wrap(err, "I couldn't load your bookings right now.")
		}
	}

	if len(list) == 0 {
		browse := tgbotapi.NewInlineKeyboardRow(telegram.Button(telegram.LabelBrowse, bot.KeyBrowse))
		err = h.deps.Reply(ctx, ev, MsgNoBookings, telegram.List(nil, browse))
	} else {
		items := make([]telegram.ListItem, 0, len(list))
		for _, d := range list {
			items = append(items, telegram.ListItem{
				Label: ListLabel(d),
				Data:  bot.BuildCallback(bot.KeyBooking, d.ID.String()),
			})
		}
		err = h.deps.Reply(ctx, ev, MsgListHeader, telegram.List(items))
	}
	if err != nil {
		return err
	}
	h.deps.Navigation.Push(chatID, modules.ScreenBookings)
	return nil
}

func (h *Handler) handleShow(ctx context.Context, ev bot.Event) error {
	id, err := bot.ParseCallback(ev.Data).UUID(0)
	if err != nil {
		return err
	}
	return h.ShowBooking(ctx, ev, id)
}

// ShowBooking renders one booking with the actions still allowed on it.
func (h *Handler) ShowBooking(ctx context.Context, ev bot.Event, id uuid.UUID) error {
	d, err := h.load(ctx, ev, id)
	if err != nil {
		return err
	}
	editable := d.Editable(h.deps.Today())
	if err := h.deps.Reply(ctx, ev, Detail(*d), telegram.BookingActions(d.ID, editable)); err != nil {
		return err
	}
	h.deps.Navigation.Push(ev.ReplyChat(), modules.Screen(modules.ScreenBooking, id.String()))
	return nil
}

// load fetches a booking owned by the event's user. Someone else's booking
// reads as missing.
func (h *Handler) load(ctx context.Context, ev bot.Event, id uuid.UUID) (*storage.BookingDetail, error) {
	wrap := domerrors.NewWrapper(ModuleName, "load_booking")
	cust, err := h.customer(ctx, ev)
	if err != nil {
		return nil, err
	}
	if cust == nil {
		return nil, wrap.Wrap(fmt.Errorf("booking %s: %w", id, domerrors.ErrNotFound), "I couldn't find that booking.")
	}
	qctx, cancel := h.deps.Query(ctx)
	defer cancel()
	d, err := h.deps.DB.GetBooking(qctx, id, cust.ID)
	if err != nil {
		return nil, wrap.Wrap(err, "I couldn't find that booking.")
	}
	return d, nil
}

func (h *Handler) handleCancel(ctx context.Context, ev bot.Event) error {
	id, err := bot.ParseCallback(ev.Data).UUID(0)
	if err != nil {
		return err
	}
	d, err := h.load(ctx, ev, id)
	if err != nil {
		return err
	}
	if !d.Editable(h.deps.Today()) {
		return h.deps.Reply(ctx, ev, MsgLocked, telegram.BookingActions(d.ID, false))
	}

	qctx, cancel := h.deps.Query(ctx)
	err = h.deps.DB.CancelBooking(qctx, d.ID, d.CustomerID)
	cancel()
	if errors.Is(err, domerrors.ErrInvalidState) {
		return h.deps.Reply(ctx, ev, MsgLocked, telegram.BookingActions(d.ID, false))
	}
	if err != nil {
		return domerrors.NewWrapper(ModuleName, "cancel_booking").Wrap(err, "I couldn't cancel the booking. Please try again.")
	}

	h.deps.RecordBooking("cancelled")
	h.deps.Logger.WithChatID(ev.ReplyChat()).WithField("booking_id", d.ID.String()).InfoContext(ctx, "Booking cancelled")
	h.deps.Notify(ctx, email.TemplateCancelled, d.Booking, d.Car, d.Customer)

	if err := h.deps.Reply(ctx, ev, fmt.Sprintf(MsgCancelled, modules.Ref(d.ID)), nil); err != nil {
		return err
	}
	// The detail screen of a cancelled booking is stale; show the list.
	h.deps.Navigation.Pop(ev.ReplyChat())
	ev.CallbackID = "" // answered
	return h.ShowList(ctx, ev)
}

func (h *Handler) handleEdit(ctx context.Context, ev bot.Event) error {
	id, err := bot.ParseCallback(ev.Data).UUID(0)
	if err != nil {
		return err
	}
	return h.startEdit(ctx, ev, id)
}

// startEdit switches the chat to the edit phase and hands date selection to
// the booking module.
func (h *Handler) startEdit(ctx context.Context, ev bot.Event, id uuid.UUID) error {
	d, err := h.load(ctx, ev, id)
	if err != nil {
		return err
	}
	chatID := ev.ReplyChat()
	if !d.Editable(h.deps.Today()) {
		h.enterReview(chatID)
		return h.deps.Reply(ctx, ev, MsgLocked, telegram.BookingActions(d.ID, false))
	}

	h.deps.ResetDraft(chatID)
	h.deps.Sessions.SetPhase(chatID, flow.EditBookingFlow)
	h.deps.Sessions.Put(chatID, session.FieldBookingID, session.ID(d.ID))
	h.deps.Sessions.Put(chatID, session.FieldCarID, session.ID(d.CarID))
	if err := h.booking.StartEdit(ctx, ev, d.Car.Name(), d.Start); err != nil {
		return err
	}
	h.deps.Navigation.Push(chatID, modules.Screen(modules.ScreenBookingEdit, d.ID.String()))
	return nil
}

// handleEditConfirm saves the new dates picked during the edit.
func (h *Handler) handleEditConfirm(ctx context.Context, ev bot.Event) error {
	chatID := ev.ReplyChat()
	id, okID := h.deps.Sessions.ID(chatID, session.FieldBookingID)
	start, okStart := h.deps.Sessions.Date(chatID, session.FieldStartDate)
	end, okEnd := h.deps.Sessions.Date(chatID, session.FieldEndDate)
	if !okID {
		return domerrors.NewWrapper(ModuleName, "edit_booking").Wrap(
			fmt.Errorf("no booking in session: %w", domerrors.ErrInvalidState), "This change has expired. Open the booking again.")
	}
	if !okStart || !okEnd {
		return h.deps.Reply(ctx, ev, MsgEditMissing, telegram.Abort())
	}

	d, err := h.load(ctx, ev, id)
	if err != nil {
		return err
	}
	if !d.Editable(h.deps.Today()) {
		h.deps.EndFlow(chatID)
		return h.deps.Reply(ctx, ev, MsgLocked, telegram.MainMenu())
	}
	total, err := rental.Quote(start, end, d.Car.DailyRate)
	if err != nil {
		return err
	}

	qctx, cancel := h.deps.Query(ctx)
	err = h.deps.DB.UpdateBookingDates(qctx, d.ID, d.CustomerID, start, end, total)
	cancel()
	if errors.Is(err, storage.ErrCarUnavailable) {
		h.deps.RecordBooking("conflict")
		return h.booking.AskDatesAgain(ctx, ev, MsgEditConflict, start)
	}
	if err != nil {
		return domerrors.NewWrapper(ModuleName, "edit_booking").Wrap(err, "I couldn't change the booking. Please try again.")
	}

	h.deps.RecordBooking("updated")
	d.Start, d.End, d.Total = start, end, total
	h.deps.Logger.WithChatID(chatID).WithField("booking_id", d.ID.String()).InfoContext(ctx, "Booking dates changed")
	h.deps.Notify(ctx, email.TemplateUpdated, d.Booking, d.Car, d.Customer)

	h.deps.EndFlow(chatID)
	text := fmt.Sprintf(MsgUpdated, modules.Ref(d.ID), start.Format(rental.DateLayout), end.Format(rental.DateLayout), rental.FormatMoney(total))
	if err := h.deps.Reply(ctx, ev, text, telegram.MainMenu()); err != nil {
		return err
	}
	h.deps.Navigation.Push(chatID, modules.ScreenMainMenu)
	return nil
}

// ListLabel is the button caption of a booking in the list.
func ListLabel(d storage.BookingDetail) string {
	icon := "🟢"
	if d.Status == storage.StatusCancelled {
		icon = "⚪"
	}
	return fmt.Sprintf("%s %s · %s", icon, d.Start.Format(rental.DateLayout), d.Car.Name())
}

// Detail is the booking detail text.
func Detail(d storage.BookingDetail) string {
	return strings.Join([]string{
		fmt.Sprintf("Booking %s (%s)", modules.Ref(d.ID), d.Status),
		"🚗 " + d.Car.Name(),
		booking.DateLine(d.Start, d.End),
		"💶 Total: " + rental.FormatMoney(d.Total),
	}, "\n")
}

// Package booking walks a chat through reserving a car: pickup and return
// dates from an inline calendar or typed text, contact details, a summary and
// the final confirmation. It also serves the date steps of a booking edit.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/garyellow/rentcar-bot/internal/bot"
	"github.com/garyellow/rentcar-bot/internal/email"
	domerrors "github.com/garyellow/rentcar-bot/internal/errors"
	"github.com/garyellow/rentcar-bot/internal/flow"
	"github.com/garyellow/rentcar-bot/internal/modules"
	"github.com/garyellow/rentcar-bot/internal/rental"
	"github.com/garyellow/rentcar-bot/internal/session"
	"github.com/garyellow/rentcar-bot/internal/storage"
	"github.com/garyellow/rentcar-bot/internal/telegram"
)

// ModuleName identifies the module in logs.
const ModuleName = "booking"

// Values of session.FieldAwaiting.
const (
	AwaitStart   = "start"
	AwaitEnd     = "end"
	AwaitPhone   = "phone"
	AwaitEmail   = "email"
	AwaitConfirm = "confirm"
)

const (
	MsgAskStart    = "📅 Booking the %s.\nPick your pickup date, or type a range like 2026-10-20 to 2026-10-22."
	MsgAskDates    = "📅 Pick your pickup date, or type a range like 2026-10-20 to 2026-10-22."
	MsgAskEnd      = "Pickup on %s. Now pick your return date."
	MsgPastDate    = "That date is in the past. Please pick another one."
	MsgEndBefore   = "The return date can't be before the pickup date (%s). Please pick again."
	MsgTaken       = "Sorry, the %s is already booked on some of those days. Please pick other dates."
	MsgAskPhone    = "📞 What phone number can we reach you at?"
	MsgAskEmail    = "📧 And your email address for the confirmation?"
	MsgConfirmed   = "✅ You're booked! Reference %s.\n%s"
	MsgAborted     = "Okay, nothing was saved."
	MsgNoPastMonth = "You can't book in the past."
	MsgExpired     = "This booking has expired. Please start again from the catalog."
)

// Handler serves the booking module.
type Handler struct {
	deps *modules.Deps
}

// NewHandler creates the handler and registers the booking start screen.
func NewHandler(deps *modules.Deps) *Handler {
	h := &Handler{deps: deps}
	deps.Screens.Register(modules.ScreenBook, func(ctx context.Context, ev bot.Event, arg string) error {
		id, err := uuid.Parse(arg)
		if err != nil {
			return domerrors.NewValidationError("screen", "car id "+arg)
		}
		return h.Start(ctx, ev, id)
	})
	return h
}

// Name returns the module name.
func (h *Handler) Name() string {
	return ModuleName
}

func (h *Handler) Commands() []bot.CommandHandler { return nil }

func (h *Handler) Callbacks() []bot.CallbackHandler {
	dates := flow.Only(flow.BookingFlow, flow.EditBookingFlow)
	return []bot.CallbackHandler{
		{Key: bot.KeyBook, Phases: flow.Only(flow.Browsing), Handle: h.handleBook},
		{Key: bot.KeyCalendarNav, Phases: dates, Handle: h.handleCalendarNav},
		{Key: bot.KeyCalendarPick, Phases: dates, Handle: h.handleCalendarPick},
		{Key: bot.KeyConfirm, Phases: flow.Only(flow.BookingFlow), Handle: h.handleConfirm},
		{Key: bot.KeyAbort, Phases: dates, Handle: h.handleAbort},
	}
}

// Texts are ordered so that a date range is never mistaken for a phone
// number.
func (h *Handler) Texts() []bot.TextHandler {
	return []bot.TextHandler{
		{Name: "date_range", Match: LooksLikeDateRange, Phases: flow.Only(flow.BookingFlow, flow.EditBookingFlow), Handle: h.handleDateRange},
		{Name: "phone", Match: LooksLikePhone, Phases: flow.Only(flow.BookingFlow), Handle: h.handlePhone},
		{Name: "email", Match: LooksLikeEmail, Phases: flow.Only(flow.BookingFlow), Handle: h.handleEmail},
	}
}

func (h *Handler) handleBook(ctx context.Context, ev bot.Event) error {
	id, err := bot.ParseCallback(ev.Data).UUID(0)
	if err != nil {
		return err
	}
	return h.Start(ctx, ev, id)
}

// Start opens the booking flow for a car and asks for the pickup date.
// Contact details already on file are reused.
func (h *Handler) Start(ctx context.Context, ev bot.Event, carID uuid.UUID) error {
	car, err := h.activeCar(ctx, carID)
	if err != nil {
		return err
	}

	chatID := ev.ReplyChat()
	h.deps.ResetDraft(chatID)
	h.deps.Sessions.SetPhase(chatID, flow.BookingFlow)
	h.deps.Sessions.Put(chatID, session.FieldCarID, session.ID(car.ID))
	h.prefillContact(ctx, ev)

	if err := h.askDates(ctx, ev, fmt.Sprintf(MsgAskStart, car.Name()), h.deps.Today()); err != nil {
		return err
	}
	h.deps.Navigation.Push(chatID, modules.Screen(modules.ScreenBook, car.ID.String()))
	return nil
}

func (h *Handler) prefillContact(ctx context.Context, ev bot.Event) {
	if ev.UserID == 0 {
		return
	}
	qctx, cancel := h.deps.Query(ctx)
	cust, err := h.deps.DB.GetCustomerByTelegramID(qctx, ev.UserID)
	cancel()
	if err != nil {
		if !errors.Is(err, domerrors.ErrNotFound) {
			h.deps.Logger.WithError(err).WarnContext(ctx, "Failed to load customer contact")
		}
		return
	}
	chatID := ev.ReplyChat()
	if _, ok := h.deps.Sessions.String(chatID, session.FieldPhone); !ok && cust.Phone != "" {
		h.deps.Sessions.Put(chatID, session.FieldPhone, session.String(cust.Phone))
	}
	if _, ok := h.deps.Sessions.String(chatID, session.FieldEmail); !ok && cust.Email != "" {
		h.deps.Sessions.Put(chatID, session.FieldEmail, session.String(cust.Email))
	}
}

func (h *Handler) activeCar(ctx context.Context, id uuid.UUID) (*storage.Car, error) {
	qctx, cancel := h.deps.Query(ctx)
	car, err := h.deps.DB.GetCar(qctx, id)
	cancel()
	if err == nil && !car.Active {
		err = fmt.Errorf("car %s is retired: %w", id, domerrors.ErrNotFound)
	}
	if err != nil {
		return nil, domerrors.NewWrapper(ModuleName, "load_car").Wrap(err, "That car is no longer available.")
	}
	return car, nil
}

// draftCar loads the car of the chat's current draft.
func (h *Handler) draftCar(ctx context.Context, chatID int64) (*storage.Car, error) {
	id, ok := h.deps.Sessions.ID(chatID, session.FieldCarID)
	if !ok {
		return nil, domerrors.NewWrapper(ModuleName, "draft_car").Wrap(
			fmt.Errorf("no car in session: %w", domerrors.ErrInvalidState), MsgExpired)
	}
	return h.activeCar(ctx, id)
}

// next asks for whatever the draft still lacks, ending at the summary.
func (h *Handler) next(ctx context.Context, ev bot.Event) error {
	chatID := ev.ReplyChat()
	_, hasStart := h.deps.Sessions.Date(chatID, session.FieldStartDate)
	_, hasEnd := h.deps.Sessions.Date(chatID, session.FieldEndDate)
	if !hasStart || !hasEnd {
		return h.askDates(ctx, ev, MsgAskDates, h.deps.Today())
	}
	if _, ok := h.deps.Sessions.Decimal(chatID, session.FieldQuote); !ok {
		return h.datesChosen(ctx, ev)
	}
	if _, ok := h.deps.Sessions.String(chatID, session.FieldPhone); !ok {
		h.deps.Sessions.Put(chatID, session.FieldAwaiting, session.String(AwaitPhone))
		return h.deps.Reply(ctx, ev, MsgAskPhone, telegram.Abort())
	}
	if _, ok := h.deps.Sessions.String(chatID, session.FieldEmail); !ok {
		h.deps.Sessions.Put(chatID, session.FieldAwaiting, session.String(AwaitEmail))
		return h.deps.Reply(ctx, ev, MsgAskEmail, telegram.Abort())
	}
	return h.showSummary(ctx, ev)
}

func (h *Handler) showSummary(ctx context.Context, ev bot.Event) error {
	chatID := ev.ReplyChat()
	car, err := h.draftCar(ctx, chatID)
	if err != nil {
		return err
	}
	start, _ := h.deps.Sessions.Date(chatID, session.FieldStartDate)
	end, _ := h.deps.Sessions.Date(chatID, session.FieldEndDate)
	quote, _ := h.deps.Sessions.Decimal(chatID, session.FieldQuote)
	phone, _ := h.deps.Sessions.String(chatID, session.FieldPhone)
	mail, _ := h.deps.Sessions.String(chatID, session.FieldEmail)

	h.deps.Sessions.Put(chatID, session.FieldAwaiting, session.String(AwaitConfirm))
	text := strings.Join([]string{
		"Please check your booking:",
		"🚗 " + car.Name(),
		DateLine(start, end),
		"💶 Total: " + rental.FormatMoney(quote),
		"📞 " + phone,
		"📧 " + mail,
	}, "\n")
	return h.deps.Reply(ctx, ev, text, telegram.Confirm(bot.KeyConfirm))
}

// handleConfirm stores the booking. Missing pieces are asked for again
// instead of failing, and the price is computed afresh from the car's rate.
func (h *Handler) handleConfirm(ctx context.Context, ev bot.Event) error {
	chatID := ev.ReplyChat()
	start, okStart := h.deps.Sessions.Date(chatID, session.FieldStartDate)
	end, okEnd := h.deps.Sessions.Date(chatID, session.FieldEndDate)
	phone, okPhone := h.deps.Sessions.String(chatID, session.FieldPhone)
	mail, okMail := h.deps.Sessions.String(chatID, session.FieldEmail)
	if !okStart || !okEnd || !okPhone || !okMail {
		return h.next(ctx, ev)
	}

	car, err := h.draftCar(ctx, chatID)
	if err != nil {
		return err
	}
	total, err := rental.Quote(start, end, car.DailyRate)
	if err != nil {
		return err
	}

	wrap := domerrors.NewWrapper(ModuleName, "create_booking")
	qctx, cancel := h.deps.Query(ctx)
	defer cancel()
	cust, err := h.deps.DB.GetOrCreateCustomer(qctx, ev.UserID, ev.FirstName, ev.Username)
	if err != nil {
		return wrap.Wrap(err, "I couldn't save your booking. Please try again.")
	}
	if err := h.deps.DB.UpdateContact(qctx, cust.ID, phone, mail); err != nil {
		return wrap.Wrap(err, "I couldn't save your contact details. Please try again.")
	}
	cust.Phone, cust.Email = phone, mail

	b := &storage.Booking{CustomerID: cust.ID, CarID: car.ID, Start: start, End: end, Total: total}
	if err := h.deps.DB.CreateBooking(qctx, b); err != nil {
		if errors.Is(err, storage.ErrCarUnavailable) {
			h.deps.RecordBooking("conflict")
			return h.datesTaken(ctx, ev, car, start)
		}
		return wrap.Wrap(err, "I couldn't save your booking. Please try again.")
	}

	h.deps.RecordBooking("created")
	h.deps.Logger.WithChatID(chatID).WithField("booking_id", b.ID.String()).InfoContext(ctx, "Booking created")
	h.deps.Notify(ctx, email.TemplateConfirmed, *b, *car, *cust)

	h.deps.EndFlow(chatID)
	text := fmt.Sprintf(MsgConfirmed, modules.Ref(b.ID), strings.Join([]string{
		"🚗 " + car.Name(),
		DateLine(start, end),
		"💶 Total: " + rental.FormatMoney(total),
	}, "\n"))
	if err := h.deps.Reply(ctx, ev, text, telegram.MainMenu()); err != nil {
		return err
	}
	h.deps.Navigation.Push(chatID, modules.ScreenMainMenu)
	return nil
}

// handleAbort drops the draft booking or edit.
func (h *Handler) handleAbort(ctx context.Context, ev bot.Event) error {
	chatID := ev.ReplyChat()
	h.deps.EndFlow(chatID)
	if err := h.deps.Reply(ctx, ev, MsgAborted, telegram.MainMenu()); err != nil {
		return err
	}
	h.deps.Navigation.Push(chatID, modules.ScreenMainMenu)
	return nil
}

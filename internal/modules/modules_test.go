package modules_test

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/rentcar-bot/internal/bot"
	"github.com/garyellow/rentcar-bot/internal/email"
	"github.com/garyellow/rentcar-bot/internal/flow"
	"github.com/garyellow/rentcar-bot/internal/logger"
	"github.com/garyellow/rentcar-bot/internal/modules"
	"github.com/garyellow/rentcar-bot/internal/modules/booking"
	"github.com/garyellow/rentcar-bot/internal/modules/catalog"
	"github.com/garyellow/rentcar-bot/internal/modules/menu"
	"github.com/garyellow/rentcar-bot/internal/modules/mybookings"
	"github.com/garyellow/rentcar-bot/internal/navigation"
	"github.com/garyellow/rentcar-bot/internal/photos"
	"github.com/garyellow/rentcar-bot/internal/rental"
	"github.com/garyellow/rentcar-bot/internal/session"
	"github.com/garyellow/rentcar-bot/internal/storage"
	"github.com/garyellow/rentcar-bot/internal/telegram"
)

const chat int64 = 77

type notification struct {
	tmpl email.Template
	to   string
	data email.BookingData
}

type fakeMail struct {
	mu   sync.Mutex
	sent []notification
}

func (f *fakeMail) Notify(tmpl email.Template, to string, data email.BookingData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, notification{tmpl, to, data})
	return nil
}

func (f *fakeMail) all() []notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notification(nil), f.sent...)
}

type fakePhotos map[string]string

func (f fakePhotos) URL(_ context.Context, key string) (string, error) {
	if u, ok := f[key]; ok {
		return u, nil
	}
	return "", photos.ErrNotFound
}

type harness struct {
	t          *testing.T
	deps       *modules.Deps
	rec        *telegram.Recorder
	db         *storage.DB
	mail       *fakeMail
	dispatcher *bot.Dispatcher
	updateID   int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := storage.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.SeedIfEmpty(context.Background())
	require.NoError(t, err)

	log := logger.NewWithWriter("error", io.Discard)
	h := &harness{t: t, rec: telegram.NewRecorder(), db: db, mail: &fakeMail{}}
	h.deps = &modules.Deps{
		Messenger:      h.rec,
		Sessions:       session.NewStore(),
		Navigation:     navigation.NewStack(),
		DB:             db,
		Photos:         photos.Disabled{},
		Email:          h.mail,
		Screens:        modules.NewScreens(),
		Logger:         log,
		Now:            func() time.Time { return time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC) },
		MaxCarsPerPage: 10,
	}

	bk := booking.NewHandler(h.deps)
	reg, err := modules.NewRegistry(
		menu.NewHandler(h.deps),
		catalog.NewHandler(h.deps),
		bk,
		mybookings.NewHandler(h.deps, bk),
	)
	require.NoError(t, err)

	h.dispatcher = bot.NewDispatcher(bot.DispatcherConfig{
		Registry: reg,
		Guard:    flow.NewGuard(h.deps.Sessions),
		Reporter: bot.NewReporter(bot.ReporterConfig{
			Notifier:   h.rec,
			Navigation: h.deps.Navigation,
			Phases:     h.deps.Sessions,
			Logger:     log,
		}),
		Logger: log,
	})
	return h
}

func (h *harness) nextID() int {
	h.updateID++
	return h.updateID
}

func (h *harness) send(text string) error {
	ev := bot.NewMessageEvent(h.nextID(), chat, chat, text)
	ev.FirstName = "Ana"
	ev.Username = "ana"
	return h.dispatcher.Dispatch(context.Background(), ev)
}

func (h *harness) press(data string) error {
	id := h.nextID()
	ev := bot.NewCallbackEvent(id, chat, chat, fmt.Sprintf("cb-%d", id), data, 500)
	ev.FirstName = "Ana"
	return h.dispatcher.Dispatch(context.Background(), ev)
}

func (h *harness) mustSend(text string) {
	h.t.Helper()
	require.NoError(h.t, h.send(text), "send %q", text)
}

func (h *harness) mustPress(data string) {
	h.t.Helper()
	require.NoError(h.t, h.press(data), "press %q", data)
}

func (h *harness) last() telegram.Call {
	h.t.Helper()
	c, ok := h.rec.Last(chat)
	require.True(h.t, ok, "nothing sent to chat")
	return c
}

func (h *harness) phase() flow.Phase {
	p, _ := h.deps.Sessions.Phase(chat)
	return p
}

func (h *harness) cheapest(cat rental.Category) storage.Car {
	h.t.Helper()
	cars, err := h.db.ListCarsByCategory(context.Background(), cat, 1)
	require.NoError(h.t, err)
	require.Len(h.t, cars, 1)
	return cars[0]
}

func (h *harness) customer() *storage.Customer {
	h.t.Helper()
	c, err := h.db.GetOrCreateCustomer(context.Background(), chat, "Ana", "ana")
	require.NoError(h.t, err)
	return c
}

func TestStartShowsMainMenu(t *testing.T) {
	h := newHarness(t)

	h.mustSend("/start")

	msg := h.last()
	assert.Contains(t, msg.Text, "Hi Ana")
	assert.True(t, msg.HasButton(bot.KeyBrowse))
	assert.True(t, msg.HasButton(bot.KeyMyBookings))
	assert.Equal(t, []string{modules.ScreenMainMenu}, h.deps.Navigation.Frames(chat))
	_, hasPhase := h.deps.Sessions.Phase(chat)
	assert.False(t, hasPhase)

	_, err := h.db.GetCustomerByTelegramID(context.Background(), chat)
	assert.NoError(t, err)
}

func TestCommandsAreCaseInsensitive(t *testing.T) {
	h := newHarness(t)
	h.mustSend("/START@RentCarBot")
	assert.Contains(t, h.last().Text, "Hi Ana")
}

func TestBackWithEmptyHistoryShowsMainMenu(t *testing.T) {
	h := newHarness(t)

	h.mustPress(bot.KeyBack)

	msg := h.last()
	assert.Equal(t, menu.MsgMainMenu, msg.Text)
	assert.True(t, msg.HasButton(bot.KeyBrowse))
	assert.Equal(t, []string{modules.ScreenMainMenu}, h.deps.Navigation.Frames(chat))
}

func TestBrowseAndGoBack(t *testing.T) {
	h := newHarness(t)
	car := h.cheapest(rental.Economy)

	h.mustSend("/start")
	h.mustPress(bot.KeyBrowse)
	assert.Equal(t, flow.Browsing, h.phase())
	assert.True(t, h.last().HasButton("CATEGORY:suv"))

	h.mustPress("CATEGORY:economy")
	list := h.last()
	assert.Contains(t, list.Text, "Economy cars, cheapest first:")
	assert.True(t, list.HasButton("CAR:"+car.ID.String()))
	assert.True(t, list.HasButton("MODE:gallery"))

	h.mustPress("CAR:" + car.ID.String())
	card := h.last()
	assert.Equal(t, telegram.CallMessage, card.Kind, "photos are disabled")
	assert.Equal(t, catalog.Caption(car), card.Text)
	assert.True(t, card.HasButton("BOOK:"+car.ID.String()))
	assert.Equal(t, []string{"main_menu", "categories", "category:economy", "car:" + car.ID.String()}, h.deps.Navigation.Frames(chat))

	h.mustPress(bot.KeyBack)
	assert.Contains(t, h.last().Text, "Economy cars, cheapest first:")
	assert.Equal(t, []string{"main_menu", "categories", "category:economy"}, h.deps.Navigation.Frames(chat))

	h.mustPress(bot.KeyBack)
	h.mustPress(bot.KeyBack)
	assert.Equal(t, menu.MsgMainMenu, h.last().Text)
	assert.Equal(t, []string{"main_menu"}, h.deps.Navigation.Frames(chat))
}

func TestGalleryMode(t *testing.T) {
	h := newHarness(t)
	cars, err := h.db.ListCarsByCategory(context.Background(), rental.Economy, 0)
	require.NoError(t, err)
	require.Len(t, cars, 2)
	h.deps.Photos = fakePhotos{cars[0].PhotoKey: "https://cdn.test/" + cars[0].PhotoKey}

	h.mustPress(bot.KeyBrowse)
	h.mustPress("CATEGORY:economy")
	h.rec.Reset()
	h.mustPress("MODE:gallery")

	sent := h.rec.Sent(chat)
	require.Len(t, sent, 3)
	assert.Equal(t, telegram.CallPhoto, sent[0].Kind)
	assert.Equal(t, "https://cdn.test/"+cars[0].PhotoKey, sent[0].PhotoURL)
	assert.Equal(t, telegram.CallMessage, sent[1].Kind)
	assert.True(t, sent[1].HasButton("BOOK:"+cars[1].ID.String()))
	assert.True(t, sent[2].HasButton("MODE:list"))

	mode, ok := h.deps.Sessions.Mode(chat, session.FieldBrowseMode)
	require.True(t, ok)
	assert.Equal(t, rental.ModeGallery, mode)
}

func TestCatalogNeedsBrowsingPhase(t *testing.T) {
	h := newHarness(t)

	err := h.press("CATEGORY:suv")

	require.Error(t, err)
	assert.Equal(t, flow.MsgNotAvailable, h.last().Text)
	assert.Zero(t, h.deps.Sessions.Len(chat))
}

func TestInvalidCallbackArgument(t *testing.T) {
	h := newHarness(t)
	h.mustPress(bot.KeyBrowse)

	err := h.press("CATEGORY:spaceship")

	require.Error(t, err)
	assert.Equal(t, bot.MsgApology, h.last().Text)
	assert.Zero(t, h.deps.Navigation.Len(chat))
}

func bookCar(t *testing.T, h *harness, car storage.Car) {
	t.Helper()
	h.mustPress(bot.KeyBrowse)
	h.mustPress("CATEGORY:" + string(car.Category))
	h.mustPress("CAR:" + car.ID.String())
	h.mustPress("BOOK:" + car.ID.String())
}

func TestBookingFlow(t *testing.T) {
	h := newHarness(t)
	car := h.cheapest(rental.Economy)

	bookCar(t, h, car)
	assert.Equal(t, flow.BookingFlow, h.phase())
	cal := h.last()
	assert.Contains(t, cal.Text, car.Name())
	assert.True(t, cal.HasButton("CAL_PICK:2026-10-20"))
	assert.False(t, cal.HasButton("CAL_PICK:2026-10-14"), "past days are inert")

	h.mustPress("CAL_PICK:2026-10-20")
	assert.Contains(t, h.last().Text, "Pickup on 2026-10-20")

	h.mustPress("CAL_PICK:2026-10-22")
	assert.Equal(t, booking.MsgAskPhone, h.last().Text)

	h.mustSend("+1 (555) 123-4567")
	assert.Equal(t, booking.MsgAskEmail, h.last().Text)

	h.mustSend("Ana@Example.com")
	summary := h.last()
	assert.Contains(t, summary.Text, "Total: 87.00")
	assert.Contains(t, summary.Text, "+15551234567")
	assert.Contains(t, summary.Text, "ana@example.com")
	assert.True(t, summary.HasButton(bot.KeyConfirm))

	h.mustPress(bot.KeyConfirm)
	assert.Contains(t, h.last().Text, "You're booked!")
	_, hasPhase := h.deps.Sessions.Phase(chat)
	assert.False(t, hasPhase)
	assert.Equal(t, []string{modules.ScreenMainMenu}, h.deps.Navigation.Frames(chat))

	cust := h.customer()
	assert.Equal(t, "+15551234567", cust.Phone)
	list, err := h.db.ListCustomerBookings(context.Background(), cust.ID, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 0, list[0].Total.Cmp(big.NewRat(87, 1)))

	mails := h.mail.all()
	require.Len(t, mails, 1)
	assert.Equal(t, email.TemplateConfirmed, mails[0].tmpl)
	assert.Equal(t, "ana@example.com", mails[0].to)
	assert.Equal(t, 3, mails[0].data.Days)
}

func TestBookingReusesContactOnFile(t *testing.T) {
	h := newHarness(t)
	car := h.cheapest(rental.SUV)
	cust := h.customer()
	require.NoError(t, h.db.UpdateContact(context.Background(), cust.ID, "+4912345678", "ana@example.com"))

	bookCar(t, h, car)
	h.mustSend("2026-11-02 to 2026-11-03")

	summary := h.last()
	assert.True(t, summary.HasButton(bot.KeyConfirm))
	assert.Contains(t, summary.Text, "+4912345678")
}

func TestBookingRejectsBadDates(t *testing.T) {
	h := newHarness(t)
	car := h.cheapest(rental.Compact)
	bookCar(t, h, car)

	h.mustPress("CAL_PICK:2026-10-01")
	assert.Equal(t, booking.MsgPastDate, h.last().Text)

	h.mustPress("CAL_PICK:2026-10-20")
	h.mustPress("CAL_PICK:2026-10-18")
	assert.Contains(t, h.last().Text, "can't be before the pickup date (2026-10-20)")
	_, hasEnd := h.deps.Sessions.Date(chat, session.FieldEndDate)
	assert.False(t, hasEnd)

	h.mustSend("2026-10-25 to 2026-10-24")
	assert.Contains(t, h.last().Text, "can't be before the pickup date")
}

func TestBookingOverlap(t *testing.T) {
	h := newHarness(t)
	car := h.cheapest(rental.Van)
	other, err := h.db.GetOrCreateCustomer(context.Background(), 999, "Bo", "bo")
	require.NoError(t, err)
	require.NoError(t, h.db.CreateBooking(context.Background(), &storage.Booking{
		CustomerID: other.ID, CarID: car.ID,
		Start: day(t, "2026-10-21"), End: day(t, "2026-10-23"), Total: big.NewRat(285, 1),
	}))

	bookCar(t, h, car)
	h.mustSend("2026-10-20 to 2026-10-21")

	assert.Contains(t, h.last().Text, "already booked")
	_, hasStart := h.deps.Sessions.Date(chat, session.FieldStartDate)
	assert.False(t, hasStart)
	assert.Equal(t, flow.BookingFlow, h.phase())
}

func TestCalendarNavigation(t *testing.T) {
	h := newHarness(t)
	bookCar(t, h, h.cheapest(rental.Economy))
	h.rec.Reset()

	h.mustPress("CAL_NAV:prev:2026-10")
	calls := h.rec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, telegram.CallAnswer, calls[0].Kind)
	assert.Equal(t, booking.MsgNoPastMonth, calls[0].Text)

	h.mustPress("CAL_NAV:next:2026-10")
	var edit telegram.Call
	for _, c := range h.rec.Calls() {
		if c.Kind == telegram.CallEdit {
			edit = c
		}
	}
	assert.Equal(t, 500, edit.MessageID)
	assert.True(t, edit.HasButton("CAL_PICK:2026-11-01"))
	month, ok := h.deps.Sessions.Date(chat, session.FieldCalendarMonth)
	require.True(t, ok)
	assert.Equal(t, "2026-11", month.Format(bot.MonthLayout))
}

func TestEditButtonDuringBookingIsRejected(t *testing.T) {
	h := newHarness(t)
	bookCar(t, h, h.cheapest(rental.Economy))
	h.mustPress("CAL_PICK:2026-10-20")
	before := h.deps.Sessions.Len(chat)
	frames := h.deps.Navigation.Frames(chat)

	err := h.press(bot.KeyEditConfirm)

	require.Error(t, err)
	assert.Equal(t, "That button only works while you are editing a booking.", h.last().Text)
	assert.Equal(t, flow.BookingFlow, h.phase())
	assert.Equal(t, before, h.deps.Sessions.Len(chat))
	assert.Equal(t, frames, h.deps.Navigation.Frames(chat))
	start, ok := h.deps.Sessions.Date(chat, session.FieldStartDate)
	require.True(t, ok)
	assert.Equal(t, "2026-10-20", start.Format(rental.DateLayout))
}

func TestAbortBooking(t *testing.T) {
	h := newHarness(t)
	bookCar(t, h, h.cheapest(rental.Economy))

	h.mustPress(bot.KeyAbort)

	assert.Equal(t, booking.MsgAborted, h.last().Text)
	assert.Zero(t, h.deps.Sessions.Len(chat))
	assert.Equal(t, []string{modules.ScreenMainMenu}, h.deps.Navigation.Frames(chat))
}

func TestCancelCommand(t *testing.T) {
	h := newHarness(t)
	h.mustSend("/cancel")
	assert.Equal(t, menu.MsgNothingToCancel, h.last().Text)

	bookCar(t, h, h.cheapest(rental.Economy))
	h.mustSend("/cancel")
	assert.Equal(t, menu.MsgCancelled, h.last().Text)
	_, hasPhase := h.deps.Sessions.Phase(chat)
	assert.False(t, hasPhase)
}

func TestFallbacks(t *testing.T) {
	h := newHarness(t)

	h.mustSend("/teleport")
	assert.Equal(t, menu.MsgUnknownCommand, h.last().Text)

	h.mustSend("hello there")
	assert.Equal(t, menu.MsgUnknownText, h.last().Text)

	h.mustPress("LEGACY_BUTTON:1")
	assert.Equal(t, menu.MsgMainMenu, h.last().Text)
	var answer string
	for _, c := range h.rec.Calls() {
		if c.Kind == telegram.CallAnswer {
			answer = c.Text
		}
	}
	assert.Equal(t, menu.MsgStaleButton, answer)
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := rental.ParseDate(s)
	require.NoError(t, err)
	return d
}

func seedBooking(t *testing.T, h *harness, car storage.Car, start, end string) *storage.Booking {
	t.Helper()
	cust := h.customer()
	require.NoError(t, h.db.UpdateContact(context.Background(), cust.ID, "+4912345678", "ana@example.com"))
	b := &storage.Booking{CustomerID: cust.ID, CarID: car.ID, Start: day(t, start), End: day(t, end)}
	total, err := rental.Quote(b.Start, b.End, car.DailyRate)
	require.NoError(t, err)
	b.Total = total
	require.NoError(t, h.db.CreateBooking(context.Background(), b))
	return b
}

func TestMyBookingsEmpty(t *testing.T) {
	h := newHarness(t)
	h.mustSend("/bookings")
	assert.Equal(t, mybookings.MsgNoBookings, h.last().Text)
	assert.True(t, h.last().HasButton(bot.KeyBrowse))
	assert.Equal(t, flow.ReviewingBookings, h.phase())
}

func TestMyBookingsCancel(t *testing.T) {
	h := newHarness(t)
	car := h.cheapest(rental.Economy)
	b := seedBooking(t, h, car, "2026-10-20", "2026-10-21")

	h.mustPress(bot.KeyMyBookings)
	assert.True(t, h.last().HasButton("BOOKING:"+b.ID.String()))

	h.mustPress("BOOKING:" + b.ID.String())
	detail := h.last()
	assert.Contains(t, detail.Text, modules.Ref(b.ID))
	assert.True(t, detail.HasButton("BOOKING_CANCEL:"+b.ID.String()))
	assert.True(t, detail.HasButton("BOOKING_EDIT:"+b.ID.String()))

	h.mustPress("BOOKING_CANCEL:" + b.ID.String())
	got, err := h.db.GetBooking(context.Background(), b.ID, b.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusCancelled, got.Status)
	assert.Equal(t, mybookings.MsgListHeader, h.last().Text)
	assert.Equal(t, []string{modules.ScreenBookings}, h.deps.Navigation.Frames(chat))

	mails := h.mail.all()
	require.Len(t, mails, 1)
	assert.Equal(t, email.TemplateCancelled, mails[0].tmpl)
}

func TestMyBookingsStartedBookingIsLocked(t *testing.T) {
	h := newHarness(t)
	car := h.cheapest(rental.Luxury)
	b := seedBooking(t, h, car, "2026-10-20", "2026-10-21")
	h.deps.Now = func() time.Time { return time.Date(2026, 10, 21, 9, 0, 0, 0, time.UTC) }

	h.mustPress(bot.KeyMyBookings)
	h.mustPress("BOOKING:" + b.ID.String())
	assert.False(t, h.last().HasButton("BOOKING_CANCEL:"+b.ID.String()))

	h.mustPress("BOOKING_CANCEL:" + b.ID.String())
	assert.Equal(t, mybookings.MsgLocked, h.last().Text)
}

func TestMyBookingsOtherCustomersBooking(t *testing.T) {
	h := newHarness(t)
	car := h.cheapest(rental.Economy)
	other, err := h.db.GetOrCreateCustomer(context.Background(), 999, "Bo", "bo")
	require.NoError(t, err)
	b := &storage.Booking{CustomerID: other.ID, CarID: car.ID, Start: day(t, "2026-10-20"), End: day(t, "2026-10-20"), Total: big.NewRat(29, 1)}
	require.NoError(t, h.db.CreateBooking(context.Background(), b))

	h.customer()
	h.mustPress(bot.KeyMyBookings)
	err = h.press("BOOKING_CANCEL:" + b.ID.String())

	require.Error(t, err)
	assert.Equal(t, "I couldn't find that booking.", h.last().Text)
	got, err := h.db.GetBooking(context.Background(), b.ID, other.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusConfirmed, got.Status)
}

func TestEditBookingDates(t *testing.T) {
	h := newHarness(t)
	car := h.cheapest(rental.Economy)
	b := seedBooking(t, h, car, "2026-10-20", "2026-10-21")

	h.mustPress(bot.KeyMyBookings)
	h.mustPress("BOOKING:" + b.ID.String())
	h.mustPress("BOOKING_EDIT:" + b.ID.String())
	assert.Equal(t, flow.EditBookingFlow, h.phase())

	// Overlapping the booking being edited is fine.
	h.mustPress("CAL_PICK:2026-10-21")
	h.mustPress("CAL_PICK:2026-10-24")
	summary := h.last()
	assert.True(t, summary.HasButton(bot.KeyEditConfirm))
	assert.Contains(t, summary.Text, "New total: 116.00")

	h.mustPress(bot.KeyEditConfirm)
	assert.True(t, strings.HasPrefix(h.last().Text, "✅ Booking "))
	_, hasPhase := h.deps.Sessions.Phase(chat)
	assert.False(t, hasPhase)

	got, err := h.db.GetBooking(context.Background(), b.ID, b.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-21", got.Start.Format(rental.DateLayout))
	assert.Equal(t, "2026-10-24", got.End.Format(rental.DateLayout))

	mails := h.mail.all()
	require.Len(t, mails, 1)
	assert.Equal(t, email.TemplateUpdated, mails[0].tmpl)
	assert.Equal(t, "116.00", mails[0].data.Total)
}

func TestBackFromEditReturnsToBooking(t *testing.T) {
	h := newHarness(t)
	b := seedBooking(t, h, h.cheapest(rental.Economy), "2026-10-20", "2026-10-21")

	h.mustPress(bot.KeyMyBookings)
	h.mustPress("BOOKING:" + b.ID.String())
	h.mustPress("BOOKING_EDIT:" + b.ID.String())
	h.mustPress(bot.KeyBack)

	assert.Equal(t, flow.ReviewingBookings, h.phase())
	assert.True(t, h.last().HasButton("BOOKING_EDIT:"+b.ID.String()))
}

func TestScreensRejectDuplicates(t *testing.T) {
	s := modules.NewScreens()
	s.Register("x", func(context.Context, bot.Event, string) error { return nil })
	assert.Panics(t, func() {
		s.Register("x", func(context.Context, bot.Event, string) error { return nil })
	})

	ok, err := s.Render(context.Background(), bot.Event{}, "unknown:1")
	assert.False(t, ok)
	assert.NoError(t, err)
}

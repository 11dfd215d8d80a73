// Package modules holds what the chat feature modules share: their
// collaborators, reply helpers and the screens the back button can render
// again. The features themselves live in the sub-packages.
package modules

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/garyellow/rentcar-bot/internal/bot"
	"github.com/garyellow/rentcar-bot/internal/config"
	"github.com/garyellow/rentcar-bot/internal/email"
	"github.com/garyellow/rentcar-bot/internal/logger"
	"github.com/garyellow/rentcar-bot/internal/metrics"
	"github.com/garyellow/rentcar-bot/internal/navigation"
	"github.com/garyellow/rentcar-bot/internal/photos"
	"github.com/garyellow/rentcar-bot/internal/rental"
	"github.com/garyellow/rentcar-bot/internal/session"
	"github.com/garyellow/rentcar-bot/internal/storage"
	"github.com/garyellow/rentcar-bot/internal/telegram"
)

// Screen names pushed on the navigation stack. Screens about one entity
// carry it as "name:arg".
const (
	ScreenMainMenu    = "main_menu"
	ScreenCategories  = "categories"
	ScreenCategory    = "category"
	ScreenCar         = "car"
	ScreenBook        = "book"
	ScreenBookings    = "bookings"
	ScreenBooking     = "booking"
	ScreenBookingEdit = "booking_edit"
)

// Screen builds a navigation frame name.
func Screen(name, arg string) string {
	if arg == "" {
		return name
	}
	return name + ":" + arg
}

// Module is a feature that contributes handlers to the registry.
type Module interface {
	Name() string
	Commands() []bot.CommandHandler
	Callbacks() []bot.CallbackHandler
	Texts() []bot.TextHandler
}

// NewRegistry builds the dispatch registry from modules. Text handlers keep
// the module order, so earlier modules win ties between predicates.
func NewRegistry(mods ...Module) (*bot.Registry, error) {
	var (
		cmds  []bot.CommandHandler
		cbs   []bot.CallbackHandler
		texts []bot.TextHandler
	)
	for _, m := range mods {
		cmds = append(cmds, m.Commands()...)
		cbs = append(cbs, m.Callbacks()...)
		texts = append(texts, m.Texts()...)
	}
	return bot.NewRegistry(cmds, cbs, texts)
}

// Renderer draws a screen for the event's chat. arg is the part of the frame
// after the first colon.
type Renderer func(ctx context.Context, ev bot.Event, arg string) error

// Screens maps frame names to renderers. Registration happens while modules
// are constructed; lookups afterwards are read-only.
type Screens struct {
	renderers map[string]Renderer
}

// NewScreens creates an empty screen table.
func NewScreens() *Screens {
	return &Screens{renderers: make(map[string]Renderer)}
}

// Register adds a renderer. It panics on a duplicate name.
func (s *Screens) Register(name string, r Renderer) {
	if _, dup := s.renderers[name]; dup {
		panic(fmt.Sprintf("modules: screen %q registered twice", name))
	}
	s.renderers[name] = r
}

// Render draws frame. It returns false when no renderer knows the frame.
func (s *Screens) Render(ctx context.Context, ev bot.Event, frame string) (bool, error) {
	name, arg, _ := strings.Cut(frame, ":")
	r, ok := s.renderers[name]
	if !ok {
		return false, nil
	}
	return true, r(ctx, ev, arg)
}

// Deps are the collaborators every module uses.
type Deps struct {
	Messenger  telegram.Messenger
	Sessions   *session.Store
	Navigation *navigation.Stack
	DB         *storage.DB
	Photos     photos.Resolver
	Email      email.Notifier
	Screens    *Screens
	Logger     *logger.Logger
	Metrics    *metrics.Metrics

	// Location decides what "today" is for date pickers.
	Location *time.Location
	// Now defaults to time.Now.
	Now func() time.Time

	MaxCarsPerPage int
}

// Today is the current date in the configured location, as a UTC midnight
// like every other rental date.
func (d *Deps) Today() time.Time {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	y, m, day := now().In(loc).Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// Query bounds a repository call.
func (d *Deps) Query(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, config.DatabaseQuery)
}

// Ack answers a callback press. Other events are left alone. A failed
// answer only costs the spinner, so it is logged and swallowed.
func (d *Deps) Ack(ctx context.Context, ev bot.Event, text string) {
	if ev.Kind != bot.KindCallback || ev.CallbackID == "" {
		return
	}
	if err := d.Messenger.AnswerCallback(ctx, ev.CallbackID, text); err != nil {
		d.Logger.WithError(err).DebugContext(ctx, "Failed to answer callback")
	}
}

// Reply acknowledges the event and sends text to its chat.
func (d *Deps) Reply(ctx context.Context, ev bot.Event, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	d.Ack(ctx, ev, "")
	return d.Messenger.SendMessage(ctx, ev.ReplyChat(), text, markup)
}

// draftFields are the session fields a flow leaves behind.
var draftFields = []string{
	session.FieldCarID,
	session.FieldBookingID,
	session.FieldStartDate,
	session.FieldEndDate,
	session.FieldCalendarMonth,
	session.FieldAwaiting,
	session.FieldQuote,
}

// ResetDraft forgets a half-finished booking or edit but keeps preferences
// such as the browse mode and typed contact details.
func (d *Deps) ResetDraft(chatID int64) {
	for _, f := range draftFields {
		d.Sessions.Remove(chatID, f)
	}
}

// EndFlow discards the chat's whole session and history.
func (d *Deps) EndFlow(chatID int64) {
	d.Sessions.Clear(chatID)
	d.Navigation.Clear(chatID)
}

// RecordBooking counts a booking lifecycle action.
func (d *Deps) RecordBooking(action string) {
	if d.Metrics != nil {
		d.Metrics.RecordBooking(action)
	}
}

// Ref is the short booking reference shown to customers.
func Ref(id uuid.UUID) string {
	return strings.ToUpper(id.String()[:8])
}

// Notify queues a booking email. Email never fails the conversation, so
// problems are only logged.
func (d *Deps) Notify(ctx context.Context, tmpl email.Template, b storage.Booking, car storage.Car, cust storage.Customer) {
	if d.Email == nil || cust.Email == "" {
		return
	}
	data := email.BookingData{
		CustomerName: cust.Name,
		BookingID:    Ref(b.ID),
		CarName:      car.Name(),
		Start:        b.Start.Format(rental.DateLayout),
		End:          b.End.Format(rental.DateLayout),
		Days:         b.Days(),
		Total:        rental.FormatMoney(b.Total),
	}
	if err := d.Email.Notify(tmpl, cust.Email, data); err != nil {
		d.Logger.WithError(err).WithField("template", string(tmpl)).WarnContext(ctx, "Booking email not queued")
	}
}

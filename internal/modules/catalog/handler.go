// Package catalog lets a chat browse the fleet by category, as a text list
// or as a photo gallery, and open a car's detail card.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/garyellow/rentcar-bot/internal/bot"
	"github.com/garyellow/rentcar-bot/internal/config"
	domerrors "github.com/garyellow/rentcar-bot/internal/errors"
	"github.com/garyellow/rentcar-bot/internal/flow"
	"github.com/garyellow/rentcar-bot/internal/modules"
	"github.com/garyellow/rentcar-bot/internal/rental"
	"github.com/garyellow/rentcar-bot/internal/session"
	"github.com/garyellow/rentcar-bot/internal/storage"
	"github.com/garyellow/rentcar-bot/internal/telegram"
)

// ModuleName identifies the module in logs.
const ModuleName = "catalog"

const (
	MsgChooseCategory = "Which kind of car are you looking for?"
	MsgEmptyCategory  = "No %s cars are available right now. Try another category."
	MsgCategoryHeader = "%s cars, cheapest first:"
	MsgGalleryFooter  = "%d %s car(s). Tap Book on the one you like."
	MsgCarGone        = "That car is no longer available."
)

// Handler serves the catalog module.
type Handler struct {
	deps *modules.Deps
}

// NewHandler creates the handler and registers the catalog screens.
func NewHandler(deps *modules.Deps) *Handler {
	h := &Handler{deps: deps}
	deps.Screens.Register(modules.ScreenCategories, func(ctx context.Context, ev bot.Event, _ string) error {
		h.deps.Sessions.SetPhase(ev.ReplyChat(), flow.Browsing)
		return h.ShowCategories(ctx, ev)
	})
	deps.Screens.Register(modules.ScreenCategory, func(ctx context.Context, ev bot.Event, arg string) error {
		cat, err := rental.ParseCategory(arg)
		if err != nil {
			return err
		}
		chatID := ev.ReplyChat()
		h.deps.Sessions.SetPhase(chatID, flow.Browsing)
		h.deps.Sessions.Put(chatID, session.FieldCategory, session.CategoryValue(cat))
		return h.ShowCategory(ctx, ev, cat)
	})
	deps.Screens.Register(modules.ScreenCar, func(ctx context.Context, ev bot.Event, arg string) error {
		id, err := uuid.Parse(arg)
		if err != nil {
			return domerrors.NewValidationError("screen", "car id "+arg)
		}
		h.deps.ResetDraft(ev.ReplyChat())
		h.deps.Sessions.SetPhase(ev.ReplyChat(), flow.Browsing)
		return h.ShowCar(ctx, ev, id)
	})
	return h
}

// Name returns the module name.
func (h *Handler) Name() string {
	return ModuleName
}

func (h *Handler) Commands() []bot.CommandHandler { return nil }

func (h *Handler) Callbacks() []bot.CallbackHandler {
	browsing := flow.Only(flow.Browsing)
	return []bot.CallbackHandler{
		{Key: bot.KeyBrowse, Phases: flow.AnyPhase, Handle: h.handleBrowse},
		{Key: bot.KeyCategory, Phases: browsing, Handle: h.handleCategory},
		{Key: bot.KeyCar, Phases: browsing, Handle: h.handleCar},
		{Key: bot.KeyMode, Phases: browsing, Handle: h.handleMode},
	}
}

func (h *Handler) Texts() []bot.TextHandler { return nil }

// handleBrowse enters the catalog from anywhere, dropping any draft.
func (h *Handler) handleBrowse(ctx context.Context, ev bot.Event) error {
	chatID := ev.ReplyChat()
	h.deps.ResetDraft(chatID)
	h.deps.Sessions.SetPhase(chatID, flow.Browsing)
	return h.ShowCategories(ctx, ev)
}

func (h *Handler) handleCategory(ctx context.Context, ev bot.Event) error {
	cat, err := bot.ParseCallback(ev.Data).Category(0)
	if err != nil {
		return err
	}
	h.deps.Sessions.Put(ev.ReplyChat(), session.FieldCategory, session.CategoryValue(cat))
	return h.ShowCategory(ctx, ev, cat)
}

func (h *Handler) handleCar(ctx context.Context, ev bot.Event) error {
	id, err := bot.ParseCallback(ev.Data).UUID(0)
	if err != nil {
		return err
	}
	return h.ShowCar(ctx, ev, id)
}

func (h *Handler) handleMode(ctx context.Context, ev bot.Event) error {
	mode, err := bot.ParseCallback(ev.Data).Mode(0)
	if err != nil {
		return err
	}
	chatID := ev.ReplyChat()
	h.deps.Sessions.Put(chatID, session.FieldBrowseMode, session.ModeValue(mode))

	cat, ok := h.deps.Sessions.Category(chatID, session.FieldCategory)
	if !ok {
		return h.ShowCategories(ctx, ev)
	}
	return h.ShowCategory(ctx, ev, cat)
}

// ShowCategories renders the category picker.
func (h *Handler) ShowCategories(ctx context.Context, ev bot.Event) error {
	if err := h.deps.Reply(ctx, ev, MsgChooseCategory, telegram.Categories()); err != nil {
		return err
	}
	h.deps.Navigation.Push(ev.ReplyChat(), modules.ScreenCategories)
	return nil
}

// ShowCategory lists the active cars of a category in the chat's browse mode.
func (h *Handler) ShowCategory(ctx context.Context, ev bot.Event, cat rental.Category) error {
	chatID := ev.ReplyChat()
	mode, ok := h.deps.Sessions.Mode(chatID, session.FieldBrowseMode)
	if !ok {
		mode = rental.ModeList
	}

	qctx, cancel := h.deps.Query(ctx)
	cars, err := h.deps.DB.ListCarsByCategory(qctx, cat, h.deps.MaxCarsPerPage)
	cancel()
	if err != nil {
		return domerrors.NewWrapper(ModuleName, "list_cars").Wrap(err, "I couldn't load the cars right now. Please try again.")
	}

	if len(cars) == 0 {
		err = h.deps.Reply(ctx, ev, fmt.Sprintf(MsgEmptyCategory, cat.Label()), telegram.List(nil))
	} else if mode == rental.ModeGallery {
		err = h.sendGallery(ctx, ev, cat, cars)
	} else {
		err = h.sendList(ctx, ev, cat, cars)
	}
	if err != nil {
		return err
	}
	h.deps.Navigation.Push(chatID, modules.Screen(modules.ScreenCategory, string(cat)))
	return nil
}

func (h *Handler) sendList(ctx context.Context, ev bot.Event, cat rental.Category, cars []storage.Car) error {
	items := make([]telegram.ListItem, 0, len(cars))
	lines := []string{fmt.Sprintf(MsgCategoryHeader, cat.Label())}
	for _, c := range cars {
		lines = append(lines, "• "+Summary(c))
		items = append(items, telegram.ListItem{
			Label: fmt.Sprintf("%s · %s/day", c.Name(), rental.FormatMoney(c.DailyRate)),
			Data:  bot.BuildCallback(bot.KeyCar, c.ID.String()),
		})
	}
	return h.deps.Reply(ctx, ev, strings.Join(lines, "\n"), telegram.List(items, telegram.ModeToggleRow(rental.ModeList)))
}

// sendGallery sends one card per car. Cars without a reachable photo get a
// text card so the list stays complete.
func (h *Handler) sendGallery(ctx context.Context, ev bot.Event, cat rental.Category, cars []storage.Car) error {
	h.deps.Ack(ctx, ev, "")
	chatID := ev.ReplyChat()
	for _, c := range cars {
		if err := h.sendCard(ctx, chatID, c); err != nil {
			return err
		}
	}
	footer := fmt.Sprintf(MsgGalleryFooter, len(cars), cat.Label())
	return h.deps.Messenger.SendMessage(ctx, chatID, footer, telegram.List(nil, telegram.ModeToggleRow(rental.ModeGallery)))
}

// ShowCar renders a car's detail card with the book button.
func (h *Handler) ShowCar(ctx context.Context, ev bot.Event, id uuid.UUID) error {
	qctx, cancel := h.deps.Query(ctx)
	car, err := h.deps.DB.GetCar(qctx, id)
	cancel()
	if err == nil && !car.Active {
		err = fmt.Errorf("car %s is retired: %w", id, domerrors.ErrNotFound)
	}
	if err != nil {
		return domerrors.NewWrapper(ModuleName, "show_car").Wrap(err, MsgCarGone)
	}

	h.deps.Ack(ctx, ev, "")
	if err := h.sendCard(ctx, ev.ReplyChat(), *car); err != nil {
		return err
	}
	h.deps.Navigation.Push(ev.ReplyChat(), modules.Screen(modules.ScreenCar, id.String()))
	return nil
}

func (h *Handler) sendCard(ctx context.Context, chatID int64, c storage.Car) error {
	caption := Caption(c)
	markup := telegram.CarDetail(c.ID)
	if url := h.photoURL(ctx, c); url != "" {
		return h.deps.Messenger.SendPhoto(ctx, chatID, url, caption, markup)
	}
	return h.deps.Messenger.SendMessage(ctx, chatID, caption, markup)
}

func (h *Handler) photoURL(ctx context.Context, c storage.Car) string {
	if c.PhotoKey == "" || h.deps.Photos == nil {
		return ""
	}
	pctx, cancel := context.WithTimeout(ctx, config.PhotoLookup)
	defer cancel()
	url, err := h.deps.Photos.URL(pctx, c.PhotoKey)
	if err != nil {
		if !errors.Is(err, domerrors.ErrNotFound) {
			h.deps.Logger.WithError(err).WithField("photo_key", c.PhotoKey).WarnContext(ctx, "Failed to resolve car photo")
		}
		return ""
	}
	return url
}

// Summary is the one-line description used in lists.
func Summary(c storage.Car) string {
	return fmt.Sprintf("%s, %d seats, %s: %s/day", c.Name(), c.Seats, c.Transmission, rental.FormatMoney(c.DailyRate))
}

// Caption is the detail card text.
func Caption(c storage.Car) string {
	return fmt.Sprintf("🚗 %s\n%s · %d seats · %s\n💶 %s per day",
		c.Name(), c.Category.Label(), c.Seats, c.Transmission, rental.FormatMoney(c.DailyRate))
}

// Package menu implements the entry points of the bot: the start and help
// commands, the main menu, the back button and the three fallbacks.
package menu

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyellow/rentcar-bot/internal/bot"
	"github.com/garyellow/rentcar-bot/internal/flow"
	"github.com/garyellow/rentcar-bot/internal/modules"
	"github.com/garyellow/rentcar-bot/internal/telegram"
)

// ModuleName identifies the module in logs.
const ModuleName = "menu"

// Commands.
const (
	CmdStart  = "/start"
	CmdHelp   = "/help"
	CmdMenu   = "/menu"
	CmdCancel = "/cancel"
)

// User-facing texts.
const (
	MsgWelcome         = "👋 Hi %s! I can help you rent a car.\nBrowse the fleet or check the bookings you already have."
	MsgMainMenu        = "What would you like to do?"
	MsgCancelled       = "Okay, that was cancelled. Nothing was saved."
	MsgNothingToCancel = "There is nothing to cancel."
	MsgUnknownCommand  = "I don't know that command. Try /help."
	MsgUnknownText     = "Sorry, I didn't get that. Use the buttons below or /help."
	MsgStaleButton     = "This button is no longer active."
)

// MsgHelp lists the commands.
var MsgHelp = strings.Join([]string{
	"Here is what I understand:",
	"/start - start over",
	"/menu - show the main menu",
	"/bookings - list your bookings",
	"/cancel - abandon what you are doing",
	"/help - this message",
	"",
	"While booking you can type dates as 2026-10-20 to 2026-10-22.",
}, "\n")

// Handler serves the menu module.
type Handler struct {
	deps *modules.Deps
}

// NewHandler creates the handler and registers the main menu screen.
func NewHandler(deps *modules.Deps) *Handler {
	h := &Handler{deps: deps}
	deps.Screens.Register(modules.ScreenMainMenu, func(ctx context.Context, ev bot.Event, _ string) error {
		return h.ShowMainMenu(ctx, ev, MsgMainMenu)
	})
	return h
}

// Name returns the module name.
func (h *Handler) Name() string {
	return ModuleName
}

func (h *Handler) Commands() []bot.CommandHandler {
	return []bot.CommandHandler{
		{Command: CmdStart, Phases: flow.AnyPhase, Handle: h.handleStart},
		{Command: CmdMenu, Phases: flow.AnyPhase, Handle: h.handleMenu},
		{Command: CmdHelp, Phases: flow.AnyPhase, Handle: h.handleHelp},
		{Command: CmdCancel, Phases: flow.AnyPhase, Handle: h.handleCancel},
		{Command: bot.FallbackKey, Handle: h.handleUnknownCommand},
	}
}

func (h *Handler) Callbacks() []bot.CallbackHandler {
	return []bot.CallbackHandler{
		{Key: bot.KeyMainMenu, Phases: flow.AnyPhase, Handle: h.handleMenu},
		{Key: bot.KeyBack, Phases: flow.AnyPhase, Handle: h.handleBack},
		{Key: bot.KeyNoop, Phases: flow.AnyPhase, Handle: h.handleNoop},
		{Key: bot.FallbackKey, Handle: h.handleStaleButton},
	}
}

func (h *Handler) Texts() []bot.TextHandler {
	return []bot.TextHandler{
		{Name: bot.FallbackKey, Handle: h.handleUnknownText},
	}
}

// ShowMainMenu renders the root screen. Every path home goes through here so
// the stack bottom is always the main menu.
func (h *Handler) ShowMainMenu(ctx context.Context, ev bot.Event, text string) error {
	if err := h.deps.Reply(ctx, ev, text, telegram.MainMenu()); err != nil {
		return err
	}
	h.deps.Navigation.Push(ev.ReplyChat(), modules.ScreenMainMenu)
	return nil
}

func (h *Handler) handleStart(ctx context.Context, ev bot.Event) error {
	chatID := ev.ReplyChat()
	h.deps.EndFlow(chatID)

	if ev.UserID != 0 {
		qctx, cancel := h.deps.Query(ctx)
		_, err := h.deps.DB.GetOrCreateCustomer(qctx, ev.UserID, ev.FirstName, ev.Username)
		cancel()
		if err != nil {
			return fmt.Errorf("register customer: %w", err)
		}
	}

	name := ev.FirstName
	if name == "" {
		name = "there"
	}
	return h.ShowMainMenu(ctx, ev, fmt.Sprintf(MsgWelcome, name))
}

// handleMenu abandons whatever the chat was doing.
func (h *Handler) handleMenu(ctx context.Context, ev bot.Event) error {
	h.deps.EndFlow(ev.ReplyChat())
	return h.ShowMainMenu(ctx, ev, MsgMainMenu)
}

func (h *Handler) handleHelp(ctx context.Context, ev bot.Event) error {
	return h.deps.Reply(ctx, ev, MsgHelp, telegram.MainMenu())
}

func (h *Handler) handleCancel(ctx context.Context, ev bot.Event) error {
	chatID := ev.ReplyChat()
	if _, active := h.deps.Sessions.Phase(chatID); !active {
		return h.deps.Reply(ctx, ev, MsgNothingToCancel, telegram.MainMenu())
	}
	h.deps.EndFlow(chatID)
	return h.ShowMainMenu(ctx, ev, MsgCancelled)
}

// handleBack re-renders the previous screen, or the main menu when there is
// none or nobody knows how to draw it.
func (h *Handler) handleBack(ctx context.Context, ev bot.Event) error {
	chatID := ev.ReplyChat()
	prev, ok := h.deps.Navigation.Pop(chatID)
	if !ok {
		return h.ShowMainMenu(ctx, ev, MsgMainMenu)
	}

	rendered, err := h.deps.Screens.Render(ctx, ev, prev)
	if err != nil {
		return err
	}
	if !rendered {
		h.deps.Logger.WithField("screen", prev).WarnContext(ctx, "No renderer for screen, going home")
		h.deps.Navigation.Clear(chatID)
		return h.ShowMainMenu(ctx, ev, MsgMainMenu)
	}
	return nil
}

func (h *Handler) handleNoop(ctx context.Context, ev bot.Event) error {
	h.deps.Ack(ctx, ev, "")
	return nil
}

func (h *Handler) handleUnknownCommand(ctx context.Context, ev bot.Event) error {
	return h.deps.Reply(ctx, ev, MsgUnknownCommand, telegram.MainMenu())
}

func (h *Handler) handleStaleButton(ctx context.Context, ev bot.Event) error {
	h.deps.Ack(ctx, ev, MsgStaleButton)
	ev.CallbackID = "" // answered
	return h.ShowMainMenu(ctx, ev, MsgMainMenu)
}

func (h *Handler) handleUnknownText(ctx context.Context, ev bot.Event) error {
	return h.deps.Reply(ctx, ev, MsgUnknownText, telegram.MainMenu())
}

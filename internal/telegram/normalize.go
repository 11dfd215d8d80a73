package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/garyellow/rentcar-bot/internal/bot"
)

// Normalize turns an update into a dispatchable event. Only text messages
// and callback queries with data are routable; everything else (stickers,
// edits, joins, inline queries) reports false.
func Normalize(u tgbotapi.Update) (bot.Event, bool) {
	switch {
	case u.CallbackQuery != nil:
		return normalizeCallback(u.UpdateID, u.CallbackQuery)
	case u.Message != nil:
		return normalizeMessage(u.UpdateID, u.Message)
	default:
		return bot.Event{}, false
	}
}

func normalizeMessage(updateID int, m *tgbotapi.Message) (bot.Event, bool) {
	if m.Chat == nil || m.Text == "" {
		return bot.Event{}, false
	}
	var userID int64
	if m.From != nil {
		userID = m.From.ID
	}
	ev := bot.NewMessageEvent(updateID, m.Chat.ID, userID, m.Text)
	if ev.Kind == bot.KindUnknown {
		return bot.Event{}, false
	}
	ev.MessageID = m.MessageID
	setSender(&ev, m.From)
	return ev, true
}

func normalizeCallback(updateID int, q *tgbotapi.CallbackQuery) (bot.Event, bool) {
	if q.Data == "" {
		return bot.Event{}, false
	}
	var (
		userID    int64
		chatID    int64
		messageID int
	)
	if q.From != nil {
		userID = q.From.ID
	}
	if q.Message != nil {
		messageID = q.Message.MessageID
		if q.Message.Chat != nil {
			chatID = q.Message.Chat.ID
		}
	}
	// Callbacks from inline-mode messages carry no chat.
	if chatID == 0 {
		chatID = userID
	}
	if chatID == 0 {
		return bot.Event{}, false
	}
	ev := bot.NewCallbackEvent(updateID, chatID, userID, q.ID, q.Data, messageID)
	setSender(&ev, q.From)
	return ev, true
}

func setSender(ev *bot.Event, u *tgbotapi.User) {
	if u == nil {
		return
	}
	ev.Username = u.UserName
	ev.FirstName = u.FirstName
}

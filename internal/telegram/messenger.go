// Package telegram is the outbound side of the chat transport: a Bot API
// client behind the Messenger interface, inline keyboard builders, update
// normalization and the long-polling receiver.
package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Messenger sends messages to chats. Implementations must be safe for
// concurrent use.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) error
	SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, markup *tgbotapi.InlineKeyboardMarkup) error
	// AnswerCallback stops the client's loading indicator. An empty text
	// shows nothing.
	AnswerCallback(ctx context.Context, callbackID, text string) error
	EditMessageKeyboard(ctx context.Context, chatID int64, messageID int, markup *tgbotapi.InlineKeyboardMarkup) error
}

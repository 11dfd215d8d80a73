package telegram

import (
	"context"
	"slices"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Call kinds recorded by Recorder.
const (
	CallMessage = "message"
	CallPhoto   = "photo"
	CallAnswer  = "answer"
	CallEdit    = "edit"
)

// Call is one outbound call seen by a Recorder.
type Call struct {
	Kind       string
	ChatID     int64
	MessageID  int
	CallbackID string
	Text       string // message text, photo caption or callback answer
	PhotoURL   string
	Markup     *tgbotapi.InlineKeyboardMarkup
}

// CallbackData lists every callback payload on the call's keyboard.
func (c Call) CallbackData() []string {
	if c.Markup == nil {
		return nil
	}
	var data []string
	for _, row := range c.Markup.InlineKeyboard {
		for _, b := range row {
			if b.CallbackData != nil {
				data = append(data, *b.CallbackData)
			}
		}
	}
	return data
}

// HasButton reports whether the keyboard carries data.
func (c Call) HasButton(data string) bool {
	return slices.Contains(c.CallbackData(), data)
}

// Recorder is an in-memory Messenger. Err, when set, is returned by every
// call after it is recorded.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
	Err   error
}

var _ Messenger = (*Recorder)(nil)

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) add(c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	return r.Err
}

func (r *Recorder) SendMessage(_ context.Context, chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	return r.add(Call{Kind: CallMessage, ChatID: chatID, Text: text, Markup: markup})
}

func (r *Recorder) SendPhoto(_ context.Context, chatID int64, photoURL, caption string, markup *tgbotapi.InlineKeyboardMarkup) error {
	return r.add(Call{Kind: CallPhoto, ChatID: chatID, PhotoURL: photoURL, Text: caption, Markup: markup})
}

func (r *Recorder) AnswerCallback(_ context.Context, callbackID, text string) error {
	return r.add(Call{Kind: CallAnswer, CallbackID: callbackID, Text: text})
}

func (r *Recorder) EditMessageKeyboard(_ context.Context, chatID int64, messageID int, markup *tgbotapi.InlineKeyboardMarkup) error {
	return r.add(Call{Kind: CallEdit, ChatID: chatID, MessageID: messageID, Markup: markup})
}

// Calls returns a copy of every recorded call.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Sent returns the messages and photos sent to chatID.
func (r *Recorder) Sent(chatID int64) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.calls {
		if c.ChatID == chatID && (c.Kind == CallMessage || c.Kind == CallPhoto) {
			out = append(out, c)
		}
	}
	return out
}

// Last returns the most recent message or photo sent to chatID.
func (r *Recorder) Last(chatID int64) (Call, bool) {
	sent := r.Sent(chatID)
	if len(sent) == 0 {
		return Call{}, false
	}
	return sent[len(sent)-1], true
}

// Reset forgets every call.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

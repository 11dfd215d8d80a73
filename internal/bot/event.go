package bot

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Kind is the shape of an inbound event.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindCommand
	KindText
	KindCallback
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindText:
		return "text"
	case KindCallback:
		return "callback"
	default:
		return "unknown"
	}
}

// Event is a transport-neutral inbound update.
//
// Text holds the message text for commands and free text; Data holds the
// callback payload. CallbackID and MessageID are only set for callbacks and
// identify the query to answer and the message whose keyboard was pressed.
type Event struct {
	Kind       Kind
	UpdateID   int
	ChatID     int64
	UserID     int64
	Username   string
	FirstName  string
	Text       string
	Data       string
	CallbackID string
	MessageID  int
}

// Classify returns the kind of a message text or callback payload. A
// non-empty callback id always wins; otherwise text starting with "/" is a
// command and any other non-blank text is free text.
func Classify(text, callbackID string) Kind {
	if callbackID != "" {
		return KindCallback
	}
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return KindUnknown
	case strings.HasPrefix(text, "/"):
		return KindCommand
	default:
		return KindText
	}
}

// NewMessageEvent builds a command or text event from a chat message.
func NewMessageEvent(updateID int, chatID, userID int64, text string) Event {
	text = NormalizeText(text)
	return Event{
		Kind:     Classify(text, ""),
		UpdateID: updateID,
		ChatID:   chatID,
		UserID:   userID,
		Text:     text,
	}
}

// NewCallbackEvent builds a callback event from a button press.
func NewCallbackEvent(updateID int, chatID, userID int64, callbackID, data string, messageID int) Event {
	return Event{
		Kind:       KindCallback,
		UpdateID:   updateID,
		ChatID:     chatID,
		UserID:     userID,
		Data:       data,
		CallbackID: callbackID,
		MessageID:  messageID,
	}
}

// ReplyChat is the chat to answer in. Events without a chat fall back to the
// sender, which in a private chat is the same id.
func (e Event) ReplyChat() int64 {
	if e.ChatID != 0 {
		return e.ChatID
	}
	return e.UserID
}

// Command returns the case-folded command token of a command event without
// any "@botname" suffix, e.g. "/start". Args are the remaining words.
func (e Event) Command() (string, []string) {
	if e.Kind != KindCommand {
		return "", nil
	}
	fields := strings.Fields(e.Text)
	if len(fields) == 0 {
		return "", nil
	}
	return FoldCommand(fields[0]), fields[1:]
}

// FoldCommand normalizes command text for exact lookup. The "@botname"
// suffix Telegram adds in groups is dropped from the first word; anything
// after it is kept, so "/start now" never folds to "/start".
func FoldCommand(cmd string) string {
	head, rest, hasRest := strings.Cut(strings.TrimSpace(cmd), " ")
	if at := strings.IndexByte(head, '@'); at > 0 {
		head = head[:at]
	}
	if hasRest {
		head += " " + rest
	}
	// Casers keep state, so a fresh one is used per call.
	return cases.Fold().String(head)
}

// NormalizeText applies NFKC, trims the text and collapses runs of
// whitespace. Full-width digits and punctuation become their ASCII forms,
// which keeps date and phone parsing simple.
func NormalizeText(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	s = norm.NFKC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

package booking

import (
	"context"
	"net/mail"
	"regexp"
	"strings"

	"github.com/garyellow/rentcar-bot/internal/bot"
	"github.com/garyellow/rentcar-bot/internal/session"
)

const minPhoneDigits = 7

var (
	phoneRegex = regexp.MustCompile(`^\+?[0-9][0-9 ().-]{5,18}[0-9]$`)
	phoneStrip = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")
	singleDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// LooksLikePhone accepts international and local phone numbers with the
// usual separators. A bare date is not a phone number.
func LooksLikePhone(text string) bool {
	text = strings.TrimSpace(text)
	if !phoneRegex.MatchString(text) || singleDate.MatchString(text) {
		return false
	}
	digits := 0
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= minPhoneDigits
}

// NormalizePhone drops separators, keeping a leading plus.
func NormalizePhone(text string) string {
	return phoneStrip.Replace(strings.TrimSpace(text))
}

// LooksLikeEmail accepts a bare address with a dotted domain.
func LooksLikeEmail(text string) bool {
	text = strings.TrimSpace(text)
	addr, err := mail.ParseAddress(text)
	if err != nil || addr.Address != text {
		return false
	}
	_, domain, _ := strings.Cut(addr.Address, "@")
	return strings.Contains(domain, ".") && !strings.HasSuffix(domain, ".")
}

func (h *Handler) handlePhone(ctx context.Context, ev bot.Event) error {
	h.deps.Sessions.Put(ev.ReplyChat(), session.FieldPhone, session.String(NormalizePhone(ev.Text)))
	return h.next(ctx, ev)
}

func (h *Handler) handleEmail(ctx context.Context, ev bot.Event) error {
	h.deps.Sessions.Put(ev.ReplyChat(), session.FieldEmail, session.String(strings.ToLower(strings.TrimSpace(ev.Text))))
	return h.next(ctx, ev)
}

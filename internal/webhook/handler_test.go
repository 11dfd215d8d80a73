package webhook

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/garyellow/rentcar-bot/internal/bot"
	"github.com/garyellow/rentcar-bot/internal/logger"
	"github.com/garyellow/rentcar-bot/internal/metrics"
	"github.com/garyellow/rentcar-bot/internal/telegram"
	"github.com/garyellow/rentcar-bot/internal/workerpool"
)

const messageUpdate = `{
	"update_id": 1001,
	"message": {
		"message_id": 7,
		"date": 1760522400,
		"chat": {"id": 42, "type": "private"},
		"from": {"id": 42, "is_bot": false, "first_name": "Ana"},
		"text": "/start",
		"entities": [{"type": "bot_command", "offset": 0, "length": 6}]
	}
}`

type fakeSubmitter struct {
	mu     sync.Mutex
	err    error
	events []bot.Event
}

func (f *fakeSubmitter) Submit(ev bot.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func setupTestHandler(t *testing.T, secret string, sub *fakeSubmitter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewWithWriter("error", io.Discard)
	m := metrics.New(prometheus.NewRegistry())
	h := NewHandler(HandlerConfig{
		Acceptor: telegram.NewIngress(sub, nil, log, m),
		Secret:   secret,
		MaxBytes: 4096,
		Logger:   log,
		Metrics:  m,
	})

	r := gin.New()
	r.POST("/webhook", h.Handle)
	return r
}

func post(r http.Handler, body, secret string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(SecretHeader, secret)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandle_AcceptsUpdate(t *testing.T) {
	sub := &fakeSubmitter{}
	r := setupTestHandler(t, "s3cret", sub)

	w := post(r, messageUpdate, "s3cret")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(sub.events) != 1 {
		t.Fatalf("submitted %d events, want 1", len(sub.events))
	}
	ev := sub.events[0]
	if ev.Kind != bot.KindCommand || ev.ChatID != 42 || ev.UpdateID != 1001 {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestHandle_SecretMismatch(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong secret", "guess"},
		{"prefix of secret", "s3cr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &fakeSubmitter{}
			r := setupTestHandler(t, "s3cret", sub)

			w := post(r, messageUpdate, tt.header)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
			if len(sub.events) != 0 {
				t.Error("update must not reach the dispatcher")
			}
		})
	}
}

func TestHandle_NoSecretConfigured(t *testing.T) {
	sub := &fakeSubmitter{}
	r := setupTestHandler(t, "", sub)

	if w := post(r, messageUpdate, "anything"); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestHandle_BadBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"update_id":`, http.StatusBadRequest},
		{"oversized", `{"update_id": 1, "message": {"text": "` + strings.Repeat("a", 5000) + `"}}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &fakeSubmitter{}
			r := setupTestHandler(t, "", sub)

			if w := post(r, tt.body, ""); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if len(sub.events) != 0 {
				t.Error("nothing should be submitted")
			}
		})
	}
}

func TestHandle_IgnoredUpdateIsAcknowledged(t *testing.T) {
	sub := &fakeSubmitter{}
	r := setupTestHandler(t, "", sub)

	w := post(r, `{"update_id": 5, "edited_message": {"message_id": 1, "date": 0, "chat": {"id": 1, "type": "private"}, "text": "hi"}}`, "")

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if len(sub.events) != 0 {
		t.Error("edited messages are not dispatched")
	}
}

func TestHandle_QueueFull(t *testing.T) {
	for _, err := range []error{workerpool.ErrRejected, workerpool.ErrClosed} {
		t.Run(err.Error(), func(t *testing.T) {
			r := setupTestHandler(t, "", &fakeSubmitter{err: err})

			if w := post(r, messageUpdate, ""); w.Code != http.StatusServiceUnavailable {
				t.Errorf("status = %d, want 503", w.Code)
			}
		})
	}
}

func TestHandle_OtherSubmitErrorIsAcknowledged(t *testing.T) {
	r := setupTestHandler(t, "", &fakeSubmitter{err: errors.New("boom")})

	if w := post(r, messageUpdate, ""); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

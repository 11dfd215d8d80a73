package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBotAPI struct {
	mu    sync.Mutex
	calls map[string][]map[string]string
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	_ = r.ParseForm()
	form := make(map[string]string, len(r.Form))
	for k := range r.Form {
		form[k] = r.Form.Get(k)
	}
	f.mu.Lock()
	f.calls[method] = append(f.calls[method], form)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "getMe":
		fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Rent","username":"rentcar_bot"}}`)
	case "sendMessage", "sendPhoto":
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":10,"date":0,"chat":{"id":5,"type":"private"}}}`)
	case "editMessageReplyMarkup":
		fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: message is not modified: specified new message content and reply markup are exactly the same"}`)
	case "sendChatAction":
		fmt.Fprint(w, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`)
	default:
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	}
}

func (f *fakeBotAPI) form(method string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	calls := f.calls[method]
	if len(calls) == 0 {
		return nil
	}
	return calls[len(calls)-1]
}

func newTestClient(t *testing.T) (*Client, *fakeBotAPI) {
	t.Helper()
	fake := &fakeBotAPI{calls: map[string][]map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := NewClient(ClientConfig{
		Token:     "123:abc",
		Endpoint:  srv.URL + "/bot%s/%s",
		GlobalRPS: 1000,
		Timeout:   time.Second,
	})
	require.NoError(t, err)
	return c, fake
}

func TestClient_Connect(t *testing.T) {
	c, _ := newTestClient(t)
	assert.Equal(t, "rentcar_bot", c.Username())
	assert.NotNil(t, c.API())
}

func TestClient_SendMessageWithKeyboard(t *testing.T) {
	c, fake := newTestClient(t)

	err := c.SendMessage(context.Background(), 5, "Pick a category", Categories())
	require.NoError(t, err)

	form := fake.form("sendMessage")
	require.NotNil(t, form)
	assert.Equal(t, "5", form["chat_id"])
	assert.Equal(t, "Pick a category", form["text"])
	assert.Contains(t, form["reply_markup"], "CATEGORY:economy")
}

func TestClient_SendPhoto(t *testing.T) {
	c, fake := newTestClient(t)

	err := c.SendPhoto(context.Background(), 5, "https://cdn.example.com/cars/1.jpg", "Corolla", CarDetail(uuid.New()))
	require.NoError(t, err)

	form := fake.form("sendPhoto")
	require.NotNil(t, form)
	assert.Equal(t, "https://cdn.example.com/cars/1.jpg", form["photo"])
	assert.Equal(t, "Corolla", form["caption"])
}

func TestClient_AnswerCallback(t *testing.T) {
	c, fake := newTestClient(t)

	require.NoError(t, c.AnswerCallback(context.Background(), "cb-1", ""))
	assert.Equal(t, "cb-1", fake.form("answerCallbackQuery")["callback_query_id"])
}

func TestClient_EditNotModifiedIsSuccess(t *testing.T) {
	c, _ := newTestClient(t)
	assert.NoError(t, c.EditMessageKeyboard(context.Background(), 5, 10, nil))
}

func TestClient_SetWebhook(t *testing.T) {
	c, fake := newTestClient(t)

	require.NoError(t, c.SetWebhook(context.Background(), "https://bot.example.com/webhook", "s3cret"))
	form := fake.form("setWebhook")
	assert.Equal(t, "https://bot.example.com/webhook", form["url"])
	assert.Equal(t, "s3cret", form["secret_token"])
	assert.Contains(t, form["allowed_updates"], "callback_query")
}

func TestClient_CancelledContext(t *testing.T) {
	c, _ := newTestClient(t)
	c.limiter = newDrainedLimiter()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.SendMessage(ctx, 5, "hi", nil)
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "車車…", truncate("車車車車", 3))
}

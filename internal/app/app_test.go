package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/rentcar-bot/internal/bot"
	"github.com/garyellow/rentcar-bot/internal/config"
	"github.com/garyellow/rentcar-bot/internal/logger"
	"github.com/garyellow/rentcar-bot/internal/metrics"
	"github.com/garyellow/rentcar-bot/internal/navigation"
	"github.com/garyellow/rentcar-bot/internal/photos"
	"github.com/garyellow/rentcar-bot/internal/session"
	"github.com/garyellow/rentcar-bot/internal/storage"
	"github.com/garyellow/rentcar-bot/internal/telegram"
	"github.com/garyellow/rentcar-bot/internal/webhook"
	"github.com/garyellow/rentcar-bot/internal/workerpool"
)

type countingSubmitter struct{ events []bot.Event }

func (s *countingSubmitter) Submit(ev bot.Event) error {
	s.events = append(s.events, ev)
	return nil
}

// setupTestApp creates a minimal Application for testing endpoints
func setupTestApp(t *testing.T) *Application {
	t.Helper()

	db, err := storage.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	registry := prometheus.NewRegistry()
	pool := workerpool.New(workerpool.Config{Name: "dispatch", Workers: 1, QueueSize: 4})
	t.Cleanup(func() { _ = pool.Shutdown(context.Background()) })

	return &Application{
		cfg:        &config.Config{WebhookURL: "https://bot.example.com/webhook", MetricsPassword: "secret"},
		db:         db,
		metrics:    metrics.New(registry),
		registry:   registry,
		logger:     logger.NewWithWriter("error", io.Discard),
		sessions:   session.NewStore(),
		navigation: navigation.NewStack(),
		pool:       pool,
		photos:     photos.Disabled{},
	}
}

func serve(a *Application, method, path string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	w := httptest.NewRecorder()
	a.routes().ServeHTTP(w, req)
	return w
}

func TestLivenessCheck(t *testing.T) {
	app := setupTestApp(t)
	_ = app.db.Close()

	w := serve(app, http.MethodGet, "/livez", nil)

	assert.Equal(t, http.StatusOK, w.Code, "liveness never checks dependencies")
	assert.JSONEq(t, `{"status":"alive"}`, w.Body.String())
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestReadinessCheckHealthy(t *testing.T) {
	app := setupTestApp(t)

	w := serve(app, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status   string          `json:"status"`
		Mode     string          `json:"mode"`
		Features map[string]bool `json:"features"`
		Dispatch map[string]int  `json:"dispatch"`
		Build    struct {
			Version string `json:"version"`
		} `json:"build"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "webhook", resp.Mode)
	assert.False(t, resp.Features["photos"])
	assert.False(t, resp.Features["email"])
	assert.Equal(t, 4, resp.Dispatch["queue_size"])
	assert.Equal(t, "dev", resp.Build.Version)
}

func TestReadinessCheckDatabaseDown(t *testing.T) {
	app := setupTestApp(t)
	_ = app.db.Close()

	w := serve(app, http.MethodGet, "/readyz", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "database unavailable")
}

func TestReadinessModeFollowsConfig(t *testing.T) {
	app := setupTestApp(t)
	app.cfg.WebhookURL = ""

	w := serve(app, http.MethodGet, "/readyz", nil)

	assert.Contains(t, w.Body.String(), `"mode":"polling"`)
}

func TestMetricsEndpointRequiresAuth(t *testing.T) {
	app := setupTestApp(t)
	app.metrics.RecordBooking("created")

	assert.Equal(t, http.StatusUnauthorized, serve(app, http.MethodGet, "/metrics", nil).Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("", "secret")
	w := httptest.NewRecorder()
	app.routes().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookRoute(t *testing.T) {
	app := setupTestApp(t)
	log := app.logger
	sub := &countingSubmitter{}
	app.webhook = webhook.NewHandler(webhook.HandlerConfig{
		Acceptor: telegram.NewIngress(sub, nil, log, app.metrics),
		Secret:   "s3cret",
		Logger:   log,
		Metrics:  app.metrics,
	})

	body := `{"update_id":1,"callback_query":{"id":"q1","from":{"id":9,"is_bot":false,"first_name":"Ana"},"data":"BROWSE","chat_instance":"x"}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set(webhook.SecretHeader, "s3cret")
	w := httptest.NewRecorder()
	app.routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, sub.events, 1)
	assert.Equal(t, int64(9), sub.events[0].ChatID)

	assert.Equal(t, http.StatusUnauthorized, serve(app, http.MethodPost, "/webhook", strings.NewReader(body)).Code)
}

func TestRecordGauges(t *testing.T) {
	app := setupTestApp(t)
	app.sessions.Put(1, session.FieldCategory, session.String("x"))
	app.navigation.Push(1, "main_menu")
	app.navigation.Push(2, "main_menu")

	app.recordGauges()

	assert.Equal(t, 1.0, testutil.ToFloat64(app.metrics.SessionActiveChats))
	assert.Equal(t, 2.0, testutil.ToFloat64(app.metrics.NavigationActiveChats))
	assert.Equal(t, 0.0, testutil.ToFloat64(app.metrics.LogRecordsLost.WithLabelValues("buffer_full")))
}

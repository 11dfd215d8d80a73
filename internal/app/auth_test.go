package app

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func basic(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestMetricsAuthMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		password string
		header   string
		want     int
	}{
		{"open without password", "", "", http.StatusOK},
		{"open ignores credentials", "", basic("x", "y"), http.StatusOK},
		{"valid credentials", "secret123", basic("prometheus", "secret123"), http.StatusOK},
		{"wrong username", "secret123", basic("wronguser", "secret123"), http.StatusUnauthorized},
		{"wrong password", "secret123", basic("prometheus", "wrongpass"), http.StatusUnauthorized},
		{"missing header", "secret123", "", http.StatusUnauthorized},
		{"only basic", "secret123", "Basic", http.StatusUnauthorized},
		{"invalid base64", "secret123", "Basic notbase64!!!", http.StatusUnauthorized},
		{"bearer token", "secret123", "Bearer sometoken", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/metrics", metricsAuthMiddleware("prometheus", tt.password), func(c *gin.Context) {
				c.String(http.StatusOK, "metrics")
			})

			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Basic realm=")
			} else {
				assert.Equal(t, "metrics", w.Body.String())
			}
		})
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/tombola/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestAllowedOrigins(t *testing.T) {
	dev := AllowedOrigins(&config.Config{Environment: "development", FrontendURL: "http://localhost:5173"})
	assert.Equal(t, devOrigins, dev)

	prod := AllowedOrigins(&config.Config{Environment: "production", FrontendURL: "https://tombola.example.com"})
	assert.Equal(t, []string{"https://tombola.example.com"}, prod)

	assert.Empty(t, AllowedOrigins(&config.Config{Environment: "production"}))
}

func TestWebSocketCORSCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Environment: "production", FrontendURL: "https://tombola.example.com"}

	r := gin.New()
	r.GET("/ws", WebSocketCORSCheck(cfg), func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := []struct {
		name    string
		upgrade bool
		origin  string
		status  int
	}{
		{"plain request", false, "", http.StatusOK},
		{"missing origin", true, "", http.StatusBadRequest},
		{"foreign origin", true, "https://evil.example.com", http.StatusForbidden},
		{"allowed origin", true, "https://tombola.example.com", http.StatusOK},
		{"localhost in production", true, "http://localhost:3000", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tc.upgrade {
				req.Header.Set("Connection", "Upgrade")
				req.Header.Set("Upgrade", "websocket")
			}
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

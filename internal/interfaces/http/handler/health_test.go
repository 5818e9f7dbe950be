package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping() error { return p.err }

func healthResponse(t *testing.T, h *HealthHandler) (int, map[string]any) {
	t.Helper()
	h.now = func() time.Time { return time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC) }

	engine := gin.New()
	engine.GET("/health", h.Health)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestHealthHandler(t *testing.T) {
	t.Run("all stores healthy", func(t *testing.T) {
		code, body := healthResponse(t, NewHealthHandler().
			WithStore("database", stubPinger{}).
			WithStore("secondary", stubPinger{}))

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "ok", body["database"])
		assert.Equal(t, "ok", body["secondary"])
		assert.Equal(t, "2024-07-01T12:00:00Z", body["time"])
	})

	t.Run("secondary down", func(t *testing.T) {
		code, body := healthResponse(t, NewHealthHandler().
			WithStore("database", stubPinger{}).
			WithStore("secondary", stubPinger{err: errors.New("login failed")}))

		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "unhealthy", body["status"])
		assert.Equal(t, "ok", body["database"])
		assert.Equal(t, "error", body["secondary"])
	})

	t.Run("nil store is not registered", func(t *testing.T) {
		code, body := healthResponse(t, NewHealthHandler().
			WithStore("database", stubPinger{}).
			WithStore("secondary", nil))

		assert.Equal(t, http.StatusOK, code)
		assert.NotContains(t, body, "secondary")
	})
}

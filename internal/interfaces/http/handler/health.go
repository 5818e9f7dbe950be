package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Godswill9/sage200EvolutionApi/internal/infrastructure/logger"
)

// Pinger is a store the health check can probe
type Pinger interface {
	Ping() error
}

// HealthHandler reports whether the audit and secondary stores answer
type HealthHandler struct {
	names  []string
	stores map[string]Pinger
	now    func() time.Time
}

// NewHealthHandler creates a HealthHandler with no stores
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{stores: map[string]Pinger{}, now: time.Now}
}

// WithStore adds a named store. A nil store is skipped.
func (h *HealthHandler) WithStore(name string, store Pinger) *HealthHandler {
	if store == nil {
		return h
	}
	if _, exists := h.stores[name]; !exists {
		h.names = append(h.names, name)
	}
	h.stores[name] = store
	return h
}

// Health answers 200 when every store pings, else 503.
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	reqLog := logger.GetGinLogger(c)

	status := http.StatusOK
	body := gin.H{"time": h.now().Format(time.RFC3339)}
	for _, name := range h.names {
		if err := h.stores[name].Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.String("store", name), zap.Error(err))
			body[name] = "error"
			status = http.StatusServiceUnavailable
			continue
		}
		body[name] = "ok"
	}

	if status == http.StatusOK {
		body["status"] = "healthy"
	} else {
		body["status"] = "unhealthy"
	}
	c.JSON(status, body)
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const healthCheckTimeout = 3 * time.Second

// Pinger is anything health can probe: the database pool, the triage endpoint.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

type HealthHandler interface {
	Root(c *gin.Context)
	Health(c *gin.Context)
}

type healthHandler struct {
	db     Pinger
	triage Pinger // nil: not checked
	logger *zap.Logger
}

func NewHealthHandler(db Pinger, triage Pinger, logger *zap.Logger) HealthHandler {
	return &healthHandler{db: db, triage: triage, logger: logger}
}

// Root handles GET /
func (h *healthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Smart Triage Backend is running!"})
}

// Health handles GET /health. Only the database decides the status code; an unreachable
// triage endpoint is reported as degraded.
func (h *healthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Error("Database health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "unreachable"})
		return
	}

	resp := gin.H{"status": "healthy", "database": "ok"}
	if h.triage != nil {
		if err := h.triage.PingContext(ctx); err != nil {
			h.logger.Warn("Triage health check failed", zap.Error(err))
			resp["status"] = "degraded"
			resp["triage"] = "unreachable"
		} else {
			resp["triage"] = "ok"
		}
	}

	c.JSON(http.StatusOK, resp)
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/aetherlens/backend/internal/db"
	"github.com/aetherlens/backend/internal/logger"
	"github.com/aetherlens/backend/internal/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ServiceName    = "AetherLens Home Edition"
	ServiceVersion = "1.0.0"

	healthCheckTimeout = 5 * time.Second
	statusHealthy      = "healthy"
	statusUnhealthy    = "unhealthy"
)

// HealthProber is the slice of the store the health endpoints need.
type HealthProber interface {
	Ping(ctx context.Context) (time.Duration, error)
	ExtensionVersion(ctx context.Context, name string) (string, error)
}

type HealthHandler struct {
	store HealthProber
	now   func() time.Time
}

func NewHealthHandler(store HealthProber) *HealthHandler {
	return &HealthHandler{store: store, now: time.Now}
}

// Root godoc
// @Summary Service banner
// @Tags health
// @Produce json
// @Success 200 {object} model.RootResponse
// @Router / [get]
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, model.RootResponse{
		Service: ServiceName,
		Version: ServiceVersion,
		Status:  "running",
	})
}

// Health godoc
// @Summary Dependency health
// @Tags health
// @Produce json
// @Success 200 {object} model.HealthResponse
// @Failure 503 {object} model.HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]model.HealthCheck{
		"database":    h.checkDatabase(ctx),
		"timescaledb": h.checkTimescale(ctx),
	}

	overall, code := statusHealthy, http.StatusOK
	for _, check := range checks {
		if check.Status != statusHealthy {
			overall, code = statusUnhealthy, http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(code, model.HealthResponse{
		Status:    overall,
		Timestamp: h.now().UTC().Format(time.RFC3339),
		Version:   ServiceVersion,
		Checks:    checks,
	})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) model.HealthCheck {
	latency, err := h.store.Ping(ctx)
	if err != nil {
		logger.FromContext(ctx).Error("Database health check failed", zap.Error(err))
		return model.HealthCheck{Status: statusUnhealthy, Error: "database unreachable"}
	}
	ms := float64(latency.Microseconds()) / 1000
	return model.HealthCheck{Status: statusHealthy, LatencyMS: &ms, Message: "Database connection OK"}
}

func (h *HealthHandler) checkTimescale(ctx context.Context) model.HealthCheck {
	version, err := h.store.ExtensionVersion(ctx, "timescaledb")
	if err != nil {
		if db.IsNoRows(err) {
			return model.HealthCheck{Status: statusUnhealthy, Message: "TimescaleDB extension not found"}
		}
		logger.FromContext(ctx).Error("TimescaleDB health check failed", zap.Error(err))
		return model.HealthCheck{Status: statusUnhealthy, Error: "extension lookup failed"}
	}
	return model.HealthCheck{Status: statusHealthy, Version: version, Message: "TimescaleDB active"}
}

// Ready godoc
// @Summary Readiness probe
// @Tags health
// @Produce json
// @Success 200 {object} model.StatusResponse
// @Failure 503 {object} model.StatusResponse
// @Router /health/ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	if _, err := h.store.Ping(ctx); err != nil {
		logger.FromContext(ctx).Warn("Readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, model.StatusResponse{Status: "not_ready", Reason: "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{Status: "ready"})
}

// Live godoc
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} model.StatusResponse
// @Router /health/live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, model.StatusResponse{
		Status:    "alive",
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}

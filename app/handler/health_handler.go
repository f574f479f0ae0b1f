package handler

import (
	"net/http"
	"time"

	"conductor/internal/audit"
	"conductor/pkg/store/sqlstore"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports store connectivity and daemon liveness
type HealthHandler struct {
	ds    *sqlstore.Datastore
	audit *audit.Service
}

// NewHealthHandler creates health handler
func NewHealthHandler(ds *sqlstore.Datastore, a *audit.Service) *HealthHandler {
	return &HealthHandler{ds: ds, audit: a}
}

// Check answers /healthz
func (h *HealthHandler) Check(c *gin.Context) {
	if err := h.ds.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "error": err.Error()})
		return
	}

	resp := gin.H{"status": "ok"}
	if tick, err := h.audit.LatestTick(c.Request.Context()); err == nil && tick != nil {
		resp["last_tick_at"] = tick.FinishedAt
		resp["last_tick_status"] = tick.Status
		resp["last_tick_age_seconds"] = int(time.Since(tick.FinishedAt).Seconds())
	}
	c.JSON(http.StatusOK, resp)
}

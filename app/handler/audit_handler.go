package handler

import (
	"net/http"
	"strconv"
	"time"

	"conductor/internal/audit"
	"conductor/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuditHandler serves the read-only audit trail
type AuditHandler struct {
	audit *audit.Service
}

// NewAuditHandler creates audit handler
func NewAuditHandler(a *audit.Service) *AuditHandler {
	return &AuditHandler{audit: a}
}

// ActionLog returns the execution log for one work item
// @Summary Execution log for a work item
// @Tags audit
// @Produce json
// @Param id path string true "Action ID"
// @Router /v1/actions/{id}/log [get]
func (h *AuditHandler) ActionLog(c *gin.Context) {
	actionID := c.Param("id")
	if actionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id required"})
		return
	}

	entries, err := h.audit.EntriesForAction(c.Request.Context(), actionID)
	if err != nil {
		logger.Errorf("failed to list execution log for %s: %v", actionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"action_id": actionID, "entries": entries})
}

// LogRange returns execution log entries in a time range
// @Summary Execution log by time range
// @Tags audit
// @Produce json
// @Param since query string true "RFC3339 start (inclusive)"
// @Param until query string false "RFC3339 end (exclusive, default now)"
// @Router /v1/audit/log [get]
func (h *AuditHandler) LogRange(c *gin.Context) {
	since, err := time.Parse(time.RFC3339, c.Query("since"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
		return
	}

	until := time.Now()
	if raw := c.Query("until"); raw != "" {
		until, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "until must be RFC3339"})
			return
		}
	}

	entries, err := h.audit.EntriesInRange(c.Request.Context(), since, until)
	if err != nil {
		logger.Errorf("failed to list execution log range: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// Ticks returns the latest tick summaries
// @Summary Latest tick summaries
// @Tags audit
// @Produce json
// @Param limit query int false "Number of summaries (default 20)"
// @Router /v1/ticks [get]
func (h *AuditHandler) Ticks(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	summaries, err := h.audit.LatestTicks(c.Request.Context(), limit)
	if err != nil {
		logger.Errorf("failed to list tick summaries: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticks": summaries})
}

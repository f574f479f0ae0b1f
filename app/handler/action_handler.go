package handler

import (
	"net/http"

	"conductor/internal/model"
	"conductor/internal/queue"
	"conductor/internal/registry"
	"conductor/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ActionHandler handles work item enqueue and status queries
type ActionHandler struct {
	queue    *queue.Service
	registry *registry.Registry
}

// NewActionHandler creates action handler
func NewActionHandler(q *queue.Service, reg *registry.Registry) *ActionHandler {
	return &ActionHandler{queue: q, registry: reg}
}

// Enqueue submits a work item
// @Summary Enqueue a work item
// @Description Idempotent enqueue; re-submitting the same idempotency key returns the existing item
// @Tags actions
// @Accept json
// @Produce json
// @Param request body model.EnqueueRequest true "Work item"
// @Success 200 {object} model.EnqueueResponse
// @Router /v1/actions [post]
func (h *ActionHandler) Enqueue(c *gin.Context) {
	var req model.EnqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Errorf("invalid enqueue request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "idempotency_key and action_type required"})
		return
	}

	// Fail fast at the edge; anything that slips past still dead-letters
	// in the daemon
	if !h.registry.Has(req.ActionType) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":      "unregistered action type",
			"registered": h.registry.ActionTypes(),
		})
		return
	}

	action, created, err := h.queue.Enqueue(c.Request.Context(), req.IdempotencyKey, req.ActionType, req.Payload)
	if err != nil {
		logger.Errorf("failed to enqueue action: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.EnqueueResponse{
		ID:      action.ActionID,
		Status:  action.Status,
		Created: created,
	})
}

// Status gets work item status
// @Summary Get work item status
// @Tags actions
// @Produce json
// @Param id path string true "Action ID"
// @Success 200 {object} model.ActionResponse
// @Router /v1/actions/{id} [get]
func (h *ActionHandler) Status(c *gin.Context) {
	actionID := c.Param("id")
	if actionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id required"})
		return
	}

	action, err := h.queue.Get(c.Request.Context(), actionID)
	if err != nil {
		logger.Errorf("failed to get action %s: %v", actionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if action == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "action not found"})
		return
	}

	c.JSON(http.StatusOK, model.FromAction(action))
}

package handler

import (
	"net/http"

	"conductor/internal/model"
	"conductor/pkg/logger"
	"conductor/pkg/store/sqlstore"

	"github.com/gin-gonic/gin"
)

// ControlHandler exposes the operator control flags
type ControlHandler struct {
	flags *sqlstore.ControlFlagsRepository
}

// NewControlHandler creates control handler
func NewControlHandler(flags *sqlstore.ControlFlagsRepository) *ControlHandler {
	return &ControlHandler{flags: flags}
}

// Get reads the control flags
// @Summary Read control flags
// @Tags control
// @Produce json
// @Success 200 {object} model.ControlFlags
// @Router /v1/control [get]
func (h *ControlHandler) Get(c *gin.Context) {
	flags, err := h.flags.Get(c.Request.Context())
	if err != nil {
		logger.Errorf("failed to read control flags: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, flags)
}

// Update applies a partial update to the control flags
// @Summary Update control flags
// @Tags control
// @Accept json
// @Produce json
// @Param request body model.ControlUpdateRequest true "Flag changes"
// @Success 200 {object} model.ControlFlags
// @Router /v1/control [put]
func (h *ControlHandler) Update(c *gin.Context) {
	var req model.ControlUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	updates := make(map[string]interface{})
	if req.Paused != nil {
		updates["paused"] = *req.Paused
	}
	if req.Killed != nil {
		updates["killed"] = *req.Killed
	}
	if req.RehearsalMode != nil {
		updates["rehearsal_mode"] = *req.RehearsalMode
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no flags to update"})
		return
	}

	// Ensure the singleton row exists before updating it
	if _, err := h.flags.Get(c.Request.Context()); err != nil {
		logger.Errorf("failed to read control flags: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.flags.Update(c.Request.Context(), updates); err != nil {
		logger.Errorf("failed to update control flags: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	flags, err := h.flags.Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	logger.Infof("control flags updated: paused=%v killed=%v rehearsal=%v",
		flags.Paused, flags.Killed, flags.RehearsalMode)
	c.JSON(http.StatusOK, flags)
}

package router

import (
	"conductor/app/handler"
	"conductor/app/middleware"

	"github.com/gin-gonic/gin"
)

// Router wires handlers onto the gin engine
type Router struct {
	actionHandler  *handler.ActionHandler
	controlHandler *handler.ControlHandler
	auditHandler   *handler.AuditHandler
	healthHandler  *handler.HealthHandler
}

// NewRouter creates a new Router
func NewRouter(actionHandler *handler.ActionHandler, controlHandler *handler.ControlHandler, auditHandler *handler.AuditHandler, healthHandler *handler.HealthHandler) *Router {
	return &Router{
		actionHandler:  actionHandler,
		controlHandler: controlHandler,
		auditHandler:   auditHandler,
		healthHandler:  healthHandler,
	}
}

// Setup sets up routes
func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger())

	engine.GET("/healthz", r.healthHandler.Check)

	// V1 API - enqueue interface for external collaborators and read-only
	// audit surface for dashboards
	v1 := engine.Group("/v1")
	{
		v1.POST("/actions", r.actionHandler.Enqueue)
		v1.GET("/actions/:id", r.actionHandler.Status)
		v1.GET("/actions/:id/log", r.auditHandler.ActionLog)
		v1.GET("/audit/log", r.auditHandler.LogRange)
		v1.GET("/ticks", r.auditHandler.Ticks)

		// Operator control flags, behind the API key when configured
		control := v1.Group("/control")
		control.Use(middleware.AuthMiddleware())
		{
			control.GET("", r.controlHandler.Get)
			control.PUT("", r.controlHandler.Update)
		}
	}
}

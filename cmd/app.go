package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"conductor/app/handler"
	"conductor/internal/audit"
	"conductor/internal/daemon"
	"conductor/internal/jobs"
	"conductor/internal/queue"
	"conductor/internal/registry"
	"conductor/pkg/config"
	"conductor/pkg/logger"
	"conductor/pkg/store/sqlstore"

	"github.com/gin-gonic/gin"
)

// Options are the process launch parameters
type Options struct {
	RehearsalOnly bool
	MaxTicks      int
	NoServer      bool
}

// Application manages the lifecycle of the daemon and its HTTP surface
type Application struct {
	opts Options

	// Infrastructure components
	config *config.Config
	repo   *sqlstore.Repository

	// Core components
	registry     *registry.Registry
	queueService *queue.Service
	auditService *audit.Service
	daemon       *daemon.Daemon

	// Handler layer
	actionHandler  *handler.ActionHandler
	controlHandler *handler.ControlHandler
	auditHandler   *handler.AuditHandler
	healthHandler  *handler.HealthHandler

	// HTTP server
	httpServer *http.Server
	ginEngine  *gin.Engine

	// Background tasks
	jobsManager *jobs.Manager

	// Context management
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	daemonDone chan error

	cleanupFuncs []func()
}

// NewApplication creates a new Application instance
func NewApplication(opts Options) *Application {
	ctx, cancel := context.WithCancel(context.Background())
	return &Application{
		opts:         opts,
		ctx:          ctx,
		cancel:       cancel,
		daemonDone:   make(chan error, 1),
		cleanupFuncs: make([]func(), 0),
	}
}

// DaemonDone reports the daemon loop's exit
func (app *Application) DaemonDone() <-chan error {
	return app.daemonDone
}

// Initialize initializes all application components
func (app *Application) Initialize() error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"Configuration", app.initConfig},
		{"Logging", app.initLogger},
		{"Store", app.initStore},
		{"Handler Registry", app.initRegistry},
		{"Services", app.initServices},
		{"Daemon Loop", app.initDaemon},
		{"Background Tasks", app.initJobs},
		{"HTTP Server", app.initHTTPServer},
	}

	for _, step := range steps {
		logger.Infof("initializing %s...", step.name)
		if err := step.fn(); err != nil {
			return fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
	}

	logger.Info("application initialization completed")
	return nil
}

// Start starts all application components
func (app *Application) Start() error {
	// 1. Background jobs
	if app.jobsManager != nil {
		app.jobsManager.Start()
		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			app.jobsManager.Wait()
		}()
	}

	// 2. Daemon loop
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.daemonDone <- app.daemon.Run(app.ctx)
	}()

	// 3. HTTP server
	if app.httpServer != nil {
		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			addr := fmt.Sprintf(":%d", app.config.Server.Port)
			logger.Infof("HTTP server listening on %s", addr)
			if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatalf("HTTP server error: %v", err)
			}
		}()
	}

	logger.Info("all components started")
	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown(timeout time.Duration) error {
	logger.Infof("starting graceful shutdown (timeout: %v)...", timeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// 1. Cancel the daemon loop and background jobs
	app.cancel()
	if app.jobsManager != nil {
		app.jobsManager.Stop()
	}

	// 2. Stop accepting new requests
	if app.httpServer != nil {
		if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("HTTP server shutdown error: %v", err)
		}
	}

	// 3. Wait for everything to finish
	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all background tasks completed")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout, some tasks may not have completed")
	}

	// 4. Cleanup functions in reverse registration order
	for i := len(app.cleanupFuncs) - 1; i >= 0; i-- {
		app.cleanupFuncs[i]()
	}

	logger.Sync()
	return nil
}

// registerCleanup registers cleanup function
func (app *Application) registerCleanup(cleanup func()) {
	app.cleanupFuncs = append(app.cleanupFuncs, cleanup)
}

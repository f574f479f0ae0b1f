package main

import (
	"fmt"
	"net/http"
	"time"

	"conductor/app/handler"
	"conductor/app/router"
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

func (app *Application) initConfig() error {
	if err := config.Init(); err != nil {
		return err
	}
	app.config = config.GlobalConfig
	return nil
}

func (app *Application) initLogger() error {
	return logger.Init()
}

func (app *Application) initStore() error {
	repo, err := sqlstore.NewRepository(app.config.Store.MySQLDSN, app.config.Store.SQLitePath)
	if err != nil {
		return err
	}
	app.repo = repo
	app.registerCleanup(func() {
		if err := repo.Close(); err != nil {
			logger.Errorf("failed to close store: %v", err)
		}
	})

	if app.config.Store.MySQLDSN != "" {
		logger.Info("store: MySQL (networked)")
	} else {
		logger.Infof("store: embedded SQLite at %s", app.config.Store.SQLitePath)
	}
	return nil
}

func (app *Application) initRegistry() error {
	reg := registry.NewRegistry()
	reg.Register(registry.NewWebhookHandler(app.config.Actions.WebhookURL))
	reg.Register(registry.NewReportHandler(app.config.Actions.ArtifactDir))
	app.registry = reg
	logger.Infof("registered action types: %v", reg.ActionTypes())
	return nil
}

func (app *Application) initServices() error {
	d := app.config.Daemon
	app.queueService = queue.NewService(
		app.repo.Action,
		d.MaxRetries,
		d.RetryBackoffDuration(),
		d.ReclaimAfterDuration(),
	)
	app.auditService = audit.NewService(app.repo.ExecutionLog, app.repo.TickSummary)
	return nil
}

func (app *Application) initDaemon() error {
	owner := daemon.OwnerIdentity()
	lease := daemon.NewLeaseManager(app.repo.Lease, owner, app.config.Daemon.LeaseTTLDuration())

	app.daemon = daemon.New(
		app.config.Daemon,
		daemon.Options{
			RehearsalOnly: app.opts.RehearsalOnly,
			MaxTicks:      app.opts.MaxTicks,
		},
		lease,
		app.repo,
		app.queueService,
		app.registry,
	)
	logger.Infof("daemon owner identity: %s", owner)
	return nil
}

func (app *Application) initJobs() error {
	manager := jobs.NewManager(app.ctx)
	// Sweep at half the reclaim threshold so a stalled item waits at most
	// 1.5x the threshold before requeue
	interval := app.config.Daemon.ReclaimAfterDuration() / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	manager.Register(jobs.NewReclaimJob(app.queueService, interval))
	app.jobsManager = manager
	return nil
}

func (app *Application) initHTTPServer() error {
	if app.opts.NoServer {
		logger.Info("HTTP server disabled (-no-server)")
		return nil
	}

	gin.SetMode(app.config.Server.Mode)

	app.actionHandler = handler.NewActionHandler(app.queueService, app.registry)
	app.controlHandler = handler.NewControlHandler(app.repo.ControlFlags)
	app.auditHandler = handler.NewAuditHandler(app.auditService)
	app.healthHandler = handler.NewHealthHandler(app.repo.GetDatastore(), app.auditService)

	app.ginEngine = gin.New()
	r := router.NewRouter(app.actionHandler, app.controlHandler, app.auditHandler, app.healthHandler)
	r.Setup(app.ginEngine)

	app.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.config.Server.Port),
		Handler: app.ginEngine,
	}
	return nil
}

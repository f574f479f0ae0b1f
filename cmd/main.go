package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"conductor/pkg/logger"
)

func main() {
	var (
		configPath    = flag.String("config", "", "config file path (overrides CONFIG_PATH)")
		rehearsalOnly = flag.Bool("rehearsal-only", false, "force rehearsal mode regardless of the stored flag")
		maxTicks      = flag.Int("max-ticks", 0, "exit after N ticks (0 = run forever)")
		noServer      = flag.Bool("no-server", false, "run the daemon without the HTTP listener")
	)
	flag.Parse()

	if *configPath != "" {
		os.Setenv("CONFIG_PATH", *configPath)
	}

	app := NewApplication(Options{
		RehearsalOnly: *rehearsalOnly,
		MaxTicks:      *maxTicks,
		NoServer:      *noServer,
	})

	if err := app.Initialize(); err != nil {
		logger.Fatalf("application initialization failed: %v", err)
	}

	if err := app.Start(); err != nil {
		logger.Fatalf("application startup failed: %v", err)
	}

	// Run until a signal arrives or the daemon loop finishes on its own
	// (kill flag, max ticks, or lost leadership)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Infof("received exit signal: %v", sig)
	case err := <-app.DaemonDone():
		if err != nil {
			logger.Errorf("daemon loop exited: %v", err)
		} else {
			logger.Info("daemon loop exited")
		}
	}

	if err := app.Shutdown(30 * time.Second); err != nil {
		logger.Errorf("application shutdown failed: %v", err)
		os.Exit(1)
	}

	logger.Info("application safely exited")
}

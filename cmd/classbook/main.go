package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/classbook/adapter/cli"
	"github.com/felixgeelhaar/classbook/adapter/cli/booking"
	"github.com/felixgeelhaar/classbook/adapter/cli/class"
	"github.com/felixgeelhaar/classbook/adapter/cli/rules"
	"github.com/felixgeelhaar/classbook/adapter/cli/waitlist"
	"github.com/felixgeelhaar/classbook/internal/app"
	"github.com/felixgeelhaar/classbook/pkg/config"
	"github.com/felixgeelhaar/classbook/pkg/observability"
)

func main() {
	// Setup logger
	logger := observability.NewLogger(observability.DefaultLogConfig())

	// Create context cancelled on shutdown signals
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logCfg := observability.LogConfigFor(cfg.AppEnv, cfg.LogLevel)
	logCfg.ServiceVersion = cli.Version
	logger = observability.NewLogger(logCfg)
	cli.SetLogger(logger)

	// Commands that need a database report it themselves when the
	// container is unavailable.
	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Warn("failed to initialize container", "error", err)
	} else {
		defer container.Close()

		cli.SetApp(cli.NewAppFromContainer(container))
	}

	// Register commands
	cli.AddCommand(class.Cmd)
	cli.AddCommand(booking.Cmd)
	cli.AddCommand(waitlist.Cmd)
	cli.AddCommand(rules.Cmd)

	// Execute CLI
	cli.Execute(ctx)
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/kirillkom/writing-assistant/internal/adapters/mcp"
	"github.com/kirillkom/writing-assistant/internal/bootstrap"
	"github.com/kirillkom/writing-assistant/internal/config"
	"github.com/kirillkom/writing-assistant/internal/core/domain"
	"github.com/kirillkom/writing-assistant/internal/observability/logging"
)

const serviceName = "mcp"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.NewLogger(os.Stderr, serviceName, "error").Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(os.Stderr, serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tools are stateless, so sessions are neither persisted nor published.
	cfg.SnapshotBackend = "none"
	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{
		Service:      serviceName,
		WithoutQueue: true,
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	server, err := mcpadapter.NewServer(app.Suggestions, domain.WritingMode(cfg.WritingMode), logger)
	if err != nil {
		logger.Error("mcp_server_init_failed", "error", err)
		os.Exit(1)
	}

	logger.Info("mcp_serving_stdio", "version", mcpadapter.Version)
	if err := server.Run(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/writing-assistant/internal/adapters/http"
	"github.com/kirillkom/writing-assistant/internal/bootstrap"
	"github.com/kirillkom/writing-assistant/internal/config"
	"github.com/kirillkom/writing-assistant/internal/core/ports"
	"github.com/kirillkom/writing-assistant/internal/observability/logging"
	"github.com/kirillkom/writing-assistant/internal/observability/metrics"
)

const serviceName = "api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.NewJSONLogger(serviceName, "error").Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{
		Service:    serviceName,
		Registerer: httpMetrics.Registry(),
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	var analyses ports.AnalysisReader
	if app.Analyses != nil {
		analyses = app.Analyses
	}
	router := httpadapter.NewRouter(cfg, app.Sessions, app.Suggestions, analyses, httpMetrics, logger).Handler()
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout*time.Duration(cfg.MaxRetries+1) + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
}

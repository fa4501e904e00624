package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/writing-assistant/internal/bootstrap"
	"github.com/kirillkom/writing-assistant/internal/config"
	"github.com/kirillkom/writing-assistant/internal/core/domain"
	"github.com/kirillkom/writing-assistant/internal/observability/logging"
	"github.com/kirillkom/writing-assistant/internal/observability/metrics"
)

const serviceName = "worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.NewJSONLogger(serviceName, "error").Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{
		Service:    serviceName,
		Registerer: workerMetrics.Registry(),
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if app.Queue == nil || app.Analyses == nil {
		logger.Error("worker_requires_nats_and_postgres",
			"nats_url", cfg.NATSURL,
			"snapshot_backend", cfg.SnapshotBackend,
		)
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeSnapshotSaved(ctx, func(handlerCtx context.Context, event domain.SnapshotSavedEvent) error {
		if !event.SavedAt.IsZero() {
			workerMetrics.ObserveQueueLag(serviceName, time.Since(event.SavedAt))
		}

		analyzeCtx, cancel := context.WithTimeout(handlerCtx, cfg.WorkerTimeout)
		defer cancel()

		workerMetrics.StartAnalysis()
		started := time.Now()
		err := app.Analyses.AnalyzeSnapshot(analyzeCtx, event)
		workerMetrics.FinishAnalysis(serviceName, time.Since(started), err)
		if err != nil {
			logger.Warn("snapshot_analysis_failed",
				"session_id", event.SessionID,
				"revision", event.Revision,
				"error", err,
			)
		}
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/cameroon-legal-assistant/internal/bootstrap"
	"github.com/kirillkom/cameroon-legal-assistant/internal/config"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
	"github.com/kirillkom/cameroon-legal-assistant/internal/observability/logging"
	"github.com/kirillkom/cameroon-legal-assistant/internal/observability/metrics"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker, err := bootstrap.NewWorker(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		return 1
	}
	defer worker.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
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
	defer shutdown(metricsServer, logger)

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = worker.Queue.SubscribeResolutions(ctx, func(handlerCtx context.Context, event domain.ResolutionEvent) error {
		recordCtx, cancel := context.WithTimeout(handlerCtx, 10*time.Second)
		defer cancel()

		if !event.CreatedAt.IsZero() {
			workerMetrics.ObserveQueueLag("worker", time.Since(event.CreatedAt))
		}
		workerMetrics.StartEvent()
		started := time.Now()
		err := worker.JournalUC.Record(recordCtx, event)
		workerMetrics.FinishEvent("worker", time.Since(started), err)
		return err
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		return 1
	}
	logger.Info("worker_stopped")
	return 0
}

func shutdown(server *http.Server, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("worker_metrics_shutdown_failed", "error", err)
	}
}

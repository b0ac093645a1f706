package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/cameroon-legal-assistant/internal/adapters/http"
	"github.com/kirillkom/cameroon-legal-assistant/internal/bootstrap"
	"github.com/kirillkom/cameroon-legal-assistant/internal/config"
	"github.com/kirillkom/cameroon-legal-assistant/internal/observability/logging"
	"github.com/kirillkom/cameroon-legal-assistant/internal/observability/metrics"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()
	logger := logging.NewJSONLogger("api", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger, Metrics: httpMetrics})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		return 1
	}
	defer app.Close()

	router := httpadapter.NewRouter(cfg, app.ResolveUC, app.ResolveUC, app.ResolveUC, httpMetrics, logger).Handler()
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.GeneratorTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort, "degraded", app.ResolveUC.Degraded())
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
		return 1
	}
	return 0
}

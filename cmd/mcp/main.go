package main

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/cameroon-legal-assistant/internal/adapters/mcp"
	"github.com/kirillkom/cameroon-legal-assistant/internal/bootstrap"
	"github.com/kirillkom/cameroon-legal-assistant/internal/config"
	"github.com/kirillkom/cameroon-legal-assistant/internal/observability/logging"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()
	// stdout carries the protocol stream.
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)

	app, err := bootstrap.New(context.Background(), cfg, bootstrap.Options{Logger: logger})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		return 1
	}
	defer app.Close()

	tools := mcpadapter.NewTools(app.ResolveUC, app.ResolveUC, logger)
	if err := server.ServeStdio(mcpadapter.NewServer(tools, version)); err != nil {
		logger.Error("mcp_server_failed", "error", err)
		return 1
	}
	return 0
}

// Package main is the entry point for the UI automation MCP server binary.
// ui-server exposes coordinate-table UI automation tools (click, type, mouse
// position) to MCP-compatible clients over SSE and streamable HTTP.
//
// Every element the server can act on must be listed in the coordinate map
// file before startup; the server refuses to start without a valid map.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/termbridge/termbridge/internal/common/config"
	"github.com/termbridge/termbridge/internal/common/logger"
	"github.com/termbridge/termbridge/internal/mcpserver"
	"github.com/termbridge/termbridge/internal/tracing"
	"github.com/termbridge/termbridge/internal/uiauto"
)

var configPathFlag = flag.String("config", "", "Directory containing config.yaml")

func main() {
	flag.Parse()

	cfg, err := config.LoadWithPath(*configPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	logger.SetDefault(log)

	coords, err := uiauto.LoadCoords(cfg.UI.CoordsFile)
	if err != nil {
		log.Fatal("failed to load coordinate map", zap.Error(err))
	}
	log.Info("loaded coordinate map",
		zap.String("path", cfg.UI.CoordsFile),
		zap.Int("elements", len(coords)))

	auto := uiauto.NewAutomator(coords, &uiauto.XdoDriver{}, log)

	srv := mcpserver.New(mcpserver.Config{
		Host:    cfg.UI.Host,
		Port:    cfg.UI.Port,
		Name:    "termbridge-ui",
		Version: "1.0.0",
	}, log)

	mcpserver.RegisterUITools(srv, auto, log)

	if err := srv.Start(context.Background()); err != nil {
		log.Error("failed to start server", zap.Error(err))
		os.Exit(1)
	}

	log.Info("ui-server started",
		zap.String("sse_endpoint", srv.SSEEndpoint()),
		zap.String("streamable_http_endpoint", srv.StreamableHTTPEndpoint()))

	fmt.Printf("UI MCP server running on :%d\n", srv.Port())
	fmt.Printf("SSE endpoint: %s\n", srv.SSEEndpoint())
	fmt.Printf("Streamable HTTP endpoint: %s\n", srv.StreamableHTTPEndpoint())

	waitForShutdown(log, func(ctx context.Context) {
		if err := srv.Stop(ctx); err != nil {
			log.Error("error stopping server", zap.Error(err))
		}
		if err := tracing.Shutdown(ctx); err != nil {
			log.Error("error shutting down tracing", zap.Error(err))
		}
	})
}

func waitForShutdown(log *logger.Logger, cleanup func(ctx context.Context)) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down ui-server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cleanup(ctx)

	log.Info("ui-server stopped")
}

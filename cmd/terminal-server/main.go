// Package main is the entry point for the terminal MCP server binary.
// terminal-server exposes a persistent interactive shell session to
// MCP-compatible clients over two transports:
//   - SSE (Server-Sent Events) at /sse for Claude Desktop, Cursor
//   - Streamable HTTP at /mcp for Codex
//
// It also serves a raw output stream over WebSocket at /ws/output and the
// execution history at /api/v1/history.
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
	"github.com/termbridge/termbridge/internal/history"
	"github.com/termbridge/termbridge/internal/mcpserver"
	"github.com/termbridge/termbridge/internal/shell"
	"github.com/termbridge/termbridge/internal/stream"
	"github.com/termbridge/termbridge/internal/tracing"
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

	log.Info("starting terminal-server",
		zap.Int("port", cfg.Terminal.Port),
		zap.String("shell", cfg.Shell.Path))

	if err := run(cfg, log); err != nil {
		log.Error("terminal-server failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx := context.Background()

	mgr := shell.NewManager(shell.Config{
		Path:           cfg.Shell.Path,
		MaxOutputChars: cfg.Shell.MaxOutputChars,
		MaxOutputLines: cfg.Shell.MaxOutputLines,
	}, log)

	var hist *history.Store
	if cfg.History.Enabled {
		var err error
		hist, err = history.Open(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		log.Info("execution history enabled", zap.String("path", cfg.History.Path))
	}

	srv := mcpserver.New(mcpserver.Config{
		Host:    cfg.Terminal.Host,
		Port:    cfg.Terminal.Port,
		Name:    "termbridge-terminal",
		Version: "1.0.0",
	}, log)

	mcpserver.RegisterTerminalTools(srv, mgr, hist, cfg.Shell.DefaultTimeout(), log)

	ws := stream.NewHandler(mgr.Broadcaster(), log)
	srv.Router().GET("/ws/output", ws.Serve)
	if hist != nil {
		srv.Router().GET("/api/v1/history", history.Handler(hist))
	}

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	log.Info("terminal-server started",
		zap.String("sse_endpoint", srv.SSEEndpoint()),
		zap.String("streamable_http_endpoint", srv.StreamableHTTPEndpoint()))

	fmt.Printf("Terminal MCP server running on :%d\n", srv.Port())
	fmt.Printf("SSE endpoint: %s\n", srv.SSEEndpoint())
	fmt.Printf("Streamable HTTP endpoint: %s\n", srv.StreamableHTTPEndpoint())

	waitForShutdown(log, func(ctx context.Context) {
		mgr.Stop()
		if err := srv.Stop(ctx); err != nil {
			log.Error("error stopping server", zap.Error(err))
		}
		if hist != nil {
			if err := hist.Close(); err != nil {
				log.Error("error closing history store", zap.Error(err))
			}
		}
		if err := tracing.Shutdown(ctx); err != nil {
			log.Error("error shutting down tracing", zap.Error(err))
		}
	})
	return nil
}

// waitForShutdown blocks until SIGINT or SIGTERM, then runs cleanup with a
// bounded deadline.
func waitForShutdown(log *logger.Logger, cleanup func(ctx context.Context)) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down terminal-server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cleanup(ctx)

	log.Info("terminal-server stopped")
}

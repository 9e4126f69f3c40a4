// Package mcpserver provides the shared MCP server plumbing for the
// termbridge binaries. It exposes a single MCP tool set over two transports
// for compatibility with different MCP clients:
//   - SSE transport (/sse + /message) for Claude Desktop, Cursor, etc.
//   - Streamable HTTP transport (/mcp) for Codex
//
// Both transports are mounted on a gin router alongside the plain HTTP
// routes (health, history, output stream).
package mcpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/termbridge/termbridge/internal/common/httpmw"
	"github.com/termbridge/termbridge/internal/common/logger"
	"github.com/termbridge/termbridge/internal/tracing"
)

// Config holds the MCP server configuration.
type Config struct {
	Host    string // listen address, e.g. "0.0.0.0"
	Port    int    // listen port
	Name    string // MCP server name advertised to clients
	Version string
}

// Server wraps the SSE and Streamable HTTP transports with lifecycle
// management.
type Server struct {
	cfg                  Config
	log                  *logger.Logger
	mcpServer            *server.MCPServer
	sseServer            *server.SSEServer
	streamableHTTPServer *server.StreamableHTTPServer
	router               *gin.Engine
	httpServer           *http.Server

	mu      sync.Mutex
	running bool
}

// New creates a new MCP server with the given configuration. Tools are added
// afterwards via AddTool; extra HTTP routes via Router.
func New(cfg Config, log *logger.Logger) *Server {
	s := &Server{
		cfg: cfg,
		log: log.WithComponent("mcp-server"),
	}

	s.mcpServer = server.NewMCPServer(
		cfg.Name,
		cfg.Version,
		server.WithToolCapabilities(true),
	)

	// WithBaseURL ensures the SSE endpoint event includes the full message
	// URL so MCP clients can POST back.
	s.sseServer = server.NewSSEServer(s.mcpServer,
		server.WithBaseURL(fmt.Sprintf("http://localhost:%d", cfg.Port)),
	)
	s.streamableHTTPServer = server.NewStreamableHTTPServer(s.mcpServer,
		server.WithEndpointPath("/mcp"),
	)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		httpmw.RequestLogger(log, cfg.Name),
		httpmw.OtelTracing(cfg.Name),
	)

	router.GET("/sse", gin.WrapH(s.sseServer.SSEHandler()))
	router.POST("/message", gin.WrapH(s.sseServer.MessageHandler()))
	router.Any("/mcp", gin.WrapH(s.streamableHTTPServer))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "server": cfg.Name})
	})

	s.router = router
	return s
}

// Router exposes the underlying gin router so callers can mount additional
// HTTP routes (history API, output stream websocket).
func (s *Server) Router() gin.IRouter {
	return s.router
}

// AddTool registers an MCP tool, wrapping its handler with debug logging and
// tracing.
func (s *Server) AddTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcpServer.AddTool(tool, s.wrapHandler(tool.Name, handler))
}

// wrapHandler wraps a tool handler with an OTel span and debug logging for
// tracing MCP calls.
func (s *Server) wrapHandler(toolName string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	tracer := tracing.Tracer(s.cfg.Name)

	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := tracer.Start(ctx, "tool "+toolName)
		defer span.End()
		span.SetAttributes(attribute.String("mcp.tool", toolName))

		start := time.Now()
		s.log.Debug("MCP tool call",
			zap.String("tool", toolName),
			zap.Any("args", req.GetArguments()))

		result, err := handler(ctx, req)
		duration := time.Since(start)

		switch {
		case err != nil:
			span.SetStatus(codes.Error, err.Error())
			s.log.Debug("MCP tool error",
				zap.String("tool", toolName),
				zap.Duration("duration", duration),
				zap.Error(err))
		case result != nil && result.IsError:
			s.log.Debug("MCP tool returned error",
				zap.String("tool", toolName),
				zap.Duration("duration", duration),
				zap.Any("result", result.Content))
		default:
			s.log.Debug("MCP tool success",
				zap.String("tool", toolName),
				zap.Duration("duration", duration))
		}

		return result, err
	}
}

// Start binds the listener and serves in a goroutine. It returns once the
// server is accepting connections, or an error if the port is unavailable.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.mu.Unlock()

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		s.cfg.Port = tcpAddr.Port
	}

	s.httpServer = &http.Server{Handler: s.router}

	ready := make(chan struct{})
	go func() {
		s.mu.Lock()
		s.running = true
		s.mu.Unlock()
		close(ready)

		s.log.Info("MCP server listening",
			zap.Int("port", s.cfg.Port),
			zap.String("sse_endpoint", "/sse"),
			zap.String("streamable_http_endpoint", "/mcp"))

		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("MCP server error", zap.Error(err))
		}

		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop gracefully shuts down the HTTP server and both MCP transports.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	if !running {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	if s.httpServer != nil {
		g.Go(func() error { return s.httpServer.Shutdown(ctx) })
	}
	if s.sseServer != nil {
		g.Go(func() error {
			if err := s.sseServer.Shutdown(ctx); err != nil {
				s.log.Warn("failed to shutdown SSE server", zap.Error(err))
			}
			return nil
		})
	}
	if s.streamableHTTPServer != nil {
		g.Go(func() error {
			if err := s.streamableHTTPServer.Shutdown(ctx); err != nil {
				s.log.Warn("failed to shutdown Streamable HTTP server", zap.Error(err))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}

// Port returns the bound port. Useful when the configured port was 0.
func (s *Server) Port() int {
	return s.cfg.Port
}

// SSEEndpoint returns the full SSE URL for clients that use SSE transport.
func (s *Server) SSEEndpoint() string {
	return fmt.Sprintf("http://localhost:%d/sse", s.cfg.Port)
}

// StreamableHTTPEndpoint returns the full Streamable HTTP URL.
func (s *Server) StreamableHTTPEndpoint() string {
	return fmt.Sprintf("http://localhost:%d/mcp", s.cfg.Port)
}

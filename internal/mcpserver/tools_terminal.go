package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/termbridge/termbridge/internal/common/logger"
	"github.com/termbridge/termbridge/internal/history"
	"github.com/termbridge/termbridge/internal/shell"
)

// TerminalManager is the session manager interface the terminal tools drive.
// *shell.Manager satisfies it.
type TerminalManager interface {
	Initiate(ctx context.Context) (string, error)
	Execute(ctx context.Context, command string, timeout time.Duration) shell.Result
	Stop()
}

// emptyOutputPlaceholder is substituted for blank stdout on successful
// zero-exit commands (like a bare cd) so clients rendering output do not
// mistake empty success for a stuck operation.
const emptyOutputPlaceholder = "(ok)\n"

// RegisterTerminalTools registers the three terminal tools. hist may be nil
// to disable execution history recording.
func RegisterTerminalTools(s *Server, mgr TerminalManager, hist *history.Store, defaultTimeout time.Duration, log *logger.Logger) {
	// Parameter-less tools use NewToolWithRawSchema so the schema includes
	// "properties": {}. The default ToolInputSchema uses omitempty which
	// drops empty properties maps, causing OpenAI API validation errors.
	s.AddTool(
		mcp.NewToolWithRawSchema("initiate_terminal",
			"Start or reset the persistent terminal session and report its working directory.",
			json.RawMessage(`{"type":"object","properties":{}}`),
		),
		initiateTerminalHandler(mgr),
	)

	s.AddTool(
		mcp.NewTool("execute_command",
			mcp.WithDescription("Execute a shell command in the persistent terminal session. "+
				"Working directory and environment changes persist across calls. "+
				"Returns merged stdout+stderr, the exit code, and the working directory after the command."),
			mcp.WithString("cmd",
				mcp.Required(),
				mcp.Description("The shell command to execute"),
			),
			mcp.WithNumber("timeout_sec",
				mcp.DefaultNumber(defaultTimeout.Seconds()),
				mcp.Description("Command timeout in seconds"),
			),
		),
		executeCommandHandler(mgr, hist, defaultTimeout, log),
	)

	s.AddTool(
		mcp.NewToolWithRawSchema("terminate_terminal",
			"Safely close the persistent terminal session.",
			json.RawMessage(`{"type":"object","properties":{}}`),
		),
		terminateTerminalHandler(mgr),
	)

	log.Info("registered terminal MCP tools", zap.Int("count", 3))
}

func initiateTerminalHandler(mgr TerminalManager) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cwd, err := mgr.Initiate(ctx)
		if err != nil {
			return jsonResult(map[string]any{
				"ok":    false,
				"error": err.Error(),
			})
		}
		return jsonResult(map[string]any{
			"ok":      true,
			"message": "terminal session initiated",
			"cwd":     cwd,
		})
	}
}

func executeCommandHandler(mgr TerminalManager, hist *history.Store, defaultTimeout time.Duration, log *logger.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := req.GetString("cmd", "")
		if strings.TrimSpace(cmd) == "" {
			return jsonResult(map[string]any{
				"ok":        false,
				"error":     "empty command",
				"stdout":    "",
				"exit_code": nil,
				"cwd_after": nil,
			})
		}

		timeoutSec := req.GetFloat("timeout_sec", defaultTimeout.Seconds())
		if timeoutSec <= 0 {
			return jsonResult(map[string]any{
				"ok":    false,
				"error": "timeout_sec must be positive",
				"cmd":   cmd,
			})
		}
		timeout := time.Duration(timeoutSec * float64(time.Second))

		start := time.Now()
		res := mgr.Execute(ctx, cmd, timeout)
		durationMS := time.Since(start).Milliseconds()

		stdout := res.Stdout
		// Commands like a bare cd succeed with no visible output.
		if res.OK && res.ExitCode != nil && *res.ExitCode == 0 && strings.TrimSpace(stdout) == "" {
			stdout = emptyOutputPlaceholder
		}

		resp := map[string]any{
			"ok":          res.OK,
			"stdout":      stdout,
			"exit_code":   res.ExitCode,
			"truncated":   res.Truncated,
			"cmd":         cmd,
			"duration_ms": durationMS,
		}
		if res.CwdAfter != "" {
			resp["cwd_after"] = res.CwdAfter
		}
		if res.Err != "" {
			resp["error"] = res.Err
		}

		if hist != nil {
			e := &history.Execution{
				Command:    cmd,
				OK:         res.OK,
				CwdAfter:   res.CwdAfter,
				Truncated:  res.Truncated,
				DurationMS: durationMS,
			}
			if res.ExitCode != nil {
				ec := int64(*res.ExitCode)
				e.ExitCode = &ec
			}
			if err := hist.Record(ctx, e); err != nil {
				log.Warn("failed to record execution history", zap.Error(err))
			}
		}

		return jsonResult(resp)
	}
}

func terminateTerminalHandler(mgr TerminalManager) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		mgr.Stop()
		return jsonResult(map[string]any{
			"ok":      true,
			"message": "terminal session terminated",
		})
	}
}

// jsonResult converts a value to a JSON tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

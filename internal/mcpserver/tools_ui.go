package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/termbridge/termbridge/internal/common/logger"
	"github.com/termbridge/termbridge/internal/uiauto"
)

// UIAutomator is the automation surface the UI tools drive. *uiauto.Automator
// satisfies it.
type UIAutomator interface {
	Click(ctx context.Context, element string) (uiauto.Point, error)
	Type(ctx context.Context, element, text string) (uiauto.Point, error)
	MousePosition(ctx context.Context) (uiauto.Point, error)
}

// RegisterUITools registers the coordinate-table UI automation tools.
func RegisterUITools(s *Server, auto UIAutomator, log *logger.Logger) {
	s.AddTool(
		mcp.NewTool("ui_click",
			mcp.WithDescription("Click a named UI element from the coordinate map."),
			mcp.WithString("element_name",
				mcp.Required(),
				mcp.Description("Name of the element in the coordinate map"),
			),
		),
		uiClickHandler(auto),
	)

	s.AddTool(
		mcp.NewTool("ui_type",
			mcp.WithDescription("Click a named UI element to focus it, then type text into it."),
			mcp.WithString("element_name",
				mcp.Required(),
				mcp.Description("Name of the element in the coordinate map"),
			),
			mcp.WithString("text",
				mcp.Required(),
				mcp.Description("Text to type after focusing the element"),
			),
		),
		uiTypeHandler(auto),
	)

	s.AddTool(
		mcp.NewToolWithRawSchema("ui_get_mouse_position",
			"Report the current mouse position in screen coordinates.",
			json.RawMessage(`{"type":"object","properties":{}}`),
		),
		uiMousePositionHandler(auto),
	)

	log.Info("registered UI automation MCP tools", zap.Int("count", 3))
}

func uiClickHandler(auto UIAutomator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		element, err := req.RequireString("element_name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		p, err := auto.Click(ctx, element)
		if err != nil {
			return jsonResult(map[string]any{
				"ok":      false,
				"success": false,
				"element": element,
				"error":   err.Error(),
			})
		}
		return jsonResult(map[string]any{
			"ok":      true,
			"success": true,
			"element": element,
			"x":       p.X,
			"y":       p.Y,
		})
	}
}

func uiTypeHandler(auto UIAutomator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		element, err := req.RequireString("element_name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		text, err := req.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		p, err := auto.Type(ctx, element, text)
		if err != nil {
			return jsonResult(map[string]any{
				"ok":      false,
				"success": false,
				"element": element,
				"error":   err.Error(),
			})
		}
		return jsonResult(map[string]any{
			"ok":          true,
			"success":     true,
			"element":     element,
			"x":           p.X,
			"y":           p.Y,
			"typed_chars": len(text),
		})
	}
}

func uiMousePositionHandler(auto UIAutomator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, err := auto.MousePosition(ctx)
		if err != nil {
			return jsonResult(map[string]any{
				"ok":    false,
				"error": err.Error(),
			})
		}
		return jsonResult(map[string]any{
			"ok": true,
			"x":  p.X,
			"y":  p.Y,
		})
	}
}

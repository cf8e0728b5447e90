package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.lsp.dev/protocol"

	"rockerboo/lsp-client-manager/interfaces"
	"rockerboo/lsp-client-manager/logger"
	"rockerboo/lsp-client-manager/lsp"
)

const defaultRequestTimeout = 10 * time.Second

// RegisterLSPRequestTool registers the lsp_request tool
func RegisterLSPRequestTool(mcpServer ToolServer, bridge interfaces.BridgeInterface) {
	mcpServer.AddTool(LSPRequestTool(bridge))
}

func LSPRequestTool(bridge interfaces.BridgeInterface) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("lsp_request",
			mcp.WithDescription("Send a request to the language server of a file and wait for the reply. "+
				"Give either kind with line and character for a symbol request on an open file, or method with params"),
			mcp.WithString("path", mcp.Required(), mcp.Description(pathDescription)),
			mcp.WithString("kind", mcp.Description("Symbol request: declaration, definition, hover info, completion or references")),
			mcp.WithNumber("line", mcp.Description("Line number (0-based) for a symbol request")),
			mcp.WithNumber("character", mcp.Description("Character position (0-based, UTF-16) for a symbol request")),
			mcp.WithString("method", mcp.Description("LSP method for an arbitrary request")),
			mcp.WithString("params", mcp.Description("JSON params for an arbitrary request")),
			mcp.WithNumber("timeout_ms", mcp.Description("Milliseconds to wait for the reply (default 10000)")),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			path, err := request.RequireString("path")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			timeout := defaultRequestTimeout
			if ms := request.GetInt("timeout_ms", 0); ms > 0 {
				timeout = time.Duration(ms) * time.Millisecond
			}
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			var reply *lsp.Reply
			if kindName := request.GetString("kind", ""); kindName != "" {
				kind, ok := lsp.ParseSymbolRequestKind(kindName)
				if !ok {
					return mcp.NewToolResultError(fmt.Sprintf("unknown symbol request kind %q", kindName)), nil
				}
				line, err := request.RequireInt("line")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				character, err := request.RequireInt("character")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				if line < 0 || character < 0 {
					return mcp.NewToolResultError("line and character must be non-negative"), nil
				}

				pos := protocol.Position{Line: uint32(line), Character: uint32(character)}
				reply, err = bridge.RelatedLocation(ctx, path, kind, pos)
				if err != nil {
					logger.Error("lsp_request:", kindName, "failed for", path, err)
					return mcp.NewToolResultError(fmt.Sprintf("Request failed: %v", err)), nil
				}
			} else {
				method := request.GetString("method", "")
				if method == "" {
					return mcp.NewToolResultError("either kind or method is required"), nil
				}
				params, err := parseJSONParams(request.GetString("params", ""))
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				reply, err = bridge.Request(ctx, path, method, params)
				if err != nil {
					logger.Error("lsp_request:", method, "failed for", path, err)
					return mcp.NewToolResultError(fmt.Sprintf("Request failed: %v", err)), nil
				}
			}

			text, err := formatReply(reply)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(text), nil
		}
}

// RegisterLSPNotifyTool registers the lsp_notify tool
func RegisterLSPNotifyTool(mcpServer ToolServer, bridge interfaces.BridgeInterface) {
	mcpServer.AddTool(LSPNotifyTool(bridge))
}

func LSPNotifyTool(bridge interfaces.BridgeInterface) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("lsp_notify",
			mcp.WithDescription("Send a notification to the language server of a file"),
			mcp.WithString("path", mcp.Required(), mcp.Description(pathDescription)),
			mcp.WithString("method", mcp.Required(), mcp.Description("LSP method")),
			mcp.WithString("params", mcp.Description("JSON params")),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			path, err := request.RequireString("path")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			method, err := request.RequireString("method")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			params, err := parseJSONParams(request.GetString("params", ""))
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			if err := bridge.Notify(ctx, path, method, params); err != nil {
				logger.Error("lsp_notify:", method, "failed for", path, err)
				return mcp.NewToolResultError(fmt.Sprintf("Notification failed: %v", err)), nil
			}
			return mcp.NewToolResultText("Sent " + method), nil
		}
}

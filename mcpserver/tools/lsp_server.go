package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"rockerboo/lsp-client-manager/interfaces"
	"rockerboo/lsp-client-manager/logger"
)

const pathDescription = "Path of a file; the server for that file's scope is used"

// RegisterLSPStartTool registers the lsp_start tool
func RegisterLSPStartTool(mcpServer ToolServer, bridge interfaces.BridgeInterface) {
	mcpServer.AddTool(LSPStartTool(bridge))
}

func LSPStartTool(bridge interfaces.BridgeInterface) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("lsp_start",
			mcp.WithDescription("Start the language server for a file and wait for it to initialize"),
			mcp.WithString("path", mcp.Required(), mcp.Description(pathDescription)),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			path, err := request.RequireString("path")
			if err != nil {
				logger.Error("lsp_start: path parsing failed", err)
				return mcp.NewToolResultError(err.Error()), nil
			}

			state, err := bridge.StartServer(ctx, path)
			if err != nil {
				logger.Error("lsp_start: failed to start server for", path, err)
				return mcp.NewToolResultError(fmt.Sprintf("Failed to start server: %v", err)), nil
			}

			logger.Info("lsp_start:", path, state)
			return mcp.NewToolResultText(state.String()), nil
		}
}

// RegisterLSPStopTool registers the lsp_stop tool
func RegisterLSPStopTool(mcpServer ToolServer, bridge interfaces.BridgeInterface) {
	mcpServer.AddTool(LSPStopTool(bridge))
}

func LSPStopTool(bridge interfaces.BridgeInterface) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("lsp_stop",
			mcp.WithDescription("Stop the language server for a file. Files open with it are closed"),
			mcp.WithString("path", mcp.Required(), mcp.Description(pathDescription)),
			mcp.WithDestructiveHintAnnotation(true),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			path, err := request.RequireString("path")
			if err != nil {
				logger.Error("lsp_stop: path parsing failed", err)
				return mcp.NewToolResultError(err.Error()), nil
			}

			msg, err := bridge.StopServer(ctx, path)
			if err != nil {
				logger.Error("lsp_stop: failed for", path, err)
				return mcp.NewToolResultError(fmt.Sprintf("Failed to stop server: %v", err)), nil
			}
			return mcp.NewToolResultText(msg), nil
		}
}

// RegisterLSPStatusTool registers the lsp_status tool
func RegisterLSPStatusTool(mcpServer ToolServer, bridge interfaces.BridgeInterface) {
	mcpServer.AddTool(LSPStatusTool(bridge))
}

func LSPStatusTool(bridge interfaces.BridgeInterface) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("lsp_status",
			mcp.WithDescription("Report the state of the language server for a file"),
			mcp.WithString("path", mcp.Required(), mcp.Description(pathDescription)),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			path, err := request.RequireString("path")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			status, err := bridge.ServerStatus(ctx, path)
			if err != nil {
				logger.Error("lsp_status: failed for", path, err)
				return mcp.NewToolResultError(fmt.Sprintf("Failed to get status: %v", err)), nil
			}
			return mcp.NewToolResultText(status), nil
		}
}

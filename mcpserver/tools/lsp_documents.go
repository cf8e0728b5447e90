package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"rockerboo/lsp-client-manager/interfaces"
	"rockerboo/lsp-client-manager/logger"
)

// RegisterLSPOpenTool registers the lsp_open tool
func RegisterLSPOpenTool(mcpServer ToolServer, bridge interfaces.BridgeInterface) {
	mcpServer.AddTool(LSPOpenTool(bridge))
}

func LSPOpenTool(bridge interfaces.BridgeInterface) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("lsp_open",
			mcp.WithDescription("Open a file with its running language server. The file is reloaded when it changes on disk"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path of the file to open")),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			path, err := request.RequireString("path")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			version, err := bridge.OpenFile(ctx, path)
			if err != nil {
				logger.Error("lsp_open: failed for", path, err)
				return mcp.NewToolResultError(fmt.Sprintf("Failed to open file: %v", err)), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("Opened %s at version %d", path, version)), nil
		}
}

// RegisterLSPUpdateTool registers the lsp_update tool
func RegisterLSPUpdateTool(mcpServer ToolServer, bridge interfaces.BridgeInterface) {
	mcpServer.AddTool(LSPUpdateTool(bridge))
}

func LSPUpdateTool(bridge interfaces.BridgeInterface) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("lsp_update",
			mcp.WithDescription("Send the current contents of an open file to its language server"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path of the open file")),
			mcp.WithString("text", mcp.Description("New contents of the file. When omitted the file is reread from disk")),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			path, err := request.RequireString("path")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			var text *string
			if t, err := request.RequireString("text"); err == nil {
				text = &t
			}

			version, err := bridge.UpdateFile(ctx, path, text)
			if err != nil {
				logger.Error("lsp_update: failed for", path, err)
				return mcp.NewToolResultError(fmt.Sprintf("Failed to update file: %v", err)), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("Updated %s to version %d", path, version)), nil
		}
}

// RegisterLSPCloseTool registers the lsp_close tool
func RegisterLSPCloseTool(mcpServer ToolServer, bridge interfaces.BridgeInterface) {
	mcpServer.AddTool(LSPCloseTool(bridge))
}

func LSPCloseTool(bridge interfaces.BridgeInterface) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("lsp_close",
			mcp.WithDescription("Close a file with its language server"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path of the file to close")),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			path, err := request.RequireString("path")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			if err := bridge.CloseFile(ctx, path); err != nil {
				logger.Error("lsp_close: failed for", path, err)
				return mcp.NewToolResultError(fmt.Sprintf("Failed to close file: %v", err)), nil
			}
			return mcp.NewToolResultText("Closed " + path), nil
		}
}

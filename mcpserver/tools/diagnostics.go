package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"rockerboo/lsp-client-manager/interfaces"
	"rockerboo/lsp-client-manager/logger"
)

// RegisterDiagnosticsTool registers the lsp_diagnostics tool
func RegisterDiagnosticsTool(mcpServer ToolServer, bridge interfaces.BridgeInterface) {
	mcpServer.AddTool(DiagnosticsTool(bridge))
}

func DiagnosticsTool(bridge interfaces.BridgeInterface) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("lsp_diagnostics",
			mcp.WithDescription("Show the diagnostics the language server published for an open file"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path of the open file")),
			mcp.WithBoolean("wait", mcp.Description("Wait for diagnostics of the current version")),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			path, err := request.RequireString("path")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			diags, err := bridge.Diagnostics(ctx, path, request.GetBool("wait", false))
			if err != nil {
				logger.Error("lsp_diagnostics: failed for", path, err)
				return mcp.NewToolResultError(fmt.Sprintf("Failed to get diagnostics: %v", err)), nil
			}
			return mcp.NewToolResultText(FormatDiagnostics(path, diags)), nil
		}
}

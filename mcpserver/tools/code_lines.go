package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"rockerboo/lsp-client-manager/interfaces"
	"rockerboo/lsp-client-manager/logger"
)

// RegisterCodeLinesTool registers the lsp_code_lines tool
func RegisterCodeLinesTool(mcpServer ToolServer, bridge interfaces.BridgeInterface) {
	mcpServer.AddTool(CodeLinesTool(bridge))
}

func CodeLinesTool(bridge interfaces.BridgeInterface) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("lsp_code_lines",
			mcp.WithDescription("Read source lines, preferring the editor's copy of open files"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Any file in the scope whose server reads the lines")),
			mcp.WithString("locations", mcp.Required(),
				mcp.Description("Comma or newline separated PATH:LINE entries, LINE 1-based; prefix ssh:HOST: for remote files")),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			path, err := request.RequireString("path")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			locationsArg, err := request.RequireString("locations")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			locations, err := parseLocations(locationsArg)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			lines, err := bridge.CodeLines(ctx, path, locations)
			if err != nil {
				logger.Error("lsp_code_lines: failed for", path, err)
				return mcp.NewToolResultError(fmt.Sprintf("Failed to read lines: %v", err)), nil
			}

			var result strings.Builder
			for i, loc := range locations {
				fmt.Fprintf(&result, "%s:%d: %s\n", loc.Filename, loc.Line+1, lines[i])
			}
			return mcp.NewToolResultText(result.String()), nil
		}
}

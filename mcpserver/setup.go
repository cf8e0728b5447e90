package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"rockerboo/lsp-client-manager/interfaces"
	"rockerboo/lsp-client-manager/logger"
	"rockerboo/lsp-client-manager/mcpserver/tools"
)

const (
	ServerName    = "lsp-client-manager"
	ServerVersion = "1.0.0"
)

// SetupMCPServer builds the MCP server exposing the LSP tools.
func SetupMCPServer(bridge interfaces.BridgeInterface) *server.MCPServer {
	hooks := &server.Hooks{}

	hooks.AddBeforeAny(func(ctx context.Context, id any, method mcp.MCPMethod, message any) {
		logger.Debug("beforeAny:", method, id)
	})
	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		logger.Error("onError:", method, id, err)
	})
	hooks.AddOnRequestInitialization(func(ctx context.Context, id any, message any) error {
		logger.Debug(fmt.Sprintf("request initialization: id=%v, message=%s", id, prettyJSON(message)))
		return nil
	})
	hooks.AddAfterInitialize(func(ctx context.Context, id any, message *mcp.InitializeRequest, result *mcp.InitializeResult) {
		logger.Info("client initialized:", message.Params.ClientInfo.Name, message.Params.ClientInfo.Version)
	})
	hooks.AddBeforeCallTool(func(ctx context.Context, id any, message *mcp.CallToolRequest) {
		logger.Debug("beforeCallTool:", message.Params.Name, prettyJSON(message.Params.Arguments))
	})
	hooks.AddAfterCallTool(func(ctx context.Context, id any, message *mcp.CallToolRequest, result *mcp.CallToolResult) {
		logger.Debug("afterCallTool:", message.Params.Name, "error:", result.IsError)
	})

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
		server.WithLogging(),
		server.WithHooks(hooks),
		server.WithInstructions(`This MCP server runs Language Server Protocol servers on behalf of the client.

## Usage Flow

1.  **lsp_start** the server for a file. One server runs per scope: a language on a host, or for Python a project directory.
2.  **lsp_open** the files to work on. Open files are reloaded when they change on disk; **lsp_update** sends edits.
3.  **lsp_request** asks for the declaration, definition, hover info, completion or references at a position, or sends any LSP request.
4.  **lsp_diagnostics** shows what the server reported for the current version of an open file.
5.  **lsp_close** files and **lsp_stop** servers when done. **lsp_status** explains a server that is not running normally.`),
	)

	tools.RegisterAllTools(mcpServer, bridge)

	setupDefaultSession(mcpServer)

	return mcpServer
}

func prettyJSON(message any) string {
	var out bytes.Buffer
	switch v := message.(type) {
	case []byte:
		if err := json.Indent(&out, v, "", "  "); err != nil {
			out.Write(v)
		}
	case string:
		if err := json.Indent(&out, []byte(v), "", "  "); err != nil {
			out.WriteString(v)
		}
	default:
		data, _ := json.MarshalIndent(v, "", "  ")
		out.Write(data)
	}
	return out.String()
}

// setupDefaultSession registers a session for clients that don't create
// one.
func setupDefaultSession(mcpServer *server.MCPServer) {
	if err := mcpServer.RegisterSession(context.Background(), NewSession("default")); err != nil {
		logger.Error("Failed to register default session", err)
	} else {
		logger.Info("Default session registered")
	}
}

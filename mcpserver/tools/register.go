package tools

import "rockerboo/lsp-client-manager/interfaces"

// RegisterAllTools registers every LSP tool with the server.
func RegisterAllTools(mcpServer ToolServer, bridge interfaces.BridgeInterface) {
	RegisterLSPStartTool(mcpServer, bridge)
	RegisterLSPStopTool(mcpServer, bridge)
	RegisterLSPStatusTool(mcpServer, bridge)
	RegisterLSPOpenTool(mcpServer, bridge)
	RegisterLSPUpdateTool(mcpServer, bridge)
	RegisterLSPCloseTool(mcpServer, bridge)
	RegisterLSPRequestTool(mcpServer, bridge)
	RegisterLSPNotifyTool(mcpServer, bridge)
	RegisterDiagnosticsTool(mcpServer, bridge)
	RegisterCodeLinesTool(mcpServer, bridge)
}

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/mcptest"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"rockerboo/lsp-client-manager/diagnostics"
	"rockerboo/lsp-client-manager/lsp"
	"rockerboo/lsp-client-manager/mocks"
	"rockerboo/lsp-client-manager/types"
)

// callTool serves one tool over an in-memory MCP connection and calls it.
func callTool(t *testing.T, tool mcp.Tool, handler server.ToolHandlerFunc, args map[string]any) *mcp.CallToolResult {
	t.Helper()

	mcpServer, err := mcptest.NewServer(t, server.ServerTool{Tool: tool, Handler: handler})
	require.NoError(t, err, "Could not create MCP server")
	defer mcpServer.Close()

	result, err := mcpServer.Client().CallTool(context.Background(), mcp.CallToolRequest{
		Request: mcp.Request{Method: "tools/call"},
		Params: mcp.CallToolParams{
			Name:      tool.Name,
			Arguments: args,
		},
	})
	require.NoError(t, err, "Could not make request")
	return result
}

func resultText(result *mcp.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		switch tc := c.(type) {
		case mcp.TextContent:
			parts = append(parts, tc.Text)
		case *mcp.TextContent:
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func TestLSPStartTool(t *testing.T) {
	testCases := []struct {
		name        string
		args        map[string]any
		state       lsp.AnnotatedProtocolState
		err         error
		expectError bool
		expectText  string
	}{
		{
			name:       "server starts",
			args:       map[string]any{"path": "/src/a.cc"},
			state:      lsp.AnnotatedProtocolState{State: lsp.StateNormal, Description: "Initialized."},
			expectText: "LSP_PS_NORMAL: Initialized.",
		},
		{
			name:        "unsupported language",
			args:        map[string]any{"path": "/src/a.txt"},
			err:         errors.New("This editor does not know how to run an LSP server for Text."),
			expectError: true,
			expectText:  "does not know how to run",
		},
		{
			name:        "missing path",
			args:        map[string]any{},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bridge := &mocks.MockBridge{}
			if path, ok := tc.args["path"]; ok {
				bridge.On("StartServer", path).Return(tc.state, tc.err)
			}

			tool, handler := LSPStartTool(bridge)
			result := callTool(t, tool, handler, tc.args)

			assert.Equal(t, tc.expectError, result.IsError, resultText(result))
			assert.Contains(t, resultText(result), tc.expectText)
			bridge.AssertExpectations(t)
		})
	}
}

func TestLSPStopTool(t *testing.T) {
	bridge := &mocks.MockBridge{}
	bridge.On("StopServer", "/src/a.cc").Return("Initiated server shutdown.", nil)

	tool, handler := LSPStopTool(bridge)
	result := callTool(t, tool, handler, map[string]any{"path": "/src/a.cc"})

	assert.False(t, result.IsError)
	assert.Equal(t, "Initiated server shutdown.", resultText(result))
	bridge.AssertExpectations(t)
}

func TestLSPStatusTool(t *testing.T) {
	bridge := &mocks.MockBridge{}
	bridge.On("ServerStatus", "/src/a.cc").Return("Using fake server: true.\n", nil)
	bridge.On("ServerStatus", "/etc/passwd").Return("", errors.New("path not allowed"))

	tool, handler := LSPStatusTool(bridge)

	result := callTool(t, tool, handler, map[string]any{"path": "/src/a.cc"})
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(result), "Using fake server")

	result = callTool(t, tool, handler, map[string]any{"path": "/etc/passwd"})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(result), "path not allowed")

	bridge.AssertExpectations(t)
}

func TestDocumentTools(t *testing.T) {
	t.Run("open", func(t *testing.T) {
		bridge := &mocks.MockBridge{}
		bridge.On("OpenFile", "/src/a.cc").Return(int64(1), nil)

		tool, handler := LSPOpenTool(bridge)
		result := callTool(t, tool, handler, map[string]any{"path": "/src/a.cc"})

		assert.False(t, result.IsError)
		assert.Equal(t, "Opened /src/a.cc at version 1", resultText(result))
		bridge.AssertExpectations(t)
	})

	t.Run("update from disk", func(t *testing.T) {
		bridge := &mocks.MockBridge{}
		bridge.On("UpdateFile", "/src/a.cc", (*string)(nil)).Return(int64(2), nil)

		tool, handler := LSPUpdateTool(bridge)
		result := callTool(t, tool, handler, map[string]any{"path": "/src/a.cc"})

		assert.False(t, result.IsError)
		assert.Equal(t, "Updated /src/a.cc to version 2", resultText(result))
		bridge.AssertExpectations(t)
	})

	t.Run("update with text", func(t *testing.T) {
		bridge := &mocks.MockBridge{}
		bridge.On("UpdateFile", "/src/a.cc", mock.MatchedBy(func(text *string) bool {
			return text != nil && *text == "int x;\n"
		})).Return(int64(3), nil)

		tool, handler := LSPUpdateTool(bridge)
		result := callTool(t, tool, handler, map[string]any{"path": "/src/a.cc", "text": "int x;\n"})

		assert.False(t, result.IsError)
		assert.Equal(t, "Updated /src/a.cc to version 3", resultText(result))
		bridge.AssertExpectations(t)
	})

	t.Run("close not open", func(t *testing.T) {
		bridge := &mocks.MockBridge{}
		bridge.On("CloseFile", "/src/a.cc").Return(errors.New("/src/a.cc is not open"))

		tool, handler := LSPCloseTool(bridge)
		result := callTool(t, tool, handler, map[string]any{"path": "/src/a.cc"})

		assert.True(t, result.IsError)
		assert.Contains(t, resultText(result), "is not open")
		bridge.AssertExpectations(t)
	})
}

func TestLSPRequestTool(t *testing.T) {
	definition := &lsp.Reply{
		ID:     3,
		Method: protocol.MethodTextDocumentDefinition,
		Result: json.RawMessage(`{"uri":"file:///src/a.cc"}`),
	}

	t.Run("symbol request", func(t *testing.T) {
		bridge := &mocks.MockBridge{}
		bridge.On("RelatedLocation", "/src/a.cc", lsp.SymbolDefinition, protocol.Position{Line: 4, Character: 2}).
			Return(definition, nil)

		tool, handler := LSPRequestTool(bridge)
		result := callTool(t, tool, handler, map[string]any{
			"path": "/src/a.cc", "kind": "definition", "line": 4, "character": 2,
		})

		require.False(t, result.IsError, resultText(result))
		assert.JSONEq(t, `{"uri":"file:///src/a.cc"}`, resultText(result))
		bridge.AssertExpectations(t)
	})

	t.Run("unknown kind", func(t *testing.T) {
		bridge := &mocks.MockBridge{}
		tool, handler := LSPRequestTool(bridge)
		result := callTool(t, tool, handler, map[string]any{
			"path": "/src/a.cc", "kind": "rename", "line": 4, "character": 2,
		})

		assert.True(t, result.IsError)
		assert.Contains(t, resultText(result), `unknown symbol request kind "rename"`)
	})

	t.Run("symbol request needs position", func(t *testing.T) {
		bridge := &mocks.MockBridge{}
		tool, handler := LSPRequestTool(bridge)
		result := callTool(t, tool, handler, map[string]any{"path": "/src/a.cc", "kind": "hover info"})

		assert.True(t, result.IsError)
		bridge.AssertNotCalled(t, "RelatedLocation", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("arbitrary request", func(t *testing.T) {
		bridge := &mocks.MockBridge{}
		bridge.On("Request", "/src/a.cc", "workspace/symbol", json.RawMessage(`{"query":"main"}`)).
			Return(&lsp.Reply{ID: 4, Method: "workspace/symbol", Result: json.RawMessage(`[]`)}, nil)

		tool, handler := LSPRequestTool(bridge)
		result := callTool(t, tool, handler, map[string]any{
			"path": "/src/a.cc", "method": "workspace/symbol", "params": `{"query":"main"}`,
		})

		require.False(t, result.IsError, resultText(result))
		assert.Equal(t, "[]", resultText(result))
		bridge.AssertExpectations(t)
	})

	t.Run("error reply", func(t *testing.T) {
		bridge := &mocks.MockBridge{}
		bridge.On("Request", "/src/a.cc", "custom/thing", json.RawMessage(nil)).
			Return(&lsp.Reply{ID: 5, Method: "custom/thing", Error: &jsonrpc2.Error{
				Code: jsonrpc2.CodeMethodNotFound, Message: "no such method",
			}}, nil)

		tool, handler := LSPRequestTool(bridge)
		result := callTool(t, tool, handler, map[string]any{"path": "/src/a.cc", "method": "custom/thing"})

		assert.True(t, result.IsError)
		assert.Contains(t, resultText(result), "custom/thing failed with error -32601: no such method")
		bridge.AssertExpectations(t)
	})

	t.Run("invalid params", func(t *testing.T) {
		bridge := &mocks.MockBridge{}
		tool, handler := LSPRequestTool(bridge)
		result := callTool(t, tool, handler, map[string]any{
			"path": "/src/a.cc", "method": "custom/thing", "params": "{",
		})

		assert.True(t, result.IsError)
		assert.Contains(t, resultText(result), "not valid JSON")
	})

	t.Run("neither kind nor method", func(t *testing.T) {
		bridge := &mocks.MockBridge{}
		tool, handler := LSPRequestTool(bridge)
		result := callTool(t, tool, handler, map[string]any{"path": "/src/a.cc"})

		assert.True(t, result.IsError)
		assert.Contains(t, resultText(result), "either kind or method is required")
	})
}

func TestLSPNotifyTool(t *testing.T) {
	bridge := &mocks.MockBridge{}
	bridge.On("Notify", "/src/a.cc", "custom/ping", json.RawMessage(`{"n":1}`)).Return(nil)

	tool, handler := LSPNotifyTool(bridge)
	result := callTool(t, tool, handler, map[string]any{
		"path": "/src/a.cc", "method": "custom/ping", "params": `{"n":1}`,
	})

	assert.False(t, result.IsError)
	assert.Equal(t, "Sent custom/ping", resultText(result))
	bridge.AssertExpectations(t)
}

func TestDiagnosticsTool(t *testing.T) {
	diags := &diagnostics.TextDocumentDiagnostics{
		Version: 2,
		Diagnostics: []diagnostics.Diagnostic{{
			Range: protocol.Range{
				Start: protocol.Position{Line: 0, Character: 2},
				End:   protocol.Position{Line: 0, Character: 5},
			},
			Severity: protocol.DiagnosticSeverityError,
			Source:   "clang",
			Message:  "unknown type name 'itn'",
			Related:  []diagnostics.Related{{Filename: "/src/a.h", Line: 9, Message: "declared here"}},
		}},
	}

	t.Run("published", func(t *testing.T) {
		bridge := &mocks.MockBridge{}
		bridge.On("Diagnostics", "/src/a.cc", true).Return(diags, nil)

		tool, handler := DiagnosticsTool(bridge)
		result := callTool(t, tool, handler, map[string]any{"path": "/src/a.cc", "wait": true})

		require.False(t, result.IsError)
		text := resultText(result)
		assert.Contains(t, text, "/src/a.cc version 2: 1 diagnostics")
		assert.Contains(t, text, "1:3: error: unknown type name 'itn' [clang]")
		assert.Contains(t, text, "    /src/a.h:10: declared here")
		bridge.AssertExpectations(t)
	})

	t.Run("none yet", func(t *testing.T) {
		bridge := &mocks.MockBridge{}
		bridge.On("Diagnostics", "/src/a.cc", false).Return(nil, nil)

		tool, handler := DiagnosticsTool(bridge)
		result := callTool(t, tool, handler, map[string]any{"path": "/src/a.cc"})

		assert.False(t, result.IsError)
		assert.Contains(t, resultText(result), "No diagnostics have been received")
		bridge.AssertExpectations(t)
	})
}

func TestCodeLinesTool(t *testing.T) {
	bridge := &mocks.MockBridge{}
	bridge.On("CodeLines", "/src/a.cc", []types.HostFileLine{
		{Host: types.LocalHost(), Filename: "/src/a.cc", Line: 0},
		{Host: types.LocalHost(), Filename: "/src/b.cc", Line: 4},
	}).Return([]string{"int main() {", "  return 0;"}, nil)

	tool, handler := CodeLinesTool(bridge)
	result := callTool(t, tool, handler, map[string]any{
		"path":      "/src/a.cc",
		"locations": "/src/a.cc:1, /src/b.cc:5",
	})

	require.False(t, result.IsError, resultText(result))
	assert.Equal(t, "/src/a.cc:1: int main() {\n/src/b.cc:5:   return 0;\n", resultText(result))
	bridge.AssertExpectations(t)
}

type recordingServer struct {
	names []string
}

func (r *recordingServer) AddTool(tool mcp.Tool, _ server.ToolHandlerFunc) {
	r.names = append(r.names, tool.Name)
}

func TestRegisterAllTools(t *testing.T) {
	s := &recordingServer{}
	RegisterAllTools(s, &mocks.MockBridge{})

	assert.Len(t, s.names, 10)
	assert.Contains(t, s.names, "lsp_request")
	assert.Contains(t, s.names, "lsp_code_lines")
}

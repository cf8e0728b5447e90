package interfaces

import (
	"context"
	"encoding/json"

	"go.lsp.dev/protocol"

	"rockerboo/lsp-client-manager/diagnostics"
	"rockerboo/lsp-client-manager/lsp"
	"rockerboo/lsp-client-manager/types"
)

// BridgeInterface is what the MCP tools need from the connection
// manager. Paths are local file paths. Implementations are safe for
// concurrent use.
type BridgeInterface interface {
	// Server lifecycle for the scope of the file at path.
	StartServer(ctx context.Context, path string) (lsp.AnnotatedProtocolState, error)
	StopServer(ctx context.Context, path string) (string, error)
	ServerStatus(ctx context.Context, path string) (string, error)

	// Document synchronization. OpenFile and UpdateFile return the
	// version sent to the server. UpdateFile rereads the file when text
	// is nil.
	OpenFile(ctx context.Context, path string) (int64, error)
	UpdateFile(ctx context.Context, path string, text *string) (int64, error)
	CloseFile(ctx context.Context, path string) error

	// Requests wait for the reply.
	RelatedLocation(ctx context.Context, path string, kind lsp.SymbolRequestKind, pos protocol.Position) (*lsp.Reply, error)
	Request(ctx context.Context, path, method string, params json.RawMessage) (*lsp.Reply, error)
	Notify(ctx context.Context, path, method string, params json.RawMessage) error

	// Diagnostics returns nil when none have been received. With wait,
	// it first waits for diagnostics of the last sent version.
	Diagnostics(ctx context.Context, path string, wait bool) (*diagnostics.TextDocumentDiagnostics, error)
	CodeLines(ctx context.Context, path string, locations []types.HostFileLine) ([]string, error)
}

package lsp

import "go.lsp.dev/protocol"

// SymbolRequestKind selects which information about the symbol at a
// position is requested.
type SymbolRequestKind int

const (
	SymbolDeclaration SymbolRequestKind = iota
	SymbolDefinition
	SymbolHoverInfo
	SymbolCompletion
	SymbolReferences
)

var symbolRequests = [...]struct {
	name, message, method string
}{
	SymbolDeclaration: {"K_DECLARATION", "declaration", protocol.MethodTextDocumentDeclaration},
	SymbolDefinition:  {"K_DEFINITION", "definition", protocol.MethodTextDocumentDefinition},
	SymbolHoverInfo:   {"K_HOVER_INFO", "hover info", protocol.MethodTextDocumentHover},
	SymbolCompletion:  {"K_COMPLETION", "completion", protocol.MethodTextDocumentCompletion},
	SymbolReferences:  {"K_REFERENCES", "references", protocol.MethodTextDocumentReferences},
}

func (k SymbolRequestKind) valid() bool {
	return k >= 0 && int(k) < len(symbolRequests)
}

func (k SymbolRequestKind) String() string {
	if !k.valid() {
		return "<invalid kind>"
	}
	return symbolRequests[k].name
}

// MessageString names the kind for messages shown to the user.
func (k SymbolRequestKind) MessageString() string {
	if !k.valid() {
		return "<invalid kind>"
	}
	return symbolRequests[k].message
}

// Method returns the LSP request method.
func (k SymbolRequestKind) Method() string {
	if !k.valid() {
		return "<invalid kind>"
	}
	return symbolRequests[k].method
}

// ParseSymbolRequestKind accepts the message string of a kind, e.g.
// "definition" or "hover info".
func ParseSymbolRequestKind(s string) (SymbolRequestKind, bool) {
	for k, r := range symbolRequests {
		if r.message == s {
			return SymbolRequestKind(k), true
		}
	}
	return 0, false
}

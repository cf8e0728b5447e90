package lsp

import (
	"go.lsp.dev/protocol"

	"rockerboo/lsp-client-manager/utils"
)

// initializeParams leaves processId and rootUri null: servers must not
// watch this process, and there is no workspace root.
type initializeParams struct {
	ProcessID    *int32                      `json:"processId"`
	RootURI      *protocol.DocumentURI       `json:"rootUri"`
	Capabilities protocol.ClientCapabilities `json:"capabilities"`
}

func newInitializeParams() initializeParams {
	return initializeParams{
		Capabilities: protocol.ClientCapabilities{
			TextDocument: &protocol.TextDocumentClientCapabilities{
				PublishDiagnostics: &protocol.PublishDiagnosticsClientCapabilities{
					RelatedInformation: true,
					VersionSupport:     true,
				},
			},
		},
	}
}

func textDocumentIdentifier(fname string) protocol.TextDocumentIdentifier {
	return protocol.TextDocumentIdentifier{URI: utils.FilePathToURI(fname)}
}

func didOpenParams(fname, languageID string, version VersionNumber, text string) protocol.DidOpenTextDocumentParams {
	return protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        utils.FilePathToURI(fname),
			LanguageID: protocol.LanguageIdentifier(languageID),
			Version:    int32(version),
			Text:       text,
		},
	}
}

func didChangeParams(fname string, version VersionNumber, changes ...ContentChange) DidChangeParams {
	return DidChangeParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: textDocumentIdentifier(fname),
			Version:                int32(version),
		},
		ContentChanges: changes,
	}
}

func didCloseParams(fname string) protocol.DidCloseTextDocumentParams {
	return protocol.DidCloseTextDocumentParams{TextDocument: textDocumentIdentifier(fname)}
}

// symbolRequestParams builds the params of a kind's request for the
// symbol at pos in fname.
func symbolRequestParams(kind SymbolRequestKind, fname string, pos protocol.Position) any {
	position := protocol.TextDocumentPositionParams{
		TextDocument: textDocumentIdentifier(fname),
		Position:     pos,
	}

	switch kind {
	case SymbolReferences:
		return protocol.ReferenceParams{
			TextDocumentPositionParams: position,
			Context:                    protocol.ReferenceContext{IncludeDeclaration: true},
		}
	case SymbolHoverInfo:
		return protocol.HoverParams{TextDocumentPositionParams: position}
	case SymbolCompletion:
		return protocol.CompletionParams{TextDocumentPositionParams: position}
	default:
		return position
	}
}

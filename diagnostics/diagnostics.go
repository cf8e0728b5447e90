// Package diagnostics holds diagnostics as published by a language
// server and as attached to an editor document.
package diagnostics

import (
	"sort"

	"go.lsp.dev/protocol"

	"rockerboo/lsp-client-manager/contract"
	"rockerboo/lsp-client-manager/utils"
)

// MethodPublishDiagnostics is the server notification carrying
// diagnostics for one document.
const MethodPublishDiagnostics = "textDocument/publishDiagnostics"

// PublishDiagnosticsParams are the parameters of a publishDiagnostics
// notification. Version is nil when the server did not send one.
type PublishDiagnosticsParams struct {
	URI         string                `json:"uri"`
	Version     *int32                `json:"version,omitempty"`
	Diagnostics []protocol.Diagnostic `json:"diagnostics"`
}

// Related is a secondary location attached to a diagnostic.
type Related struct {
	Filename string
	Line     uint32
	Message  string
}

// Diagnostic is one message attached to a range of a document.
type Diagnostic struct {
	Range    protocol.Range
	Severity protocol.DiagnosticSeverity
	Source   string
	Message  string
	Related  []Related
}

// TextDocumentDiagnostics are the diagnostics for one version of a
// document, ordered by start position.
type TextDocumentDiagnostics struct {
	Version     int64
	Diagnostics []Diagnostic
}

func (d *TextDocumentDiagnostics) Len() int {
	return len(d.Diagnostics)
}

// FromLSP converts published diagnostics into the editor's form. The
// params must carry a version. Related locations whose URI is not a
// file URI are kept with the raw URI as file name.
func FromLSP(params *PublishDiagnosticsParams) *TextDocumentDiagnostics {
	contract.Require(params.Version != nil, "diagnostics for %q have a version", params.URI)

	ret := &TextDocumentDiagnostics{
		Version:     int64(*params.Version),
		Diagnostics: make([]Diagnostic, 0, len(params.Diagnostics)),
	}
	for _, d := range params.Diagnostics {
		diag := Diagnostic{
			Range:    d.Range,
			Severity: d.Severity,
			Source:   d.Source,
			Message:  d.Message,
		}
		for _, r := range d.RelatedInformation {
			diag.Related = append(diag.Related, Related{
				Filename: relatedFilename(string(r.Location.URI)),
				Line:     r.Location.Range.Start.Line,
				Message:  r.Message,
			})
		}
		ret.Diagnostics = append(ret.Diagnostics, diag)
	}

	sort.SliceStable(ret.Diagnostics, func(i, j int) bool {
		a, b := ret.Diagnostics[i].Range.Start, ret.Diagnostics[j].Range.Start
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Character < b.Character
	})
	return ret
}

func relatedFilename(u string) string {
	if fname, err := utils.URIToFilePath(u); err == nil {
		return fname
	}
	return u
}

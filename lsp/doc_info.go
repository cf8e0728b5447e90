package lsp

import (
	"fmt"
	"strings"

	"rockerboo/lsp-client-manager/contract"
	"rockerboo/lsp-client-manager/diagnostics"
	"rockerboo/lsp-client-manager/security"
)

// DocumentInfo is what the client knows about one file that is open
// with the server: the version and contents it last sent, and
// diagnostics received for that version but not yet consumed.
type DocumentInfo struct {
	Fname           string
	LastSentVersion VersionNumber

	// Set when contents are sent; cleared when matching diagnostics
	// arrive.
	WaitingForDiagnostics bool

	lastSentContents   string
	pendingDiagnostics *diagnostics.PublishDiagnosticsParams
}

// NewDocumentInfo records that contents were sent as version of fname.
func NewDocumentInfo(fname string, version VersionNumber, contents string) *DocumentInfo {
	info := &DocumentInfo{
		Fname:            fname,
		LastSentVersion:  version,
		lastSentContents: contents,
	}
	info.selfCheck()
	return info
}

func (d *DocumentInfo) selfCheck() {
	contract.Assert(security.IsValidLSPPath(d.Fname), "%q is a valid LSP path", d.Fname)
}

// LastSentContents returns the file contents as the server sees them.
func (d *DocumentInfo) LastSentContents() string {
	return d.lastSentContents
}

// LastContentsEquals reports whether text matches what was last sent.
func (d *DocumentInfo) LastContentsEquals(text string) bool {
	return d.lastSentContents == text
}

func (d *DocumentInfo) HasPendingDiagnostics() bool {
	return d.pendingDiagnostics != nil
}

// NumLastSentLines counts lines the way the editor does: a trailing
// newline starts a final, empty line.
func (d *DocumentInfo) NumLastSentLines() int {
	return NumLines(d.lastSentContents)
}

// LastContentsCodeLine returns the 0-based line of the last sent
// contents without its newline, or a bracketed message when the line
// does not exist.
func (d *DocumentInfo) LastContentsCodeLine(line int) string {
	return LineOrRangeError(d.lastSentContents, line, d.Fname)
}

// NumLines returns the number of lines in text, counting the possibly
// empty text after the last newline as a line.
func NumLines(text string) int {
	return strings.Count(text, "\n") + 1
}

// LineOrRangeError returns the 0-based line of text, or a message
// naming fname when it is out of range.
func LineOrRangeError(text string, line int, fname string) string {
	n := NumLines(text)
	if line < 0 || line >= n {
		return fmt.Sprintf("<Line number %d is out of range for %q, which has %d lines.>",
			line+1, fname, n)
	}
	return strings.SplitN(text, "\n", line+2)[line]
}

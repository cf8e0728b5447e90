package types

import (
	"fmt"
	"path/filepath"
	"strings"

	"rockerboo/lsp-client-manager/diagnostics"
)

// DocumentName identifies a document by host and file name.
type DocumentName struct {
	Host     HostName
	Filename string
}

// LocalDocumentName names a file on the local host.
func LocalDocumentName(filename string) DocumentName {
	return DocumentName{Host: LocalHost(), Filename: filename}
}

// Directory returns the directory containing the file, ending with a
// path separator.
func (n DocumentName) Directory() string {
	dir := filepath.Dir(n.Filename)
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return dir
}

func (n DocumentName) String() string {
	if n.Host.IsLocal() {
		return n.Filename
	}
	return n.Host.String() + ":" + n.Filename
}

// Compare orders names by host, then file name.
func (n DocumentName) Compare(other DocumentName) int {
	if c := n.Host.Compare(other.Host); c != 0 {
		return c
	}
	return strings.Compare(n.Filename, other.Filename)
}

// HostFileLine is a reference to a 0-based line of a file on a host.
type HostFileLine struct {
	Host     HostName
	Filename string
	Line     int
}

func (l HostFileLine) String() string {
	return fmt.Sprintf("%s:%d", DocumentName{Host: l.Host, Filename: l.Filename}, l.Line+1)
}

// Document is the editor's view of one open text document, as needed by
// the LSP connection manager. Implementations are not safe for
// concurrent use; they are accessed from the event loop only.
type Document interface {
	DocumentName() DocumentName
	// Filename is the LSP path: absolute, with normalized separators.
	Filename() string
	HostName() HostName
	DocumentType() DocumentType
	IsCompatibleWithLSP() bool

	WholeFileString() string
	// VersionNumber increases on every change to the contents.
	VersionNumber() int64
	BumpVersionNumber()

	// BeginTrackingChanges marks the current contents as the ones
	// known to the language server. It is idempotent.
	BeginTrackingChanges()
	TrackingChanges() bool
	// DiscardLanguageServicesData stops change tracking and removes any
	// diagnostics received from a server.
	DiscardLanguageServicesData()

	UpdateDiagnostics(diags *diagnostics.TextDocumentDiagnostics)
	// NumDiagnostics returns the number of attached diagnostics, and
	// false if no diagnostics have been received at all.
	NumDiagnostics() (int, bool)
}

// DocumentList is the set of documents open in the editor.
type DocumentList interface {
	Documents() []Document
	FindDocumentByName(name DocumentName) Document
	TrackingChangesDocumentNames() []DocumentName
}

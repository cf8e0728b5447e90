// Package document provides in-memory text documents that can be kept
// in sync with a language server.
package document

import (
	"os"
	"sort"

	"rockerboo/lsp-client-manager/diagnostics"
	"rockerboo/lsp-client-manager/security"
	"rockerboo/lsp-client-manager/types"
)

// LSPState summarizes a document's diagnostics relative to its contents.
type LSPState int

const (
	LSPStateNotOpen LSPState = iota
	LSPStateWaiting
	LSPStateReceivedStale
	LSPStateUpToDate
	LSPStateLocalChanges
)

func (s LSPState) String() string {
	switch s {
	case LSPStateWaiting:
		return "waiting"
	case LSPStateReceivedStale:
		return "received stale"
	case LSPStateUpToDate:
		return "up to date"
	case LSPStateLocalChanges:
		return "local changes"
	default:
		return "not open"
	}
}

// NamedDocument is a text document with a name, a version that grows on
// every change, and the diagnostics last received for it.
type NamedDocument struct {
	name         types.DocumentName
	documentType types.DocumentType
	text         string
	version      int64

	tracking    bool
	diagnostics *diagnostics.TextDocumentDiagnostics
}

// New returns a document with the given contents at version 1. The
// document type is detected from the file name.
func New(name types.DocumentName, text string) *NamedDocument {
	return &NamedDocument{
		name:         name,
		documentType: types.DetectDocumentType(name.Filename),
		text:         text,
		version:      1,
	}
}

// Load reads a local file into a new document.
func Load(filename string) (*NamedDocument, error) {
	filename = security.NormalizeLSPPath(filename)
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return New(types.LocalDocumentName(filename), string(data)), nil
}

func (d *NamedDocument) DocumentName() types.DocumentName { return d.name }
func (d *NamedDocument) Filename() string                 { return d.name.Filename }
func (d *NamedDocument) HostName() types.HostName         { return d.name.Host }
func (d *NamedDocument) DocumentType() types.DocumentType { return d.documentType }

// SetDocumentType overrides the detected type.
func (d *NamedDocument) SetDocumentType(dt types.DocumentType) {
	d.documentType = dt
}

// IsCompatibleWithLSP reports whether a language server could handle
// the document: it has a known LSP language and a valid LSP path.
func (d *NamedDocument) IsCompatibleWithLSP() bool {
	_, ok := d.documentType.LSPLanguageID()
	return ok && security.IsValidLSPPath(d.name.Filename)
}

func (d *NamedDocument) WholeFileString() string { return d.text }
func (d *NamedDocument) VersionNumber() int64    { return d.version }

func (d *NamedDocument) BumpVersionNumber() {
	d.version++
}

// SetText replaces the contents and advances the version.
func (d *NamedDocument) SetText(text string) {
	d.text = text
	d.version++
}

func (d *NamedDocument) BeginTrackingChanges() { d.tracking = true }
func (d *NamedDocument) TrackingChanges() bool { return d.tracking }

func (d *NamedDocument) DiscardLanguageServicesData() {
	d.tracking = false
	d.diagnostics = nil
}

func (d *NamedDocument) UpdateDiagnostics(diags *diagnostics.TextDocumentDiagnostics) {
	d.diagnostics = diags
}

// Diagnostics returns the attached diagnostics, or nil.
func (d *NamedDocument) Diagnostics() *diagnostics.TextDocumentDiagnostics {
	return d.diagnostics
}

func (d *NamedDocument) NumDiagnostics() (int, bool) {
	if d.diagnostics == nil {
		return 0, false
	}
	return d.diagnostics.Len(), true
}

// LSPState reports how the attached diagnostics relate to the contents.
func (d *NamedDocument) LSPState() LSPState {
	switch {
	case d.diagnostics != nil && d.diagnostics.Version == d.version:
		return LSPStateUpToDate
	case d.diagnostics != nil:
		return LSPStateLocalChanges
	case d.tracking:
		return LSPStateWaiting
	default:
		return LSPStateNotOpen
	}
}

// List is an ordered collection of documents, unique by name.
type List struct {
	docs map[types.DocumentName]*NamedDocument
}

func NewList() *List {
	return &List{docs: make(map[types.DocumentName]*NamedDocument)}
}

// Add inserts doc, replacing any document with the same name.
func (l *List) Add(doc *NamedDocument) {
	l.docs[doc.DocumentName()] = doc
}

// Remove deletes the named document, reporting whether it was present.
func (l *List) Remove(name types.DocumentName) bool {
	if _, ok := l.docs[name]; !ok {
		return false
	}
	delete(l.docs, name)
	return true
}

// Get returns the named document or nil.
func (l *List) Get(name types.DocumentName) *NamedDocument {
	return l.docs[name]
}

func (l *List) sorted() []*NamedDocument {
	ret := make([]*NamedDocument, 0, len(l.docs))
	for _, d := range l.docs {
		ret = append(ret, d)
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].DocumentName().Compare(ret[j].DocumentName()) < 0
	})
	return ret
}

func (l *List) Documents() []types.Document {
	docs := l.sorted()
	ret := make([]types.Document, len(docs))
	for i, d := range docs {
		ret[i] = d
	}
	return ret
}

func (l *List) FindDocumentByName(name types.DocumentName) types.Document {
	if d, ok := l.docs[name]; ok {
		return d
	}
	return nil
}

func (l *List) TrackingChangesDocumentNames() []types.DocumentName {
	var ret []types.DocumentName
	for _, d := range l.sorted() {
		if d.TrackingChanges() {
			ret = append(ret, d.DocumentName())
		}
	}
	return ret
}

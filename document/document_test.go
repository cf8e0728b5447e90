package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rockerboo/lsp-client-manager/diagnostics"
	"rockerboo/lsp-client-manager/types"
)

func TestNamedDocumentVersions(t *testing.T) {
	doc := New(types.LocalDocumentName("/src/a.cc"), "one\n")
	assert.Equal(t, int64(1), doc.VersionNumber())
	assert.Equal(t, types.DocumentTypeCPP, doc.DocumentType())
	assert.True(t, doc.IsCompatibleWithLSP())

	doc.SetText("one\ntwo\n")
	assert.Equal(t, int64(2), doc.VersionNumber())
	assert.Equal(t, "one\ntwo\n", doc.WholeFileString())

	doc.BumpVersionNumber()
	assert.Equal(t, int64(3), doc.VersionNumber())
}

func TestNamedDocumentLSPState(t *testing.T) {
	doc := New(types.LocalDocumentName("/src/a.cc"), "")
	assert.Equal(t, LSPStateNotOpen, doc.LSPState())
	_, ok := doc.NumDiagnostics()
	assert.False(t, ok)

	doc.BeginTrackingChanges()
	doc.BeginTrackingChanges()
	assert.True(t, doc.TrackingChanges())
	assert.Equal(t, LSPStateWaiting, doc.LSPState())

	doc.UpdateDiagnostics(&diagnostics.TextDocumentDiagnostics{Version: doc.VersionNumber()})
	n, ok := doc.NumDiagnostics()
	assert.True(t, ok)
	assert.Equal(t, 0, n)
	assert.Equal(t, LSPStateUpToDate, doc.LSPState())

	doc.SetText("x")
	assert.Equal(t, LSPStateLocalChanges, doc.LSPState())

	doc.DiscardLanguageServicesData()
	assert.False(t, doc.TrackingChanges())
	assert.Nil(t, doc.Diagnostics())
	assert.Equal(t, LSPStateNotOpen, doc.LSPState())
}

func TestIsCompatibleWithLSP(t *testing.T) {
	assert.False(t, New(types.LocalDocumentName("/src/a.ml"), "").IsCompatibleWithLSP())
	assert.False(t, New(types.LocalDocumentName("a.cc"), "").IsCompatibleWithLSP())
	assert.True(t, New(types.LocalDocumentName("/src/a.py"), "").IsCompatibleWithLSP())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.py")
	require.NoError(t, os.WriteFile(path, []byte("print(1)\n"), 0o644))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "print(1)\n", doc.WholeFileString())
	assert.Equal(t, types.DocumentTypePython, doc.DocumentType())

	_, err = Load(filepath.Join(t.TempDir(), "missing.py"))
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	list := NewList()
	b := New(types.LocalDocumentName("/b.cc"), "")
	a := New(types.LocalDocumentName("/a.cc"), "")
	list.Add(b)
	list.Add(a)

	docs := list.Documents()
	require.Len(t, docs, 2)
	assert.Equal(t, "/a.cc", docs[0].Filename())

	assert.Nil(t, list.FindDocumentByName(types.LocalDocumentName("/c.cc")))
	assert.Equal(t, a, list.FindDocumentByName(a.DocumentName()))

	assert.Empty(t, list.TrackingChangesDocumentNames())
	b.BeginTrackingChanges()
	assert.Equal(t, []types.DocumentName{b.DocumentName()}, list.TrackingChangesDocumentNames())

	assert.True(t, list.Remove(a.DocumentName()))
	assert.False(t, list.Remove(a.DocumentName()))
	assert.Len(t, list.Documents(), 1)
}

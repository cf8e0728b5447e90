package scope

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"rockerboo/lsp-client-manager/contract"
	"rockerboo/lsp-client-manager/document"
	"rockerboo/lsp-client-manager/types"
)

func TestDescription(t *testing.T) {
	assert.Equal(t, "C++ files on local host", LocalCPP().Description())
	assert.Equal(t, "OCaml files on ssh:some-machine host",
		New(types.SSHHost("some-machine"), types.DocumentTypeOCaml).Description())
	assert.Equal(t, `Python files on local host and in directory "/src/"`,
		NewInDirectory(types.LocalHost(), "/src/", types.DocumentTypePython).Description())
}

func TestSemiUniqueID(t *testing.T) {
	tests := []struct {
		name     string
		scope    DocumentScope
		expected string
	}{
		{"local cpp", LocalCPP(), "local-cpp"},
		{"remote python in directory",
			NewInDirectory(types.SSHHost("some-machine"), "/home/u/src/", types.DocumentTypePython),
			"ssh-some-machine-src-python"},
		{"type without LSP id", New(types.LocalHost(), types.DocumentTypeOCaml), "local-ocaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.scope.SemiUniqueID())
		})
	}
}

func TestForDocument(t *testing.T) {
	cpp := document.New(types.LocalDocumentName("/src/a/x.cc"), "")
	cpp2 := document.New(types.LocalDocumentName("/src/b/y.h"), "")
	py := document.New(types.LocalDocumentName("/src/a/x.py"), "")

	assert.Equal(t, 0, Compare(ForDocument(cpp), ForDocument(cpp2)))
	assert.Equal(t, LocalCPP(), ForDocument(cpp))

	pyScope := ForDocument(py)
	assert.True(t, pyScope.HasDirectory())
	assert.Equal(t, "/src/a/", pyScope.Directory())
	assert.Equal(t, types.DocumentTypePython, pyScope.DocumentType())
}

func TestCompare(t *testing.T) {
	scopes := []DocumentScope{
		New(types.SSHHost("m"), types.DocumentTypeCPP),
		NewInDirectory(types.LocalHost(), "/b/", types.DocumentTypePython),
		New(types.LocalHost(), types.DocumentTypePython),
		NewInDirectory(types.LocalHost(), "/a/", types.DocumentTypePython),
		LocalCPP(),
	}
	sort.Slice(scopes, func(i, j int) bool { return Less(scopes[i], scopes[j]) })

	var ids []string
	for _, s := range scopes {
		ids = append(ids, s.Description())
	}
	assert.Equal(t, []string{
		"C++ files on local host",
		"Python files on local host",
		`Python files on local host and in directory "/a/"`,
		`Python files on local host and in directory "/b/"`,
		"C++ files on ssh:m host",
	}, ids)
}

func TestDirectoryRequiresScopeWithDirectory(t *testing.T) {
	defer func() {
		assert.True(t, contract.IsViolation(recover()))
	}()
	LocalCPP().Directory()
	t.Fatal("expected a panic")
}

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHostName(t *testing.T) {
	assert.Equal(t, "local", LocalHost().String())
	assert.Equal(t, "ssh:some-machine", SSHHost("some-machine").String())
	assert.True(t, LocalHost().IsLocal())
	assert.False(t, SSHHost("x").IsLocal())

	assert.Equal(t, 0, LocalHost().Compare(LocalHost()))
	assert.Equal(t, -1, LocalHost().Compare(SSHHost("a")))
	assert.Equal(t, 1, SSHHost("a").Compare(LocalHost()))
	assert.Equal(t, -1, SSHHost("a").Compare(SSHHost("b")))
}

func TestDetectDocumentType(t *testing.T) {
	tests := []struct {
		filename string
		expected DocumentType
	}{
		{"/src/a.cc", DocumentTypeCPP},
		{"/src/a.H", DocumentTypeCPP},
		{"/src/a.py", DocumentTypePython},
		{"/src/Makefile", DocumentTypeMakefile},
		{"/src/rules.mk", DocumentTypeMakefile},
		{"/src/run.sh", DocumentTypeHashComment},
		{"/src/a.ml", DocumentTypeOCaml},
		{"/src/fix.patch", DocumentTypeDiff},
		{"/src/README", DocumentTypeNone},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectDocumentType(tt.filename))
		})
	}
}

func TestLSPLanguageID(t *testing.T) {
	id, ok := DocumentTypeCPP.LSPLanguageID()
	assert.True(t, ok)
	assert.Equal(t, "cpp", id)

	id, ok = DocumentTypePython.LSPLanguageID()
	assert.True(t, ok)
	assert.Equal(t, "python", id)

	_, ok = DocumentTypeOCaml.LSPLanguageID()
	assert.False(t, ok)

	assert.Equal(t, "C++", DocumentTypeCPP.LanguageName())
	assert.Equal(t, "Unknown", DocumentType(99).LanguageName())
}

func TestDocumentName(t *testing.T) {
	name := LocalDocumentName("/src/dir/a.py")
	assert.Equal(t, "/src/dir/", name.Directory())
	assert.Equal(t, "/src/dir/a.py", name.String())

	remote := DocumentName{Host: SSHHost("m"), Filename: "/a.cc"}
	assert.Equal(t, "ssh:m:/a.cc", remote.String())
	assert.Equal(t, -1, name.Compare(remote))
	assert.Equal(t, 1, LocalDocumentName("/b").Compare(LocalDocumentName("/a")))

	line := HostFileLine{Host: LocalHost(), Filename: "/a.cc", Line: 0}
	assert.Equal(t, "/a.cc:1", line.String())
}

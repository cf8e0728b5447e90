// Package scope identifies which language server handles a document.
package scope

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"rockerboo/lsp-client-manager/contract"
	"rockerboo/lsp-client-manager/types"
)

// DocumentScope is the set of documents served by one language server
// process: a host, an optional directory and a document type.
type DocumentScope struct {
	host         types.HostName
	directory    string
	hasDirectory bool
	documentType types.DocumentType
}

// New returns a scope covering every document of a type on a host.
func New(host types.HostName, dt types.DocumentType) DocumentScope {
	return DocumentScope{host: host, documentType: dt}
}

// NewInDirectory returns a scope restricted to one directory, which
// must end with a path separator.
func NewInDirectory(host types.HostName, directory string, dt types.DocumentType) DocumentScope {
	contract.Require(strings.HasSuffix(directory, string(filepath.Separator)) || strings.HasSuffix(directory, "/"),
		"directory %q ends with a separator", directory)
	return DocumentScope{host: host, directory: directory, hasDirectory: true, documentType: dt}
}

// LocalCPP is the scope of C++ files on the local host.
func LocalCPP() DocumentScope {
	return New(types.LocalHost(), types.DocumentTypeCPP)
}

// ForDocument returns the scope whose server handles doc. pylsp only
// finds sibling modules when started in the file's directory, so Python
// scopes are per directory; other servers handle a whole host.
func ForDocument(doc types.Document) DocumentScope {
	dt := doc.DocumentType()
	if dt == types.DocumentTypePython {
		return NewInDirectory(doc.HostName(), doc.DocumentName().Directory(), dt)
	}
	return New(doc.HostName(), dt)
}

func (s DocumentScope) Host() types.HostName {
	return s.host
}

func (s DocumentScope) HasDirectory() bool {
	return s.hasDirectory
}

// Directory returns the directory restriction. The scope must have one.
func (s DocumentScope) Directory() string {
	contract.Require(s.hasDirectory, "scope has a directory")
	return s.directory
}

func (s DocumentScope) DocumentType() types.DocumentType {
	return s.documentType
}

// LanguageName returns the name of the scope's document type.
func (s DocumentScope) LanguageName() string {
	return s.documentType.LanguageName()
}

// Description is a human-readable summary, e.g. "C++ files on local host".
func (s DocumentScope) Description() string {
	if s.hasDirectory {
		return fmt.Sprintf("%s files on %s host and in directory %q",
			s.LanguageName(), s.host, s.directory)
	}
	return fmt.Sprintf("%s files on %s host", s.LanguageName(), s.host)
}

func (s DocumentScope) String() string {
	return s.Description()
}

// SemiUniqueID returns a string usable in file names that is usually
// distinct for distinct scopes, e.g. "local-cpp" or
// "ssh-some-machine-src-python".
func (s DocumentScope) SemiUniqueID() string {
	var sb strings.Builder
	sb.WriteString(replaceNonAlnum(s.host.String(), '-'))
	sb.WriteByte('-')
	if s.hasDirectory {
		sb.WriteString(directoryFinalName(s.directory))
		sb.WriteByte('-')
	}
	if id, ok := s.documentType.LSPLanguageID(); ok {
		sb.WriteString(id)
	} else {
		sb.WriteString(strings.ToLower(replaceNonAlnum(s.LanguageName(), '-')))
	}
	return sb.String()
}

// Compare orders scopes by host, then directory (absent first), then
// document type.
func Compare(a, b DocumentScope) int {
	if c := a.host.Compare(b.host); c != 0 {
		return c
	}
	switch {
	case a.hasDirectory != b.hasDirectory:
		if !a.hasDirectory {
			return -1
		}
		return 1
	case a.directory != b.directory:
		return strings.Compare(a.directory, b.directory)
	}
	switch {
	case a.documentType < b.documentType:
		return -1
	case a.documentType > b.documentType:
		return 1
	}
	return 0
}

// Less reports whether a sorts before b.
func Less(a, b DocumentScope) bool {
	return Compare(a, b) < 0
}

func replaceNonAlnum(s string, r rune) string {
	return strings.Map(func(c rune) rune {
		if c < unicode.MaxASCII && (unicode.IsLetter(c) || unicode.IsDigit(c)) {
			return c
		}
		return r
	}, s)
}

func directoryFinalName(dir string) string {
	return filepath.Base(strings.TrimRight(dir, `/\`))
}

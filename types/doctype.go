package types

import (
	"path/filepath"
	"strings"
)

// DocumentType is the language or format of a document as detected by
// the editor.
type DocumentType int

const (
	DocumentTypeNone DocumentType = iota
	DocumentTypeCPP
	DocumentTypeMakefile
	DocumentTypeHashComment
	DocumentTypeOCaml
	DocumentTypePython
	DocumentTypeDiff
)

var languageNames = map[DocumentType]string{
	DocumentTypeNone:        "None",
	DocumentTypeCPP:         "C++",
	DocumentTypeMakefile:    "Makefile",
	DocumentTypeHashComment: "Hash comment",
	DocumentTypeOCaml:       "OCaml",
	DocumentTypePython:      "Python",
	DocumentTypeDiff:        "Unified diff",
}

// LanguageName returns the human-readable name of the type.
func (dt DocumentType) LanguageName() string {
	if name, ok := languageNames[dt]; ok {
		return name
	}
	return "Unknown"
}

func (dt DocumentType) String() string {
	return dt.LanguageName()
}

var extensionTypes = map[string]DocumentType{
	".c":     DocumentTypeCPP,
	".cc":    DocumentTypeCPP,
	".cpp":   DocumentTypeCPP,
	".cxx":   DocumentTypeCPP,
	".h":     DocumentTypeCPP,
	".hh":    DocumentTypeCPP,
	".hpp":   DocumentTypeCPP,
	".py":    DocumentTypePython,
	".mk":    DocumentTypeMakefile,
	".sh":    DocumentTypeHashComment,
	".pl":    DocumentTypeHashComment,
	".ml":    DocumentTypeOCaml,
	".mli":   DocumentTypeOCaml,
	".diff":  DocumentTypeDiff,
	".patch": DocumentTypeDiff,
}

// DetectDocumentType guesses the type of a file from its name.
func DetectDocumentType(filename string) DocumentType {
	base := filepath.Base(filename)
	if base == "Makefile" || base == "GNUmakefile" {
		return DocumentTypeMakefile
	}
	if dt, ok := extensionTypes[strings.ToLower(filepath.Ext(base))]; ok {
		return dt
	}
	return DocumentTypeNone
}

// LSPLanguageID returns the LSP "languageId" for documents of this type,
// and false if no language server is known for it.
func (dt DocumentType) LSPLanguageID() (string, bool) {
	switch dt {
	case DocumentTypeCPP:
		return "cpp", true
	case DocumentTypePython:
		return "python", true
	default:
		return "", false
	}
}

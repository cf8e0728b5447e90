package lsp

import (
	"strings"
	"unicode/utf16"

	"github.com/cockroachdb/errors"
	"go.lsp.dev/protocol"
)

// ContentChange is one element of "contentChanges" in a didChange
// notification. A nil Range replaces the whole document.
type ContentChange struct {
	Range *protocol.Range `json:"range,omitempty"`
	Text  string          `json:"text"`
}

// DidChangeParams are the parameters of "textDocument/didChange".
type DidChangeParams struct {
	TextDocument   protocol.VersionedTextDocumentIdentifier `json:"textDocument"`
	ContentChanges []ContentChange                          `json:"contentChanges"`
}

// ComputeChange returns a single ranged change that turns oldText into
// newText. Lines shared at the start and end are left out of the range.
// Identical texts yield an empty insertion at the end of the document.
func ComputeChange(oldText, newText string) ContentChange {
	if oldText == newText {
		end := endPosition(oldText)
		return ContentChange{Range: &protocol.Range{Start: end, End: end}}
	}

	oldLines := strings.SplitAfter(oldText, "\n")
	newLines := strings.SplitAfter(newText, "\n")

	prefix := 0
	for prefix < len(oldLines) && prefix < len(newLines) &&
		oldLines[prefix] == newLines[prefix] && strings.HasSuffix(oldLines[prefix], "\n") {
		prefix++
	}

	suffix := 0
	for suffix < len(oldLines)-prefix && suffix < len(newLines)-prefix &&
		oldLines[len(oldLines)-1-suffix] == newLines[len(newLines)-1-suffix] {
		suffix++
	}

	start := protocol.Position{Line: uint32(prefix)}
	oldEndLine := len(oldLines) - suffix
	var end protocol.Position
	if suffix == 0 {
		end = endPosition(oldText)
	} else {
		end = protocol.Position{Line: uint32(oldEndLine)}
	}

	return ContentChange{
		Range: &protocol.Range{Start: start, End: end},
		Text:  strings.Join(newLines[prefix:len(newLines)-suffix], ""),
	}
}

// endPosition is the position just past the last character of text.
// Characters are counted in UTF-16 code units.
func endPosition(text string) protocol.Position {
	lastLine := text[strings.LastIndexByte(text, '\n')+1:]
	return protocol.Position{
		Line:      uint32(strings.Count(text, "\n")),
		Character: uint32(utf16Len(lastLine)),
	}
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// ApplyChanges applies content changes in order to text. Positions past
// the end of a line or of the document are clamped.
func ApplyChanges(text string, changes []ContentChange) (string, error) {
	for i, ch := range changes {
		if ch.Range == nil {
			text = ch.Text
			continue
		}
		start := offsetOf(text, ch.Range.Start)
		end := offsetOf(text, ch.Range.End)
		if end < start {
			return "", errors.Newf("change %d has an inverted range", i)
		}
		text = text[:start] + ch.Text + text[end:]
	}
	return text, nil
}

func offsetOf(text string, pos protocol.Position) int {
	offset := 0
	for line := uint32(0); line < pos.Line; line++ {
		nl := strings.IndexByte(text[offset:], '\n')
		if nl < 0 {
			return len(text)
		}
		offset += nl + 1
	}

	line := text[offset:]
	if nl := strings.IndexByte(line, '\n'); nl >= 0 {
		line = line[:nl]
	}

	units := int(pos.Character)
	for i, r := range line {
		if units <= 0 {
			return offset + i
		}
		units -= utf16.RuneLen(r)
	}
	return offset + len(line)
}

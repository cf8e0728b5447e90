package testserver

import (
	"strings"
	"unicode/utf16"

	"github.com/cockroachdb/errors"
	"go.lsp.dev/protocol"
)

type contentChange struct {
	Range *protocol.Range `json:"range,omitempty"`
	Text  string          `json:"text"`
}

type didChangeParams struct {
	TextDocument struct {
		URI     string `json:"uri"`
		Version int32  `json:"version"`
	} `json:"textDocument"`
	ContentChanges []contentChange `json:"contentChanges"`
}

// applyChanges applies LSP content changes in order. A change without
// a range replaces the whole text.
func applyChanges(text string, changes []contentChange) (string, error) {
	for _, change := range changes {
		if change.Range == nil {
			text = change.Text
			continue
		}

		start, err := offset(text, change.Range.Start)
		if err != nil {
			return "", err
		}
		end, err := offset(text, change.Range.End)
		if err != nil {
			return "", err
		}
		if end < start {
			return "", errors.New("range end precedes start")
		}
		text = text[:start] + change.Text + text[end:]
	}
	return text, nil
}

// offset converts a line and UTF-16 character position to a byte
// offset, rejecting positions outside the text.
func offset(text string, pos protocol.Position) (int, error) {
	lines := strings.SplitAfter(text, "\n")
	if int(pos.Line) >= len(lines) {
		return 0, errors.Newf("position line %d out of range", pos.Line)
	}

	lineStart := 0
	for _, line := range lines[:pos.Line] {
		lineStart += len(line)
	}

	line := lines[pos.Line]
	units := 0
	for i, r := range line {
		if units == int(pos.Character) {
			return lineStart + i, nil
		}
		units += utf16.RuneLen(r)
	}
	if units == int(pos.Character) {
		return lineStart + len(line), nil
	}
	return 0, errors.Newf("position character %d out of range", pos.Character)
}

package lsp

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
)

func TestComputeChange(t *testing.T) {
	tests := []struct {
		name    string
		oldText string
		newText string
		start   protocol.Position
		end     protocol.Position
		text    string
	}{
		{
			name:    "identical",
			oldText: "a\nb\n",
			newText: "a\nb\n",
			start:   protocol.Position{Line: 2},
			end:     protocol.Position{Line: 2},
		},
		{
			name:    "middle line replaced",
			oldText: "one\ntwo\nthree\n",
			newText: "one\n2\nthree\n",
			start:   protocol.Position{Line: 1},
			end:     protocol.Position{Line: 2},
			text:    "2\n",
		},
		{
			name:    "appended without final newline",
			oldText: "a\nb",
			newText: "a\nbc",
			start:   protocol.Position{Line: 1},
			end:     protocol.Position{Line: 1, Character: 1},
			text:    "bc",
		},
		{
			name:    "from empty",
			oldText: "",
			newText: "x\n",
			start:   protocol.Position{},
			end:     protocol.Position{},
			text:    "x\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change := ComputeChange(tt.oldText, tt.newText)
			require.NotNil(t, change.Range)
			assert.Equal(t, tt.start, change.Range.Start)
			assert.Equal(t, tt.end, change.Range.End)
			assert.Equal(t, tt.text, change.Text)

			got, err := ApplyChanges(tt.oldText, []ContentChange{change})
			require.NoError(t, err)
			assert.Equal(t, tt.newText, got)
		})
	}
}

func TestComputeChangeReproducesText(t *testing.T) {
	texts := []string{
		"",
		"\n",
		"int main() {\n  return 0;\n}\n",
		"int main() {\n  return 1;\n}\n",
		"int main() {\n  return 1;\n}",
		"// héllo \U0001F600\nint main() {\n}\n",
		"a\n\n\nb\n",
	}

	for _, from := range texts {
		for _, to := range texts {
			got, err := ApplyChanges(from, []ContentChange{ComputeChange(from, to)})
			require.NoError(t, err)
			assert.Equal(t, to, got, "from %q", from)
		}
	}
}

func TestApplyChanges(t *testing.T) {
	r := func(l1, c1, l2, c2 uint32) *protocol.Range {
		return &protocol.Range{
			Start: protocol.Position{Line: l1, Character: c1},
			End:   protocol.Position{Line: l2, Character: c2},
		}
	}

	got, err := ApplyChanges("abc\ndef\n", []ContentChange{
		{Text: "xyz\n"},
		{Range: r(0, 1, 0, 2), Text: "Y"},
		{Range: r(9, 0, 9, 0), Text: "end\n"},
	})
	require.NoError(t, err)
	assert.Equal(t, "xYz\nend\n", got)

	got, err = ApplyChanges("\U0001F600b\n", []ContentChange{{Range: r(0, 2, 0, 3), Text: "c"}})
	require.NoError(t, err)
	assert.Equal(t, "\U0001F600c\n", got)

	_, err = ApplyChanges("abc\n", []ContentChange{{Range: r(0, 2, 0, 1)}})
	assert.Error(t, err)
}

func TestLineOrRangeError(t *testing.T) {
	text := "first\nsecond\n"

	assert.Equal(t, 3, NumLines(text))
	assert.Equal(t, "second", LineOrRangeError(text, 1, "/a.cc"))
	assert.Equal(t, "", LineOrRangeError(text, 2, "/a.cc"))
	assert.Equal(t, `<Line number 4 is out of range for "/a.cc", which has 3 lines.>`, LineOrRangeError(text, 3, "/a.cc"))
	assert.Equal(t, `<Line number 0 is out of range for "/a.cc", which has 3 lines.>`, LineOrRangeError(text, -1, "/a.cc"))

	info := NewDocumentInfo("/a.cc", 1, text)
	assert.Equal(t, 3, info.NumLastSentLines())
	assert.Equal(t, "first", info.LastContentsCodeLine(0))
	assert.Equal(t, text, info.LastSentContents())
	assert.False(t, info.HasPendingDiagnostics())
}

func TestToVersionNumber(t *testing.T) {
	v, err := ToVersionNumber(12)
	require.NoError(t, err)
	assert.Equal(t, VersionNumber(12), v)

	_, err = ToVersionNumber(-1)
	var convErr *NumericConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, int64(-1), convErr.Value)

	_, err = ToVersionNumber(1 << 31)
	assert.Error(t, err)

	assert.Equal(t, -1, VersionNumber(3).CompareDocumentVersion(4))
	assert.Equal(t, 0, VersionNumber(4).CompareDocumentVersion(4))
	assert.Equal(t, 1, VersionNumber(5).CompareDocumentVersion(4))
}

func TestVersionNotIncreasingError(t *testing.T) {
	err := NewVersionNotIncreasingError(3, 4)
	assert.ErrorIs(t, err, ErrVersionNotIncreasing)
	assert.Equal(t, "The current document version (3) is not greater than the previously sent document version (4).", err.Error())

	var versionErr *VersionNotIncreasingError
	require.ErrorAs(t, err, &versionErr)
	assert.Equal(t, VersionNumber(3), versionErr.Current)
	assert.Equal(t, VersionNumber(4), versionErr.Previous)

	wrapped := errors.Wrap(err, "update")
	assert.ErrorIs(t, wrapped, ErrVersionNotIncreasing)
	assert.False(t, errors.Is(errors.New("other"), ErrVersionNotIncreasing))
}

package diagnostics

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"rockerboo/lsp-client-manager/contract"
)

func TestDecodeOptionalVersion(t *testing.T) {
	var withVersion, withoutVersion PublishDiagnosticsParams

	require.NoError(t, json.Unmarshal([]byte(`{"uri":"file:///a.cc","version":0,"diagnostics":[]}`), &withVersion))
	require.NotNil(t, withVersion.Version)
	assert.Equal(t, int32(0), *withVersion.Version)

	require.NoError(t, json.Unmarshal([]byte(`{"uri":"file:///a.cc","diagnostics":[]}`), &withoutVersion))
	assert.Nil(t, withoutVersion.Version)
}

func TestFromLSP(t *testing.T) {
	raw := `{
		"uri": "file:///src/a.cc",
		"version": 3,
		"diagnostics": [
			{
				"range": {"start": {"line": 4, "character": 2}, "end": {"line": 4, "character": 5}},
				"severity": 1,
				"source": "clang",
				"message": "second",
				"relatedInformation": [
					{"location": {"uri": "file:///src/a.h", "range": {"start": {"line": 9, "character": 0}, "end": {"line": 9, "character": 1}}}, "message": "declared here"}
				]
			},
			{
				"range": {"start": {"line": 1, "character": 0}, "end": {"line": 1, "character": 3}},
				"message": "first"
			}
		]
	}`
	var params PublishDiagnosticsParams
	require.NoError(t, json.Unmarshal([]byte(raw), &params))

	tdd := FromLSP(&params)
	assert.Equal(t, int64(3), tdd.Version)
	require.Equal(t, 2, tdd.Len())

	assert.Equal(t, "first", tdd.Diagnostics[0].Message)
	assert.Empty(t, tdd.Diagnostics[0].Related)

	second := tdd.Diagnostics[1]
	assert.Equal(t, "second", second.Message)
	assert.Equal(t, protocol.DiagnosticSeverityError, second.Severity)
	assert.Equal(t, "clang", second.Source)
	require.Len(t, second.Related, 1)
	assert.Equal(t, Related{Filename: "/src/a.h", Line: 9, Message: "declared here"}, second.Related[0])
}

func TestFromLSPRequiresVersion(t *testing.T) {
	defer func() {
		assert.True(t, contract.IsViolation(recover()))
	}()
	FromLSP(&PublishDiagnosticsParams{URI: "file:///a.cc"})
	t.Fatal("expected a panic")
}

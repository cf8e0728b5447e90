package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.lsp.dev/protocol"

	"rockerboo/lsp-client-manager/diagnostics"
	"rockerboo/lsp-client-manager/lsp"
	"rockerboo/lsp-client-manager/types"
)

type ToolServer interface {
	AddTool(tool mcp.Tool, handler server.ToolHandlerFunc)
}

func severityName(s protocol.DiagnosticSeverity) string {
	switch s {
	case protocol.DiagnosticSeverityError:
		return "error"
	case protocol.DiagnosticSeverityWarning:
		return "warning"
	case protocol.DiagnosticSeverityInformation:
		return "info"
	case protocol.DiagnosticSeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// FormatDiagnostics lists diagnostics with 1-based line and column
// numbers.
func FormatDiagnostics(path string, diags *diagnostics.TextDocumentDiagnostics) string {
	var result strings.Builder

	result.WriteString("=== DIAGNOSTICS ===\n")
	if diags == nil {
		result.WriteString("No diagnostics have been received for " + path)
		return result.String()
	}

	fmt.Fprintf(&result, "%s version %d: %d diagnostics\n", path, diags.Version, diags.Len())
	for _, d := range diags.Diagnostics {
		fmt.Fprintf(&result, "%d:%d: %s: %s", d.Range.Start.Line+1, d.Range.Start.Character+1,
			severityName(d.Severity), d.Message)
		if d.Source != "" {
			fmt.Fprintf(&result, " [%s]", d.Source)
		}
		result.WriteString("\n")
		for _, r := range d.Related {
			fmt.Fprintf(&result, "    %s:%d: %s\n", r.Filename, r.Line+1, r.Message)
		}
	}
	return result.String()
}

// formatReply returns the indented result, or an error for an error
// reply.
func formatReply(reply *lsp.Reply) (string, error) {
	if reply.IsError() {
		return "", errors.Newf("%s failed with error %d: %s", reply.Method, reply.Error.Code, reply.Error.Message)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, reply.Result, "", "  "); err != nil {
		return string(reply.Result), nil
	}
	return out.String(), nil
}

// parseJSONParams accepts an empty string as no params.
func parseJSONParams(s string) (json.RawMessage, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if !json.Valid([]byte(s)) {
		return nil, errors.New("params is not valid JSON")
	}
	return json.RawMessage(s), nil
}

// parseLocations parses "[ssh:HOST:]PATH:LINE" entries separated by
// newlines or commas. LINE is 1-based.
func parseLocations(s string) ([]types.HostFileLine, error) {
	var ret []types.HostFileLine
	for _, entry := range strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == ',' }) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		i := strings.LastIndex(entry, ":")
		if i <= 0 {
			return nil, errors.Newf("location %q has no line number", entry)
		}
		line, err := strconv.Atoi(entry[i+1:])
		if err != nil || line < 1 {
			return nil, errors.Newf("location %q has an invalid line number", entry)
		}

		loc := types.HostFileLine{Host: types.LocalHost(), Filename: entry[:i], Line: line - 1}
		if rest, ok := strings.CutPrefix(loc.Filename, "ssh:"); ok {
			host, fname, found := strings.Cut(rest, ":")
			if !found || host == "" {
				return nil, errors.Newf("location %q has an invalid host", entry)
			}
			loc.Host = types.SSHHost(host)
			loc.Filename = fname
		}
		ret = append(ret, loc)
	}
	if len(ret) == 0 {
		return nil, errors.New("no locations given")
	}
	return ret, nil
}

// Package testserver is a minimal language server for exercising LSP
// clients. It checks that the client performs the startup and shutdown
// handshakes correctly, answers "textDocument/didOpen" and
// "textDocument/didChange" with empty diagnostics for the new version,
// keeps a copy of every open document that "$/getTextDocumentContents"
// returns, and replies to all other requests with a null result.
package testserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"

	"rockerboo/lsp-client-manager/diagnostics"
	"rockerboo/lsp-client-manager/logger"
)

const (
	// MethodGetTextDocumentContents returns the server's copy of a
	// document as TextDocumentContents.
	MethodGetTextDocumentContents = "$/getTextDocumentContents"

	// MethodSendNotification makes the server send the notification in
	// its params, a SendNotificationParams, to the client.
	MethodSendNotification = "$/sendNotification"
)

const (
	ExitOK        = 0
	ExitViolation = 2
)

// TextDocumentContents is the reply to MethodGetTextDocumentContents.
// An unknown document has version -1 and text "<no doc>".
type TextDocumentContents struct {
	URI     string `json:"uri"`
	Text    string `json:"text"`
	Version int32  `json:"version"`
}

type SendNotificationParams struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type document struct {
	version int32
	text    string
}

// Server holds the state of one session.
type Server struct {
	stderr io.Writer

	mu               sync.Mutex
	initialized      bool
	shutdownReceived bool
	exitCode         int
	exited           bool
	documents        map[string]document
}

func newServer(stderr io.Writer) *Server {
	if stderr == nil {
		stderr = io.Discard
	}
	return &Server{
		stderr:    stderr,
		exitCode:  ExitViolation,
		documents: make(map[string]document),
	}
}

// Serve speaks LSP over rwc until the client sends "exit", the stream
// ends, or ctx is done. Problems are reported on stderr. It returns the
// process exit status: ExitOK only after a proper shutdown handshake.
func Serve(ctx context.Context, rwc io.ReadWriteCloser, stderr io.Writer) int {
	s := newServer(stderr)
	conn := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{}), s,
		jsonrpc2.SetLogger(logger.JSONRPC()))

	select {
	case <-conn.DisconnectNotify():
	case <-ctx.Done():
		_ = conn.Close()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exited {
		fmt.Fprintln(s.stderr, "Error: connection closed without \"exit\".")
	}
	return s.exitCode
}

// complain reports a client error and ends the session.
func (s *Server) complain(conn *jsonrpc2.Conn, msg string) {
	fmt.Fprintln(s.stderr, msg)
	s.finish(conn, ExitViolation)
}

func (s *Server) finish(conn *jsonrpc2.Conn, code int) {
	s.exited = true
	s.exitCode = code
	_ = conn.Close()
}

func (s *Server) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.handle(ctx, conn, req); err != nil {
		s.complain(conn, fmt.Sprintf("Error: %s: %v", req.Method, err))
	}
}

func (s *Server) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) error {
	switch req.Method {
	case protocol.MethodInitialize:
		result := map[string]any{
			"capabilities": map[string]any{
				"textDocumentSync": map[string]any{
					"change":    2,
					"openClose": true,
					"save":      true,
				},
			},
		}
		return conn.Reply(ctx, req.ID, result)

	case protocol.MethodInitialized:
		s.initialized = true

	case protocol.MethodShutdown:
		if !s.initialized {
			s.complain(conn, "Received `shutdown` without `initialized`.")
			return nil
		}
		s.shutdownReceived = true
		return conn.Reply(ctx, req.ID, nil)

	case protocol.MethodExit:
		if !s.shutdownReceived {
			s.complain(conn, "Received `exit` without `shutdown`.")
			return nil
		}
		s.finish(conn, ExitOK)

	case protocol.MethodTextDocumentDidOpen:
		var params protocol.DidOpenTextDocumentParams
		if err := decode(req, &params); err != nil {
			return err
		}
		td := params.TextDocument
		s.documents[string(td.URI)] = document{version: td.Version, text: td.Text}
		return publishDiagnostics(ctx, conn, string(td.URI), td.Version)

	case protocol.MethodTextDocumentDidChange:
		var params didChangeParams
		if err := decode(req, &params); err != nil {
			return err
		}
		uri := params.TextDocument.URI
		text, err := applyChanges(s.documents[uri].text, params.ContentChanges)
		if err != nil {
			return err
		}
		s.documents[uri] = document{version: params.TextDocument.Version, text: text}
		return publishDiagnostics(ctx, conn, uri, params.TextDocument.Version)

	case protocol.MethodTextDocumentDidClose:
		var params protocol.DidCloseTextDocumentParams
		if err := decode(req, &params); err != nil {
			return err
		}
		delete(s.documents, string(params.TextDocument.URI))

	case MethodGetTextDocumentContents:
		var params protocol.TextDocumentPositionParams
		if err := decode(req, &params); err != nil {
			return err
		}
		uri := string(params.TextDocument.URI)
		result := TextDocumentContents{URI: uri, Text: "<no doc>", Version: -1}
		if doc, ok := s.documents[uri]; ok {
			result.Text = doc.text
			result.Version = doc.version
		}
		return conn.Reply(ctx, req.ID, result)

	case MethodSendNotification:
		var params SendNotificationParams
		if err := decode(req, &params); err != nil {
			return err
		}
		if err := conn.Notify(ctx, params.Method, params.Params); err != nil {
			return err
		}
		return conn.Reply(ctx, req.ID, nil)

	default:
		if !req.Notif {
			return conn.Reply(ctx, req.ID, nil)
		}
	}
	return nil
}

func decode(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return errors.New("missing params")
	}
	return json.Unmarshal(*req.Params, v)
}

func publishDiagnostics(ctx context.Context, conn *jsonrpc2.Conn, uri string, version int32) error {
	return conn.Notify(ctx, diagnostics.MethodPublishDiagnostics, diagnostics.PublishDiagnosticsParams{
		URI:         uri,
		Version:     &version,
		Diagnostics: []protocol.Diagnostic{},
	})
}

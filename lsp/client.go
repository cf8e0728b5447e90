package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"

	"rockerboo/lsp-client-manager/collections"
	"rockerboo/lsp-client-manager/contract"
	"rockerboo/lsp-client-manager/diagnostics"
	"rockerboo/lsp-client-manager/eventloop"
	"rockerboo/lsp-client-manager/logger"
	"rockerboo/lsp-client-manager/scope"
	"rockerboo/lsp-client-manager/security"
	"rockerboo/lsp-client-manager/utils"
)

// ErrAlreadyStarted is returned by StartServer when a server process
// exists.
var ErrAlreadyStarted = errors.New("Server process has already been started and not stopped.")

const (
	descInactive       = "The LSP server has not been started."
	descObjectMissing  = "Server process is running, but the LSP protocol object is missing!  Stop+start the server to fix things."
	descNotRunning     = "The server process has terminated, but the LSP protocol object still exists.  Stop+start the server to fix things."
	descNormal         = "The LSP server is running normally."
	descWaitingForExit = `The "exit" notification has been sent; waiting for the server process to terminate.`
)

// Listener receives a connection's events. Calls happen on the event
// loop, possibly from inside a call into the connection.
type Listener interface {
	ChangedProtocolState()
	HasPendingDiagnostics()
	HasPendingErrorMessages()
	HasReplyForID(id int32)
}

// ConnectionParams configures a ServerConnection.
type ConnectionParams struct {
	Scope    scope.DocumentScope
	Loop     *eventloop.Loop
	Launcher Launcher

	UseRealServer bool

	// Server stderr goes here; empty discards it.
	StderrLogFileName string

	// Log every JSON-RPC message at debug level.
	ProtocolLog bool
}

// ServerConnection manages one language server process and the LSP
// conversation with it. All methods must be called on the event loop.
type ServerConnection struct {
	scope         scope.DocumentScope
	loop          *eventloop.Loop
	launcher      Launcher
	useRealServer bool
	protocolLog   bool

	stderrLog     *os.File
	stderrLogName string

	listener Listener

	process ServerProcess
	rpc     *rpcSession

	// Set by the first protocol violation; cleared only by stopping.
	protocolError string

	// ID of the outstanding "initialize" or "shutdown" request, or 0.
	initID     int32
	shutdownID int32

	waitingForTermination bool

	capabilities json.RawMessage

	documents                   map[string]*DocumentInfo
	filesWithPendingDiagnostics map[string]struct{}
	pendingErrorMessages        []string

	ids     requestIDs
	metrics ConnectionMetrics
}

func NewServerConnection(params ConnectionParams) *ServerConnection {
	contract.Require(params.Loop != nil && params.Launcher != nil, "connection has a loop and a launcher")

	c := &ServerConnection{
		scope:                       params.Scope,
		loop:                        params.Loop,
		launcher:                    params.Launcher,
		useRealServer:               params.UseRealServer,
		protocolLog:                 params.ProtocolLog,
		documents:                   make(map[string]*DocumentInfo),
		filesWithPendingDiagnostics: make(map[string]struct{}),
	}
	c.stderrLog, c.stderrLogName = openStderrLog(params.StderrLogFileName)
	return c
}

func (c *ServerConnection) Scope() scope.DocumentScope {
	return c.scope
}

// SetListener replaces the event receiver. nil stops delivery.
func (c *ServerConnection) SetListener(l Listener) {
	c.listener = l
}

// StderrLogFileName is the file server stderr is written to, or empty
// if it is discarded.
func (c *ServerConnection) StderrLogFileName() string {
	return c.stderrLogName
}

// ServerCapabilities returns the capabilities from the "initialize"
// reply, or nil before it arrives.
func (c *ServerConnection) ServerCapabilities() json.RawMessage {
	return c.capabilities
}

func (c *ServerConnection) Metrics() ConnectionMetrics {
	m := c.metrics
	m.State = c.ProtocolState().State.String()
	if c.process == nil {
		m.ProcessID = 0
	}
	return m
}

// ---- lifecycle ----

// StartServer launches the server and sends "initialize". The
// connection reaches StateNormal when the reply arrives.
func (c *ServerConnection) StartServer() error {
	if c.process != nil {
		return ErrAlreadyStarted
	}

	languageID, ok := c.scope.DocumentType().LSPLanguageID()
	contract.Require(ok, "%s has an LSP language id", c.scope.LanguageName())

	req := LaunchRequest{LanguageID: languageID, UseRealServer: c.useRealServer}
	if c.scope.HasDirectory() {
		req.WorkingDir = c.scope.Directory()
	}

	proc, err := c.launcher.Launch(req)
	if err != nil {
		logger.Error("Failed to start LSP server for", c.scope.Description(), err)
		return errors.Wrap(err, "Failed to start server process")
	}

	c.process = proc
	c.metrics.started(proc.PID())
	logger.Info("Started LSP server for", c.scope.Description(), "pid", proc.PID())

	go copyStderr(c.stderrWriter(), proc.Stderr())
	go func() {
		<-proc.Done()
		c.loop.Post(func() { c.onProcessExited(proc) })
	}()

	c.rpc = c.connect(proc)
	c.initID = c.sendRequest(protocol.MethodInitialize, newInitializeParams())
	c.emitChangedProtocolState()
	return nil
}

func (c *ServerConnection) stderrWriter() io.Writer {
	if c.stderrLog == nil {
		return io.Discard
	}
	return c.stderrLog
}

func copyStderr(dst io.Writer, src io.Reader) {
	if src == nil {
		return
	}
	if _, err := io.Copy(dst, src); err != nil && !isDisconnect(err) {
		logger.Debug("Copying server stderr stopped:", err)
	}
}

func (c *ServerConnection) connect(proc ServerProcess) *rpcSession {
	s := newRPCSession()
	s.stream = newRecordingStream(proc)

	opts := []jsonrpc2.ConnOpt{
		jsonrpc2.SetLogger(logger.JSONRPC()),
		jsonrpc2.OnRecv(func(_ *jsonrpc2.Request, resp *jsonrpc2.Response) {
			if resp != nil {
				c.loop.Post(func() { c.handleReply(s, resp) })
			}
		}),
	}
	if c.protocolLog {
		opts = append(opts, jsonrpc2.LogMessages(logger.JSONRPC()))
	}

	handler := &clientHandler{session: s, connection: c}
	s.conn = jsonrpc2.NewConn(context.Background(), s.stream, handler, opts...)

	go func() {
		<-s.conn.DisconnectNotify()
		c.loop.Post(func() { c.onDisconnect(s) })
	}()
	return s
}

// StopServer begins an orderly shutdown, or kills a server that is not
// in a state to shut down cleanly. It returns what it did.
func (c *ServerConnection) StopServer() string {
	if c.rpc == nil {
		if c.process != nil {
			c.forciblyShutDown()
			return "LSP was gone, but the server process was not? Killed process."
		}
		return "Server is not running."
	}

	var msg string
	switch {
	case c.protocolError != "":
		msg = "There was a protocol error, so server was killed: " + c.protocolError
	case c.process.Exited() && !c.waitingForTermination:
		msg = "The server process had already terminated."
	case c.initID != 0:
		msg = "The server did not respond to the request to initialize, so it was killed."
	case c.shutdownID != 0:
		msg = "The server did not respond to a previous request to shutdown, so it was killed."
	case c.waitingForTermination:
		msg = `The server did not shut down in response to the "exit" notification, so it was killed.`
	}
	if msg != "" {
		c.forciblyShutDown()
		return msg
	}

	c.shutdownID = c.sendRequest(protocol.MethodShutdown, nil)
	c.emitChangedProtocolState()
	return "Initiated server shutdown."
}

// ForciblyShutDown kills the server without any protocol exchange and
// forgets all protocol state.
func (c *ServerConnection) ForciblyShutDown() {
	c.forciblyShutDown()
}

func (c *ServerConnection) forciblyShutDown() {
	if c.rpc != nil {
		c.rpc.close()
		c.rpc = nil
	}
	if c.process != nil {
		logger.Info("Killing LSP server for", c.scope.Description(), "pid", c.process.PID())
		if err := c.process.Kill(); err != nil {
			logger.Warn("Failed to kill LSP server:", err)
		}
		if err := c.process.Close(); err != nil {
			logger.Debug("Closing LSP server pipes:", err)
		}
		c.process = nil
	}
	c.resetProtocolState()
	c.emitChangedProtocolState()
}

func (c *ServerConnection) resetProtocolState() {
	c.protocolError = ""
	c.initID = 0
	c.shutdownID = 0
	c.waitingForTermination = false
	c.capabilities = nil
	clear(c.documents)
	clear(c.filesWithPendingDiagnostics)
	c.pendingErrorMessages = nil
}

// Close kills any server and releases the stderr log. No events are
// delivered afterwards.
func (c *ServerConnection) Close() {
	c.listener = nil
	if c.process != nil || c.rpc != nil {
		c.forciblyShutDown()
	}
	if c.stderrLog != nil {
		if err := c.stderrLog.Close(); err != nil {
			logger.Warn("Closing server stderr log:", err)
		}
		c.stderrLog = nil
	}
}

func (c *ServerConnection) onProcessExited(proc ServerProcess) {
	if c.process != proc {
		return
	}
	if c.waitingForTermination {
		logger.Info("LSP server for", c.scope.Description(), "terminated after exit")
	} else {
		logger.Warn("LSP server for", c.scope.Description(), "terminated unexpectedly")
	}
	c.forciblyShutDown()
}

func (c *ServerConnection) onDisconnect(s *rpcSession) {
	if c.rpc != s {
		return
	}

	err := s.stream.ReadError()
	if !isDisconnect(err) {
		c.setProtocolError(fmt.Sprintf("failed to read from server: %v", err))
		return
	}
	if c.waitingForTermination || c.process.Exited() {
		logger.Debug("LSP server closed its output while terminating")
		return
	}

	logger.Warn("LSP server for", c.scope.Description(), "closed its output but is still running")
	s.close()
	c.rpc = nil
	c.emitChangedProtocolState()
}

func (c *ServerConnection) setProtocolError(msg string) {
	if c.protocolError != "" {
		logger.Debug("Additional protocol error:", msg)
		return
	}
	logger.Error("LSP protocol error for", c.scope.Description()+":", msg)
	c.protocolError = msg
	c.metrics.recordError(msg)
	c.emitChangedProtocolState()
}

// ---- state ----

// ProtocolState derives the connection's state from what it is waiting
// for.
func (c *ServerConnection) ProtocolState() AnnotatedProtocolState {
	switch {
	case c.process == nil:
		return AnnotatedProtocolState{StateClientInactive, descInactive}
	case c.rpc == nil:
		return AnnotatedProtocolState{StateProtocolObjectMissing, descObjectMissing}
	case c.protocolError != "":
		return AnnotatedProtocolState{StateProtocolError, "There was an LSP protocol error: " + c.protocolError}
	case c.process.Exited() && !c.waitingForTermination:
		return AnnotatedProtocolState{StateServerNotRunning, descNotRunning}
	case c.initID != 0:
		return AnnotatedProtocolState{StateInitializing,
			fmt.Sprintf(`The "initialize" request has been sent (ID=%d) but is outstanding.`, c.initID)}
	case c.shutdownID != 0:
		return AnnotatedProtocolState{StateShutdown1,
			fmt.Sprintf(`The "shutdown" request has been sent (ID=%d) but is outstanding.`, c.shutdownID)}
	case c.waitingForTermination:
		return AnnotatedProtocolState{StateShutdown2, descWaitingForExit}
	default:
		return AnnotatedProtocolState{StateNormal, descNormal}
	}
}

func (c *ServerConnection) IsRunningNormally() bool {
	return c.ProtocolState().State == StateNormal
}

func (c *ServerConnection) IsInitializing() bool {
	return c.ProtocolState().State == StateInitializing
}

// ExplainAbnormality describes the current state.
func (c *ServerConnection) ExplainAbnormality() string {
	return c.ProtocolState().Description
}

// CheckStatus returns a multi-line report on the connection.
func (c *ServerConnection) CheckStatus() string {
	lines := []string{c.ProtocolState().String()}

	if c.rpc != nil {
		if n := c.rpc.pendingNotifications.Load(); n > 0 {
			lines = append(lines, fmt.Sprintf("Number of pending notifications: %d", n))
		}
		if ids := c.rpc.outstandingIDs(); len(ids) > 0 {
			lines = append(lines, "Outstanding requests: "+formatIDs(ids))
		}
		if ids := c.rpc.replyIDs(); len(ids) > 0 {
			lines = append(lines, "Pending replies: "+formatIDs(ids))
		}
	}

	if n := len(c.pendingErrorMessages); n > 0 {
		lines = append(lines, fmt.Sprintf("There are %d pending error messages:", n))
		for i, msg := range c.pendingErrorMessages {
			lines = append(lines, fmt.Sprintf("  %d: %s", i+1, msg))
		}
	}

	lines = append(lines, c.metrics.summary())

	if c.stderrLogName != "" {
		lines = append(lines, fmt.Sprintf("Server stderr is in %q.", c.stderrLogName))
	} else {
		lines = append(lines, "Server stderr is being discarded.")
	}
	return strings.Join(lines, "\n")
}

func formatIDs(ids []int32) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// ---- documents ----

func (c *ServerConnection) IsFileOpen(fname string) bool {
	_, ok := c.documents[fname]
	return ok
}

// GetDocInfo returns the sync state of an open file, or nil.
func (c *ServerConnection) GetDocInfo(fname string) *DocumentInfo {
	return c.documents[fname]
}

// OpenFileNames returns the open files in sorted order.
func (c *ServerConnection) OpenFileNames() []string {
	return collections.SortedKeys(c.documents)
}

// DidOpen sends the whole contents of a file the server does not have
// open yet.
func (c *ServerConnection) DidOpen(fname, languageID string, version VersionNumber, contents string) {
	contract.Require(c.IsRunningNormally(), "server is running normally")
	contract.Require(security.IsValidLSPPath(fname), "%q is a valid LSP path", fname)
	contract.Require(!c.IsFileOpen(fname), "%q is not open", fname)

	c.sendNotification(protocol.MethodTextDocumentDidOpen, didOpenParams(fname, languageID, version, contents))

	info := NewDocumentInfo(fname, version, contents)
	info.WaitingForDiagnostics = true
	c.documents[fname] = info
}

// DidChange sends the difference between the last sent contents of an
// open file and contents.
func (c *ServerConnection) DidChange(fname string, version VersionNumber, contents string) {
	contract.Require(c.IsRunningNormally(), "server is running normally")
	info := c.documents[fname]
	contract.Require(info != nil, "%q is open", fname)
	contract.Require(version > info.LastSentVersion,
		"version %d is greater than last sent version %d", version, info.LastSentVersion)

	change := ComputeChange(info.lastSentContents, contents)
	c.sendNotification(protocol.MethodTextDocumentDidChange, didChangeParams(fname, version, change))

	updated, err := ApplyChanges(info.lastSentContents, []ContentChange{change})
	contract.Assert(err == nil && updated == contents, "computed change reproduces the new contents of %q", fname)

	info.lastSentContents = updated
	info.LastSentVersion = version
	info.WaitingForDiagnostics = true
}

func (c *ServerConnection) DidClose(fname string) {
	contract.Require(c.IsRunningNormally(), "server is running normally")
	contract.Require(c.IsFileOpen(fname), "%q is open", fname)

	c.sendNotification(protocol.MethodTextDocumentDidClose, didCloseParams(fname))
	delete(c.documents, fname)
	delete(c.filesWithPendingDiagnostics, fname)
}

// ResetDocument forgets a file without telling the server. Diagnostics
// that arrive for it later are dropped.
func (c *ServerConnection) ResetDocument(fname string) {
	contract.Require(c.IsFileOpen(fname), "%q is open", fname)

	delete(c.documents, fname)
	delete(c.filesWithPendingDiagnostics, fname)
}

// ---- requests ----

// SendRequest sends an arbitrary request and returns its ID.
func (c *ServerConnection) SendRequest(method string, params any) int32 {
	contract.Require(c.IsRunningNormally(), "server is running normally")
	return c.sendRequest(method, params)
}

// SendNotification sends an arbitrary notification.
func (c *ServerConnection) SendNotification(method string, params any) {
	contract.Require(c.IsRunningNormally(), "server is running normally")
	c.sendNotification(method, params)
}

// RequestRelatedLocation asks about the symbol at pos in an open file.
func (c *ServerConnection) RequestRelatedLocation(kind SymbolRequestKind, fname string, pos protocol.Position) int32 {
	contract.Require(c.IsRunningNormally(), "server is running normally")
	contract.Require(c.IsFileOpen(fname), "%q is open", fname)
	return c.sendRequest(kind.Method(), symbolRequestParams(kind, fname, pos))
}

func (c *ServerConnection) sendRequest(method string, params any) int32 {
	id := c.ids.allocate(c.rpc.idInUse)
	if err := c.rpc.call(id, method, params); err != nil {
		c.setProtocolError(err.Error())
	} else {
		c.metrics.RequestsSent++
	}
	return id
}

func (c *ServerConnection) sendNotification(method string, params any) {
	if err := c.rpc.notify(method, params); err != nil {
		c.setProtocolError(err.Error())
		return
	}
	c.metrics.NotificationsSent++
}

// CancelRequest forgets a request. A reply that arrives later is
// dropped; a reply already received is discarded.
func (c *ServerConnection) CancelRequest(id int32) {
	if c.rpc == nil {
		return
	}
	if _, ok := c.rpc.outstanding[id]; ok {
		delete(c.rpc.outstanding, id)
		c.rpc.canceled[id] = struct{}{}
	}
	delete(c.rpc.replies, id)
}

func (c *ServerConnection) HasReplyForID(id int32) bool {
	if c.rpc == nil {
		return false
	}
	_, ok := c.rpc.replies[id]
	return ok
}

func (c *ServerConnection) TakeReplyForID(id int32) *Reply {
	contract.Require(c.HasReplyForID(id), "reply %d is available", id)
	reply := c.rpc.replies[id]
	delete(c.rpc.replies, id)
	return reply
}

func (c *ServerConnection) handleReply(s *rpcSession, resp *jsonrpc2.Response) {
	if c.rpc != s {
		return
	}

	id, ok := replyID(resp.ID)
	if !ok {
		c.setProtocolError(fmt.Sprintf("received reply with unexpected ID %s", resp.ID))
		return
	}

	if _, canceled := s.canceled[id]; canceled {
		delete(s.canceled, id)
		c.metrics.DiscardedReplies++
		logger.Trace("Discarding reply to canceled request", id)
		return
	}

	method, ok := s.outstanding[id]
	if !ok {
		c.setProtocolError(fmt.Sprintf("received reply for unknown request ID %d", id))
		return
	}
	delete(s.outstanding, id)

	reply := newReply(id, method, resp)
	c.metrics.recordReply(reply)

	switch id {
	case c.initID:
		c.handleInitializeReply(reply)
	case c.shutdownID:
		c.handleShutdownReply(reply)
	default:
		s.replies[id] = reply
		if c.listener != nil {
			c.listener.HasReplyForID(id)
		}
	}
}

func (c *ServerConnection) handleInitializeReply(reply *Reply) {
	c.initID = 0
	if reply.IsError() {
		c.setProtocolError(fmt.Sprintf("initialize failed: %s", reply.Error.Message))
		return
	}

	var result struct {
		Capabilities json.RawMessage `json:"capabilities"`
	}
	if err := reply.Decode(&result); err != nil {
		c.setProtocolError(err.Error())
		return
	}
	c.capabilities = result.Capabilities
	logger.Info("LSP server for", c.scope.Description(), "initialized")

	c.sendNotification(protocol.MethodInitialized, protocol.InitializedParams{})
	c.emitChangedProtocolState()
}

func (c *ServerConnection) handleShutdownReply(reply *Reply) {
	c.shutdownID = 0
	if reply.IsError() {
		c.setProtocolError(fmt.Sprintf("shutdown failed: %s", reply.Error.Message))
		return
	}

	c.sendNotification(protocol.MethodExit, nil)
	c.waitingForTermination = true
	c.emitChangedProtocolState()
}

// ---- notifications and diagnostics ----

func (c *ServerConnection) handleNotification(s *rpcSession, req *jsonrpc2.Request) {
	if c.rpc != s {
		return
	}
	c.metrics.NotificationsReceived++

	switch req.Method {
	case diagnostics.MethodPublishDiagnostics:
		var params diagnostics.PublishDiagnosticsParams
		if err := decodeParams(req, &params); err != nil {
			c.addErrorMessage(fmt.Sprintf("malformed notification %q: %v", req.Method, err))
			return
		}
		c.handleIncomingDiagnostics(&params)

	case protocol.MethodWindowLogMessage, protocol.MethodWindowShowMessage:
		var params protocol.LogMessageParams
		if err := decodeParams(req, &params); err != nil {
			c.addErrorMessage(fmt.Sprintf("malformed notification %q: %v", req.Method, err))
			return
		}
		logger.Debug("Server message:", params.Message)

	default:
		c.addErrorMessage(fmt.Sprintf("unhandled notification method: %q", req.Method))
	}
}

func decodeParams(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return errors.New("missing params")
	}
	return json.Unmarshal(*req.Params, v)
}

func (c *ServerConnection) handleIncomingDiagnostics(params *diagnostics.PublishDiagnosticsParams) {
	fname, err := utils.URIToFilePath(params.URI)
	if err != nil {
		logger.Trace("Dropping diagnostics with malformed URI", params.URI, err)
		return
	}
	if params.Version == nil {
		logger.Trace("Dropping diagnostics without a version for", fname)
		return
	}
	if *params.Version < 0 {
		logger.Trace("Dropping diagnostics with negative version", *params.Version, "for", fname)
		return
	}

	info := c.documents[fname]
	if info == nil {
		logger.Trace("Dropping diagnostics for", fname, "which is not open")
		return
	}
	if VersionNumber(*params.Version) != info.LastSentVersion {
		logger.Trace("Dropping diagnostics for version", *params.Version, "of", fname,
			"; last sent version is", info.LastSentVersion)
		return
	}

	info.pendingDiagnostics = params
	info.WaitingForDiagnostics = false
	c.filesWithPendingDiagnostics[fname] = struct{}{}
	if c.listener != nil {
		c.listener.HasPendingDiagnostics()
	}
}

func (c *ServerConnection) HasPendingDiagnostics() bool {
	return len(c.filesWithPendingDiagnostics) > 0
}

// FileWithPendingDiagnostics returns the first, in sorted order, of the
// files with diagnostics ready to take.
func (c *ServerConnection) FileWithPendingDiagnostics() string {
	contract.Require(c.HasPendingDiagnostics(), "there are pending diagnostics")
	return collections.SortedKeys(c.filesWithPendingDiagnostics)[0]
}

func (c *ServerConnection) TakePendingDiagnosticsFor(fname string) *diagnostics.PublishDiagnosticsParams {
	info := c.documents[fname]
	contract.Require(info != nil && info.HasPendingDiagnostics(), "%q has pending diagnostics", fname)

	params := info.pendingDiagnostics
	info.pendingDiagnostics = nil
	delete(c.filesWithPendingDiagnostics, fname)
	return params
}

func (c *ServerConnection) addErrorMessage(msg string) {
	logger.Warn("LSP error for", c.scope.Description()+":", msg)
	c.pendingErrorMessages = append(c.pendingErrorMessages, msg)
	if c.listener != nil {
		c.listener.HasPendingErrorMessages()
	}
}

func (c *ServerConnection) HasPendingErrorMessages() bool {
	return len(c.pendingErrorMessages) > 0
}

// TakePendingErrorMessage removes and returns the oldest error message.
func (c *ServerConnection) TakePendingErrorMessage() string {
	contract.Require(c.HasPendingErrorMessages(), "there are pending error messages")
	msg := c.pendingErrorMessages[0]
	c.pendingErrorMessages = c.pendingErrorMessages[1:]
	return msg
}

func (c *ServerConnection) emitChangedProtocolState() {
	if c.listener != nil {
		c.listener.ChangedProtocolState()
	}
}

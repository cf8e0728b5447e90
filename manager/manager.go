// Package manager owns one language server connection per document
// scope and routes every document and scope operation to the right one.
package manager

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/btree"
	"go.lsp.dev/protocol"

	"rockerboo/lsp-client-manager/codelines"
	"rockerboo/lsp-client-manager/collections"
	"rockerboo/lsp-client-manager/contract"
	"rockerboo/lsp-client-manager/diagnostics"
	"rockerboo/lsp-client-manager/eventloop"
	"rockerboo/lsp-client-manager/logger"
	"rockerboo/lsp-client-manager/lsp"
	"rockerboo/lsp-client-manager/scope"
	"rockerboo/lsp-client-manager/types"
	"rockerboo/lsp-client-manager/vfs"
)

var (
	ErrNonLocalHost        = errors.New("Cannot create LSP client for non-local host.")
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

const (
	descNoConnection = "There is no LSP client object for this document's scope."
	descNotStarted   = "The LSP server has not been started."
)

// Listener receives the events of all connections. Diagnostics are not
// relayed; the manager delivers them to the documents.
type Listener interface {
	ChangedProtocolState()
	HasPendingErrorMessages()
	HasReplyForID(id int32)
}

// scopedConnection is a connection and the scope it serves. It relays
// the connection's events to the manager.
type scopedConnection struct {
	scope   scope.DocumentScope
	conn    *lsp.ServerConnection
	manager *Manager
}

func (s *scopedConnection) ChangedProtocolState()    { s.manager.onChangedProtocolState() }
func (s *scopedConnection) HasPendingDiagnostics()   { s.manager.onPendingDiagnostics() }
func (s *scopedConnection) HasPendingErrorMessages() { s.manager.onPendingErrorMessages() }
func (s *scopedConnection) HasReplyForID(id int32)   { s.manager.onReplyForID(id) }

// openDocumentNames returns the documents open with the server.
func (s *scopedConnection) openDocumentNames() []types.DocumentName {
	names := s.conn.OpenFileNames()
	ret := make([]types.DocumentName, len(names))
	for i, fname := range names {
		ret[i] = types.DocumentName{Host: s.scope.Host(), Filename: fname}
	}
	return ret
}

// Manager maps document scopes to server connections, creating each
// connection the first time its scope is needed. All methods must be
// called on the event loop.
type Manager struct {
	documents types.DocumentList
	files     vfs.Connections
	loop      *eventloop.Loop

	launcher      lsp.Launcher
	useRealServer bool
	logDirectory  string
	protocolLog   bool
	scopeFor      func(types.Document) scope.DocumentScope

	// Ordered by scope. Each entry's scope equals its key.
	connections *btree.BTreeG[*scopedConnection]

	// Error messages taken from all connections. They accumulate.
	errorMessages []string

	listeners []Listener
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogDirectory sets where server stderr logs are created. Without
// it, server stderr is discarded.
func WithLogDirectory(dir string) Option {
	return func(m *Manager) { m.logDirectory = dir }
}

// WithLauncher sets how server processes are started.
func WithLauncher(l lsp.Launcher) Option {
	return func(m *Manager) { m.launcher = l }
}

// WithUseRealServer selects the configured language servers instead of
// the fake test server.
func WithUseRealServer(real bool) Option {
	return func(m *Manager) { m.useRealServer = real }
}

// WithProtocolLog logs every JSON-RPC message.
func WithProtocolLog(enabled bool) Option {
	return func(m *Manager) { m.protocolLog = enabled }
}

// WithScopeFunc overrides how a document's scope is chosen.
func WithScopeFunc(fn func(types.Document) scope.DocumentScope) Option {
	return func(m *Manager) { m.scopeFor = fn }
}

func New(documents types.DocumentList, files vfs.Connections, loop *eventloop.Loop, opts ...Option) *Manager {
	contract.Require(documents != nil && files != nil && loop != nil, "manager has documents, files and a loop")

	m := &Manager{
		documents: documents,
		files:     files,
		loop:      loop,
		scopeFor:  scope.ForDocument,
		connections: btree.NewG(2, func(a, b *scopedConnection) bool {
			return scope.Less(a.scope, b.scope)
		}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.launcher == nil {
		m.launcher = lsp.NewCommandLauncher(lsp.DefaultServerConfig())
	}

	m.SelfCheck()
	return m
}

// Close stops event delivery and kills every server without a
// shutdown handshake.
func (m *Manager) Close() {
	m.listeners = nil
	m.eachConnection(func(sc *scopedConnection) {
		sc.conn.SetListener(nil)
	})
	m.eachConnection(func(sc *scopedConnection) {
		sc.conn.Close()
	})
	m.connections.Clear(false)
}

func (m *Manager) UseRealServer() bool {
	return m.useRealServer
}

// Subscribe registers l for events from all connections.
func (m *Manager) Subscribe(l Listener) {
	m.listeners = append(m.listeners, l)
}

// Unsubscribe removes l.
func (m *Manager) Unsubscribe(l Listener) {
	for i, existing := range m.listeners {
		if existing == l {
			m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
			return
		}
	}
}

func (m *Manager) eachConnection(fn func(*scopedConnection)) {
	m.connections.Ascend(func(sc *scopedConnection) bool {
		fn(sc)
		return true
	})
}

// SelfCheck panics if an invariant does not hold.
func (m *Manager) SelfCheck() {
	var openLSPDocs []types.DocumentName
	seen := make(map[types.DocumentName]bool)
	allSettled := true

	m.eachConnection(func(sc *scopedConnection) {
		contract.Assert(scope.Compare(sc.scope, sc.conn.Scope()) == 0,
			"connection for %s serves its key scope", sc.scope)

		for _, name := range sc.openDocumentNames() {
			contract.Assert(!seen[name], "%s is open with only one server", name)
			seen[name] = true
			openLSPDocs = append(openLSPDocs, name)
		}

		state := sc.conn.ProtocolState().State
		if state != lsp.StateNormal && state != lsp.StateClientInactive {
			allSettled = false
		}
	})

	// While a server is starting, stopping or broken, the editor and
	// the connection may disagree about what is open.
	if allSettled {
		tracked := m.documents.TrackingChangesDocumentNames()
		contract.Assert(collections.SetEqual(openLSPDocs, tracked),
			"open LSP documents %v equal documents tracking changes %v", openLSPDocs, tracked)
	}

	numChecked, numUnchecked := 0, 0
	for _, doc := range m.documents.Documents() {
		info := m.GetDocInfo(doc)
		if info == nil {
			continue
		}
		if info.LastSentVersion.CompareDocumentVersion(doc.VersionNumber()) == 0 {
			contract.Assert(info.LastContentsEquals(doc.WholeFileString()),
				"server copy of %s matches the document", doc.DocumentName())
			numChecked++
		} else {
			numUnchecked++
		}
	}
	logger.Trace("manager self check:", numChecked, "checked,", numUnchecked, "unchecked")
}

// ---- events ----

func (m *Manager) onChangedProtocolState() {
	m.resetAbandonedDocuments()
	for _, l := range m.listeners {
		l.ChangedProtocolState()
	}
}

// resetAbandonedDocuments stops change tracking for documents whose
// server went away without closing them.
func (m *Manager) resetAbandonedDocuments() {
	for _, doc := range m.documents.Documents() {
		if !doc.TrackingChanges() {
			continue
		}
		conn := m.connectionFor(doc)
		if conn != nil && conn.ProtocolState().State == lsp.StateClientInactive {
			logger.Trace("Server for", doc.DocumentName(), "stopped; discarding its LSP data")
			doc.DiscardLanguageServicesData()
		}
	}
}

func (m *Manager) onPendingDiagnostics() {
	m.eachConnection(func(sc *scopedConnection) {
		m.takePendingDiagnostics(sc)
	})
}

// takePendingDiagnostics delivers a connection's diagnostics to the
// documents they are for.
func (m *Manager) takePendingDiagnostics(sc *scopedConnection) {
	for sc.conn.HasPendingDiagnostics() {
		fname := sc.conn.FileWithPendingDiagnostics()
		params := sc.conn.TakePendingDiagnosticsFor(fname)
		if params.Version == nil {
			logger.Trace("Received LSP diagnostics without a version for", fname)
			continue
		}

		name := types.DocumentName{Host: sc.scope.Host(), Filename: fname}
		doc := m.documents.FindDocumentByName(name)
		if doc == nil {
			logger.Trace("Received LSP diagnostics for", name, "but that file is not open in the editor")
			continue
		}
		if !doc.TrackingChanges() {
			logger.Trace("Received LSP diagnostics for", name, "which is no longer open with the server")
			continue
		}
		doc.UpdateDiagnostics(diagnostics.FromLSP(params))
	}
}

func (m *Manager) onPendingErrorMessages() {
	m.eachConnection(func(sc *scopedConnection) {
		for sc.conn.HasPendingErrorMessages() {
			m.errorMessages = append(m.errorMessages, sc.conn.TakePendingErrorMessage())
		}
	})
	for _, l := range m.listeners {
		l.HasPendingErrorMessages()
	}
}

func (m *Manager) onReplyForID(id int32) {
	for _, l := range m.listeners {
		l.HasReplyForID(id)
	}
}

// ErrorMessages returns the error messages received from all servers.
func (m *Manager) ErrorMessages() []string {
	return append([]string(nil), m.errorMessages...)
}

// ---- per scope ----

// Scope returns the scope whose server handles doc.
func (m *Manager) Scope(doc types.Document) scope.DocumentScope {
	return m.scopeFor(doc)
}

func (m *Manager) lookup(s scope.DocumentScope) *scopedConnection {
	sc, ok := m.connections.Get(&scopedConnection{scope: s})
	if !ok {
		return nil
	}
	return sc
}

// connectionFor returns the connection for doc's scope, or nil.
func (m *Manager) connectionFor(doc types.Document) *lsp.ServerConnection {
	if sc := m.lookup(m.scopeFor(doc)); sc != nil {
		return sc.conn
	}
	return nil
}

// Connection returns the connection for doc's scope without creating
// one.
func (m *Manager) Connection(doc types.Document) (*lsp.ServerConnection, bool) {
	conn := m.connectionFor(doc)
	return conn, conn != nil
}

// Connections returns all connections in scope order.
func (m *Manager) Connections() []*lsp.ServerConnection {
	var ret []*lsp.ServerConnection
	m.eachConnection(func(sc *scopedConnection) {
		ret = append(ret, sc.conn)
	})
	return ret
}

func (m *Manager) mustConnection(doc types.Document) *lsp.ServerConnection {
	conn := m.connectionFor(doc)
	contract.Require(conn != nil, "a connection exists for %s", doc.DocumentName())
	return conn
}

// StderrLogFileName is the initial name of the stderr log for a scope's
// server. An existing file makes the connection pick a related name.
func (m *Manager) StderrLogFileName(s scope.DocumentScope) string {
	if m.logDirectory == "" {
		return ""
	}
	return filepath.Join(m.logDirectory, "lsp-server-"+s.SemiUniqueID()+".log")
}

// GetOrCreateConnection returns the connection for doc's scope,
// creating it if needed. The server is not started.
func (m *Manager) GetOrCreateConnection(doc types.Document) (*lsp.ServerConnection, error) {
	s := m.scopeFor(doc)
	if sc := m.lookup(s); sc != nil {
		return sc.conn, nil
	}

	if !s.Host().IsLocal() {
		return nil, ErrNonLocalHost
	}
	if _, ok := s.DocumentType().LSPLanguageID(); !ok {
		return nil, errors.Mark(errors.Newf(
			"This editor does not know how to run an LSP server for %s.", s.LanguageName()),
			ErrUnsupportedLanguage)
	}

	sc := &scopedConnection{scope: s, manager: m}
	sc.conn = lsp.NewServerConnection(lsp.ConnectionParams{
		Scope:             s,
		Loop:              m.loop,
		Launcher:          m.launcher,
		UseRealServer:     m.useRealServer,
		StderrLogFileName: m.StderrLogFileName(s),
		ProtocolLog:       m.protocolLog,
	})
	sc.conn.SetListener(sc)
	m.connections.ReplaceOrInsert(sc)

	logger.Debug("Created LSP connection for", s.Description())
	return sc.conn, nil
}

// StartServer starts the server for doc's scope.
func (m *Manager) StartServer(doc types.Document) error {
	conn, err := m.GetOrCreateConnection(doc)
	if err != nil {
		return err
	}
	return conn.StartServer()
}

// GetProtocolState reports StateClientInactive when there is no
// connection, as a newly created one would be.
func (m *Manager) GetProtocolState(doc types.Document) lsp.ProtocolState {
	if conn := m.connectionFor(doc); conn != nil {
		return conn.ProtocolState().State
	}
	return lsp.StateClientInactive
}

// IsRunningNormally does not imply that doc itself is open.
func (m *Manager) IsRunningNormally(doc types.Document) bool {
	if conn := m.connectionFor(doc); conn != nil {
		return conn.IsRunningNormally()
	}
	return false
}

func (m *Manager) IsInitializing(doc types.Document) bool {
	return m.GetProtocolState(doc) == lsp.StateInitializing
}

func (m *Manager) ExplainAbnormality(doc types.Document) string {
	if conn := m.connectionFor(doc); conn != nil {
		return conn.ExplainAbnormality()
	}
	return descNotStarted
}

// GetServerStatus summarizes the state of doc's scope for the user.
func (m *Manager) GetServerStatus(doc types.Document) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Using fake server: %t.\n", !m.useRealServer)
	fmt.Fprintf(&sb, "LSP scope: %s.\n", m.scopeFor(doc).Description())

	conn := m.connectionFor(doc)
	if conn == nil {
		sb.WriteString(descNoConnection)
		return sb.String()
	}

	fmt.Fprintf(&sb, "Status: %s\n", conn.CheckStatus())
	fmt.Fprintf(&sb, "Has pending diagnostics: %t.\n", conn.HasPendingDiagnostics())
	if n := len(m.errorMessages); n > 0 {
		fmt.Fprintf(&sb, "%d errors:\n", n)
		for _, msg := range m.errorMessages {
			fmt.Fprintf(&sb, "  %s\n", msg)
		}
	}
	return sb.String()
}

// StopServer resets every document open with doc's server, then stops
// it. It describes what happened.
func (m *Manager) StopServer(doc types.Document) string {
	conn := m.connectionFor(doc)
	if conn == nil {
		return descNoConnection
	}

	// Reset before "shutdown" goes out so that late diagnostics find
	// nothing to attach to.
	for _, fname := range conn.OpenFileNames() {
		name := types.DocumentName{Host: conn.Scope().Host(), Filename: fname}
		if d := m.documents.FindDocumentByName(name); d != nil {
			d.DiscardLanguageServicesData()
		}
		conn.ResetDocument(fname)
	}

	msg := conn.StopServer()
	logger.Debug("StopServer for", conn.Scope().Description()+":", msg)
	return msg
}

// GetCodeLines returns the text of the line at each location, reading
// files that are not open with the server. It returns false when ctx is
// done first or there is no connection for doc's scope.
func (m *Manager) GetCodeLines(ctx context.Context, doc types.Document, locations []types.HostFileLine) ([]string, bool) {
	conn := m.connectionFor(doc)
	if conn == nil {
		return nil, false
	}
	return codelines.GetCodeLines(ctx, m.loop, locations, conn, m.files)
}

// ---- per file ----

// FileIsOpen reports whether doc is open with a running server.
func (m *Manager) FileIsOpen(doc types.Document) bool {
	c := m.connectionFor(doc)
	if c == nil {
		return false
	}
	return c.IsRunningNormally() &&
		doc.IsCompatibleWithLSP() &&
		c.IsFileOpen(doc.Filename())
}

// GetDocInfo returns what the server was last sent for doc, or nil if
// it is not open.
func (m *Manager) GetDocInfo(doc types.Document) *lsp.DocumentInfo {
	if !m.FileIsOpen(doc) {
		return nil
	}
	return m.mustConnection(doc).GetDocInfo(doc.Filename())
}

// OpenFile sends doc's contents to its server as languageID. The
// server must be running normally.
func (m *Manager) OpenFile(doc types.Document, languageID string) error {
	contract.Require(!m.FileIsOpen(doc), "%s is not open", doc.DocumentName())

	version, err := lsp.ToVersionNumber(doc.VersionNumber())
	if err != nil {
		return err
	}
	conn, err := m.GetOrCreateConnection(doc)
	if err != nil {
		return err
	}

	conn.DidOpen(doc.Filename(), languageID, version, doc.WholeFileString())
	doc.BeginTrackingChanges()

	contract.Ensure(m.FileIsOpen(doc), "%s is open", doc.DocumentName())
	return nil
}

// UpdateFile sends doc's current contents. When the version has not
// changed since the last send, the document version is bumped so the
// server re-analyzes it.
func (m *Manager) UpdateFile(doc types.Document) error {
	contract.Require(m.FileIsOpen(doc), "%s is open", doc.DocumentName())
	contract.Require(doc.TrackingChanges(), "%s is tracking changes", doc.DocumentName())

	conn := m.mustConnection(doc)
	info := conn.GetDocInfo(doc.Filename())

	version, err := lsp.ToVersionNumber(doc.VersionNumber())
	if err != nil {
		return err
	}

	if version == info.LastSentVersion {
		logger.Trace("While updating", doc.DocumentName(), ": version", version,
			"was already sent; bumping to force re-analysis")
		doc.BumpVersionNumber()
		if version, err = lsp.ToVersionNumber(doc.VersionNumber()); err != nil {
			return err
		}
	}

	if version <= info.LastSentVersion {
		return lsp.NewVersionNotIncreasingError(version, info.LastSentVersion)
	}

	conn.DidChange(doc.Filename(), version, doc.WholeFileString())
	doc.BeginTrackingChanges()
	return nil
}

// CloseFile closes doc if it is open and discards its diagnostics.
func (m *Manager) CloseFile(doc types.Document) {
	if m.FileIsOpen(doc) {
		m.mustConnection(doc).DidClose(doc.Filename())
		doc.DiscardLanguageServicesData()
	}
	contract.Ensure(!m.FileIsOpen(doc), "%s is not open", doc.DocumentName())
}

// ---- requests ----

// CancelRequestWithID cancels request id if it is outstanding and
// discards any reply already received.
func (m *Manager) CancelRequestWithID(doc types.Document, id int32) {
	contract.Require(m.IsRunningNormally(doc), "server for %s is running normally", doc.DocumentName())
	m.mustConnection(doc).CancelRequest(id)
}

func (m *Manager) HasReplyForID(doc types.Document, id int32) bool {
	contract.Require(m.IsRunningNormally(doc), "server for %s is running normally", doc.DocumentName())
	return m.mustConnection(doc).HasReplyForID(id)
}

func (m *Manager) TakeReplyForID(doc types.Document, id int32) *lsp.Reply {
	contract.Require(m.IsRunningNormally(doc), "server for %s is running normally", doc.DocumentName())
	contract.Require(m.HasReplyForID(doc, id), "reply %d is available", id)
	return m.mustConnection(doc).TakeReplyForID(id)
}

// RequestRelatedLocation asks doc's server about the symbol at pos and
// returns the request ID.
func (m *Manager) RequestRelatedLocation(doc types.Document, kind lsp.SymbolRequestKind, pos protocol.Position) int32 {
	contract.Require(m.FileIsOpen(doc), "%s is open", doc.DocumentName())
	return m.mustConnection(doc).RequestRelatedLocation(kind, doc.Filename(), pos)
}

// SendArbitraryRequest sends method with params verbatim and returns the
// request ID.
func (m *Manager) SendArbitraryRequest(doc types.Document, method string, params any) int32 {
	contract.Require(m.IsRunningNormally(doc), "server for %s is running normally", doc.DocumentName())
	return m.mustConnection(doc).SendRequest(method, params)
}

func (m *Manager) SendArbitraryNotification(doc types.Document, method string, params any) {
	contract.Require(m.IsRunningNormally(doc), "server for %s is running normally", doc.DocumentName())
	m.mustConnection(doc).SendNotification(method, params)
}

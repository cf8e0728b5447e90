// Package bridge serves the connection manager to other goroutines. It
// owns the event loop and the document list, and runs every operation
// on the loop.
package bridge

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"go.lsp.dev/protocol"

	"rockerboo/lsp-client-manager/diagnostics"
	"rockerboo/lsp-client-manager/document"
	"rockerboo/lsp-client-manager/eventloop"
	"rockerboo/lsp-client-manager/interfaces"
	"rockerboo/lsp-client-manager/logger"
	"rockerboo/lsp-client-manager/lsp"
	"rockerboo/lsp-client-manager/manager"
	"rockerboo/lsp-client-manager/security"
	"rockerboo/lsp-client-manager/types"
	"rockerboo/lsp-client-manager/watcher"
)

var (
	ErrNotRunning = errors.New("LSP server is not running")
	ErrNotOpen    = errors.New("file is not open")
)

const (
	DefaultPollInterval = 10 * time.Millisecond
	DefaultStopTimeout  = 5 * time.Second
)

var _ interfaces.BridgeInterface = (*Bridge)(nil)

// Bridge is safe for concurrent use once Run is draining its loop.
type Bridge struct {
	loop    *eventloop.Loop
	docs    *document.List
	manager *manager.Manager
	watcher *watcher.Watcher

	allowedDirectories []string
	pollInterval       time.Duration
	stopTimeout        time.Duration

	// Loop only. Number of error messages already logged.
	loggedErrors int
}

type Option func(*Bridge)

// WithWatcher reloads open files when they change on disk.
func WithWatcher(w *watcher.Watcher) Option {
	return func(b *Bridge) { b.watcher = w }
}

// WithAllowedDirectories restricts the files the bridge opens. Without
// it, any local file is allowed.
func WithAllowedDirectories(dirs []string) Option {
	return func(b *Bridge) { b.allowedDirectories = dirs }
}

// WithPollInterval sets how often waits recheck their condition.
func WithPollInterval(d time.Duration) Option {
	return func(b *Bridge) { b.pollInterval = d }
}

// WithStopTimeout bounds how long StopServer waits for the server to
// exit.
func WithStopTimeout(d time.Duration) Option {
	return func(b *Bridge) { b.stopTimeout = d }
}

// New wraps m, whose documents must be docs and whose loop must be
// loop. It must be called before the loop runs.
func New(loop *eventloop.Loop, docs *document.List, m *manager.Manager, opts ...Option) *Bridge {
	b := &Bridge{
		loop:         loop,
		docs:         docs,
		manager:      m,
		pollInterval: DefaultPollInterval,
		stopTimeout:  DefaultStopTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	m.Subscribe(b)
	return b
}

// Run drains the loop until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	err := b.loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close stops the watcher and kills every server. The loop must no
// longer be running.
func (b *Bridge) Close() {
	if b.watcher != nil {
		if err := b.watcher.Close(); err != nil {
			logger.Warn("Closing file watcher:", err)
		}
	}
	b.manager.Close()
}

// ---- manager events ----

func (b *Bridge) ChangedProtocolState() {
	for _, conn := range b.manager.Connections() {
		logger.Debug("LSP state for", conn.Scope().Description()+":", conn.ProtocolState())
	}
}

func (b *Bridge) HasPendingErrorMessages() {
	msgs := b.manager.ErrorMessages()
	for _, msg := range msgs[b.loggedErrors:] {
		logger.Warn("LSP server error:", msg)
	}
	b.loggedErrors = len(msgs)
}

func (b *Bridge) HasReplyForID(id int32) {
	logger.Trace("Reply available for request", id)
}

// ---- helpers ----

// cleanPath makes path absolute and checks it is allowed.
func (b *Bridge) cleanPath(path string) (string, error) {
	abs, err := security.GetCleanAbsPath(path)
	if err != nil {
		return "", err
	}
	abs = security.NormalizeLSPPath(abs)
	if len(b.allowedDirectories) == 0 {
		return abs, nil
	}
	for _, dir := range b.allowedDirectories {
		if security.IsWithinAllowedDirectory(abs, dir) {
			return abs, nil
		}
	}
	return "", errors.Wrapf(security.ErrPathNotAllowed, "%s", abs)
}

// document returns the document for path, loading it into the list if
// needed. The file is read off the loop.
func (b *Bridge) document(ctx context.Context, path string) (*document.NamedDocument, error) {
	fname, err := b.cleanPath(path)
	if err != nil {
		return nil, err
	}
	name := types.LocalDocumentName(fname)

	doc, err := eventloop.Call(ctx, b.loop, func() (*document.NamedDocument, error) {
		return b.docs.Get(name), nil
	})
	if err != nil || doc != nil {
		return doc, err
	}

	loaded, err := document.Load(fname)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", fname)
	}
	return eventloop.Call(ctx, b.loop, func() (*document.NamedDocument, error) {
		if existing := b.docs.Get(name); existing != nil {
			return existing, nil
		}
		b.docs.Add(loaded)
		return loaded, nil
	})
}

// waitFor evaluates cond on the loop until it returns true.
func (b *Bridge) waitFor(ctx context.Context, cond func() (bool, error)) error {
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		done, err := eventloop.Call(ctx, b.loop, cond)
		if err != nil || done {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// requireRunning runs on the loop.
func (b *Bridge) requireRunning(doc types.Document) error {
	if !b.manager.IsRunningNormally(doc) {
		return errors.Wrapf(ErrNotRunning, "%s: %s", b.manager.Scope(doc).Description(), b.manager.ExplainAbnormality(doc))
	}
	return nil
}

// requireOpen runs on the loop.
func (b *Bridge) requireOpen(doc types.Document) error {
	if err := b.requireRunning(doc); err != nil {
		return err
	}
	if !b.manager.FileIsOpen(doc) {
		return errors.Wrapf(ErrNotOpen, "%s", doc.DocumentName())
	}
	return nil
}

// waitReply waits for the reply to request id, canceling the request
// if ctx ends first.
func (b *Bridge) waitReply(ctx context.Context, doc types.Document, id int32) (*lsp.Reply, error) {
	var reply *lsp.Reply
	err := b.waitFor(ctx, func() (bool, error) {
		if err := b.requireRunning(doc); err != nil {
			return false, errors.Wrapf(err, "no reply to request %d", id)
		}
		if !b.manager.HasReplyForID(doc, id) {
			return false, nil
		}
		reply = b.manager.TakeReplyForID(doc, id)
		return true, nil
	})
	if err == nil {
		return reply, nil
	}

	if ctx.Err() != nil {
		b.loop.Post(func() {
			if b.manager.IsRunningNormally(doc) {
				b.manager.CancelRequestWithID(doc, id)
			}
		})
	}
	return nil, err
}

// ---- lifecycle ----

// StartServer starts the server for path's scope and waits for it to
// finish initializing.
func (b *Bridge) StartServer(ctx context.Context, path string) (lsp.AnnotatedProtocolState, error) {
	doc, err := b.document(ctx, path)
	if err != nil {
		return lsp.AnnotatedProtocolState{}, err
	}

	_, err = eventloop.Call(ctx, b.loop, func() (struct{}, error) {
		return struct{}{}, b.manager.StartServer(doc)
	})
	if err != nil && !errors.Is(err, lsp.ErrAlreadyStarted) {
		return lsp.AnnotatedProtocolState{}, err
	}

	var state lsp.AnnotatedProtocolState
	err = b.waitFor(ctx, func() (bool, error) {
		conn, ok := b.manager.Connection(doc)
		if !ok {
			return false, errors.New("connection disappeared")
		}
		state = conn.ProtocolState()
		return state.State != lsp.StateInitializing, nil
	})
	return state, err
}

// StopServer stops the server for path's scope and waits, up to the
// stop timeout, for it to exit.
func (b *Bridge) StopServer(ctx context.Context, path string) (string, error) {
	doc, err := b.document(ctx, path)
	if err != nil {
		return "", err
	}

	msg, err := eventloop.Call(ctx, b.loop, func() (string, error) {
		return b.manager.StopServer(doc), nil
	})
	if err != nil {
		return "", err
	}

	waitCtx, cancel := context.WithTimeout(ctx, b.stopTimeout)
	defer cancel()
	err = b.waitFor(waitCtx, func() (bool, error) {
		state := b.manager.GetProtocolState(doc)
		return state != lsp.StateShutdown1 && state != lsp.StateShutdown2, nil
	})
	if err != nil && ctx.Err() == nil {
		logger.Warn("Server for", path, "did not exit in time")
		return msg, nil
	}
	return msg, err
}

func (b *Bridge) ServerStatus(ctx context.Context, path string) (string, error) {
	doc, err := b.document(ctx, path)
	if err != nil {
		return "", err
	}
	return eventloop.Call(ctx, b.loop, func() (string, error) {
		return b.manager.GetServerStatus(doc), nil
	})
}

// ---- documents ----

// OpenFile sends the file to its server, which must be running.
func (b *Bridge) OpenFile(ctx context.Context, path string) (int64, error) {
	doc, err := b.document(ctx, path)
	if err != nil {
		return 0, err
	}

	return eventloop.Call(ctx, b.loop, func() (int64, error) {
		if err := b.requireRunning(doc); err != nil {
			return 0, err
		}
		if b.manager.FileIsOpen(doc) {
			return 0, errors.Newf("%s is already open", doc.DocumentName())
		}
		languageID, ok := doc.DocumentType().LSPLanguageID()
		if !ok {
			return 0, errors.Newf("%s has no LSP language", doc.DocumentName())
		}
		if err := b.manager.OpenFile(doc, languageID); err != nil {
			return 0, err
		}
		if b.watcher != nil {
			if err := b.watcher.Watch(doc); err != nil {
				logger.Warn("Not watching", doc.DocumentName().String()+":", err)
			}
		}
		return doc.VersionNumber(), nil
	})
}

// UpdateFile replaces the document's text, or rereads it from disk
// when text is nil, and sends the change.
func (b *Bridge) UpdateFile(ctx context.Context, path string, text *string) (int64, error) {
	doc, err := b.document(ctx, path)
	if err != nil {
		return 0, err
	}

	if text == nil {
		data, err := os.ReadFile(doc.Filename())
		if err != nil {
			return 0, errors.Wrapf(err, "failed to read %s", doc.Filename())
		}
		s := string(data)
		text = &s
	}

	return eventloop.Call(ctx, b.loop, func() (int64, error) {
		if err := b.requireOpen(doc); err != nil {
			return 0, err
		}
		if *text != doc.WholeFileString() {
			doc.SetText(*text)
		}
		if err := b.manager.UpdateFile(doc); err != nil {
			return 0, err
		}
		return doc.VersionNumber(), nil
	})
}

func (b *Bridge) CloseFile(ctx context.Context, path string) error {
	doc, err := b.document(ctx, path)
	if err != nil {
		return err
	}
	return b.loop.Invoke(ctx, func() {
		b.manager.CloseFile(doc)
		if b.watcher != nil {
			b.watcher.Unwatch(doc)
		}
	})
}

// ---- requests ----

func (b *Bridge) RelatedLocation(ctx context.Context, path string, kind lsp.SymbolRequestKind, pos protocol.Position) (*lsp.Reply, error) {
	doc, err := b.document(ctx, path)
	if err != nil {
		return nil, err
	}

	id, err := eventloop.Call(ctx, b.loop, func() (int32, error) {
		if err := b.requireOpen(doc); err != nil {
			return 0, err
		}
		return b.manager.RequestRelatedLocation(doc, kind, pos), nil
	})
	if err != nil {
		return nil, err
	}
	return b.waitReply(ctx, doc, id)
}

// Request sends params verbatim. Empty params are sent as null.
func (b *Bridge) Request(ctx context.Context, path, method string, params json.RawMessage) (*lsp.Reply, error) {
	doc, err := b.document(ctx, path)
	if err != nil {
		return nil, err
	}

	id, err := eventloop.Call(ctx, b.loop, func() (int32, error) {
		if err := b.requireRunning(doc); err != nil {
			return 0, err
		}
		return b.manager.SendArbitraryRequest(doc, method, rawParams(params)), nil
	})
	if err != nil {
		return nil, err
	}
	return b.waitReply(ctx, doc, id)
}

func (b *Bridge) Notify(ctx context.Context, path, method string, params json.RawMessage) error {
	doc, err := b.document(ctx, path)
	if err != nil {
		return err
	}
	_, err = eventloop.Call(ctx, b.loop, func() (struct{}, error) {
		if err := b.requireRunning(doc); err != nil {
			return struct{}{}, err
		}
		b.manager.SendArbitraryNotification(doc, method, rawParams(params))
		return struct{}{}, nil
	})
	return err
}

func rawParams(params json.RawMessage) any {
	if len(params) == 0 {
		return nil
	}
	return params
}

// ---- results ----

func (b *Bridge) Diagnostics(ctx context.Context, path string, wait bool) (*diagnostics.TextDocumentDiagnostics, error) {
	doc, err := b.document(ctx, path)
	if err != nil {
		return nil, err
	}

	if wait {
		err := b.waitFor(ctx, func() (bool, error) {
			if err := b.requireOpen(doc); err != nil {
				return false, err
			}
			return !b.manager.GetDocInfo(doc).WaitingForDiagnostics, nil
		})
		if err != nil {
			return nil, err
		}
	}

	return eventloop.Call(ctx, b.loop, func() (*diagnostics.TextDocumentDiagnostics, error) {
		return doc.Diagnostics(), nil
	})
}

// CodeLines returns the text of each location's line, using the
// contents last sent for path's server where a file is open.
func (b *Bridge) CodeLines(ctx context.Context, path string, locations []types.HostFileLine) ([]string, error) {
	doc, err := b.document(ctx, path)
	if err != nil {
		return nil, err
	}

	return eventloop.Call(ctx, b.loop, func() ([]string, error) {
		if _, err := b.manager.GetOrCreateConnection(doc); err != nil {
			return nil, err
		}
		lines, ok := b.manager.GetCodeLines(ctx, doc, locations)
		if !ok {
			return nil, errors.Newf("reading code lines was canceled: %v", ctx.Err())
		}
		return lines, nil
	})
}

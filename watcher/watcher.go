// Package watcher keeps open documents in sync with their files on disk.
// When a watched file changes, its new contents are loaded into the
// document and sent to the document's language server.
package watcher

import (
	"os"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"

	"rockerboo/lsp-client-manager/document"
	"rockerboo/lsp-client-manager/eventloop"
	"rockerboo/lsp-client-manager/logger"
	"rockerboo/lsp-client-manager/types"
)

const DefaultDelay = 200 * time.Millisecond

// Updater sends a document's current contents to its server.
type Updater interface {
	FileIsOpen(doc types.Document) bool
	UpdateFile(doc types.Document) error
}

// Watcher reloads watched documents after their files change. Watch,
// Unwatch and the reloads run on the event loop.
type Watcher struct {
	loop    *eventloop.Loop
	updater Updater
	delay   time.Duration
	fsw     *fsnotify.Watcher

	// Loop only.
	docs map[string]*document.NamedDocument
	dirs map[string]int

	// Event goroutine only.
	debouncers map[string]func(func())

	onReload func(doc *document.NamedDocument, err error)
	done     chan struct{}
}

type Option func(*Watcher)

// WithDelay sets how long a file must be quiet before it is reloaded.
func WithDelay(d time.Duration) Option {
	return func(w *Watcher) { w.delay = d }
}

// WithReloadHook is called on the loop after each reload.
func WithReloadHook(fn func(doc *document.NamedDocument, err error)) Option {
	return func(w *Watcher) { w.onReload = fn }
}

func New(loop *eventloop.Loop, updater Updater, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}

	w := &Watcher{
		loop:       loop,
		updater:    updater,
		delay:      DefaultDelay,
		fsw:        fsw,
		docs:       make(map[string]*document.NamedDocument),
		dirs:       make(map[string]int),
		debouncers: make(map[string]func(func())),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	go w.run()
	return w, nil
}

// Close stops watching. Reloads already posted to the loop still run
// but do nothing.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	clear(w.docs)
	return err
}

// Watch starts reloading doc when its file changes. Only local
// documents can be watched.
func (w *Watcher) Watch(doc *document.NamedDocument) error {
	if !doc.HostName().IsLocal() {
		return errors.Newf("cannot watch %s: not a local file", doc.DocumentName())
	}
	fname := filepath.Clean(doc.Filename())
	if _, ok := w.docs[fname]; ok {
		return nil
	}

	dir := filepath.Dir(fname)
	if w.dirs[dir] == 0 {
		if err := w.fsw.Add(dir); err != nil {
			return errors.Wrapf(err, "failed to watch %s", dir)
		}
	}
	w.dirs[dir]++
	w.docs[fname] = doc
	logger.Debug("Watching", fname)
	return nil
}

// Unwatch stops reloading doc.
func (w *Watcher) Unwatch(doc *document.NamedDocument) {
	fname := filepath.Clean(doc.Filename())
	if _, ok := w.docs[fname]; !ok {
		return
	}
	delete(w.docs, fname)

	dir := filepath.Dir(fname)
	w.dirs[dir]--
	if w.dirs[dir] == 0 {
		delete(w.dirs, dir)
		if err := w.fsw.Remove(dir); err != nil {
			logger.Debug("Removing watch on", dir+":", err)
		}
	}
}

// IsWatching reports whether doc is watched.
func (w *Watcher) IsWatching(doc types.Document) bool {
	_, ok := w.docs[filepath.Clean(doc.Filename())]
	return ok
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.schedule(filepath.Clean(event.Name))

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("File watcher error:", err)
		}
	}
}

func (w *Watcher) schedule(fname string) {
	d, ok := w.debouncers[fname]
	if !ok {
		d = debounce.New(w.delay)
		w.debouncers[fname] = d
	}
	d(func() {
		w.loop.Post(func() { w.reload(fname) })
	})
}

// reload runs on the loop.
func (w *Watcher) reload(fname string) {
	doc := w.docs[fname]
	if doc == nil {
		return
	}

	err := w.reloadDocument(doc)
	if err != nil {
		logger.Warn("Reloading", fname+":", err)
	}
	if w.onReload != nil {
		w.onReload(doc, err)
	}
}

func (w *Watcher) reloadDocument(doc *document.NamedDocument) error {
	data, err := os.ReadFile(doc.Filename())
	if err != nil {
		return errors.Wrapf(err, "failed to read %q", doc.Filename())
	}
	text := string(data)
	if text == doc.WholeFileString() {
		return nil
	}

	doc.SetText(text)
	logger.Debug("Reloaded", doc.DocumentName(), "at version", doc.VersionNumber())

	if !w.updater.FileIsOpen(doc) {
		return nil
	}
	return w.updater.UpdateFile(doc)
}

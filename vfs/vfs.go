// Package vfs gives access to files on the hosts the editor can reach.
package vfs

import (
	"context"
	"os"
	"sync"

	"github.com/cockroachdb/errors"

	"rockerboo/lsp-client-manager/logger"
	"rockerboo/lsp-client-manager/security"
	"rockerboo/lsp-client-manager/types"
)

// Connections reads whole files. Implementations must be safe for
// concurrent use and should give up when ctx is done.
type Connections interface {
	ReadFile(ctx context.Context, host types.HostName, path string) ([]byte, error)
}

// Local reads files on the local host.
type Local struct{}

func NewLocal() *Local {
	return &Local{}
}

func (l *Local) ReadFile(ctx context.Context, host types.HostName, path string) ([]byte, error) {
	if !host.IsLocal() {
		return nil, errors.Newf("host %s is not available", host)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !security.IsValidLSPPath(path) {
		return nil, errors.Newf("invalid path %q", path)
	}

	logger.Trace("vfs: reading", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %q", path)
	}
	return data, nil
}

// Memory serves files from a map, for tests.
type Memory struct {
	mu    sync.Mutex
	files map[types.DocumentName][]byte
	reads int

	// When set, reads block until it is closed or ctx is done.
	Gate chan struct{}
}

func NewMemory() *Memory {
	return &Memory{files: make(map[types.DocumentName][]byte)}
}

func (m *Memory) SetFile(host types.HostName, path, contents string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[types.DocumentName{Host: host, Filename: path}] = []byte(contents)
}

// Reads returns the number of ReadFile calls so far.
func (m *Memory) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func (m *Memory) ReadFile(ctx context.Context, host types.HostName, path string) ([]byte, error) {
	m.mu.Lock()
	m.reads++
	gate := m.Gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[types.DocumentName{Host: host, Filename: path}]
	if !ok {
		return nil, errors.Newf("%s: file not found", types.DocumentName{Host: host, Filename: path})
	}
	return append([]byte(nil), data...), nil
}

package vfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rockerboo/lsp-client-manager/types"
)

func TestLocalReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.cc")
	require.NoError(t, os.WriteFile(path, []byte("int x;\n"), 0o600))

	data, err := NewLocal().ReadFile(context.Background(), types.LocalHost(), path)
	require.NoError(t, err)
	assert.Equal(t, "int x;\n", string(data))
}

func TestLocalReadFileErrors(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	_, err := l.ReadFile(ctx, types.SSHHost("box"), "/a.cc")
	assert.EqualError(t, err, "host ssh:box is not available")

	_, err = l.ReadFile(ctx, types.LocalHost(), "relative.cc")
	assert.Error(t, err)

	_, err = l.ReadFile(ctx, types.LocalHost(), filepath.Join(t.TempDir(), "missing.cc"))
	assert.Error(t, err)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = l.ReadFile(canceled, types.LocalHost(), "/a.cc")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	m.SetFile(types.LocalHost(), "/a.cc", "one\n")

	data, err := m.ReadFile(context.Background(), types.LocalHost(), "/a.cc")
	require.NoError(t, err)
	assert.Equal(t, "one\n", string(data))

	_, err = m.ReadFile(context.Background(), types.LocalHost(), "/b.cc")
	assert.Error(t, err)
	assert.Equal(t, 2, m.Reads())
}

func TestMemoryGate(t *testing.T) {
	m := NewMemory()
	m.SetFile(types.LocalHost(), "/a.cc", "one\n")
	m.Gate = make(chan struct{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := m.ReadFile(ctx, types.LocalHost(), "/a.cc")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(m.Gate)
	data, err := m.ReadFile(context.Background(), types.LocalHost(), "/a.cc")
	require.NoError(t, err)
	assert.Equal(t, "one\n", string(data))
}

package lsp

import (
	"io"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/sourcegraph/jsonrpc2"
)

// recordingStream remembers the first read error, which jsonrpc2 does
// not report once it has closed the connection.
type recordingStream struct {
	jsonrpc2.ObjectStream

	mu      sync.Mutex
	readErr error
}

func newRecordingStream(rwc io.ReadWriteCloser) *recordingStream {
	return &recordingStream{
		ObjectStream: jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{}),
	}
}

func (s *recordingStream) ReadObject(v any) error {
	err := s.ObjectStream.ReadObject(v)
	if err != nil {
		s.mu.Lock()
		if s.readErr == nil {
			s.readErr = err
		}
		s.mu.Unlock()
	}
	return err
}

func (s *recordingStream) ReadError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readErr
}

// isDisconnect reports whether a read error means the server went away,
// as opposed to sending something that is not a JSON-RPC message.
func isDisconnect(err error) bool {
	return err == nil ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, os.ErrClosed)
}

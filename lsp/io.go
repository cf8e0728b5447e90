package lsp

import (
	"io"

	"go.uber.org/multierr"
)

// stdioReadWriteCloser joins a server's stdin and stdout into the
// stream the JSON-RPC codec reads and writes.
type stdioReadWriteCloser struct {
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

func (rwc *stdioReadWriteCloser) Read(p []byte) (n int, err error) {
	return rwc.stdout.Read(p)
}

func (rwc *stdioReadWriteCloser) Write(p []byte) (n int, err error) {
	return rwc.stdin.Write(p)
}

func (rwc *stdioReadWriteCloser) Close() error {
	return multierr.Append(rwc.stdin.Close(), rwc.stdout.Close())
}

// NewStdioStream returns a ReadWriteCloser that writes to stdin and
// reads from stdout. Closing it closes both.
func NewStdioStream(stdin io.WriteCloser, stdout io.ReadCloser) io.ReadWriteCloser {
	return &stdioReadWriteCloser{stdin: stdin, stdout: stdout}
}

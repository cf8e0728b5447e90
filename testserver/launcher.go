package testserver

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"go.uber.org/multierr"

	"rockerboo/lsp-client-manager/lsp"
)

var errKilled = errors.New("server killed")

// Launcher runs the server in-process, connected to the client through
// pipes. It records every launch request.
type Launcher struct {
	// When set, Launch fails with this error.
	Err error

	mu       sync.Mutex
	requests []lsp.LaunchRequest
	procs    []*Process
	nextPID  int
}

func NewLauncher() *Launcher {
	return &Launcher{nextPID: 1000}
}

func (l *Launcher) Launch(req lsp.LaunchRequest) (lsp.ServerProcess, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.requests = append(l.requests, req)
	if l.Err != nil {
		return nil, l.Err
	}

	l.nextPID++
	p := start(l.nextPID)
	l.procs = append(l.procs, p)
	return p, nil
}

// Requests returns the launch requests seen so far.
func (l *Launcher) Requests() []lsp.LaunchRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]lsp.LaunchRequest(nil), l.requests...)
}

// Processes returns the processes started so far, oldest first.
func (l *Launcher) Processes() []*Process {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Process(nil), l.procs...)
}

// Process is a server goroutine presented as a server process.
type Process struct {
	pid int

	// Client side.
	fromServer *io.PipeReader
	toServer   *io.PipeWriter
	stderr     *io.PipeReader

	// Server side.
	serverIn  *io.PipeReader
	serverOut *io.PipeWriter
	stderrW   *io.PipeWriter

	// Set by CloseOutput: the server no longer notices its input closing.
	hung atomic.Bool

	exited   atomic.Bool
	exitCode atomic.Int32
	done     chan struct{}
}

func start(pid int) *Process {
	p := &Process{pid: pid, done: make(chan struct{})}
	p.fromServer, p.serverOut = io.Pipe()
	p.serverIn, p.toServer = io.Pipe()
	p.stderr, p.stderrW = io.Pipe()

	go func() {
		code := Serve(context.Background(), lsp.NewStdioStream(p.serverOut, p.serverIn), p.stderrW)
		p.exitCode.Store(int32(code))
		_ = multierr.Append(p.serverOut.Close(), p.stderrW.Close())
		p.exited.Store(true)
		close(p.done)
	}()
	return p
}

func (p *Process) Read(b []byte) (int, error)  { return p.fromServer.Read(b) }
func (p *Process) Write(b []byte) (int, error) { return p.toServer.Write(b) }

func (p *Process) Close() error {
	err := multierr.Append(p.fromServer.Close(), p.stderr.Close())
	if !p.hung.Load() {
		err = multierr.Append(err, p.toServer.Close())
	}
	return err
}

func (p *Process) Stderr() io.Reader     { return p.stderr }
func (p *Process) PID() int              { return p.pid }
func (p *Process) Done() <-chan struct{} { return p.done }
func (p *Process) Exited() bool          { return p.exited.Load() }

// Kill makes the server's next read fail, ending it.
func (p *Process) Kill() error {
	return multierr.Append(p.serverIn.CloseWithError(errKilled), p.serverOut.Close())
}

// ExitCode is the server's exit status once Done is closed.
func (p *Process) ExitCode() int {
	return int(p.exitCode.Load())
}

// CloseOutput closes the server's stdout and leaves it running until
// killed, as a server that lost its connection would.
func (p *Process) CloseOutput() error {
	p.hung.Store(true)
	return p.serverOut.Close()
}

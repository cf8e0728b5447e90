package lsp

import (
	"io"
	"os"
	"os/exec"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"go.uber.org/multierr"

	"rockerboo/lsp-client-manager/logger"
)

// ServerProcess is a running language server. Reads and writes go to
// its stdout and stdin.
type ServerProcess interface {
	io.ReadWriteCloser

	// Stderr is the server's standard error, or nil if it has none.
	Stderr() io.Reader

	PID() int
	Kill() error

	// Done is closed once the process has terminated.
	Done() <-chan struct{}

	// Exited reports termination as soon as it is known, possibly
	// before Done is closed.
	Exited() bool
}

// LaunchRequest describes the server a connection needs.
type LaunchRequest struct {
	LanguageID    string
	WorkingDir    string
	UseRealServer bool
}

// Launcher starts server processes.
type Launcher interface {
	Launch(req LaunchRequest) (ServerProcess, error)
}

// CommandLauncher runs servers as child processes according to a
// ServerConfig.
type CommandLauncher struct {
	Config *ServerConfig
}

func NewCommandLauncher(config *ServerConfig) *CommandLauncher {
	return &CommandLauncher{Config: config}
}

func (l *CommandLauncher) Launch(req LaunchRequest) (ServerProcess, error) {
	command, args, err := l.Config.CommandFor(req.LanguageID, req.UseRealServer)
	if err != nil {
		return nil, err
	}

	logger.Info("Starting LSP server:", command, args)

	cmd := exec.Command(command, args...)
	cmd.Dir = req.WorkingDir
	setProcAttributes(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create stdin pipe")
	}

	// Wait must not close the read ends while the connection is still
	// draining them, so these are not StdoutPipe/StderrPipe.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		_ = stdin.Close()
		return nil, errors.Wrap(err, "failed to create stdout pipe")
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		_ = multierr.Combine(stdin.Close(), stdoutR.Close(), stdoutW.Close())
		return nil, errors.Wrap(err, "failed to create stderr pipe")
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		_ = multierr.Combine(stdin.Close(), stdoutR.Close(), stdoutW.Close(), stderrR.Close(), stderrW.Close())
		return nil, errors.Wrapf(err, "failed to start %q", command)
	}
	_ = multierr.Append(stdoutW.Close(), stderrW.Close())

	p := &commandProcess{
		cmd:    cmd,
		stdio:  &stdioReadWriteCloser{stdin: stdin, stdout: stdoutR},
		stderr: stderrR,
		done:   make(chan struct{}),
	}
	go p.wait()

	logger.Info("Started LSP server, pid", cmd.Process.Pid)
	return p, nil
}

type commandProcess struct {
	cmd    *exec.Cmd
	stdio  *stdioReadWriteCloser
	stderr *os.File
	exited atomic.Bool
	done   chan struct{}
}

func (p *commandProcess) wait() {
	err := p.cmd.Wait()
	p.exited.Store(true)
	if err != nil {
		logger.Info("LSP server process", p.PID(), "exited:", err)
	} else {
		logger.Info("LSP server process", p.PID(), "exited")
	}
	close(p.done)
}

func (p *commandProcess) Read(b []byte) (int, error)  { return p.stdio.Read(b) }
func (p *commandProcess) Write(b []byte) (int, error) { return p.stdio.Write(b) }

func (p *commandProcess) Close() error {
	var err error
	for _, e := range multierr.Errors(multierr.Append(p.stdio.Close(), p.stderr.Close())) {
		if !errors.Is(e, os.ErrClosed) {
			err = multierr.Append(err, e)
		}
	}
	return err
}

func (p *commandProcess) Stderr() io.Reader     { return p.stderr }
func (p *commandProcess) PID() int              { return p.cmd.Process.Pid }
func (p *commandProcess) Done() <-chan struct{} { return p.done }
func (p *commandProcess) Exited() bool          { return p.exited.Load() }

func (p *commandProcess) Kill() error {
	err := p.cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

//go:build !windows

package lsp

import (
	"os/exec"
	"syscall"
)

// setProcAttributes puts the server in its own process group so that
// terminal signals meant for the editor do not reach it.
func setProcAttributes(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    0,
	}
}

//go:build windows

package lsp

import (
	"os/exec"
	"syscall"
)

// setProcAttributes puts the server in its own process group so that
// console control events meant for the editor do not reach it.
func setProcAttributes(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// applySysAttrs puts the worker in its own process group so it is not torn
// down with castctl's controlling terminal.
func applySysAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

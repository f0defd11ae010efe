//go:build !windows

package process

import "syscall"

// Signals delivered to the worker. The worker interprets SIGUSR1 as
// "restart in place"; castctl only delivers it.
const (
	sigStop   = syscall.SIGTERM
	sigReload = syscall.SIGUSR1
)

// Stop asks the worker to terminate gracefully.
func Stop(pid int) error { return syscall.Kill(pid, sigStop) }

// Reload asks the worker to restart in place.
func Reload(pid int) error { return syscall.Kill(pid, sigReload) }

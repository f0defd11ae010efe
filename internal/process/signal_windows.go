//go:build windows

package process

import (
	"errors"
	"syscall"
)

var (
	kernel32             = syscall.NewLazyDLL("kernel32.dll")
	procOpenProcess      = kernel32.NewProc("OpenProcess")
	procTerminateProcess = kernel32.NewProc("TerminateProcess")
	procCloseHandle      = kernel32.NewProc("CloseHandle")
)

const processTerminate = 0x0001

// Stop terminates the worker. Windows has no graceful termination signal;
// TerminateProcess is the closest equivalent.
func Stop(pid int) error {
	if pid <= 0 {
		return errors.New("invalid pid")
	}
	handle, _, err := procOpenProcess.Call(uintptr(processTerminate), 0, uintptr(uint32(pid)))
	if handle == 0 {
		return err
	}
	defer func() { _, _, _ = procCloseHandle.Call(handle) }()
	ret, _, err := procTerminateProcess.Call(handle, uintptr(1))
	if ret == 0 {
		return err
	}
	return nil
}

// Reload is not supported on Windows; there is no user signal to deliver.
func Reload(pid int) error {
	return errors.New("reload is not supported on windows")
}

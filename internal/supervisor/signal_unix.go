//go:build !windows

package supervisor

import (
	"errors"
	"syscall"
)

// terminateProcess sends SIGTERM to the process group led by pid, falling
// back to the single process when no group exists.
func terminateProcess(pid int) error {
	if err := syscall.Kill(-pid, syscall.SIGTERM); err == nil || errors.Is(err, syscall.EPERM) {
		return err
	}
	return syscall.Kill(pid, syscall.SIGTERM)
}

// killProcess sends SIGKILL to the process group led by pid, falling back to
// the single process. ESRCH (already gone) is not an error.
func killProcess(pid int) error {
	err := syscall.Kill(-pid, syscall.SIGKILL)
	if err != nil && !errors.Is(err, syscall.EPERM) {
		err = syscall.Kill(pid, syscall.SIGKILL)
	}
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}

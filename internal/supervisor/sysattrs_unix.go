//go:build !windows

package supervisor

import "syscall"

// Launched services lead their own process group so Stop can signal the
// whole tree.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

//go:build windows

package supervisor

import "os"

// No process groups or signals on Windows; both paths use Process.Kill.

func terminateProcess(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	return p.Kill()
}

func killProcess(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	return p.Kill()
}

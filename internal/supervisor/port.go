package supervisor

import (
	"fmt"
	"time"

	gnet "github.com/shirou/gopsutil/v4/net"
	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// PortOwner returns the PID of the process listening on the given TCP port,
// or 0 when the port is free. Ports bound by processes we cannot inspect may
// be reported as pid 0 with the port still occupied.
func PortOwner(port int) (int, error) {
	conns, err := gnet.Connections("tcp")
	if err != nil {
		return 0, err
	}
	for _, c := range conns {
		if c.Status == "LISTEN" && int(c.Laddr.Port) == port {
			return int(c.Pid), nil
		}
	}
	return 0, nil
}

// FreePort forcibly kills whatever process is listening on port and waits up
// to wait for the OS to release it. Last-writer-wins: this is inherently racy
// against other actors and release is not verified beyond the wait window.
// It returns the killed PID (0 when the port was already free). A kill that
// the OS refuses (e.g. insufficient permission) is returned as an error.
func FreePort(port int, wait time.Duration) (int, error) {
	pid, err := PortOwner(port)
	if err != nil {
		return 0, fmt.Errorf("query port %d: %w", port, err)
	}
	if pid <= 0 {
		return 0, nil
	}
	if err := killProcess(pid); err != nil {
		return 0, fmt.Errorf("kill pid %d on port %d: %w", pid, port, err)
	}
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		owner, err := PortOwner(port)
		if err != nil || owner == 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	return pid, nil
}

// ProcessAlive reports whether pid refers to a live process.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	ok, err := gopsproc.PidExists(int32(pid))
	return err == nil && ok
}

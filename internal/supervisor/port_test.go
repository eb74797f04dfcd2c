package supervisor

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"testing"
	"time"
)

func TestPortOwnerFreePort(t *testing.T) {
	// Grab a port, release it, then ask who owns it.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()
	if !waitUntil(time.Second, 20*time.Millisecond, func() bool {
		pid, err := PortOwner(port)
		return err == nil && pid == 0
	}) {
		t.Fatalf("released port still reports an owner")
	}
}

func TestPortOwnerFindsListener(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer func() { _ = l.Close() }()
	port := l.Addr().(*net.TCPAddr).Port
	pid, err := PortOwner(port)
	if err != nil {
		t.Skipf("connection table unavailable: %v", err)
	}
	if pid != os.Getpid() {
		t.Fatalf("expected own pid %d as port owner, got %d", os.Getpid(), pid)
	}
}

func TestFreePortOnFreePortIsNoop(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()
	time.Sleep(50 * time.Millisecond)
	killed, err := FreePort(port, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("FreePort on free port: %v", err)
	}
	if killed != 0 {
		t.Fatalf("nothing should have been killed, got pid %d", killed)
	}
}

func TestFreePortKillsOccupant(t *testing.T) {
	requireUnix(t)
	port := 36830
	cmd := exec.Command(os.Args[0], "-test.run=TestHelperProcess")
	cmd.Env = append(os.Environ(), "STACKUP_HELPER=listen", fmt.Sprintf("STACKUP_HELPER_PORT=%d", port))
	if err := cmd.Start(); err != nil {
		t.Fatalf("start occupant: %v", err)
	}
	reaped := make(chan struct{})
	go func() { _ = cmd.Wait(); close(reaped) }()
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		<-reaped
	})

	if !waitUntil(3*time.Second, 50*time.Millisecond, func() bool {
		pid, err := PortOwner(port)
		return err == nil && pid == cmd.Process.Pid
	}) {
		t.Skipf("occupant never visible in connection table")
	}

	killed, err := FreePort(port, 2*time.Second)
	if err != nil {
		t.Fatalf("FreePort: %v", err)
	}
	if killed != cmd.Process.Pid {
		t.Fatalf("killed pid %d, want occupant %d", killed, cmd.Process.Pid)
	}
	select {
	case <-reaped:
	case <-time.After(3 * time.Second):
		t.Fatalf("occupant still running after FreePort")
	}
	if !waitUntil(2*time.Second, 50*time.Millisecond, func() bool {
		pid, err := PortOwner(port)
		return err == nil && pid == 0
	}) {
		t.Fatalf("port still occupied after FreePort")
	}
}

func TestProcessAlive(t *testing.T) {
	if !ProcessAlive(os.Getpid()) {
		t.Fatalf("own pid reported dead")
	}
	if ProcessAlive(0) || ProcessAlive(-1) {
		t.Fatalf("invalid pids reported alive")
	}
}

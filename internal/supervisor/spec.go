package supervisor

import (
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Default timing applied when a spec leaves the fields zero.
const (
	DefaultGracePeriod  = 2 * time.Second
	DefaultProbeTimeout = 3 * time.Second
	DefaultStopWait     = 3 * time.Second
	DefaultPortWait     = 1 * time.Second
)

// Spec describes one supervised service. Specs are immutable once handed to
// the Supervisor; ordering of the spec list is the start order.
type Spec struct {
	Name         string        `json:"name" toml:"name" mapstructure:"name"`
	WorkDir      string        `json:"workdir" toml:"workdir" mapstructure:"workdir"`
	Command      string        `json:"command" toml:"command" mapstructure:"command"`
	Port         int           `json:"port" toml:"port" mapstructure:"port"`
	HealthPath   string        `json:"health_path" toml:"health_path" mapstructure:"health_path"`
	Env          []string      `json:"env" toml:"env" mapstructure:"env"`
	GracePeriod  time.Duration `json:"grace_period" toml:"grace_period" mapstructure:"grace_period"`
	ProbeTimeout time.Duration `json:"probe_timeout" toml:"probe_timeout" mapstructure:"probe_timeout"`
}

// Validate reports a configuration fault for a spec the Supervisor cannot act on.
func (s *Spec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("service name is required")
	}
	if strings.ContainsAny(s.Name, "/\\ ") || strings.Contains(s.Name, "..") {
		return fmt.Errorf("service %q: name must not contain spaces or path separators", s.Name)
	}
	if strings.TrimSpace(s.Command) == "" {
		return fmt.Errorf("service %q: command is required", s.Name)
	}
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("service %q: port %d out of range 1-65535", s.Name, s.Port)
	}
	if s.HealthPath != "" && !strings.HasPrefix(s.HealthPath, "/") {
		return fmt.Errorf("service %q: health_path must start with '/'", s.Name)
	}
	return nil
}

// BuildCommand constructs the *exec.Cmd for s.Command. Commands containing
// shell metacharacters run under /bin/sh -c; plain commands are split on
// whitespace and executed directly.
func (s *Spec) BuildCommand() *exec.Cmd {
	cmdStr := strings.TrimSpace(s.Command)
	if strings.ContainsAny(cmdStr, "|&;<>*?`$\"'(){}[]~") {
		// #nosec G204
		return exec.Command("/bin/sh", "-c", cmdStr)
	}
	parts := strings.Fields(cmdStr)
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	// #nosec G204
	return exec.Command(parts[0], args...)
}

// HealthURL returns the probe target, or "" when no health path is configured.
func (s *Spec) HealthURL() string {
	if s.HealthPath == "" {
		return ""
	}
	return fmt.Sprintf("http://127.0.0.1:%d%s", s.Port, s.HealthPath)
}

func (s *Spec) gracePeriod() time.Duration {
	if s.GracePeriod > 0 {
		return s.GracePeriod
	}
	return DefaultGracePeriod
}

func (s *Spec) probeTimeout() time.Duration {
	if s.ProbeTimeout > 0 {
		return s.ProbeTimeout
	}
	return DefaultProbeTimeout
}

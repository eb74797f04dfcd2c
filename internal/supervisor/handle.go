package supervisor

import "time"

// State is the last known liveness state of a service.
type State string

const (
	StateStarting     State = "starting"
	StateRunning      State = "running"
	StateUnresponsive State = "unresponsive"
	StateStopped      State = "stopped"
)

// Handle is the runtime record for one started service. Handles are owned by
// the Supervisor; at most one live PID is recorded per service name.
type Handle struct {
	Spec    Spec
	PID     int
	LogPath string
	PIDPath string
	State   State
}

// OutcomeKind classifies the result of one StartOne attempt.
type OutcomeKind string

const (
	OutcomeStarted OutcomeKind = "started"
	OutcomeSkipped OutcomeKind = "skipped"
	OutcomeFailed  OutcomeKind = "failed"
)

// Outcome is the per-service result of a start pass. StartAll returns exactly
// one Outcome per input spec, in input order.
type Outcome struct {
	Name   string      `json:"name"`
	Kind   OutcomeKind `json:"kind"`
	Reason string      `json:"reason,omitempty"`
	State  State       `json:"state,omitempty"`
	PID    int         `json:"pid,omitempty"`
}

// Status is the externally visible view of one service.
type Status struct {
	Name      string    `json:"name"`
	State     State     `json:"state"`
	PID       int       `json:"pid,omitempty"`
	Port      int       `json:"port"`
	LogPath   string    `json:"log_path,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

package store

import (
	"context"
	"time"
)

// DefaultRetention bounds the event history when no retention is configured;
// events older than this are purged when the store is opened.
const DefaultRetention = 30 * 24 * time.Hour

// Event kinds recorded by the supervisor. One row is written for every side
// effect (kill, launch, probe result) so an operator can reconstruct
// sequencing after the fact.
const (
	EventStart    = "start"
	EventStop     = "stop"
	EventPortKill = "port_kill"
	EventProbe    = "probe"
	EventSkip     = "skip"
	EventFail     = "fail"
)

// Event is one supervisor action against one service.
type Event struct {
	ID     int64     `json:"id"`
	Name   string    `json:"name"`
	Kind   string    `json:"kind"`
	PID    int       `json:"pid,omitempty"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// StateRecord is the last known liveness state of a service, persisted so
// later supervisor invocations can answer status queries without re-probing.
type StateRecord struct {
	Name      string    `json:"name"`
	State     string    `json:"state"`
	PID       int       `json:"pid"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists supervisor state and event history.
type Store interface {
	EnsureSchema(ctx context.Context) error
	RecordEvent(ctx context.Context, ev Event) error
	SetState(ctx context.Context, name, state string, pid int) error
	GetState(ctx context.Context, name string) (StateRecord, error)
	EventsByName(ctx context.Context, name string, limit int) ([]Event, error)
	PurgeOlderThan(ctx context.Context, olderThan time.Time) (int64, error)
	Close() error
}

// Package stackup supervises a fixed list of named, port-bound local
// services: it frees each service's port, launches the service detached with
// a combined log file and a pid file, and probes an HTTP health endpoint
// after a grace period. There is no automatic restart loop; restarting is an
// explicit operator action.
package stackup

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/minkj/stackup/internal/config"
	"github.com/minkj/stackup/internal/logger"
	"github.com/minkj/stackup/internal/metrics"
	"github.com/minkj/stackup/internal/server"
	"github.com/minkj/stackup/internal/store"
	"github.com/minkj/stackup/internal/supervisor"
)

// Re-export core types for external consumers. These are aliases so
// conversions are zero-cost.

type Spec = supervisor.Spec

type Status = supervisor.Status

type Outcome = supervisor.Outcome

type State = supervisor.State

type Event = store.Event

type Config = cfg.Config

const (
	StateStarting     = supervisor.StateStarting
	StateRunning      = supervisor.StateRunning
	StateUnresponsive = supervisor.StateUnresponsive
	StateStopped      = supervisor.StateStopped

	OutcomeStarted = supervisor.OutcomeStarted
	OutcomeSkipped = supervisor.OutcomeSkipped
	OutcomeFailed  = supervisor.OutcomeFailed
)

// Options configures a Supervisor instance.
type Options struct {
	PIDDir         string
	LogDir         string
	Logger         *slog.Logger
	StorePath      string        // optional sqlite event store
	StoreRetention time.Duration // event history retention; defaults to store.DefaultRetention
}

// Supervisor is a thin facade over internal/supervisor.Supervisor.
type Supervisor struct {
	inner *supervisor.Supervisor
	st    store.Store
}

// New constructs a Supervisor. When StorePath is set, the sqlite event store
// is opened, its schema ensured, and event history older than the retention
// window purged.
func New(opts Options) (*Supervisor, error) {
	var st store.Store
	if opts.StorePath != "" {
		db, err := store.Open(opts.StorePath)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(context.Background()); err != nil {
			_ = db.Close()
			return nil, err
		}
		retention := opts.StoreRetention
		if retention <= 0 {
			retention = store.DefaultRetention
		}
		if _, err := db.PurgeOlderThan(context.Background(), time.Now().Add(-retention)); err != nil && opts.Logger != nil {
			opts.Logger.Warn("failed to purge old events", "error", err)
		}
		st = db
	}
	inner := supervisor.New(supervisor.Options{
		PIDDir: opts.PIDDir,
		Log:    logger.FileConfig{Dir: opts.LogDir},
		Logger: opts.Logger,
		Store:  st,
	})
	return &Supervisor{inner: inner, st: st}, nil
}

func (s *Supervisor) StartAll(ctx context.Context, specs []Spec) []Outcome {
	return s.inner.StartAll(ctx, specs)
}

func (s *Supervisor) StartOne(ctx context.Context, sp Spec) Outcome {
	return s.inner.StartOne(ctx, sp)
}

func (s *Supervisor) Stop(ctx context.Context, sp Spec, wait time.Duration) error {
	return s.inner.Stop(ctx, sp, wait)
}

func (s *Supervisor) StopAll(ctx context.Context, specs []Spec, wait time.Duration) {
	s.inner.StopAll(ctx, specs, wait)
}

func (s *Supervisor) Status(ctx context.Context, sp Spec) Status { return s.inner.Status(ctx, sp) }

func (s *Supervisor) Check(ctx context.Context, sp Spec) Status { return s.inner.Check(ctx, sp) }

func (s *Supervisor) History(ctx context.Context, name string, limit int) ([]Event, error) {
	return s.inner.History(ctx, name, limit)
}

// Close releases the event store, if any.
func (s *Supervisor) Close() error {
	if s.st != nil {
		return s.st.Close()
	}
	return nil
}

// LoadConfig reads and validates a TOML config file.
func LoadConfig(path string) (*Config, error) { return cfg.Load(path) }

// NewLogger returns the CLI logger at the given level.
func NewLogger(level string) *slog.Logger { return logger.New(level) }

// NewHTTPServer starts the control API server for the given supervisor and
// spec list.
func NewHTTPServer(addr, basePath string, s *Supervisor, specs []Spec, stopWait time.Duration) *http.Server {
	r := server.NewRouter(s.inner, specs, stopWait, basePath)
	return server.NewServer(addr, r)
}

// Metrics helpers (public facade).

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }

func RegisterMetricsDefault() error { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics serves Prometheus metrics on addr until the server errors.
func ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	return srv.ListenAndServe()
}

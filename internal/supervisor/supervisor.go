package supervisor

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/minkj/stackup/internal/logger"
	"github.com/minkj/stackup/internal/metrics"
	"github.com/minkj/stackup/internal/store"
)

// Options configures a Supervisor. Store is optional; when nil, state and
// event history are kept in memory only for the lifetime of the process.
type Options struct {
	PIDDir   string
	Log      logger.FileConfig
	Logger   *slog.Logger
	Store    store.Store
	PortWait time.Duration
}

// Supervisor owns the configured services' runtime handles. All handles are
// mutated only here; at most one live PID is recorded per service name.
// Starts are sequential in spec order.
type Supervisor struct {
	mu       sync.Mutex
	pidDir   string
	logCfg   logger.FileConfig
	logger   *slog.Logger
	st       store.Store
	portWait time.Duration
	handles  map[string]*Handle
}

func New(opts Options) *Supervisor {
	lg := opts.Logger
	if lg == nil {
		lg = slog.Default()
	}
	pw := opts.PortWait
	if pw <= 0 {
		pw = DefaultPortWait
	}
	return &Supervisor{
		pidDir:   opts.PIDDir,
		logCfg:   opts.Log,
		logger:   lg,
		st:       opts.Store,
		portWait: pw,
		handles:  make(map[string]*Handle),
	}
}

// PIDPath returns the pid file path for a service name.
func (s *Supervisor) PIDPath(name string) string {
	return filepath.Join(s.pidDir, name+".pid")
}

// StartAll starts every spec in order. A failure in one service never aborts
// the rest; the result holds exactly one outcome per input spec, in order.
func (s *Supervisor) StartAll(ctx context.Context, specs []Spec) []Outcome {
	out := make([]Outcome, 0, len(specs))
	for i := range specs {
		out = append(out, s.StartOne(ctx, specs[i]))
	}
	return out
}

// StartOne runs the full launch sequence for one spec: working directory
// check, forcible port release, detached launch with a combined log file,
// pid file overwrite, then a grace period followed by an optional HTTP probe.
func (s *Supervisor) StartOne(ctx context.Context, sp Spec) Outcome {
	lg := s.logger.With("service", sp.Name, "port", sp.Port)

	if fi, err := os.Stat(sp.WorkDir); err != nil || !fi.IsDir() {
		lg.Warn("skipping: working directory not found", "workdir", sp.WorkDir)
		s.recordEvent(ctx, store.Event{Name: sp.Name, Kind: store.EventSkip, Detail: ReasonDirectoryMissing})
		metrics.IncOutcome(sp.Name, string(OutcomeSkipped))
		return Outcome{Name: sp.Name, Kind: OutcomeSkipped, Reason: ReasonDirectoryMissing}
	}

	killed, err := FreePort(sp.Port, s.portWait)
	if err != nil {
		lg.Error("port release failed", "error", err)
		s.recordEvent(ctx, store.Event{Name: sp.Name, Kind: store.EventFail, Detail: err.Error()})
		metrics.IncOutcome(sp.Name, string(OutcomeFailed))
		return Outcome{Name: sp.Name, Kind: OutcomeFailed, Reason: ReasonPortRelease + ": " + err.Error()}
	}
	if killed > 0 {
		lg.Warn("killed process occupying port", "pid", killed)
		s.recordEvent(ctx, store.Event{Name: sp.Name, Kind: store.EventPortKill, PID: killed})
		metrics.IncPortKill(sp.Name)
	}

	cmd := sp.BuildCommand()
	cmd.Dir = sp.WorkDir
	if len(sp.Env) > 0 {
		cmd.Env = append(os.Environ(), sp.Env...)
	}
	cmd.SysProcAttr = sysProcAttr()
	w, werr := s.logCfg.Writer(sp.Name)
	var null *os.File
	if werr != nil {
		lg.Warn("log writer unavailable, discarding service output", "error", werr)
		null, _ = os.OpenFile(os.DevNull, os.O_RDWR, 0)
		cmd.Stdout = null
		cmd.Stderr = null
	} else {
		cmd.Stdout = w
		cmd.Stderr = w
	}
	closeOutput := func() {
		if w != nil {
			_ = w.Close()
		}
		if null != nil {
			_ = null.Close()
		}
	}

	if err := cmd.Start(); err != nil {
		lg.Error("launch failed", "command", sp.Command, "error", err)
		closeOutput()
		s.recordEvent(ctx, store.Event{Name: sp.Name, Kind: store.EventFail, Detail: err.Error()})
		metrics.IncOutcome(sp.Name, string(OutcomeFailed))
		return Outcome{Name: sp.Name, Kind: OutcomeFailed, Reason: ReasonLaunch + ": " + err.Error()}
	}
	pid := cmd.Process.Pid
	// Reap on exit so a long-lived supervisor does not accumulate zombies.
	go func() {
		_ = cmd.Wait()
		closeOutput()
	}()

	if err := WritePIDFile(s.PIDPath(sp.Name), pid); err != nil {
		lg.Warn("failed to write pid file", "path", s.PIDPath(sp.Name), "error", err)
	}
	lg.Info("launched", "pid", pid, "log", s.logCfg.Path(sp.Name))
	s.recordEvent(ctx, store.Event{Name: sp.Name, Kind: store.EventStart, PID: pid})
	metrics.IncStart(sp.Name)

	h := &Handle{Spec: sp, PID: pid, LogPath: s.logCfg.Path(sp.Name), PIDPath: s.PIDPath(sp.Name), State: StateStarting}
	s.mu.Lock()
	s.handles[sp.Name] = h
	s.mu.Unlock()
	s.setState(ctx, sp.Name, StateStarting, pid)

	state := s.awaitReady(ctx, sp, lg)
	s.mu.Lock()
	h.State = state
	s.mu.Unlock()
	s.setState(ctx, sp.Name, state, pid)
	metrics.IncOutcome(sp.Name, string(OutcomeStarted))
	return Outcome{Name: sp.Name, Kind: OutcomeStarted, State: state, PID: pid}
}

// awaitReady sleeps through the grace period and then probes the health
// endpoint, if any. A service without a health path is considered running
// without any network call. Unresponsive is a reported state, not an error.
func (s *Supervisor) awaitReady(ctx context.Context, sp Spec, lg *slog.Logger) State {
	select {
	case <-time.After(sp.gracePeriod()):
	case <-ctx.Done():
		return StateStarting
	}
	url := sp.HealthURL()
	if url == "" {
		return StateRunning
	}
	if err := Probe(ctx, url, sp.probeTimeout()); err != nil {
		lg.Warn("health probe failed, service may still be initializing", "url", url, "error", err)
		s.recordEvent(ctx, store.Event{Name: sp.Name, Kind: store.EventProbe, Detail: err.Error()})
		metrics.IncProbe(sp.Name, "failed")
		return StateUnresponsive
	}
	lg.Info("health probe ok", "url", url)
	s.recordEvent(ctx, store.Event{Name: sp.Name, Kind: store.EventProbe, Detail: "ok"})
	metrics.IncProbe(sp.Name, "ok")
	return StateRunning
}

// Stop terminates the recorded process for a service: SIGTERM to the process
// group, a bounded wait, then SIGKILL, then pid file removal. Stopping an
// already-stopped (or never-started) service is a no-op.
func (s *Supervisor) Stop(ctx context.Context, sp Spec, wait time.Duration) error {
	if wait <= 0 {
		wait = DefaultStopWait
	}
	lg := s.logger.With("service", sp.Name)
	pidPath := s.PIDPath(sp.Name)
	pid, err := ReadPIDFile(pidPath)
	if err != nil {
		if os.IsNotExist(err) {
			lg.Info("already stopped (no pid file)")
			return nil
		}
		// Unreadable pid file: nothing to signal; clear it so the next start is clean.
		lg.Warn("discarding unreadable pid file", "path", pidPath, "error", err)
		RemovePIDFile(pidPath)
		return nil
	}
	if !ProcessAlive(pid) {
		lg.Info("already stopped (process gone)", "pid", pid)
		s.finishStop(ctx, sp.Name, pidPath)
		return nil
	}

	if err := terminateProcess(pid); err != nil {
		lg.Warn("SIGTERM failed, escalating", "pid", pid, "error", err)
	} else {
		lg.Info("sent SIGTERM", "pid", pid)
	}
	if !waitGone(pid, wait) {
		lg.Warn("escalating to SIGKILL", "pid", pid)
		_ = killProcess(pid)
		waitGone(pid, 500*time.Millisecond)
	}
	s.recordEvent(ctx, store.Event{Name: sp.Name, Kind: store.EventStop, PID: pid})
	metrics.IncStop(sp.Name)
	s.finishStop(ctx, sp.Name, pidPath)
	lg.Info("stopped", "pid", pid)
	return nil
}

// StopAll stops every spec in order. Per-service problems are logged, never
// propagated.
func (s *Supervisor) StopAll(ctx context.Context, specs []Spec, wait time.Duration) {
	for i := range specs {
		if err := s.Stop(ctx, specs[i], wait); err != nil {
			s.logger.Warn("stop failed", "service", specs[i].Name, "error", err)
		}
	}
}

// Status reports the last known state for a service without re-probing HTTP.
// A missing pid file or a dead recorded pid means Stopped, even if the
// process was killed outside supervisor control.
func (s *Supervisor) Status(ctx context.Context, sp Spec) Status {
	st := Status{Name: sp.Name, Port: sp.Port, LogPath: s.logCfg.Path(sp.Name)}
	pid, err := ReadPIDFile(s.PIDPath(sp.Name))
	if err != nil || !ProcessAlive(pid) {
		st.State = StateStopped
		return st
	}
	st.PID = pid
	s.mu.Lock()
	h := s.handles[sp.Name]
	s.mu.Unlock()
	if h != nil && h.PID == pid {
		st.State = h.State
		return st
	}
	if s.st != nil {
		if rec, err := s.st.GetState(ctx, sp.Name); err == nil && rec.PID == pid {
			st.State = State(rec.State)
			st.UpdatedAt = rec.UpdatedAt
			return st
		}
	}
	// Alive pid but no recorded state: a previous supervisor started it.
	st.State = StateRunning
	return st
}

// Check performs an explicit liveness probe right now, independent of the
// grace period. Services without a health path fall back to Status.
func (s *Supervisor) Check(ctx context.Context, sp Spec) Status {
	url := sp.HealthURL()
	if url == "" {
		return s.Status(ctx, sp)
	}
	st := Status{Name: sp.Name, Port: sp.Port, LogPath: s.logCfg.Path(sp.Name)}
	if pid, err := ReadPIDFile(s.PIDPath(sp.Name)); err == nil && ProcessAlive(pid) {
		st.PID = pid
	}
	if err := Probe(ctx, url, sp.probeTimeout()); err != nil {
		s.recordEvent(ctx, store.Event{Name: sp.Name, Kind: store.EventProbe, Detail: err.Error()})
		metrics.IncProbe(sp.Name, "failed")
		if st.PID == 0 {
			st.State = StateStopped
		} else {
			st.State = StateUnresponsive
		}
		return st
	}
	s.recordEvent(ctx, store.Event{Name: sp.Name, Kind: store.EventProbe, Detail: "ok"})
	metrics.IncProbe(sp.Name, "ok")
	st.State = StateRunning
	// Without a recorded pid there is nothing for Status to reconcile the
	// state record against later, so leave the store untouched.
	if st.PID > 0 {
		s.setState(ctx, sp.Name, StateRunning, st.PID)
	}
	return st
}

// History returns recent supervisor events for a service, newest first.
func (s *Supervisor) History(ctx context.Context, name string, limit int) ([]store.Event, error) {
	if s.st == nil {
		return nil, nil
	}
	return s.st.EventsByName(ctx, name, limit)
}

func (s *Supervisor) finishStop(ctx context.Context, name, pidPath string) {
	RemovePIDFile(pidPath)
	s.mu.Lock()
	delete(s.handles, name)
	s.mu.Unlock()
	s.setState(ctx, name, StateStopped, 0)
}

func (s *Supervisor) setState(ctx context.Context, name string, state State, pid int) {
	metrics.SetCurrentState(name, string(state), true)
	for _, other := range []State{StateStarting, StateRunning, StateUnresponsive, StateStopped} {
		if other != state {
			metrics.SetCurrentState(name, string(other), false)
		}
	}
	if s.st != nil {
		if err := s.st.SetState(ctx, name, string(state), pid); err != nil {
			s.logger.Warn("failed to persist state", "service", name, "error", err)
		}
	}
}

func (s *Supervisor) recordEvent(ctx context.Context, ev store.Event) {
	if s.st == nil {
		return
	}
	if err := s.st.RecordEvent(ctx, ev); err != nil {
		s.logger.Warn("failed to record event", "service", ev.Name, "kind", ev.Kind, "error", err)
	}
}

func waitGone(pid int, wait time.Duration) bool {
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		if !ProcessAlive(pid) {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return !ProcessAlive(pid)
}

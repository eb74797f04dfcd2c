package stackup

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/minkj/stackup/internal/store"
)

func newFacade(t *testing.T) *Supervisor {
	t.Helper()
	dir := t.TempDir()
	s, err := New(Options{
		PIDDir:    filepath.Join(dir, "run"),
		LogDir:    filepath.Join(dir, "logs"),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		StorePath: filepath.Join(dir, "stackup.db"),
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLifecycleThroughFacade(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix-only")
	}
	s := newFacade(t)
	sp := Spec{
		Name:        "hub",
		WorkDir:     os.TempDir(),
		Command:     "sleep 100",
		Port:        36861,
		GracePeriod: 20 * time.Millisecond,
	}
	ctx := context.Background()

	o := s.StartOne(ctx, sp)
	if o.Kind != OutcomeStarted || o.State != StateRunning {
		t.Fatalf("start: %+v", o)
	}
	if st := s.Status(ctx, sp); st.State != StateRunning || st.PID != o.PID {
		t.Fatalf("status: %+v", st)
	}
	// Without a health path, check falls back to the pid-based status.
	if st := s.Check(ctx, sp); st.State != StateRunning {
		t.Fatalf("check: %+v", st)
	}

	events, err := s.History(ctx, "hub", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(events) == 0 {
		t.Fatalf("expected a start event in history")
	}

	if err := s.Stop(ctx, sp, 2*time.Second); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if st := s.Status(ctx, sp); st.State != StateStopped {
		t.Fatalf("status after stop: %+v", st)
	}
}

func TestStartAllOutcomesMatchSpecs(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix-only")
	}
	s := newFacade(t)
	specs := []Spec{
		{Name: "a", WorkDir: os.TempDir(), Command: "sleep 100", Port: 36862, GracePeriod: time.Millisecond},
		{Name: "b", WorkDir: "/nonexistent-stackup-facade-test", Command: "sleep 100", Port: 36863, GracePeriod: time.Millisecond},
	}
	ctx := context.Background()
	outcomes := s.StartAll(ctx, specs)
	defer s.StopAll(ctx, specs, time.Second)

	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Kind != OutcomeStarted || outcomes[1].Kind != OutcomeSkipped {
		t.Fatalf("outcomes: %+v", outcomes)
	}
}

func TestNewPurgesEventsPastRetention(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "stackup.db")
	ctx := context.Background()

	// Seed the store with one event inside and one outside the window.
	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("seed open: %v", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("seed schema: %v", err)
	}
	if err := db.RecordEvent(ctx, store.Event{Name: "hub", Kind: store.EventStart, At: time.Now().Add(-72 * time.Hour)}); err != nil {
		t.Fatalf("seed old event: %v", err)
	}
	if err := db.RecordEvent(ctx, store.Event{Name: "hub", Kind: store.EventStop}); err != nil {
		t.Fatalf("seed fresh event: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("seed close: %v", err)
	}

	s, err := New(Options{
		PIDDir:         filepath.Join(dir, "run"),
		LogDir:         filepath.Join(dir, "logs"),
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		StorePath:      dbPath,
		StoreRetention: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = s.Close() }()

	events, err := s.History(ctx, "hub", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(events) != 1 || events[0].Kind != store.EventStop {
		t.Fatalf("expected only the fresh event to survive, got %+v", events)
	}
}

func TestNewWithoutStore(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Options{
		PIDDir: filepath.Join(dir, "run"),
		LogDir: filepath.Join(dir, "logs"),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("new without store: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/minkj/stackup/internal/logger"
	"github.com/minkj/stackup/internal/supervisor"
)

func init() { gin.SetMode(gin.TestMode) }

func testRouter(t *testing.T) *Router {
	t.Helper()
	dir := t.TempDir()
	sup := supervisor.New(supervisor.Options{
		PIDDir: filepath.Join(dir, "run"),
		Log:    logger.FileConfig{Dir: filepath.Join(dir, "logs")},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	specs := []supervisor.Spec{
		{Name: "hub", WorkDir: "/nonexistent-stackup-server-test", Command: "sleep 100", Port: 36851, GracePeriod: time.Millisecond},
		{Name: "worker", WorkDir: "/nonexistent-stackup-server-test", Command: "sleep 100", Port: 36852, GracePeriod: time.Millisecond},
	}
	return NewRouter(sup, specs, time.Second, "")
}

func doRequest(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestStatusAllServices(t *testing.T) {
	h := testRouter(t).Handler()
	w := doRequest(t, h, http.MethodGet, "/status")
	if w.Code != http.StatusOK {
		t.Fatalf("status code %d", w.Code)
	}
	var out []supervisor.Status
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 || out[0].Name != "hub" || out[1].Name != "worker" {
		t.Fatalf("unexpected statuses: %+v", out)
	}
	for _, st := range out {
		if st.State != supervisor.StateStopped {
			t.Fatalf("never-started service must report stopped: %+v", st)
		}
	}
}

func TestStatusSingleAndUnknown(t *testing.T) {
	h := testRouter(t).Handler()
	w := doRequest(t, h, http.MethodGet, "/status?name=hub")
	if w.Code != http.StatusOK {
		t.Fatalf("status code %d", w.Code)
	}
	var st supervisor.Status
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Name != "hub" || st.State != supervisor.StateStopped {
		t.Fatalf("unexpected status: %+v", st)
	}
	if w := doRequest(t, h, http.MethodGet, "/status?name=nope"); w.Code != http.StatusNotFound {
		t.Fatalf("unknown service: code %d", w.Code)
	}
}

func TestStartReportsSkippedForMissingWorkdir(t *testing.T) {
	h := testRouter(t).Handler()
	w := doRequest(t, h, http.MethodPost, "/start?name=hub")
	if w.Code != http.StatusOK {
		t.Fatalf("status code %d", w.Code)
	}
	var outcomes []supervisor.Outcome
	if err := json.Unmarshal(w.Body.Bytes(), &outcomes); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].Kind != supervisor.OutcomeSkipped {
		t.Fatalf("unexpected outcomes: %+v", outcomes)
	}
	if w := doRequest(t, h, http.MethodPost, "/start?name=nope"); w.Code != http.StatusNotFound {
		t.Fatalf("unknown service: code %d", w.Code)
	}
}

func TestStartAllReturnsOneOutcomePerService(t *testing.T) {
	h := testRouter(t).Handler()
	w := doRequest(t, h, http.MethodPost, "/start")
	if w.Code != http.StatusOK {
		t.Fatalf("status code %d", w.Code)
	}
	var outcomes []supervisor.Outcome
	if err := json.Unmarshal(w.Body.Bytes(), &outcomes); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(outcomes) != 2 || outcomes[0].Name != "hub" || outcomes[1].Name != "worker" {
		t.Fatalf("unexpected outcomes: %+v", outcomes)
	}
}

func TestStopNeverStartedIsOK(t *testing.T) {
	h := testRouter(t).Handler()
	w := doRequest(t, h, http.MethodPost, "/stop?name=hub&wait=100ms")
	if w.Code != http.StatusOK {
		t.Fatalf("status code %d: %s", w.Code, w.Body.String())
	}
	if w := doRequest(t, h, http.MethodPost, "/stop"); w.Code != http.StatusOK {
		t.Fatalf("stop all: code %d", w.Code)
	}
	if w := doRequest(t, h, http.MethodPost, "/stop?name=nope"); w.Code != http.StatusNotFound {
		t.Fatalf("unknown service: code %d", w.Code)
	}
}

func TestHistoryRequiresName(t *testing.T) {
	h := testRouter(t).Handler()
	if w := doRequest(t, h, http.MethodGet, "/history"); w.Code != http.StatusBadRequest {
		t.Fatalf("missing name: code %d", w.Code)
	}
	if w := doRequest(t, h, http.MethodGet, "/history?name=nope"); w.Code != http.StatusNotFound {
		t.Fatalf("unknown service: code %d", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	h := testRouter(t).Handler()
	w := doRequest(t, h, http.MethodGet, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("status code %d", w.Code)
	}
}

func TestBasePathMount(t *testing.T) {
	dir := t.TempDir()
	sup := supervisor.New(supervisor.Options{
		PIDDir: filepath.Join(dir, "run"),
		Log:    logger.FileConfig{Dir: filepath.Join(dir, "logs")},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	r := NewRouter(sup, nil, time.Second, "api/")
	h := r.Handler()
	if w := doRequest(t, h, http.MethodGet, "/api/healthz"); w.Code != http.StatusOK {
		t.Fatalf("base path not mounted: code %d", w.Code)
	}
	if w := doRequest(t, h, http.MethodGet, "/healthz"); w.Code == http.StatusOK {
		t.Fatalf("root must not serve when base path set")
	}
}

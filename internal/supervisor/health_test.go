package supervisor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestProbeOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	if err := Probe(context.Background(), srv.URL, time.Second); err != nil {
		t.Fatalf("probe: %v", err)
	}
}

func TestProbeRedirectCountsAsHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 3xx without Location; the client surfaces it as a plain response.
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()
	if err := Probe(context.Background(), srv.URL, time.Second); err != nil {
		t.Fatalf("probe on 3xx: %v", err)
	}
}

func TestProbeRedirectIsNotFollowed(t *testing.T) {
	// The service's own 302 is the health signal; a dead or erroring
	// Location target must not change the verdict.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/away" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Redirect(w, r, "http://127.0.0.1:1/away", http.StatusFound)
	}))
	defer srv.Close()
	if err := Probe(context.Background(), srv.URL, time.Second); err != nil {
		t.Fatalf("probe on 302 to unreachable target: %v", err)
	}

	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/away" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Redirect(w, r, "/away", http.StatusFound)
	}))
	defer srv2.Close()
	if err := Probe(context.Background(), srv2.URL, time.Second); err != nil {
		t.Fatalf("probe on 302 to 404 target: %v", err)
	}
}

func TestProbeErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	if err := Probe(context.Background(), srv.URL, time.Second); err == nil {
		t.Fatalf("expected error for 500 response")
	}
}

func TestProbeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()
	start := time.Now()
	err := Probe(context.Background(), srv.URL, 50*time.Millisecond)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if time.Since(start) > 400*time.Millisecond {
		t.Fatalf("probe did not respect timeout")
	}
}

func TestProbeConnectionRefused(t *testing.T) {
	// Nothing listens here.
	if err := Probe(context.Background(), "http://127.0.0.1:1", 200*time.Millisecond); err == nil {
		t.Fatalf("expected connection error")
	}
}

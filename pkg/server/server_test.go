package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dd0wney/cluso-sarnet/pkg/archive"
	"github.com/dd0wney/cluso-sarnet/pkg/logging"
	"github.com/dd0wney/cluso-sarnet/pkg/metrics"
)

type fakeRuns struct {
	runs []archive.Run
	err  error
}

func (f *fakeRuns) RecentRuns(_ context.Context, _ int) ([]archive.Run, error) {
	return f.runs, f.err
}

func quietLogger() logging.Logger {
	return logging.NewJSONLogger(io.Discard, logging.ErrorLevel)
}

func testServer(t *testing.T, runs RunLister) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	s := New(Options{
		Addr:      ":0",
		FigureDir: dir,
		Registry:  metrics.NewRegistry(),
		Runs:      runs,
		Refresh:   func(context.Context) error { return nil },
		Log:       quietLogger(),
	})
	return s, dir
}

func TestHealthz(t *testing.T) {
	s, _ := testServer(t, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := testServer(t, nil)
	s.opts.Registry.RecordModel(24, 83, 5, true, "")
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "sarnet_pairs_total 83") {
		t.Errorf("Metrics output missing pairs gauge:\n%s", body)
	}
}

func TestFiguresEndpoint(t *testing.T) {
	s, dir := testServer(t, nil)
	if err := os.WriteFile(filepath.Join(dir, "Network.png"), []byte("png bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/figures/Network.png")
	if err != nil {
		t.Fatalf("GET figure failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}
}

func TestRunsEndpoint(t *testing.T) {
	runs := &fakeRuns{runs: []archive.Run{{ID: "abc", Source: "ifgramStack.stk", Pairs: 83}}}
	s, _ := testServer(t, runs)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/runs")
	if err != nil {
		t.Fatalf("GET /runs failed: %v", err)
	}
	defer resp.Body.Close()

	var got []archive.Run
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "abc" || got[0].Pairs != 83 {
		t.Errorf("Runs = %+v", got)
	}
}

func TestRunsEndpointHiddenWithoutLister(t *testing.T) {
	s, _ := testServer(t, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/runs")
	if err != nil {
		t.Fatalf("GET /runs failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", resp.StatusCode)
	}
}

func TestWatcherRefreshesOnChange(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "bl_list.txt")
	if err := os.WriteFile(source, []byte("070101 0.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	w := NewWatcher(source, 10*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// mtime resolution can be coarse, push it forward explicitly
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(source, future, future); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if calls.Load() == 0 {
		t.Error("Watcher never refreshed after source change")
	}
}

func TestGracefulRefresh(t *testing.T) {
	gs := NewGracefulServer(":0", http.NewServeMux(), quietLogger())

	called := false
	gs.SetRefreshFunc(func(context.Context) error {
		called = true
		return nil
	})
	if err := gs.Refresh(); err != nil {
		t.Errorf("Refresh() error = %v", err)
	}
	if !called {
		t.Error("Refresh function was not called")
	}
}

func TestGracefulRefreshWithoutFunc(t *testing.T) {
	gs := NewGracefulServer(":0", http.NewServeMux(), quietLogger())
	if err := gs.Refresh(); err != nil {
		t.Errorf("Refresh() without func should be a no-op, got %v", err)
	}
	if gs.IsShuttingDown() {
		t.Error("Server should not be shutting down")
	}
}

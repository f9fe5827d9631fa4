// Package server provides the watch-and-serve mode: it keeps the rendered
// figures current while exposing them, the run history, and Prometheus
// metrics over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-sarnet/pkg/archive"
	"github.com/dd0wney/cluso-sarnet/pkg/logging"
	"github.com/dd0wney/cluso-sarnet/pkg/metrics"
)

// RunLister yields recorded runs, newest first.
type RunLister interface {
	RecentRuns(ctx context.Context, limit int) ([]archive.Run, error)
}

// Options configures a watch-and-serve instance.
type Options struct {
	Addr          string
	FigureDir     string
	Source        string
	WatchInterval time.Duration
	Registry      *metrics.Registry
	Runs          RunLister
	Refresh       RefreshFunc
	Log           logging.Logger
}

// Server ties the HTTP surface and the source watcher together.
type Server struct {
	opts     Options
	graceful *GracefulServer
	watcher  *Watcher
}

// New assembles the server. Registry, Refresh and Log are required;
// Runs is optional and hides the /runs endpoint when nil.
func New(opts Options) *Server {
	s := &Server{opts: opts}
	s.graceful = NewGracefulServer(opts.Addr, s.Handler(), opts.Log)
	s.graceful.SetRefreshFunc(opts.Refresh)
	if opts.WatchInterval > 0 {
		s.watcher = NewWatcher(opts.Source, opts.WatchInterval, opts.Refresh, opts.Log)
	}
	return s
}

// Handler builds the HTTP mux. Exposed separately for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.HandlerFor(s.opts.Registry.Prometheus(), promhttp.HandlerOpts{}))

	mux.Handle("/figures/", http.StripPrefix("/figures/", http.FileServer(http.Dir(s.opts.FigureDir))))

	if s.opts.Runs != nil {
		mux.HandleFunc("/runs", s.handleRuns)
	}

	return mux
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.opts.Runs.RecentRuns(r.Context(), 50)
	if err != nil {
		s.opts.Log.Error("Failed to list runs", logging.Error(err))
		http.Error(w, "failed to list runs", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(runs); err != nil {
		s.opts.Log.Error("Failed to encode runs", logging.Error(err))
	}
}

// Run performs an initial refresh, starts the watcher, and serves until
// the context is cancelled or a termination signal arrives.
func (s *Server) Run(ctx context.Context) error {
	if err := s.opts.Refresh(ctx); err != nil {
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if s.watcher != nil {
		go s.watcher.Run(watchCtx)
	}

	go func() {
		select {
		case <-ctx.Done():
			s.graceful.Shutdown(30 * time.Second)
		case <-s.graceful.ShutdownChannel():
		}
	}()

	return s.graceful.Start()
}

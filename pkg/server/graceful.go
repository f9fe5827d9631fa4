package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-sarnet/pkg/logging"
)

// RefreshFunc re-resolves the network and re-renders the figures.
type RefreshFunc func(ctx context.Context) error

// GracefulServer wraps an HTTP server with graceful shutdown. SIGHUP
// triggers an immediate refresh instead of waiting for the watcher.
type GracefulServer struct {
	server       *http.Server
	log          logging.Logger
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	refreshFn    RefreshFunc
	refreshMu    sync.RWMutex
}

// NewGracefulServer creates a graceful HTTP server on addr.
func NewGracefulServer(addr string, handler http.Handler, log logging.Logger) *GracefulServer {
	return &GracefulServer{
		server: &http.Server{
			Addr:           addr,
			Handler:        handler,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    120 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
		log:        log,
		shutdownCh: make(chan struct{}),
	}
}

// Start serves until Shutdown is called or a termination signal arrives.
func (gs *GracefulServer) Start() error {
	go gs.handleSignals()

	gs.log.Info("Starting HTTP server", logging.Field{Key: "addr", Value: gs.server.Addr})
	if err := gs.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains connections and stops the server.
func (gs *GracefulServer) Shutdown(timeout time.Duration) error {
	var err error
	gs.shutdownOnce.Do(func() {
		close(gs.shutdownCh)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		gs.log.Info("Initiating graceful shutdown")
		if shutdownErr := gs.server.Shutdown(ctx); shutdownErr != nil {
			err = shutdownErr
			gs.log.Error("Shutdown failed", logging.Error(shutdownErr))
		}
	})
	return err
}

func (gs *GracefulServer) handleSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigCh {
		switch sig {
		case syscall.SIGINT, syscall.SIGTERM:
			gs.log.Info("Received termination signal", logging.Field{Key: "signal", Value: sig.String()})
			if err := gs.Shutdown(30 * time.Second); err != nil {
				os.Exit(1)
			}
			os.Exit(0)

		case syscall.SIGHUP:
			gs.log.Info("Received SIGHUP, refreshing network")
			if err := gs.Refresh(); err != nil {
				gs.log.Error("Refresh failed", logging.Error(err))
			}
		}
	}
}

// IsShuttingDown reports whether shutdown has been initiated.
func (gs *GracefulServer) IsShuttingDown() bool {
	select {
	case <-gs.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownChannel closes when shutdown is initiated.
func (gs *GracefulServer) ShutdownChannel() <-chan struct{} {
	return gs.shutdownCh
}

// SetRefreshFunc installs the function SIGHUP and the watcher call.
func (gs *GracefulServer) SetRefreshFunc(fn RefreshFunc) {
	gs.refreshMu.Lock()
	defer gs.refreshMu.Unlock()
	gs.refreshFn = fn
}

// Refresh runs the installed refresh function, if any.
func (gs *GracefulServer) Refresh() error {
	gs.refreshMu.RLock()
	fn := gs.refreshFn
	gs.refreshMu.RUnlock()

	if fn == nil {
		gs.log.Warn("Refresh requested, but no refresh function configured")
		return nil
	}
	return fn(context.Background())
}

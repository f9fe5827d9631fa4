package server

import (
	"context"
	"os"
	"time"

	"github.com/dd0wney/cluso-sarnet/pkg/logging"
)

// Watcher polls the source file and refreshes when its mtime changes.
type Watcher struct {
	source   string
	interval time.Duration
	refresh  RefreshFunc
	log      logging.Logger
}

// NewWatcher builds a watcher polling source every interval.
func NewWatcher(source string, interval time.Duration, refresh RefreshFunc, log logging.Logger) *Watcher {
	return &Watcher{source: source, interval: interval, refresh: refresh, log: log}
}

// Run blocks until the context is cancelled. A stat failure is logged
// and retried on the next tick; the source may be mid-rewrite.
func (w *Watcher) Run(ctx context.Context) {
	var lastMod time.Time
	if info, err := os.Stat(w.source); err == nil {
		lastMod = info.ModTime()
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		info, err := os.Stat(w.source)
		if err != nil {
			w.log.Warn("Failed to stat source", logging.Source(w.source), logging.Error(err))
			continue
		}
		if !info.ModTime().After(lastMod) {
			continue
		}
		lastMod = info.ModTime()

		w.log.Info("Source changed, refreshing", logging.Source(w.source))
		if err := w.refresh(ctx); err != nil {
			w.log.Error("Refresh failed", logging.Source(w.source), logging.Error(err))
		}
	}
}

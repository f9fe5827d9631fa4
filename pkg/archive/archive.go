// Package archive keeps a local history of resolved networks in SQLite so
// consecutive runs over the same stack can be compared.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dd0wney/cluso-sarnet/pkg/network"
)

// Archive wraps the run-history database.
type Archive struct {
	db *sql.DB
}

// Run is one recorded load.
type Run struct {
	ID               string
	Time             time.Time
	Source           string
	Kind             string
	Acquisitions     int
	Pairs            int
	DroppedPairs     int
	CoherencePresent bool
	MeanCoherence    sql.NullFloat64
}

// Open opens (and if needed creates) the archive database.
func Open(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	a := &Archive{db: db}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate archive: %w", err)
	}
	return a, nil
}

func (a *Archive) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		run_at DATETIME NOT NULL,
		source TEXT NOT NULL,
		kind TEXT NOT NULL,
		acquisitions INTEGER NOT NULL,
		pairs INTEGER NOT NULL,
		dropped_pairs INTEGER NOT NULL,
		coherence_present INTEGER NOT NULL,
		mean_coherence REAL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_run_at ON runs(run_at);
	`
	_, err := a.db.Exec(schema)
	return err
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// RecordModel inserts one run built from a resolved model and returns it.
func (a *Archive) RecordModel(ctx context.Context, source, kind string, m *network.Model) (Run, error) {
	run := Run{
		ID:               uuid.NewString(),
		Time:             time.Now().UTC(),
		Source:           source,
		Kind:             kind,
		Acquisitions:     len(m.Dates),
		Pairs:            len(m.Pairs),
		DroppedPairs:     len(m.DroppedPairs),
		CoherencePresent: m.Coherence.Present(),
	}
	if mean, ok := meanCoherence(m); ok {
		run.MeanCoherence = sql.NullFloat64{Float64: mean, Valid: true}
	}

	_, err := a.db.ExecContext(ctx, `
		INSERT INTO runs (id, run_at, source, kind, acquisitions, pairs,
			dropped_pairs, coherence_present, mean_coherence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Time, run.Source, run.Kind, run.Acquisitions, run.Pairs,
		run.DroppedPairs, run.CoherencePresent, run.MeanCoherence)
	if err != nil {
		return Run{}, fmt.Errorf("failed to record run: %w", err)
	}
	return run, nil
}

// RecentRuns returns the newest runs first, at most limit of them.
func (a *Archive) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, run_at, source, kind, acquisitions, pairs,
			dropped_pairs, coherence_present, mean_coherence
		FROM runs ORDER BY run_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Time, &r.Source, &r.Kind, &r.Acquisitions,
			&r.Pairs, &r.DroppedPairs, &r.CoherencePresent, &r.MeanCoherence); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// meanCoherence averages the model coherence, skipping NaN values.
func meanCoherence(m *network.Model) (float64, bool) {
	if !m.Coherence.Present() {
		return 0, false
	}
	sum := 0.0
	n := 0
	for _, v := range m.Coherence.Values() {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

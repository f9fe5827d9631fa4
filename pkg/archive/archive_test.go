package archive

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/dd0wney/cluso-sarnet/pkg/network"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func testModel() *network.Model {
	return &network.Model{
		Dates:        []string{"20070101", "20070201", "20070301"},
		Pbase:        []float64{0, 100, -50},
		Pairs:        []string{"20070101_20070201", "20070101_20070301", "20070201_20070301"},
		KeptPairs:    []string{"20070101_20070201", "20070101_20070301"},
		DroppedPairs: []string{"20070201_20070301"},
		KeptDates:    []string{"20070101", "20070201", "20070301"},
		DroppedDates: []string{},
		Coherence:    network.AlignedCoherence([]float64{0.8, math.NaN(), 0.4}),
	}
}

func TestRecordAndListRuns(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()

	run, err := a.RecordModel(ctx, "inputs/ifgramStack.stk", "ifgramStack", testModel())
	if err != nil {
		t.Fatalf("RecordModel failed: %v", err)
	}
	if run.ID == "" {
		t.Error("Run ID is empty")
	}
	if run.Pairs != 3 || run.DroppedPairs != 1 || run.Acquisitions != 3 {
		t.Errorf("Run counts wrong: %+v", run)
	}
	if !run.MeanCoherence.Valid {
		t.Fatal("Mean coherence should be set")
	}
	// NaN entry is skipped, so the mean covers 0.8 and 0.4 only.
	if math.Abs(run.MeanCoherence.Float64-0.6) > 1e-12 {
		t.Errorf("Mean coherence = %f, want 0.6", run.MeanCoherence.Float64)
	}

	runs, err := a.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Got %d runs, want 1", len(runs))
	}
	if runs[0].ID != run.ID || runs[0].Source != "inputs/ifgramStack.stk" {
		t.Errorf("Stored run does not match: %+v", runs[0])
	}
}

func TestRecentRunsLimit(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := a.RecordModel(ctx, "bl_list.txt", "flat", testModel()); err != nil {
			t.Fatalf("RecordModel failed: %v", err)
		}
	}

	runs, err := a.RecentRuns(ctx, 3)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 3 {
		t.Errorf("Got %d runs, want 3", len(runs))
	}
}

func TestNoCoherenceLeavesMeanNull(t *testing.T) {
	a := openTestArchive(t)
	m := testModel()
	m.Coherence = network.NoCoherence()

	run, err := a.RecordModel(context.Background(), "bl_list.txt", "flat", m)
	if err != nil {
		t.Fatalf("RecordModel failed: %v", err)
	}
	if run.CoherencePresent {
		t.Error("CoherencePresent should be false")
	}
	if run.MeanCoherence.Valid {
		t.Error("Mean coherence should be null without coherence")
	}
}

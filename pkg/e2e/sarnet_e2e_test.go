package e2e

import (
	"context"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-sarnet/pkg/archive"
	"github.com/dd0wney/cluso-sarnet/pkg/coherence"
	"github.com/dd0wney/cluso-sarnet/pkg/config"
	"github.com/dd0wney/cluso-sarnet/pkg/logging"
	"github.com/dd0wney/cluso-sarnet/pkg/metrics"
	"github.com/dd0wney/cluso-sarnet/pkg/network"
	"github.com/dd0wney/cluso-sarnet/pkg/render"
	"github.com/dd0wney/cluso-sarnet/pkg/server"
	"github.com/dd0wney/cluso-sarnet/pkg/stack"
)

// TestCompleteNetworkWorkflow walks the full journey: write a stack
// container, resolve the network, archive the run, render the figures and
// serve them over HTTP.
func TestCompleteNetworkWorkflow(t *testing.T) {
	dir := t.TempDir()
	log := logging.NewJSONLogger(io.Discard, logging.ErrorLevel)

	t.Log("Step 1: Writing synthetic container...")
	stackPath := writeStack(t, dir)

	t.Log("Step 2: Resolving the network...")
	src, stk, err := network.OpenSource(stackPath, "")
	require.NoError(t, err)
	require.NotNil(t, stk)
	defer stk.Close()

	resolver := &network.Resolver{
		Averager: coherence.NewSpatialAverager(stk, log),
		Log:      log,
	}
	model, err := resolver.Load(src, network.LoadOptions{CoherenceDataset: "coherence"})
	require.NoError(t, err)

	assert.Len(t, model.Dates, 4)
	assert.Len(t, model.Pairs, 5)
	assert.Len(t, model.KeptPairs, 4)
	assert.Equal(t, []string{"20070201_20070301"}, model.DroppedPairs)
	assert.Empty(t, model.DroppedDates, "every date survives in some kept pair")
	require.True(t, model.Coherence.Present())
	require.Len(t, model.Coherence.Values(), 5)
	for i := range model.Pairs {
		v := model.Coherence.At(i)
		assert.False(t, math.IsNaN(v), "pair %s has NaN coherence", model.Pairs[i])
		assert.InDelta(t, wantCoherence[i], v, 1e-6)
	}

	t.Log("Step 3: Archiving the run...")
	arch, err := archive.Open(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	defer arch.Close()

	run, err := arch.RecordModel(context.Background(), stackPath, "ifgramStack", model)
	require.NoError(t, err)
	assert.Equal(t, 5, run.Pairs)
	assert.True(t, run.MeanCoherence.Valid)

	runs, err := arch.RecentRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)

	t.Log("Step 4: Rendering figures...")
	cfg := config.Default()
	cfg.Figure.Extension = ".png"
	cfg.Figure.WidthIn = 4
	cfg.Figure.HeightIn = 3
	require.NoError(t, cfg.Validate())

	figDir := filepath.Join(dir, "figures")
	require.NoError(t, os.MkdirAll(figDir, 0o755))
	saved, err := render.New(cfg, log).SaveAll(model, figDir)
	require.NoError(t, err)
	require.Len(t, saved, 4)

	t.Log("Step 5: Serving figures and metrics...")
	registry := metrics.NewRegistry()
	registry.RecordLoad("ifgramStack", "ok", 50*time.Millisecond)
	registry.RecordModel(len(model.Dates), len(model.Pairs), len(model.DroppedPairs), true, "")

	srv := server.New(server.Options{
		FigureDir: figDir,
		Registry:  registry,
		Runs:      arch,
		Refresh:   func(context.Context) error { return nil },
		Log:       log,
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/figures/" + render.FigureNetwork + ".png")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp2.Body.Close()
	body, err := io.ReadAll(resp2.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "sarnet_pairs_total 5")
}

// TestFlatSourceWorkflow covers the text-list path end to end.
func TestFlatSourceWorkflow(t *testing.T) {
	dir := t.TempDir()
	log := logging.NewJSONLogger(io.Discard, logging.ErrorLevel)

	blPath := filepath.Join(dir, "bl_list.txt")
	require.NoError(t, os.WriteFile(blPath, []byte(
		"070101 0.0\n070201 120.5\n070301 -30.2\n"), 0o644))

	pairPath := filepath.Join(dir, "date12_list.txt")
	require.NoError(t, os.WriteFile(pairPath, []byte(
		"070101_070201\n070101-070301\n070201_070301\n"), 0o644))

	src, stk, err := network.OpenSource(pairPath, blPath)
	require.NoError(t, err)
	require.Nil(t, stk)

	resolver := &network.Resolver{Log: log}
	model, err := resolver.Load(src, network.LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"20070101", "20070201", "20070301"}, model.Dates)
	// Both separators normalize to the same key form.
	for _, p := range model.Pairs {
		assert.True(t, strings.Contains(p, "_"), "pair %s not normalized", p)
	}
	assert.Equal(t, model.Pairs, model.KeptPairs, "flat sources drop nothing")
	assert.Empty(t, model.DroppedPairs)
	assert.False(t, model.Coherence.Present())
}

// The container below has 4 dates and 5 pairs over a 2x2 raster; one pair is
// flagged dropped. Per-pair coherence is uniform across pixels so the
// spatial average is exact.
var wantCoherence = []float64{0.9, 0.8, 0.3, 0.7, 0.6}

func writeStack(t *testing.T, dir string) string {
	t.Helper()
	pairs := []string{
		"20070101_20070201",
		"20070101_20070301",
		"20070201_20070301",
		"20070201_20070401",
		"20070301_20070401",
	}
	bperp := []float64{100, -50, -150, 30, 180}

	path := filepath.Join(dir, "ifgramStack.stk")
	w := stack.NewWriter(path, stack.KindIfgramStack)
	w.SetDims(2, 2)
	w.PutStringList(stack.SectionDate12, pairs)
	w.PutFloat64s(stack.SectionBperp, bperp)
	w.PutBytes(stack.SectionDropMask, []byte{0, 0, 1, 0, 0})
	w.PutStringList(stack.SectionCoherenceKeys, pairs)

	data := make([]float32, len(pairs)*4)
	for i, c := range wantCoherence {
		for k := 0; k < 4; k++ {
			data[i*4+k] = float32(c)
		}
	}
	w.PutFloat32s(stack.SectionCoherenceData, data)
	require.NoError(t, w.Close())
	return path
}

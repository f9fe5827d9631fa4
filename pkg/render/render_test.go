package render

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/dd0wney/cluso-sarnet/pkg/config"
	"github.com/dd0wney/cluso-sarnet/pkg/logging"
	"github.com/dd0wney/cluso-sarnet/pkg/network"
)

func testModel(withCoherence bool) *network.Model {
	m := &network.Model{
		Dates: []string{"20070101", "20070201", "20070301"},
		Pbase: []float64{0, 100, -50},
		Pairs: []string{
			"20070101_20070201",
			"20070101_20070301",
			"20070201_20070301",
		},
		KeptPairs: []string{
			"20070101_20070201",
			"20070101_20070301",
		},
		DroppedPairs: []string{"20070201_20070301"},
		KeptDates:    []string{"20070101", "20070201", "20070301"},
		DroppedDates: []string{},
		Coherence:    network.NoCoherence(),
	}
	if withCoherence {
		m.Coherence = network.AlignedCoherence([]float64{0.8, 0.4, 0.6})
	}
	return m
}

func testRenderer() *Renderer {
	cfg := config.Default()
	cfg.Figure.Extension = ".png"
	cfg.Figure.WidthIn = 4
	cfg.Figure.HeightIn = 3
	return New(cfg, logging.NewJSONLogger(io.Discard, logging.ErrorLevel))
}

func TestSaveAllWithCoherence(t *testing.T) {
	dir := t.TempDir()
	r := testRenderer()

	saved, err := r.SaveAll(testModel(true), dir)
	if err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}
	if len(saved) != 4 {
		t.Fatalf("Saved %d figures, want 4: %v", len(saved), saved)
	}
	for _, path := range saved {
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("Missing figure %s: %v", path, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("Figure %s is empty", path)
		}
	}
}

func TestSaveAllSkipsCoherenceFigures(t *testing.T) {
	dir := t.TempDir()
	r := testRenderer()

	saved, err := r.SaveAll(testModel(false), dir)
	if err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("Saved %d figures, want 2 (no coherence): %v", len(saved), saved)
	}
	for _, path := range saved {
		base := filepath.Base(path)
		if base == FigureCoherenceMatrix+".png" || base == FigureCoherenceHistory+".png" {
			t.Errorf("Coherence figure %s rendered without coherence", base)
		}
	}
}

func TestCoherenceFiguresRequireCoherence(t *testing.T) {
	r := testRenderer()
	m := testModel(false)

	if _, err := r.CoherenceMatrix(m); !errors.Is(err, ErrNoCoherence) {
		t.Errorf("CoherenceMatrix err = %v, want ErrNoCoherence", err)
	}
	if _, err := r.CoherenceHistory(m); !errors.Is(err, ErrNoCoherence) {
		t.Errorf("CoherenceHistory err = %v, want ErrNoCoherence", err)
	}
}

func TestBaselineHistoryRejectsBadDate(t *testing.T) {
	r := testRenderer()
	m := testModel(false)
	m.Dates[0] = "not-a-date"

	if _, err := r.BaselineHistory(m); err == nil {
		t.Error("Expected error for malformed date")
	}
}

func TestParseColor(t *testing.T) {
	if _, err := parseColor("orange"); err != nil {
		t.Errorf("Named color failed: %v", err)
	}
	if _, err := parseColor("#1f77b4"); err != nil {
		t.Errorf("Hex color failed: %v", err)
	}
	if _, err := parseColor("chartreuse-ish"); err == nil {
		t.Error("Expected error for unknown color")
	}
}

func TestCoherenceGridSymmetry(t *testing.T) {
	m := testModel(true)
	g := newCoherenceGrid(m)

	c, rows := g.Dims()
	if c != 3 || rows != 3 {
		t.Fatalf("Dims = %d x %d, want 3 x 3", c, rows)
	}
	if g.Z(0, 1) != g.Z(1, 0) {
		t.Errorf("Grid not symmetric: %f vs %f", g.Z(0, 1), g.Z(1, 0))
	}
	if g.Z(0, 1) != 0.8 {
		t.Errorf("Z(0,1) = %f, want 0.8", g.Z(0, 1))
	}
}

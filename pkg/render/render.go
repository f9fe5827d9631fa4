// Package render draws the four network figures from a resolved model:
// baseline history, coherence matrix, coherence history and the network
// diagram. It consumes the model read-only; which figures exist depends only
// on whether coherence is present.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/dd0wney/cluso-sarnet/pkg/config"
	"github.com/dd0wney/cluso-sarnet/pkg/logging"
	"github.com/dd0wney/cluso-sarnet/pkg/network"
)

// ErrNoCoherence is returned when a coherence figure is requested from a
// model without coherence. Callers should skip those figures instead.
var ErrNoCoherence = errors.New("model has no coherence")

// Figure base names, completed by the configured extension.
const (
	FigureBaselineHistory  = "BperpHistory"
	FigureCoherenceMatrix  = "CoherenceMatrix"
	FigureCoherenceHistory = "CoherenceHistory"
	FigureNetwork          = "Network"
)

var dropStyle = struct {
	color  color.Color
	dashes []vg.Length
}{
	color:  color.RGBA{0xaa, 0xaa, 0xaa, 0xff},
	dashes: []vg.Length{vg.Points(6), vg.Points(3)},
}

// Renderer draws figures according to one immutable options record.
type Renderer struct {
	cfg config.Config
	log logging.Logger
}

// New creates a renderer for the given options.
func New(cfg config.Config, log logging.Logger) *Renderer {
	if log == nil {
		log = logging.DefaultLogger()
	}
	return &Renderer{cfg: cfg, log: log}
}

func dateX(d string) (float64, error) {
	t, err := time.Parse("20060102", d)
	if err != nil {
		return 0, fmt.Errorf("malformed date %q: %w", d, err)
	}
	return float64(t.Unix()), nil
}

func (r *Renderer) newPlot(title string) *plot.Plot {
	p := plot.New()
	fig := r.cfg.Figure
	if fig.ShowTitle {
		if fig.Number != "" {
			title = fmt.Sprintf("(%s) %s", fig.Number, title)
		}
		p.Title.Text = title
	}
	fs := vg.Points(float64(fig.FontSize))
	p.Title.TextStyle.Font.Size = fs
	p.X.Label.TextStyle.Font.Size = fs
	p.Y.Label.TextStyle.Font.Size = fs
	p.X.Tick.Label.Font.Size = fs
	p.Y.Tick.Label.Font.Size = fs
	p.Legend.TextStyle.Font.Size = fs
	return p
}

// timeTicks places a tick on the first of January every EveryYear years.
func (r *Renderer) timeTicks() plot.TimeTicks {
	every := r.cfg.Figure.EveryYear
	if every < 1 {
		every = 1
	}
	return plot.TimeTicks{
		Format: "2006-01",
		Ticker: yearTicker{every: every},
	}
}

type yearTicker struct {
	every int
}

func (yt yearTicker) Ticks(min, max float64) []plot.Tick {
	lo := time.Unix(int64(min), 0).UTC().Year()
	hi := time.Unix(int64(max), 0).UTC().Year()
	var ticks []plot.Tick
	for y := lo; y <= hi+1; y++ {
		if (y-lo)%yt.every != 0 {
			continue
		}
		t := time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC)
		v := float64(t.Unix())
		if v < min || v > max {
			continue
		}
		ticks = append(ticks, plot.Tick{Value: v, Label: t.Format("2006-01")})
	}
	if len(ticks) == 0 {
		// Sub-year span, keep the axis readable.
		ticks = append(ticks,
			plot.Tick{Value: min, Label: time.Unix(int64(min), 0).UTC().Format("2006-01")},
			plot.Tick{Value: max, Label: time.Unix(int64(max), 0).UTC().Format("2006-01")})
	}
	return ticks
}

func (r *Renderer) colorMap() *colorMap {
	fig := r.cfg.Figure
	lo := fig.DispMin
	if r.cfg.Network.MinCoherence > 0 && fig.SplitCmap {
		// Cut the colormap at the threshold: below-threshold pairs are
		// drawn flat gray so the gradient spans only trusted values.
		lo = r.cfg.Network.MinCoherence
	}
	cm := moreland.SmoothBlueRed()
	cm.SetMin(lo)
	cm.SetMax(fig.DispMax)
	return &colorMap{cm: cm, lo: lo, hi: fig.DispMax}
}

type colorMap struct {
	cm     palette.ColorMap
	lo, hi float64
}

func (c *colorMap) at(v float64) color.Color {
	if math.IsNaN(v) || v < c.lo {
		return dropStyle.color
	}
	if v > c.hi {
		v = c.hi
	}
	col, err := c.cm.At(v)
	if err != nil {
		return dropStyle.color
	}
	return col
}

// BaselineHistory plots perpendicular baseline versus acquisition date, with
// dropped acquisitions in gray.
func (r *Renderer) BaselineHistory(m *network.Model) (*plot.Plot, error) {
	p := r.newPlot("Perpendicular Baseline History")
	p.X.Tick.Marker = r.timeTicks()
	p.Y.Label.Text = "Perpendicular Baseline [m]"

	dropped := make(map[string]struct{}, len(m.DroppedDates))
	for _, d := range m.DroppedDates {
		dropped[d] = struct{}{}
	}

	var keptXY, dropXY plotter.XYs
	for i, d := range m.Dates {
		x, err := dateX(d)
		if err != nil {
			return nil, err
		}
		pt := plotter.XY{X: x, Y: m.Pbase[i]}
		if _, ok := dropped[d]; ok {
			dropXY = append(dropXY, pt)
		} else {
			keptXY = append(keptXY, pt)
		}
	}

	markerColor, err := parseColor(r.cfg.Figure.MarkerColor)
	if err != nil {
		return nil, err
	}

	if len(keptXY) > 0 {
		line, err := plotter.NewLine(keptXY)
		if err != nil {
			return nil, err
		}
		line.LineStyle.Width = vg.Points(r.cfg.Figure.LineWidth / 2)
		line.LineStyle.Color = color.Gray{0x55}
		p.Add(line)

		sc, err := plotter.NewScatter(keptXY)
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Color = markerColor
		sc.GlyphStyle.Radius = vg.Points(r.cfg.Figure.MarkerSize / 2)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(sc)
	}
	if len(dropXY) > 0 && r.cfg.Figure.ShowDropped {
		sc, err := plotter.NewScatter(dropXY)
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Color = dropStyle.color
		sc.GlyphStyle.Radius = vg.Points(r.cfg.Figure.MarkerSize / 2)
		sc.GlyphStyle.Shape = draw.RingGlyph{}
		p.Add(sc)
	}
	return p, nil
}

// CoherenceMatrix plots the symmetric dates-by-dates coherence heat map.
func (r *Renderer) CoherenceMatrix(m *network.Model) (*plot.Plot, error) {
	if !m.Coherence.Present() {
		return nil, ErrNoCoherence
	}
	p := r.newPlot("Average Spatial Coherence")
	p.X.Label.Text = "Acquisition Index"
	p.Y.Label.Text = "Acquisition Index"

	cm := r.colorMap()
	hm := plotter.NewHeatMap(newCoherenceGrid(m), cm.cm.Palette(64))
	hm.Min = cm.lo
	hm.Max = cm.hi
	p.Add(hm)
	return p, nil
}

// CoherenceHistory plots the per-date minimum and maximum pair coherence.
func (r *Renderer) CoherenceHistory(m *network.Model) (*plot.Plot, error) {
	if !m.Coherence.Present() {
		return nil, ErrNoCoherence
	}
	p := r.newPlot("Coherence History")
	p.X.Tick.Marker = r.timeTicks()
	p.Y.Label.Text = "Average Spatial Coherence"
	p.Y.Min = 0
	p.Y.Max = 1

	minBy := make(map[string]float64, len(m.Dates))
	maxBy := make(map[string]float64, len(m.Dates))
	for i, pair := range m.Pairs {
		v := m.Coherence.At(i)
		if math.IsNaN(v) {
			continue
		}
		master, secondary, err := network.SplitPair(pair)
		if err != nil {
			continue
		}
		for _, d := range []string{master, secondary} {
			if cur, ok := minBy[d]; !ok || v < cur {
				minBy[d] = v
			}
			if cur, ok := maxBy[d]; !ok || v > cur {
				maxBy[d] = v
			}
		}
	}

	var minXY, maxXY plotter.XYs
	for _, d := range m.Dates {
		if _, ok := minBy[d]; !ok {
			continue
		}
		x, err := dateX(d)
		if err != nil {
			return nil, err
		}
		minXY = append(minXY, plotter.XY{X: x, Y: minBy[d]})
		maxXY = append(maxXY, plotter.XY{X: x, Y: maxBy[d]})
	}

	minLine, err := plotter.NewLine(minXY)
	if err != nil {
		return nil, err
	}
	minLine.LineStyle.Width = vg.Points(r.cfg.Figure.LineWidth)
	minLine.LineStyle.Color = named["blue"]

	maxLine, err := plotter.NewLine(maxXY)
	if err != nil {
		return nil, err
	}
	maxLine.LineStyle.Width = vg.Points(r.cfg.Figure.LineWidth)
	maxLine.LineStyle.Color = named["red"]

	p.Add(minLine, maxLine)
	p.Legend.Add("Min", minLine)
	p.Legend.Add("Max", maxLine)
	p.Legend.Top = true
	return p, nil
}

// NetworkDiagram plots every pair as a line in date/baseline space, colored
// by coherence when present. Dropped pairs are dashed gray and can be hidden.
func (r *Renderer) NetworkDiagram(m *network.Model) (*plot.Plot, error) {
	p := r.newPlot("Interferogram Network")
	p.X.Tick.Marker = r.timeTicks()
	p.Y.Label.Text = "Perpendicular Baseline [m]"

	pbaseOf := make(map[string]float64, len(m.Dates))
	for i, d := range m.Dates {
		pbaseOf[d] = m.Pbase[i]
	}
	droppedPair := make(map[string]struct{}, len(m.DroppedPairs))
	for _, pr := range m.DroppedPairs {
		droppedPair[pr] = struct{}{}
	}

	cm := r.colorMap()
	for i, pair := range m.Pairs {
		_, isDropped := droppedPair[pair]
		if isDropped && !r.cfg.Figure.ShowDropped {
			continue
		}
		master, secondary, err := network.SplitPair(pair)
		if err != nil {
			return nil, err
		}
		x1, err := dateX(master)
		if err != nil {
			return nil, err
		}
		x2, err := dateX(secondary)
		if err != nil {
			return nil, err
		}
		line, err := plotter.NewLine(plotter.XYs{
			{X: x1, Y: pbaseOf[master]},
			{X: x2, Y: pbaseOf[secondary]},
		})
		if err != nil {
			return nil, err
		}
		line.LineStyle.Width = vg.Points(r.cfg.Figure.LineWidth / 2)
		switch {
		case isDropped:
			line.LineStyle.Color = dropStyle.color
			line.LineStyle.Dashes = dropStyle.dashes
		case m.Coherence.Present():
			line.LineStyle.Color = cm.at(m.Coherence.At(i))
		default:
			line.LineStyle.Color = named["black"]
		}
		p.Add(line)
	}

	markerColor, err := parseColor(r.cfg.Figure.MarkerColor)
	if err != nil {
		return nil, err
	}
	var xys plotter.XYs
	for i, d := range m.Dates {
		x, err := dateX(d)
		if err != nil {
			return nil, err
		}
		xys = append(xys, plotter.XY{X: x, Y: m.Pbase[i]})
	}
	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, err
	}
	sc.GlyphStyle.Color = markerColor
	sc.GlyphStyle.Radius = vg.Points(r.cfg.Figure.MarkerSize / 2)
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(sc)
	return p, nil
}

// FigureNameFromPath recovers the figure base name from a saved path.
func FigureNameFromPath(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

// SaveAll renders every applicable figure into outDir and returns the paths
// written. Coherence figures are skipped, not failed, when coherence is
// absent.
func (r *Renderer) SaveAll(m *network.Model, outDir string) ([]string, error) {
	type figure struct {
		name  string
		build func(*network.Model) (*plot.Plot, error)
	}
	figures := []figure{
		{FigureBaselineHistory, r.BaselineHistory},
		{FigureCoherenceMatrix, r.CoherenceMatrix},
		{FigureCoherenceHistory, r.CoherenceHistory},
		{FigureNetwork, r.NetworkDiagram},
	}

	fig := r.cfg.Figure
	w := vg.Length(fig.WidthIn) * vg.Inch
	h := vg.Length(fig.HeightIn) * vg.Inch

	var saved []string
	for _, f := range figures {
		p, err := f.build(m)
		if errors.Is(err, ErrNoCoherence) {
			r.log.Info("skipping figure without coherence", logging.Figure(f.name))
			continue
		}
		if err != nil {
			return saved, fmt.Errorf("render %s: %w", f.name, err)
		}
		path := filepath.Join(outDir, f.name+fig.Extension)
		if err := savePlot(p, w, h, fig.DPI, path); err != nil {
			return saved, fmt.Errorf("save %s: %w", f.name, err)
		}
		r.log.Info("saved figure", logging.Figure(f.name), logging.Path(path))
		saved = append(saved, path)
	}
	return saved, nil
}

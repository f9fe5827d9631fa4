package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-sarnet/pkg/archive"
	"github.com/dd0wney/cluso-sarnet/pkg/coherence"
	"github.com/dd0wney/cluso-sarnet/pkg/config"
	"github.com/dd0wney/cluso-sarnet/pkg/fetch"
	"github.com/dd0wney/cluso-sarnet/pkg/logging"
	"github.com/dd0wney/cluso-sarnet/pkg/network"
	"github.com/dd0wney/cluso-sarnet/pkg/render"
)

var (
	summaryBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF"))

	droppedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#00FF00"))
)

type cliOptions struct {
	source       string
	baselineList string
	template     string
	maskFile     string
	dispMin      float64
	dispMax      float64
	threshold    float64
	showDropped  bool
	saveList     bool
	saveAverage  bool
	outDir       string
	archivePath  string
	ext          string
	dpi          int
	fontSize     int
	noTitle      bool
	number       string
	noRender     bool
	verbose      bool
}

func parseFlags() cliOptions {
	var o cliOptions
	defaults := config.Default()

	flag.StringVar(&o.baselineList, "b", defaults.Network.BaselineList, "text file with date and perpendicular baseline columns")
	flag.StringVar(&o.template, "t", "", "template file with options (also --template)")
	flag.StringVar(&o.template, "template", "", "")
	flag.StringVar(&o.maskFile, "mask", defaults.Network.MaskFile, "mask container for coherence averaging, 'no' to disable")
	flag.Float64Var(&o.dispMin, "m", defaults.Figure.DispMin, "minimum coherence to display")
	flag.Float64Var(&o.dispMax, "M", defaults.Figure.DispMax, "maximum coherence to display")
	flag.Float64Var(&o.threshold, "threshold", 0, "coherence threshold where the colormap is cut")
	nodrop := flag.Bool("nodrop", false, "do not display dropped interferograms")
	flag.BoolVar(&o.saveList, "list", false, "save the pair list to a text file")
	flag.BoolVar(&o.saveAverage, "save", false, "save the average coherence list to a text file")
	flag.StringVar(&o.outDir, "outdir", ".", "directory for the rendered figures")
	flag.StringVar(&o.archivePath, "archive", "", "sqlite file to record this run in")
	flag.StringVar(&o.ext, "ext", defaults.Figure.Extension, "figure file extension")
	flag.IntVar(&o.dpi, "dpi", defaults.Figure.DPI, "figure DPI for raster formats")
	flag.IntVar(&o.fontSize, "fontsize", defaults.Figure.FontSize, "figure font size")
	flag.BoolVar(&o.noTitle, "notitle", false, "do not draw figure titles")
	flag.StringVar(&o.number, "number", "", "figure number prefix, e.g. (a)")
	flag.BoolVar(&o.noRender, "norender", false, "resolve and summarize only, render nothing")
	flag.BoolVar(&o.verbose, "v", false, "verbose logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: sarnet [flags] <ifgramStack.stk | pairList.txt>\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	o.showDropped = !*nodrop
	o.source = flag.Arg(0)
	return o
}

func buildConfig(o cliOptions) (config.Config, error) {
	cfg := config.Default()
	if o.template != "" {
		if err := cfg.LoadTemplate(o.template); err != nil {
			return cfg, err
		}
	}

	// Flags win over the template.
	cfg.Network.BaselineList = o.baselineList
	cfg.Network.MaskFile = o.maskFile
	cfg.Network.MinCoherence = o.threshold
	cfg.Figure.DispMin = o.dispMin
	cfg.Figure.DispMax = o.dispMax
	cfg.Figure.Extension = o.ext
	cfg.Figure.DPI = o.dpi
	cfg.Figure.FontSize = o.fontSize
	cfg.Figure.ShowTitle = !o.noTitle
	cfg.Figure.Number = o.number
	cfg.Figure.ShowDropped = o.showDropped

	if strings.EqualFold(cfg.Network.MaskFile, "no") {
		cfg.Network.MaskFile = ""
	}
	cfg.ClearMissingMask()

	return cfg, cfg.Validate()
}

func main() {
	o := parseFlags()
	if o.source == "" {
		flag.Usage()
		os.Exit(2)
	}

	level := logging.InfoLevel
	if o.verbose {
		level = logging.DebugLevel
	}
	log := logging.NewJSONLogger(os.Stderr, level)

	if err := run(o, log); err != nil {
		log.Error("Run failed", logging.Error(err))
		os.Exit(1)
	}
}

func run(o cliOptions, log logging.Logger) error {
	ctx := context.Background()

	cfg, err := buildConfig(o)
	if err != nil {
		return err
	}

	source := o.source
	if fetch.IsRemote(source) {
		f, err := fetch.New(ctx, log)
		if err != nil {
			return err
		}
		if source, err = f.Fetch(ctx, source, os.TempDir()); err != nil {
			return err
		}
	}

	src, stk, err := network.OpenSource(source, cfg.Network.BaselineList)
	if err != nil {
		return err
	}
	if stk != nil {
		defer stk.Close()
	}

	resolver := &network.Resolver{Log: log}
	if stk != nil {
		resolver.Averager = coherence.NewSpatialAverager(stk, log)
	}

	start := time.Now()
	model, err := resolver.Load(src, network.LoadOptions{
		MaskPath:         cfg.Network.MaskFile,
		CoherenceDataset: cfg.Network.CoherenceDataset,
		SavePairList:     o.saveList,
		SaveAverageList:  o.saveAverage,
	})
	if err != nil {
		return err
	}
	log.Info("Network resolved", logging.Source(source), logging.Latency(time.Since(start)))

	fmt.Println(summarize(source, model))

	if o.archivePath != "" {
		arch, err := archive.Open(o.archivePath)
		if err != nil {
			return err
		}
		defer arch.Close()

		kind := "flat"
		if stk != nil {
			kind = string(stk.Kind())
		}
		rec, err := arch.RecordModel(ctx, source, kind, model)
		if err != nil {
			return err
		}
		log.Info("Run archived", logging.RunID(rec.ID), logging.Path(o.archivePath))
	}

	if o.noRender {
		return nil
	}

	if err := os.MkdirAll(o.outDir, 0o755); err != nil {
		return err
	}
	saved, err := render.New(cfg, log).SaveAll(model, o.outDir)
	if err != nil {
		return err
	}
	for _, path := range saved {
		fmt.Println(okStyle.Render("saved ") + path)
	}
	return nil
}

func summarize(source string, m *network.Model) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Interferogram network") + "\n")
	b.WriteString(fmt.Sprintf("source        %s\n", source))
	b.WriteString(fmt.Sprintf("acquisitions  %d\n", len(m.Dates)))
	b.WriteString(fmt.Sprintf("pairs         %d (%d kept)\n", len(m.Pairs), len(m.KeptPairs)))

	if n := len(m.DroppedPairs); n > 0 {
		b.WriteString(droppedStyle.Render(fmt.Sprintf("dropped       %d pairs", n)) + "\n")
	}
	if n := len(m.DroppedDates); n > 0 {
		b.WriteString(droppedStyle.Render(fmt.Sprintf("dropped dates %s", strings.Join(m.DroppedDates, " "))) + "\n")
	}

	if m.Coherence.Present() {
		b.WriteString(okStyle.Render("coherence     present") + "\n")
	} else {
		b.WriteString("coherence     absent\n")
	}
	return summaryBoxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

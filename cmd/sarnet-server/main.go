package main

import (
	"context"
	"flag"
	"os"
	"sync"
	"time"

	"github.com/dd0wney/cluso-sarnet/pkg/archive"
	"github.com/dd0wney/cluso-sarnet/pkg/coherence"
	"github.com/dd0wney/cluso-sarnet/pkg/config"
	"github.com/dd0wney/cluso-sarnet/pkg/logging"
	"github.com/dd0wney/cluso-sarnet/pkg/metrics"
	"github.com/dd0wney/cluso-sarnet/pkg/network"
	"github.com/dd0wney/cluso-sarnet/pkg/render"
	"github.com/dd0wney/cluso-sarnet/pkg/server"
)

func main() {
	sourcePath := flag.String("source", "", "ifgramStack container or pair list to watch")
	baselineList := flag.String("b", "bl_list.txt", "baseline list for flat sources")
	template := flag.String("template", "", "template file with options")
	addr := flag.String("addr", ":8080", "listen address")
	figureDir := flag.String("outdir", "./figures", "directory the figures are rendered into and served from")
	archivePath := flag.String("archive", "", "sqlite file to record runs in")
	interval := flag.Duration("interval", 30*time.Second, "source poll interval")
	flag.Parse()

	log := logging.NewDefaultLogger()
	if *sourcePath == "" {
		log.Error("Missing -source")
		os.Exit(2)
	}

	cfg := config.Default()
	if *template != "" {
		if err := cfg.LoadTemplate(*template); err != nil {
			log.Error("Failed to load template", logging.Error(err))
			os.Exit(1)
		}
	}
	cfg.Network.BaselineList = *baselineList
	cfg.Figure.Extension = ".png" // browsers want raster output
	cfg.ClearMissingMask()
	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", logging.Error(err))
		os.Exit(1)
	}

	if err := os.MkdirAll(*figureDir, 0o755); err != nil {
		log.Error("Failed to create figure directory", logging.Error(err))
		os.Exit(1)
	}

	registry := metrics.NewRegistry()

	var arch *archive.Archive
	if *archivePath != "" {
		var err error
		if arch, err = archive.Open(*archivePath); err != nil {
			log.Error("Failed to open archive", logging.Error(err))
			os.Exit(1)
		}
		defer arch.Close()
	}

	// One refresh at a time; the watcher and SIGHUP can race.
	var refreshMu sync.Mutex
	refresh := func(ctx context.Context) error {
		refreshMu.Lock()
		defer refreshMu.Unlock()
		return refreshOnce(ctx, *sourcePath, *figureDir, cfg, registry, arch, log)
	}

	var runs server.RunLister
	if arch != nil {
		runs = arch
	}
	srv := server.New(server.Options{
		Addr:          *addr,
		FigureDir:     *figureDir,
		Source:        *sourcePath,
		WatchInterval: *interval,
		Registry:      registry,
		Runs:          runs,
		Refresh:       refresh,
		Log:           log,
	})

	if err := srv.Run(context.Background()); err != nil {
		log.Error("Server failed", logging.Error(err))
		os.Exit(1)
	}
}

// refreshOnce resolves the network and re-renders every figure.
func refreshOnce(ctx context.Context, sourcePath, figureDir string, cfg config.Config,
	registry *metrics.Registry, arch *archive.Archive, log logging.Logger) error {

	src, stk, err := network.OpenSource(sourcePath, cfg.Network.BaselineList)
	if err != nil {
		registry.RecordLoad("unknown", "error", 0)
		return err
	}
	kind := "flat"
	if stk != nil {
		kind = string(stk.Kind())
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
	})
	if err != nil {
		registry.RecordLoad(kind, "error", time.Since(start))
		return err
	}
	registry.RecordLoad(kind, "ok", time.Since(start))

	reason := ""
	if !model.Coherence.Present() {
		reason = "unavailable"
	}
	registry.RecordModel(len(model.Dates), len(model.Pairs), len(model.DroppedPairs),
		model.Coherence.Present(), reason)

	if arch != nil {
		run, err := arch.RecordModel(ctx, sourcePath, kind, model)
		if err != nil {
			log.Warn("Failed to archive run", logging.Error(err))
		} else {
			log.Info("Run archived", logging.RunID(run.ID))
		}
	}

	saved, err := render.New(cfg, log).SaveAll(model, figureDir)
	if err != nil {
		return err
	}
	for _, path := range saved {
		registry.RecordRender(render.FigureNameFromPath(path))
	}
	log.Info("Figures refreshed", logging.Count("figures", len(saved)))
	return nil
}

package network

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dd0wney/cluso-sarnet/pkg/logging"
	"github.com/dd0wney/cluso-sarnet/pkg/stack"
)

// ErrUnsupportedFileKind is returned when a structured source declares a
// kind that is neither ifgramStack nor timeseries. Fatal for the load.
var ErrUnsupportedFileKind = errors.New("input file is not ifgramStack/timeseries, can not read temporal/spatial baseline info")

// StructuredSource is the contract of a structured network container.
// *stack.Stack implements it.
type StructuredSource interface {
	Path() string
	Kind() stack.Kind
	// ifgramStack kind
	FullDateList() ([]string, error)
	BaselineTimeSeries() ([]float64, error)
	FullPairList() ([]string, error)
	KeptPairList() ([]string, error)
	// timeseries kind
	StoredDateList() ([]string, error)
	StoredBaselines() ([]float64, error)
}

// CoherenceAverager produces a per-pair average coherence list, bound to its
// source at construction. The returned key order is the computed order and
// is not guaranteed to match the authoritative pair list.
type CoherenceAverager interface {
	AverageCoherence(datasetName, maskPath string, saveList bool) (values []float64, pairKeys []string, err error)
}

// Source selects where the network is read from: a structured container, or
// flat text lists.
type Source struct {
	// Stack is the structured container; nil for flat-text sources.
	Stack StructuredSource
	// PairListPath is the flat-text pair list. Required for flat sources
	// and for timeseries containers, which carry no pair list of their own.
	PairListPath string
	// BaselineListPath is the flat-text baseline list for flat sources.
	BaselineListPath string
}

func (s Source) structured() bool {
	return s.Stack != nil
}

// Name returns the path the network was read from, for diagnostics and
// derived artifact names.
func (s Source) Name() string {
	if s.structured() {
		return s.Stack.Path()
	}
	return s.PairListPath
}

// LoadOptions tunes a single load call.
type LoadOptions struct {
	// MaskPath is handed to the coherence averager; empty means no mask.
	MaskPath string
	// CoherenceDataset names the dataset to average; default "coherence".
	CoherenceDataset string
	// SavePairList writes the authoritative pair list as a text artifact.
	SavePairList bool
	// PairListOut overrides the derived artifact path.
	PairListOut string
	// SaveAverageList asks the averager for its own text artifact.
	SaveAverageList bool
}

// Resolver loads and reconciles a network model. The zero value works with
// the default logger and no coherence.
type Resolver struct {
	// Averager is optional; nil disables coherence resolution entirely.
	Averager CoherenceAverager
	Log      logging.Logger
}

func (r *Resolver) logger() logging.Logger {
	if r.Log != nil {
		return r.Log
	}
	return logging.DefaultLogger()
}

// Load runs the full pipeline: dates/baselines, pairs, drop state, coherence.
// Any accessor failure aborts the load; no partial model is returned.
func (r *Resolver) Load(src Source, opts LoadOptions) (*Model, error) {
	log := r.logger()

	dates, pbase, err := r.loadDatesAndBaselines(src)
	if err != nil {
		return nil, err
	}
	log.Info("read acquisitions", logging.Source(src.Name()), logging.Count("acquisitions", len(dates)))

	pairs, err := r.loadPairs(src)
	if err != nil {
		return nil, err
	}
	log.Info("read interferograms", logging.Source(src.Name()), logging.Count("interferograms", len(pairs)))

	if opts.SavePairList {
		out := opts.PairListOut
		if out == "" {
			base := filepath.Base(src.Name())
			out = strings.TrimSuffix(base, filepath.Ext(base)) + "_date12List.txt"
		}
		if err := WritePairList(out, pairs); err != nil {
			return nil, err
		}
		log.Info("saved pair list", logging.Path(out))
	}

	kept, droppedPairs, keptDates, droppedDates, err := r.resolveDropState(src, dates, pairs)
	if err != nil {
		return nil, err
	}

	coh, err := r.resolveCoherence(src, pairs, opts)
	if err != nil {
		return nil, err
	}

	return &Model{
		Dates:        dates,
		Pbase:        pbase,
		Pairs:        pairs,
		KeptPairs:    kept,
		DroppedPairs: droppedPairs,
		KeptDates:    keptDates,
		DroppedDates: droppedDates,
		Coherence:    coh,
	}, nil
}

// loadDatesAndBaselines reads the ordered date list and the index-aligned
// perpendicular baseline series for the source.
func (r *Resolver) loadDatesAndBaselines(src Source) ([]string, []float64, error) {
	var (
		dates []string
		pbase []float64
		err   error
	)
	if src.structured() {
		switch kind := src.Stack.Kind(); kind {
		case stack.KindIfgramStack:
			// The baseline series must include every acquisition,
			// not only those retained after filtering.
			if dates, err = src.Stack.FullDateList(); err != nil {
				return nil, nil, err
			}
			if pbase, err = src.Stack.BaselineTimeSeries(); err != nil {
				return nil, nil, err
			}
		case stack.KindTimeseries:
			if dates, err = src.Stack.StoredDateList(); err != nil {
				return nil, nil, err
			}
			if pbase, err = src.Stack.StoredBaselines(); err != nil {
				return nil, nil, err
			}
		default:
			return nil, nil, fmt.Errorf("%s: kind %q: %w", src.Stack.Path(), kind, ErrUnsupportedFileKind)
		}
	} else {
		if dates, pbase, err = ReadBaselineList(src.BaselineListPath); err != nil {
			return nil, nil, err
		}
	}
	if len(dates) != len(pbase) {
		return nil, nil, fmt.Errorf("%s: %d dates but %d baselines", src.Name(), len(dates), len(pbase))
	}
	return dates, pbase, nil
}

// loadPairs returns the authoritative pair universe. No filtering here.
func (r *Resolver) loadPairs(src Source) ([]string, error) {
	if src.structured() && src.Stack.Kind() == stack.KindIfgramStack {
		return src.Stack.FullPairList()
	}
	if src.PairListPath == "" {
		return nil, fmt.Errorf("%s: no pair list available for this source", src.Name())
	}
	return ReadPairList(src.PairListPath)
}

// resolveDropState computes the kept/dropped partition. Only ifgramStack
// containers carry drop flags; every other source keeps everything.
func (r *Resolver) resolveDropState(src Source, dates, pairs []string) (kept, droppedPairs, keptDates, droppedDates []string, err error) {
	log := r.logger()

	if !src.structured() || src.Stack.Kind() != stack.KindIfgramStack {
		kept = append([]string{}, pairs...)
		return kept, []string{}, append([]string{}, dates...), []string{}, nil
	}

	kept, err = src.Stack.KeptPairList()
	if err != nil {
		return nil, nil, nil, nil, err
	}

	droppedPairs = sortedDiff(pairs, kept)
	keptDates = pairDates(kept)
	droppedDates = sortedDiff(dates, keptDates)

	log.Info("resolved drop state",
		logging.Count("kept", len(kept)),
		logging.Count("dropped", len(droppedPairs)),
		logging.Count("droppedDates", len(droppedDates)))
	if len(droppedDates) > 0 {
		log.Info("acquisitions marked as dropped", logging.Field{Key: "dates", Value: droppedDates})
	}
	return kept, droppedPairs, keptDates, droppedDates, nil
}

// resolveCoherence obtains the averaged coherence list and aligns it against
// the authoritative pair list. Degradation here is advisory, not structural:
// an unusable list yields absent coherence, never an error.
func (r *Resolver) resolveCoherence(src Source, pairs []string, opts LoadOptions) (Coherence, error) {
	if r.Averager == nil || !src.structured() || src.Stack.Kind() != stack.KindIfgramStack {
		return NoCoherence(), nil
	}
	log := r.logger()

	dataset := opts.CoherenceDataset
	if dataset == "" {
		dataset = "coherence"
	}
	values, keys, err := r.Averager.AverageCoherence(dataset, opts.MaskPath, opts.SaveAverageList)
	if err != nil {
		return NoCoherence(), err
	}

	aligned, status := AlignCoherence(pairs, keys, values)
	switch status {
	case AlignAllNaN:
		log.Warn("all coherence values are nan, continuing without coherence")
		return NoCoherence(), nil
	case AlignIncomplete:
		log.Warn("coherence list does not cover every pair, disabling coherence display",
			logging.Count("coherencePairs", len(keys)),
			logging.Count("pairs", len(pairs)))
		return NoCoherence(), nil
	case AlignSuperset:
		log.Info("extracted coherence for every pair in input file",
			logging.Count("extra", len(keys)-len(pairs)))
	}
	return AlignedCoherence(aligned), nil
}

// sortedDiff returns sorted(set(a) - set(b)).
func sortedDiff(a, b []string) []string {
	drop := make(map[string]struct{}, len(b))
	for _, k := range b {
		drop[k] = struct{}{}
	}
	seen := make(map[string]struct{}, len(a))
	out := []string{}
	for _, k := range a {
		if _, ok := drop[k]; ok {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// pairDates returns the sorted set of dates appearing in any of the pairs.
func pairDates(pairs []string) []string {
	seen := make(map[string]struct{}, 2*len(pairs))
	for _, p := range pairs {
		m, s, err := SplitPair(p)
		if err != nil {
			continue
		}
		seen[m] = struct{}{}
		seen[s] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

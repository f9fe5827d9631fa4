// Package coherence computes per-pair spatial averages over the raster
// datasets of an ifgramStack container. The resolver only consumes the
// result through the network.CoherenceAverager contract; alignment against
// the authoritative pair list happens there, not here.
package coherence

import (
	"bufio"
	"fmt"
	"math"
	"os"

	"github.com/dd0wney/cluso-sarnet/pkg/logging"
	"github.com/dd0wney/cluso-sarnet/pkg/stack"
)

// SpatialAverager averages a raster dataset of one open container over its
// valid pixels, per pair.
type SpatialAverager struct {
	stack *stack.Stack
	log   logging.Logger
}

// NewSpatialAverager binds an averager to an open container.
func NewSpatialAverager(s *stack.Stack, log logging.Logger) *SpatialAverager {
	if log == nil {
		log = logging.DefaultLogger()
	}
	return &SpatialAverager{stack: s, log: log}
}

// AverageCoherence returns the spatial average of the named dataset for every
// stored pair, in stored order, together with the pair keys of that order.
// Pixels are excluded where they are NaN or where the mask is zero; a pair
// with no valid pixel averages to NaN. When saveList is set the result is
// also written to <dataset>_spatialAvg.txt as a side artifact.
func (a *SpatialAverager) AverageCoherence(datasetName, maskPath string, saveList bool) ([]float64, []string, error) {
	keys, err := a.stack.StringSection(datasetName + "/keys")
	if err != nil {
		return nil, nil, err
	}
	data, err := a.stack.Float32Section(datasetName + "/data")
	if err != nil {
		return nil, nil, err
	}
	length, width, err := a.stack.Dims()
	if err != nil {
		return nil, nil, err
	}
	npix := length * width
	if len(data) != len(keys)*npix {
		return nil, nil, fmt.Errorf("%s: dataset %s has %d values for %d pairs of %d pixels",
			a.stack.Path(), datasetName, len(data), len(keys), npix)
	}

	var mask []float32
	if maskPath != "" {
		m, mlen, mwid, err := stack.ReadMask(maskPath)
		if err != nil {
			return nil, nil, err
		}
		if mlen != length || mwid != width {
			return nil, nil, fmt.Errorf("mask %s is %dx%d, dataset is %dx%d", maskPath, mlen, mwid, length, width)
		}
		mask = m
	}

	values := make([]float64, len(keys))
	for i := range keys {
		raster := data[i*npix : (i+1)*npix]
		sum := 0.0
		n := 0
		for j, v := range raster {
			if mask != nil && mask[j] == 0 {
				continue
			}
			f := float64(v)
			if math.IsNaN(f) {
				continue
			}
			sum += f
			n++
		}
		if n == 0 {
			values[i] = math.NaN()
		} else {
			values[i] = sum / float64(n)
		}
	}

	a.log.Debug("averaged dataset",
		logging.Source(a.stack.Path()),
		logging.Field{Key: "dataset", Value: datasetName},
		logging.Count("pairs", len(keys)))

	if saveList {
		out := datasetName + "_spatialAvg.txt"
		if err := writeAverageList(out, keys, values); err != nil {
			return nil, nil, err
		}
		a.log.Info("saved spatial average list", logging.Path(out))
	}
	return values, keys, nil
}

func writeAverageList(path string, keys []string, values []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "# DATE12\tMEAN")
	for i, k := range keys {
		fmt.Fprintf(w, "%s\t%.4f\n", k, values[i])
	}
	return w.Flush()
}

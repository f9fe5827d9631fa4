package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/dd0wney/cluso-sarnet/pkg/stack"
)

// stack-sim writes a synthetic ifgramStack container (and optionally a water
// mask) for demos and manual testing of the resolver and the figures.

func main() {
	out := flag.String("out", "ifgramStack.stk", "output container path")
	maskOut := flag.String("mask-out", "", "also write a mask container here")
	nDates := flag.Int("dates", 24, "number of acquisitions")
	width := flag.Int("width", 40, "raster width in pixels")
	length := flag.Int("length", 30, "raster length in pixels")
	maxSkip := flag.Int("skip", 3, "connect each date to up to this many successors")
	dropFrac := flag.Float64("drop", 0.05, "fraction of pairs marked dropped")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	dates, pbase := simulateAcquisitions(rng, *nDates)
	pairs, bperp := simulatePairs(rng, dates, pbase, *maxSkip)
	npix := (*width) * (*length)

	w := stack.NewWriter(*out, stack.KindIfgramStack)
	w.SetDims(*length, *width)
	w.PutStringList(stack.SectionDate12, pairs)
	w.PutFloat64s(stack.SectionBperp, bperp)

	drop := make([]byte, len(pairs))
	dropped := 0
	for i := range drop {
		if rng.Float64() < *dropFrac {
			drop[i] = 1
			dropped++
		}
	}
	w.PutBytes(stack.SectionDropMask, drop)

	w.PutStringList(stack.SectionCoherenceKeys, pairs)
	w.PutFloat32s(stack.SectionCoherenceData, simulateCoherence(rng, len(pairs), npix))

	if err := w.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s: %d acquisitions, %d pairs (%d dropped), %dx%d px\n",
		*out, len(dates), len(pairs), dropped, *length, *width)

	if *maskOut != "" {
		if err := writeMask(rng, *maskOut, *length, *width); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", *maskOut, err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", *maskOut)
	}
}

// simulateAcquisitions returns monthly dates with a random-walk baseline.
func simulateAcquisitions(rng *rand.Rand, n int) ([]string, []float64) {
	start := time.Date(2007, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]string, n)
	pbase := make([]float64, n)
	for i := 0; i < n; i++ {
		dates[i] = start.AddDate(0, i, 0).Format("20060102")
		if i > 0 {
			pbase[i] = pbase[i-1] + rng.NormFloat64()*60
		}
	}
	return dates, pbase
}

// simulatePairs connects each date to its next maxSkip successors, the usual
// small-baseline network shape.
func simulatePairs(rng *rand.Rand, dates []string, pbase []float64, maxSkip int) ([]string, []float64) {
	var pairs []string
	var bperp []float64
	for i := range dates {
		for skip := 1; skip <= maxSkip && i+skip < len(dates); skip++ {
			// Longer temporal spans get sparser.
			if skip > 1 && rng.Float64() > 1/float64(skip) {
				continue
			}
			j := i + skip
			pairs = append(pairs, dates[i]+"_"+dates[j])
			bperp = append(bperp, pbase[j]-pbase[i])
		}
	}
	return pairs, bperp
}

// simulateCoherence gives every pair its own mean and per-pixel jitter.
func simulateCoherence(rng *rand.Rand, nPairs, npix int) []float32 {
	data := make([]float32, nPairs*npix)
	for p := 0; p < nPairs; p++ {
		mean := 0.3 + 0.6*rng.Float64()
		for k := 0; k < npix; k++ {
			v := mean + rng.NormFloat64()*0.08
			data[p*npix+k] = float32(math.Max(0, math.Min(1, v)))
		}
	}
	return data
}

// writeMask masks out a band of pixels, imitating a water body.
func writeMask(rng *rand.Rand, path string, length, width int) error {
	mask := make([]float32, length*width)
	cut := length / 4
	for row := 0; row < length; row++ {
		for col := 0; col < width; col++ {
			if row < cut && rng.Float64() < 0.9 {
				continue // leave zero, masked out
			}
			mask[row*width+col] = 1
		}
	}
	w := stack.NewWriter(path, stack.KindMask)
	w.SetDims(length, width)
	w.PutFloat32s(stack.SectionMask, mask)
	return w.Close()
}

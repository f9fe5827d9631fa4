// Package network builds a consistent in-memory model of an interferometric
// SAR acquisition network from structured stack containers, timeseries
// containers or flat text lists, and reconciles an independently computed
// per-pair coherence list against the authoritative pair list.
package network

// Model is the resolved network. It is assembled once per load and consumed
// read-only by the rendering layer.
type Model struct {
	// Dates holds every acquisition key (YYYYMMDD) in source order.
	Dates []string
	// Pbase holds the perpendicular baseline per date, index-aligned with Dates.
	Pbase []float64
	// Pairs is the authoritative pair universe (date12 keys) in source order.
	Pairs []string

	// KeptPairs and DroppedPairs partition Pairs for sources that carry a
	// drop flag. Flat-text sources have no drop concept: KeptPairs == Pairs
	// and DroppedPairs is empty.
	KeptPairs    []string
	DroppedPairs []string

	// KeptDates is the sorted set of dates appearing in any kept pair;
	// DroppedDates is the sorted remainder of Dates.
	KeptDates    []string
	DroppedDates []string

	// Coherence is the per-pair average coherence aligned to Pairs, or
	// absent when no trustworthy full-coverage mapping could be built.
	Coherence Coherence
}

// Coherence is an optional per-pair value list. Absence is explicit rather
// than signaled through NaN values, so downstream code cannot mistake a
// sentinel for data.
type Coherence struct {
	values []float64
	ok     bool
}

// AlignedCoherence wraps values that are index-aligned with Model.Pairs.
func AlignedCoherence(values []float64) Coherence {
	return Coherence{values: values, ok: true}
}

// NoCoherence is the absent value.
func NoCoherence() Coherence {
	return Coherence{}
}

// Present reports whether coherence values are available.
func (c Coherence) Present() bool {
	return c.ok
}

// Values returns the aligned values, or nil when absent.
func (c Coherence) Values() []float64 {
	if !c.ok {
		return nil
	}
	return c.values
}

// At returns the coherence of the pair at index i of Model.Pairs.
func (c Coherence) At(i int) float64 {
	return c.values[i]
}

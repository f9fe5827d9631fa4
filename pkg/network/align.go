package network

import "math"

// AlignStatus reports how a coherence list relates to the authoritative
// pair list.
type AlignStatus int

const (
	// AlignExact means the coherence keys match the pair list exactly
	// (any order); values were re-indexed into pair-list order.
	AlignExact AlignStatus = iota
	// AlignSuperset means the coherence computation covered extra pairs;
	// values were re-indexed and the extras dropped.
	AlignSuperset
	// AlignAllNaN means every coherence value was NaN; the list is unusable.
	AlignAllNaN
	// AlignIncomplete means at least one pair has no coherence value.
	// Partial coverage is treated as no coverage, never as a sparse map.
	AlignIncomplete
)

// Aligned reports whether the status carries usable values.
func (s AlignStatus) Aligned() bool {
	return s == AlignExact || s == AlignSuperset
}

// String returns a diagnostic name for the status.
func (s AlignStatus) String() string {
	switch s {
	case AlignExact:
		return "exact"
	case AlignSuperset:
		return "superset"
	case AlignAllNaN:
		return "all-nan"
	case AlignIncomplete:
		return "incomplete"
	default:
		return "unknown"
	}
}

// AlignCoherence reconciles an independently computed coherence list
// (cohKeys, cohValues in computed order) against the authoritative pair
// list. It returns values re-indexed into pairs order, or nil when the
// list must be discarded:
//
//  1. every value NaN: discard;
//  2. cohKeys covers more than pairs: re-index, drop the extras;
//  3. any pair missing from cohKeys: discard; rendering a pair without
//     color information would be silently wrong;
//  4. exact key-set match: re-index.
//
// Pure function, no file I/O.
func AlignCoherence(pairs, cohKeys []string, cohValues []float64) ([]float64, AlignStatus) {
	allNaN := true
	for _, v := range cohValues {
		if !math.IsNaN(v) {
			allNaN = false
			break
		}
	}
	if allNaN {
		return nil, AlignAllNaN
	}

	// First occurrence wins for duplicate keys.
	index := make(map[string]int, len(cohKeys))
	for i, k := range cohKeys {
		if _, ok := index[k]; !ok {
			index[k] = i
		}
	}

	aligned := make([]float64, len(pairs))
	unique := make(map[string]struct{}, len(pairs))
	for i, p := range pairs {
		j, ok := index[p]
		if !ok {
			return nil, AlignIncomplete
		}
		aligned[i] = cohValues[j]
		unique[p] = struct{}{}
	}

	if len(index) > len(unique) {
		return aligned, AlignSuperset
	}
	return aligned, AlignExact
}

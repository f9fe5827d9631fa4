package stack

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// BaselineTimeSeries derives the per-date perpendicular baseline series of an
// ifgramStack container from its per-pair baselines. Every acquisition is
// included regardless of drop flags. The series is referenced to the first
// date, which is pinned at zero; the remaining values come from a
// least-squares solve of the pair difference equations
// bperp(m, s) = pbase(s) - pbase(m).
func (s *Stack) BaselineTimeSeries() ([]float64, error) {
	dates, err := s.FullDateList()
	if err != nil {
		return nil, err
	}
	pairs, err := s.FullPairList()
	if err != nil {
		return nil, err
	}
	bperp, err := s.PairBaselines()
	if err != nil {
		return nil, err
	}
	if len(bperp) != len(pairs) {
		return nil, &SectionError{Op: "read", Path: s.path, Section: SectionBperp,
			Cause: fmt.Errorf("%d baselines for %d pairs", len(bperp), len(pairs))}
	}

	if len(dates) <= 1 {
		return make([]float64, len(dates)), nil
	}

	index := make(map[string]int, len(dates))
	for i, d := range dates {
		index[d] = i
	}

	// One equation per pair, one unknown per date after the reference.
	a := mat.NewDense(len(pairs), len(dates)-1, nil)
	b := mat.NewVecDense(len(pairs), nil)
	for r, p := range pairs {
		m, sec, _ := strings.Cut(p, "_")
		mi, si := index[m], index[sec]
		if mi > 0 {
			a.Set(r, mi-1, -1)
		}
		if si > 0 {
			a.Set(r, si-1, 1)
		}
		b.SetVec(r, bperp[r])
	}

	x := mat.NewVecDense(len(dates)-1, nil)
	if err := x.SolveVec(a, b); err != nil {
		// An ill-conditioned but solvable system still yields the series.
		if _, ok := err.(mat.Condition); !ok {
			return nil, &SectionError{Op: "solve", Path: s.path, Section: SectionBperp, Cause: err}
		}
	}

	series := make([]float64, len(dates))
	for i := 1; i < len(dates); i++ {
		series[i] = x.AtVec(i - 1)
	}
	return series, nil
}

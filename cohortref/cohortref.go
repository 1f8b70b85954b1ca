// Package cohortref builds a percentile reference from one cohort and maps
// scores of any cohort onto it.
package cohortref

import (
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/ailabstw/PGSbuilder/prediction"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// HistogramBins is the number of bins of the density histogram.
const HistogramBins = 100

// Anchors are the percentile ranks stored in a reference.
var Anchors = func() []float64 {
	out := make([]float64, 0, 104)
	for i := 0; i < 100; i++ {
		out = append(out, float64(i))
	}
	return append(out, 99.5, 99.7, 99.9, 100)
}()

// Reference holds, per algorithm, the score at each rank anchor and the
// density histogram over [score at rank 0, score at rank 100]. Histogram is
// nil for references read back from disk.
type Reference struct {
	Ranks      []float64
	Algorithms []string
	Scores     map[string][]float64
	Histogram  map[string][]float64
}

// Build computes the reference of every algorithm column of t.
func Build(t *prediction.Table) (*Reference, error) {
	ref := &Reference{
		Ranks:      append([]float64(nil), Anchors...),
		Algorithms: make([]string, 0, len(t.Algorithms)),
		Scores:     make(map[string][]float64, len(t.Algorithms)),
		Histogram:  make(map[string][]float64, len(t.Algorithms)),
	}

	for _, algo := range t.Algorithms {
		sorted := make([]float64, 0, t.Len())
		for _, v := range t.Scores[algo] {
			if !math.IsNaN(v) {
				sorted = append(sorted, v)
			}
		}
		if len(sorted) == 0 {
			return nil, fmt.Errorf("%s: no scores to build a reference from", algo)
		}
		sort.Float64s(sorted)

		scores := make([]float64, len(ref.Ranks))
		for i, rank := range ref.Ranks {
			scores[i] = Percentile(sorted, rank)
		}

		ref.Algorithms = append(ref.Algorithms, algo)
		ref.Scores[algo] = scores
		ref.Histogram[algo] = Density(sorted, scores[0], scores[len(scores)-1], HistogramBins)
	}

	return ref, nil
}

// Percentile returns the value at rank (0 to 100) of sorted data, linearly
// interpolating between the two closest order statistics.
func Percentile(sorted []float64, rank float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}

	h := rank / 100 * float64(n-1)
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	if lo < 0 {
		return sorted[0]
	}

	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Density returns a bins-bin density histogram of sorted over [lo, hi]. The
// last bin includes hi. A degenerate range is widened by 0.5 on each side.
// Values outside the range are ignored.
func Density(sorted []float64, lo, hi float64, bins int) []float64 {
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	dividers := make([]float64, bins+1)
	floats.Span(dividers, lo, hi)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	inRange := make([]float64, 0, len(sorted))
	for _, v := range sorted {
		if v >= lo && v <= hi {
			inRange = append(inRange, v)
		}
	}

	counts := make([]float64, bins)
	if len(inRange) == 0 {
		return counts
	}
	counts = stat.Histogram(counts, dividers, inRange, nil)

	width := (hi - lo) / float64(bins)
	total := float64(len(inRange))
	for i := range counts {
		counts[i] /= total * width
	}

	return counts
}

// Rank maps one score of algo onto the reference's percentile scale.
func (r *Reference) Rank(algo string, score float64) (float64, bool) {
	xp, ok := r.Scores[algo]
	if !ok {
		return 0, false
	}

	return interpolate(score, xp, r.Ranks), true
}

// interpolate follows the score->rank curve. Below the first anchor it clamps
// to the first rank and at or above the last anchor to the last rank. Among
// tied anchors, the highest rank wins.
func interpolate(x float64, xp, fp []float64) float64 {
	n := len(xp)
	if math.IsNaN(x) {
		return math.NaN()
	}
	if x < xp[0] {
		return fp[0]
	}
	if x >= xp[n-1] {
		return fp[n-1]
	}

	j := sort.Search(n, func(k int) bool { return xp[k] > x })
	i := j - 1
	if x == xp[i] {
		return fp[i]
	}

	return fp[i] + (x-xp[i])*(fp[j]-fp[i])/(xp[j]-xp[i])
}

// Apply returns a new table with the identity columns of t and, for every
// algorithm known to both, the percentile rank of each score. The reference
// is not modified.
func (r *Reference) Apply(t *prediction.Table) *prediction.Table {
	out := t.IdentityColumns()

	for _, algo := range t.Algorithms {
		if _, ok := r.Scores[algo]; !ok {
			log.Printf("%s is not in the rank reference, skipping\n", algo)
			continue
		}

		src := t.Scores[algo]
		ranks := make([]float64, len(src))
		for i, v := range src {
			ranks[i], _ = r.Rank(algo, v)
		}
		out.Algorithms = append(out.Algorithms, algo)
		out.Scores[algo] = ranks
	}

	return out
}

// Validate checks that ranks ascend and every algorithm's scores are
// non-decreasing along them.
func (r *Reference) Validate() error {
	if len(r.Ranks) < 2 {
		return fmt.Errorf("rank reference needs at least 2 anchors, has %d", len(r.Ranks))
	}
	if !sort.Float64sAreSorted(r.Ranks) {
		return fmt.Errorf("rank reference anchors are not ascending")
	}
	for _, algo := range r.Algorithms {
		scores := r.Scores[algo]
		if len(scores) != len(r.Ranks) {
			return fmt.Errorf("%s: %d scores for %d anchors", algo, len(scores), len(r.Ranks))
		}
		if !sort.Float64sAreSorted(scores) {
			return fmt.Errorf("%s: reference scores decrease along the rank anchors", algo)
		}
	}

	return nil
}

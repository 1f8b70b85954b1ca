package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Curve is a sampled ROC or precision-recall curve.
type Curve struct {
	X []float64
	Y []float64
}

// Correlation is a coefficient with its two-sided p-value.
type Correlation struct {
	R float64
	P float64
}

// ROC returns the ROC curve (X is the false positive rate, Y the true
// positive rate) and the area under it. Both classes must be present,
// otherwise the curve is nil and the area NaN.
func ROC(scores []float64, labels []bool) (Curve, float64) {
	if pos, neg := classCounts(labels); pos == 0 || neg == 0 {
		return Curve{}, math.NaN()
	}

	y := append([]float64(nil), scores...)
	classes := append([]bool(nil), labels...)
	stat.SortWeightedLabeled(y, classes, nil)

	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)

	return Curve{X: fpr, Y: tpr}, integrate.Trapezoidal(fpr, tpr)
}

// PrecisionRecall returns the precision-recall curve (X is recall, Y
// precision) and the average precision, the recall-weighted mean of the
// precision at every distinct threshold.
func PrecisionRecall(scores []float64, labels []bool) (Curve, float64) {
	pos, _ := classCounts(labels)
	if pos == 0 {
		return Curve{}, math.NaN()
	}

	order := descending(scores)

	c := Curve{X: []float64{0}, Y: []float64{1}}
	var tp, fp int
	var ap, prevRecall float64
	for k, i := range order {
		if labels[i] {
			tp++
		} else {
			fp++
		}
		if k+1 < len(order) && scores[order[k+1]] == scores[i] {
			continue
		}

		recall := float64(tp) / float64(pos)
		precision := float64(tp) / float64(tp+fp)
		ap += (recall - prevRecall) * precision
		prevRecall = recall

		c.X = append(c.X, recall)
		c.Y = append(c.Y, precision)
	}

	return c, ap
}

// Pearson is the linear correlation of x and y.
func Pearson(x, y []float64) Correlation {
	if len(x) < 3 {
		return Correlation{R: math.NaN(), P: math.NaN()}
	}

	r := stat.Correlation(x, y, nil)

	return Correlation{R: r, P: correlationP(r, len(x))}
}

// Spearman is the Pearson correlation of the average ranks of x and y.
func Spearman(x, y []float64) Correlation {
	return Pearson(Ranks(x), Ranks(y))
}

// Ranks returns 1-based ranks with ties sharing their average rank.
func Ranks(x []float64) []float64 {
	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return x[order[a]] < x[order[b]] })

	out := make([]float64, len(x))
	for lo := 0; lo < len(order); {
		hi := lo + 1
		for hi < len(order) && x[order[hi]] == x[order[lo]] {
			hi++
		}
		// Positions lo..hi-1 hold ranks lo+1..hi.
		avg := float64(lo+1+hi) / 2
		for _, i := range order[lo:hi] {
			out[i] = avg
		}
		lo = hi
	}

	return out
}

// correlationP tests r against 0 with a t distribution on n-2 degrees of
// freedom.
func correlationP(r float64, n int) float64 {
	if math.IsNaN(r) {
		return math.NaN()
	}
	if math.Abs(r) >= 1 {
		return 0
	}

	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}

	return 2 * dist.CDF(-math.Abs(t))
}

func classCounts(labels []bool) (pos, neg int) {
	for _, l := range labels {
		if l {
			pos++
		} else {
			neg++
		}
	}

	return pos, neg
}

// descending returns the indices of scores ordered from the highest score to
// the lowest. Ties keep their input order and NaN sorts last.
func descending(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		x, y := scores[order[a]], scores[order[b]]
		if math.IsNaN(y) {
			return !math.IsNaN(x)
		}
		return x > y
	})

	return order
}

package analysis

import (
	"math"

	fet "github.com/glycerine/golang-fisher-exact"
	"github.com/montanaflynn/stats"
)

// z of the two-sided 95% normal interval.
const waldZ = 1.96

// Bin is one percentile stratum. Rows index the analyzed samples.
type Bin struct {
	Label float64
	Rows  []int
}

// OddsRatioRow is one line of the classification percentile table.
type OddsRatioRow struct {
	Tool       string  `csv:"tool"`
	Percentile float64 `csv:"percentile"`
	OR         float64 `csv:"OR"`
	CIUpper    float64 `csv:"ci_upper"`
	CILower    float64 `csv:"ci_lower"`
	PosNum     int     `csv:"pos_num"`
	NegNum     int     `csv:"neg_num"`
	FisherP    float64 `csv:"fisher_p"`
}

// PhenotypeRow is one line of the regression percentile table.
type PhenotypeRow struct {
	Tool       string  `csv:"tool"`
	Percentile float64 `csv:"percentile"`
	Count      int     `csv:"count"`
	Mean       float64 `csv:"mean"`
	SD         float64 `csv:"sd"`
}

// BinLabel is the label of the k-th bin counted from the top.
func BinLabel(k, n int) float64 {
	return 100 - float64(k)*100/float64(n)
}

// Bins stratifies the samples by score, highest first, into n bins of
// floor(N/n) samples. The remainder goes to the last (lowest-risk) bin.
func Bins(scores []float64, n int) []Bin {
	order := descending(scores)
	size := len(order) / n

	out := make([]Bin, n)
	for k := range out {
		lo, hi := k*size, (k+1)*size
		if k == n-1 {
			hi = len(order)
		}
		out[k] = Bin{Label: BinLabel(k, n), Rows: order[lo:hi]}
	}

	return out
}

// OddsRatio compares a bin holding a cases and b controls with a reference
// bin holding c cases and d controls. Every cell gets 0.5 added, so the
// result is finite for empty cells. The interval is the 95% Wald interval
// on log(OR).
func OddsRatio(a, b, c, d int) (or, upper, lower float64) {
	fa, fb, fc, fd := float64(a)+0.5, float64(b)+0.5, float64(c)+0.5, float64(d)+0.5

	or = (fa * fd) / (fb * fc)
	se := math.Sqrt(1/fa + 1/fb + 1/fc + 1/fd)
	upper = math.Exp(math.Log(or) + waldZ*se)
	lower = math.Exp(math.Log(or) - waldZ*se)

	return or, upper, lower
}

// OddsRatios builds the classification percentile table of one tool. The
// reference is the lowest-risk bin.
func OddsRatios(tool string, scores []float64, labels []bool, n int) []OddsRatioRow {
	bins := Bins(scores, n)

	count := func(b Bin) (pos, neg int) {
		for _, i := range b.Rows {
			if labels[i] {
				pos++
			} else {
				neg++
			}
		}
		return pos, neg
	}

	refPos, refNeg := count(bins[len(bins)-1])

	out := make([]OddsRatioRow, 0, len(bins))
	for k := len(bins) - 1; k >= 0; k-- {
		pos, neg := count(bins[k])
		or, upper, lower := OddsRatio(pos, neg, refPos, refNeg)
		_, _, _, twop := fet.FisherExactTest(pos, neg, refPos, refNeg)

		out = append(out, OddsRatioRow{
			Tool:       tool,
			Percentile: bins[k].Label,
			OR:         or,
			CIUpper:    upper,
			CILower:    lower,
			PosNum:     pos,
			NegNum:     neg,
			FisherP:    twop,
		})
	}

	return out
}

// PhenotypeByBin builds the regression percentile table of one tool: the
// count, mean and sample standard deviation of the phenotype in every bin.
func PhenotypeByBin(tool string, scores, phenotypes []float64, n int) []PhenotypeRow {
	bins := Bins(scores, n)

	out := make([]PhenotypeRow, 0, len(bins))
	for k := len(bins) - 1; k >= 0; k-- {
		values := make(stats.Float64Data, 0, len(bins[k].Rows))
		for _, i := range bins[k].Rows {
			values = append(values, phenotypes[i])
		}

		row := PhenotypeRow{
			Tool:       tool,
			Percentile: bins[k].Label,
			Count:      len(values),
			Mean:       math.NaN(),
			SD:         math.NaN(),
		}
		if len(values) > 0 {
			row.Mean, _ = stats.Mean(values)
			row.SD, _ = stats.StandardDeviationSample(values)
		}
		out = append(out, row)
	}

	return out
}

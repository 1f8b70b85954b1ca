package analysis

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ailabstw/PGSbuilder/prediction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/guregu/null.v3"
)

func table(t *testing.T, phenotypes []null.Float, cols map[string][]float64, order ...string) *prediction.Table {
	t.Helper()

	samples := make([]prediction.Sample, len(phenotypes))
	for i, p := range phenotypes {
		samples[i] = prediction.Sample{FID: "f", IID: string(rune('a' + i)), Phenotype: p}
	}
	tab := prediction.New(samples)
	for _, name := range order {
		require.NoError(t, tab.AddColumn(name, cols[name]))
	}

	return tab
}

func TestPerfectClassifier(t *testing.T) {
	scores := []float64{0.9, 0.8, 0.3, 0.1}
	labels := []bool{true, true, false, false}

	roc, auc := ROC(scores, labels)
	assert.InDelta(t, 1, auc, 1e-12)
	assert.Equal(t, 0.0, roc.X[0])
	assert.Equal(t, 1.0, roc.X[len(roc.X)-1])

	_, ap := PrecisionRecall(scores, labels)
	assert.InDelta(t, 1, ap, 1e-12)

	rows := OddsRatios("PRScs", scores, labels, 2)
	require.Len(t, rows, 2)

	// The lowest-risk bin is its own reference.
	assert.Equal(t, 50.0, rows[0].Percentile)
	assert.InDelta(t, 1, rows[0].OR, 1e-12)

	top := rows[1]
	assert.Equal(t, 100.0, top.Percentile)
	assert.Equal(t, 2, top.PosNum)
	assert.Equal(t, 0, top.NegNum)
	assert.Greater(t, top.OR, 1.0)
	assert.InDelta(t, 25, top.OR, 1e-12)
	assert.Less(t, top.CILower, top.OR)
	assert.Greater(t, top.CIUpper, top.OR)
}

func TestROCOneClass(t *testing.T) {
	c, auc := ROC([]float64{0.1, 0.2}, []bool{true, true})
	assert.True(t, math.IsNaN(auc))
	assert.Nil(t, c.X)

	_, ap := PrecisionRecall([]float64{0.1, 0.2}, []bool{false, false})
	assert.True(t, math.IsNaN(ap))
}

func TestAveragePrecision(t *testing.T) {
	// Ranked T F T F: precision 1 at recall 0.5, 2/3 at recall 1.
	_, ap := PrecisionRecall([]float64{4, 3, 2, 1}, []bool{true, false, true, false})
	assert.InDelta(t, 0.5*1+0.5*2.0/3, ap, 1e-12)
}

func TestOddsRatio(t *testing.T) {
	or, upper, lower := OddsRatio(0, 0, 0, 0)
	for _, v := range []float64{or, upper, lower} {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
	assert.InDelta(t, 1, or, 1e-12)

	or, upper, lower = OddsRatio(10, 5, 3, 12)
	assert.InDelta(t, (10.5*12.5)/(5.5*3.5), or, 1e-12)
	se := math.Sqrt(1/10.5 + 1/5.5 + 1/3.5 + 1/12.5)
	assert.InDelta(t, math.Exp(math.Log(or)+1.96*se), upper, 1e-9)
	assert.InDelta(t, math.Exp(math.Log(or)-1.96*se), lower, 1e-9)
}

func TestBins(t *testing.T) {
	scores := []float64{5, 1, 9, 3, 7, 2, 8, 4, 6, 10}
	bins := Bins(scores, 3)
	require.Len(t, bins, 3)

	assert.Equal(t, 100.0, bins[0].Label)
	assert.InDelta(t, 200.0/3, bins[1].Label, 1e-12)
	assert.InDelta(t, 100.0/3, bins[2].Label, 1e-12)

	// Three per bin, the remainder in the lowest bin.
	assert.Equal(t, []int{9, 2, 6}, bins[0].Rows)
	assert.Equal(t, []int{4, 8, 0}, bins[1].Rows)
	assert.Equal(t, []int{7, 3, 5, 1}, bins[2].Rows)

	// Ties keep their input order.
	bins = Bins([]float64{1, 1, 1, 1}, 2)
	assert.Equal(t, []int{0, 1}, bins[0].Rows)
	assert.Equal(t, []int{2, 3}, bins[1].Rows)

	// More bins than samples.
	bins = Bins([]float64{1, 2}, 4)
	assert.Empty(t, bins[0].Rows)
	assert.Len(t, bins[3].Rows, 2)
}

func TestCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}

	p := Pearson(x, []float64{2, 4, 6, 8, 10})
	assert.InDelta(t, 1, p.R, 1e-12)
	assert.InDelta(t, 0, p.P, 1e-6)

	// Monotone but not linear.
	s := Spearman(x, []float64{1, 8, 27, 64, 125})
	assert.InDelta(t, 1, s.R, 1e-12)
	assert.Less(t, Pearson(x, []float64{1, 8, 27, 64, 125}).R, 1.0)

	weak := Pearson([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, []float64{2, 1, 4, 3, 7, 5, 4, 9, 3, 6})
	assert.Greater(t, weak.P, 0.0)
	assert.Less(t, weak.P, 1.0)

	short := Pearson([]float64{1, 2}, []float64{1, 2})
	assert.True(t, math.IsNaN(short.R))
	assert.True(t, math.IsNaN(short.P))
}

func TestRanks(t *testing.T) {
	assert.Equal(t, []float64{3, 1.5, 4, 1.5, 5}, Ranks([]float64{3, 1, 4, 1, 5}))
	assert.Equal(t, []float64{2, 2, 2}, Ranks([]float64{7, 7, 7}))
}

func TestPhenotypeByBin(t *testing.T) {
	rows := PhenotypeByBin("PRScs", []float64{1, 2, 3, 4, 5, 6}, []float64{10, 20, 30, 40, 50, 60}, 3)
	require.Len(t, rows, 3)

	assert.InDelta(t, 100.0/3, rows[0].Percentile, 1e-12)
	assert.Equal(t, 2, rows[0].Count)
	assert.InDelta(t, 15, rows[0].Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(50), rows[0].SD, 1e-12)

	assert.Equal(t, 100.0, rows[2].Percentile)
	assert.InDelta(t, 55, rows[2].Mean, 1e-12)
}

func TestNewRejectsUnknownMethod(t *testing.T) {
	_, err := New(prediction.Method("foo"), DefaultPercentileNum)
	assert.True(t, errors.Is(err, ErrUnknownMethod), "%v", err)

	_, err = New(prediction.Classification, 0)
	assert.Error(t, err)
}

func TestRunClassification(t *testing.T) {
	tab := table(t,
		[]null.Float{null.FloatFrom(1), null.FloatFrom(1), null.FloatFrom(0), null.FloatFrom(0), {}},
		map[string][]float64{
			"PRScs":  {0.9, 0.8, 0.3, 0.1, 0.5},
			"Random": {0.9, 0.1, 0.8, 0.3, 0.5},
		},
		"PRScs", "Random",
	)

	a, err := New(prediction.Classification, 2)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "analysis")
	r, err := a.Run(tab, dir)
	require.NoError(t, err)
	assert.Equal(t, 4, r.Samples)
	assert.Len(t, r.OddsRatios, 4)

	data, err := os.ReadFile(filepath.Join(dir, PerformanceFile))
	require.NoError(t, err)
	var perf map[string]map[string]*float64
	require.NoError(t, json.Unmarshal(data, &perf))
	require.NotNil(t, perf["ROC"]["PRScs"])
	assert.InDelta(t, 1, *perf["ROC"]["PRScs"], 1e-12)
	assert.InDelta(t, 0.5, *perf["ROC"]["Random"], 1e-12)
	assert.Contains(t, perf["PRC"], "Random")

	data, err = os.ReadFile(filepath.Join(dir, ROCFile))
	require.NoError(t, err)
	var roc map[string]struct {
		FPR []float64 `json:"fpr"`
		TPR []float64 `json:"tpr"`
		AUC float64   `json:"auc"`
	}
	require.NoError(t, json.Unmarshal(data, &roc))
	assert.Equal(t, len(roc["PRScs"].FPR), len(roc["PRScs"].TPR))
	assert.InDelta(t, 1, roc["PRScs"].AUC, 1e-12)

	data, err = os.ReadFile(filepath.Join(dir, PercentileFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, "tool,percentile,OR,ci_upper,ci_lower,pos_num,neg_num,fisher_p", lines[0])
	assert.Len(t, lines, 5)

	wb, err := excelize.OpenFile(filepath.Join(dir, WorkbookFile))
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows("performance")
	require.NoError(t, err)
	assert.Equal(t, []string{"tool", "auROC", "auPRC"}, rows[0])
	assert.Equal(t, "PRScs", rows[1][0])
	rows, err = wb.GetRows("percentile")
	require.NoError(t, err)
	assert.Len(t, rows, 5)

	data, err = os.ReadFile(filepath.Join(dir, DistributionFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "PRScs, case (n=2")
	assert.Contains(t, string(data), "Random, control (n=2")
}

func TestRunClassificationSingleClass(t *testing.T) {
	tab := table(t,
		[]null.Float{null.FloatFrom(1), null.FloatFrom(1), null.FloatFrom(1)},
		map[string][]float64{"PRScs": {0.1, 0.2, 0.3}},
		"PRScs",
	)

	a, err := New(prediction.Classification, 2)
	require.NoError(t, err)

	dir := t.TempDir()
	_, err = a.Run(tab, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, PerformanceFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"PRScs":null`)
}

func TestRunClassificationRejectsNonBinary(t *testing.T) {
	tab := table(t,
		[]null.Float{null.FloatFrom(1), null.FloatFrom(2)},
		map[string][]float64{"PRScs": {0.1, 0.2}},
		"PRScs",
	)

	a, err := New(prediction.Classification, 2)
	require.NoError(t, err)
	_, err = a.Analyze(tab)
	assert.Error(t, err)
}

func TestRunRegression(t *testing.T) {
	tab := table(t,
		[]null.Float{null.FloatFrom(10), null.FloatFrom(20), null.FloatFrom(30), null.FloatFrom(40), null.FloatFrom(50), null.FloatFrom(60)},
		map[string][]float64{"PRScs": {1, 2, 3, 4, 5, 6}},
		"PRScs",
	)

	a, err := New(prediction.Regression, 3)
	require.NoError(t, err)

	dir := t.TempDir()
	r, err := a.Run(tab, dir)
	require.NoError(t, err)
	assert.InDelta(t, 1, r.Pearson["PRScs"].R, 1e-12)
	assert.InDelta(t, 1, r.Spearman["PRScs"].R, 1e-12)
	assert.Len(t, r.Phenotype, 3)

	data, err := os.ReadFile(filepath.Join(dir, PerformanceFile))
	require.NoError(t, err)
	var perf map[string]map[string][]float64
	require.NoError(t, json.Unmarshal(data, &perf))
	require.Len(t, perf["Pearson"]["PRScs"], 2)
	assert.InDelta(t, 1, perf["Pearson"]["PRScs"][0], 1e-12)
	assert.Contains(t, perf, "Spearman")

	_, err = os.Stat(filepath.Join(dir, ROCFile))
	assert.True(t, os.IsNotExist(err))

	data, err = os.ReadFile(filepath.Join(dir, PercentileFile))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "tool,percentile,count,mean,sd\n"))
}

func TestRunSkipsMissingScores(t *testing.T) {
	phenotypes := []null.Float{null.FloatFrom(1), null.FloatFrom(1), null.FloatFrom(0), null.FloatFrom(0), null.FloatFrom(1)}
	tab := table(t, phenotypes, map[string][]float64{
		"PRScs":   {0.9, 0.8, 0.3, 0.1, math.NaN()},
		"LDpred2": {0.5, 0.4, 0.2, 0.1, 0.3},
	}, "PRScs", "LDpred2")

	a, err := New(prediction.Classification, 2)
	require.NoError(t, err)

	dir := t.TempDir()
	r, err := a.Run(tab, dir)
	require.NoError(t, err)
	assert.Equal(t, 5, r.Samples)
	assert.InDelta(t, 1, r.AUC["PRScs"], 1e-12)
	assert.InDelta(t, 1, r.AUC["LDpred2"], 1e-12)

	counted := map[string]int{}
	for _, row := range r.OddsRatios {
		counted[row.Tool] += row.PosNum + row.NegNum
	}
	assert.Equal(t, map[string]int{"PRScs": 4, "LDpred2": 5}, counted)

	dist, err := os.ReadFile(filepath.Join(dir, DistributionFile))
	require.NoError(t, err)
	assert.Contains(t, string(dist), "PRScs, case (n=2,")
	assert.Contains(t, string(dist), "LDpred2, case (n=3,")

	a, err = New(prediction.Regression, 2)
	require.NoError(t, err)
	tab = table(t, []null.Float{null.FloatFrom(1), null.FloatFrom(2), null.FloatFrom(3), null.FloatFrom(4)}, map[string][]float64{
		"PRScs": {1, math.NaN(), 3, 4},
	}, "PRScs")
	r, err = a.Run(tab, t.TempDir())
	require.NoError(t, err)
	assert.InDelta(t, 1, r.Pearson["PRScs"].R, 1e-12)
	assert.Equal(t, 3, r.Phenotype[0].Count+r.Phenotype[1].Count)
}

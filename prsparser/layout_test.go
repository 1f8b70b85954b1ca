package prsparser

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func TestPRScsLayout(t *testing.T) {
	data := []byte("1\trs1\t751756\tC\tT\t1.4113e-06\n1\trs2\t752721\tA\tG\t-0.002\n")
	rows, err := ParseBetaTable(data, WeightLayouts["PRScs"])
	require.NoError(t, err)
	require.Len(t, rows, 2)

	if rows[0].SNP != "rs1" ||
		rows[0].EffectAllele != Allele("C") ||
		rows[0].Score != 1.4113e-06 {
		t.Errorf("Mismatch: %+v", rows[0])
	}
	assert.Equal(t, -0.002, rows[1].Score)
}

func TestLDpred2Layout(t *testing.T) {
	data := []byte("rsid a1 beta\nrs1 T 0.5\nrs2 g -0.25\n")
	rows, err := ParseBetaTable(data, WeightLayouts["LDpred2"])
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[1].EffectAllele.Matches("G"))
	assert.Equal(t, -0.25, rows[1].Score)
}

func TestLDpred2LayoutMissingColumn(t *testing.T) {
	_, err := ParseBetaTable([]byte("rsid beta\nrs1 0.5\n"), WeightLayouts["LDpred2"])
	assert.Error(t, err)
}

func TestParseThreshold(t *testing.T) {
	v, err := ParseThreshold([]byte("0.05 12 345\n"))
	require.NoError(t, err)
	assert.Equal(t, 0.05, v)

	_, err = ParseThreshold([]byte("\n"))
	assert.Error(t, err)
}

func TestParseBetaVector(t *testing.T) {
	v, err := ParseBetaVector([]byte("0.1\n-0.2\n0\n"))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, -0.2, 0}, v)

	_, err = ParseBetaVector([]byte("0.1\nabc\n"))
	assert.Error(t, err)
}

func TestParseScoresWhitespaceAndComma(t *testing.T) {
	profile := []byte("  FID  IID  PHENO    CNT   CNT2  SCORESUM\n  f1   i1   1   10  5  0.25\n  f2   i2   2   10  4  NA\n")
	rows, err := ParseScores(profile, ScoreLayouts["profile"], NAValues)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 0.25, rows[0].Score)
	assert.True(t, rows[1].Missing)
	assert.True(t, math.IsNaN(rows[1].Score))

	csv := []byte("FID,IID,score\nf1,i1,0.9\n")
	rows, err = ParseScores(csv, ScoreLayouts["GenEpi"], NAValues)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "i1", rows[0].IID)
	assert.Equal(t, 0.9, rows[0].Score)

	_, err = ParseScores([]byte("FID,IID,score\nf1,i1,0.9\nf2,i2,abc\n"), ScoreLayouts["GenEpi"], NAValues)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data row 2 (f2 i2)")
}

func TestLoaderMissingArtifact(t *testing.T) {
	dir := t.TempDir()
	l := Loader{Dir: dir, Basename: "cohort"}

	_, err := l.Load(context.Background(), "Lassosum", WeightLayouts["Lassosum"])
	assert.True(t, errors.Is(err, ErrMissingArtifact), "got %v", err)
}

func TestLoaderThresholdDefaultsToZero(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "CandT", "cohort.valid.snp"), "rs1\nrs2\n")

	l := Loader{Dir: dir, Basename: "cohort"}
	a, err := l.Load(context.Background(), "CandT", WeightLayouts["CandT"])
	require.NoError(t, err)
	assert.Equal(t, 0.0, a.Threshold)
	assert.Len(t, a.Selected, 2)

	writeFile(t, filepath.Join(dir, "CandT", "best_pvalue_range"), "0.001\t5\n")
	a, err = l.Load(context.Background(), "CandT", WeightLayouts["CandT"])
	require.NoError(t, err)
	assert.Equal(t, 0.001, a.Threshold)
}

func TestResolve(t *testing.T) {
	assert.Equal(t, "LDpred2/cohort.beta.tsv", Resolve(WeightLayouts["LDpred2"].BetaFile, "LDpred2", "cohort"))
	assert.Contains(t, LayoutNames(), "PRScs")
}

func TestScoreLayoutNames(t *testing.T) {
	assert.Equal(t, []string{"profile", "GenEpi"}, ScoreLayoutNames(ScoreLayouts))

	layouts := map[string]ScoreLayout{
		"b":     {Pattern: "{prefix}.b.txt", Algorithm: "b"},
		"a":     {Pattern: "{prefix}.a.txt", Algorithm: "a"},
		"other": {Pattern: "{prefix}.*.sscore"},
	}
	assert.Equal(t, []string{"other", "a", "b"}, ScoreLayoutNames(layouts))
}

package prsresults

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	pgsbuilder "github.com/ailabstw/PGSbuilder"
	"github.com/ailabstw/PGSbuilder/config"
	"github.com/ailabstw/PGSbuilder/prediction"
	"github.com/ailabstw/PGSbuilder/prsparser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func TestPhenotypeTable(t *testing.T) {
	fam := []pgsbuilder.FAMRow{
		{FID: "f1", IID: "i1", Phenotype: "1"},
		{FID: "f2", IID: "i2", Phenotype: "2"},
		{FID: "f3", IID: "i3", Phenotype: "-9"},
		{FID: "f4", IID: "i4", Phenotype: "0"},
		{FID: "f5", IID: "i5", Phenotype: "NA"},
	}

	clf, err := PhenotypeTable(fam, prediction.Classification, prsparser.NAValues)
	require.NoError(t, err)
	assert.Equal(t, []null.Float{
		null.FloatFrom(0), null.FloatFrom(1), {}, null.FloatFrom(0), {},
	}, []null.Float{
		clf.Samples[0].Phenotype, clf.Samples[1].Phenotype, clf.Samples[2].Phenotype, clf.Samples[3].Phenotype, clf.Samples[4].Phenotype,
	})

	reg, err := PhenotypeTable(fam, prediction.Regression, prsparser.NAValues)
	require.NoError(t, err)
	assert.Equal(t, null.FloatFrom(2), reg.Samples[1].Phenotype)
	assert.False(t, reg.Samples[2].Phenotype.Valid)

	_, err = PhenotypeTable([]pgsbuilder.FAMRow{{Phenotype: "case"}}, prediction.Classification, prsparser.NAValues)
	assert.Error(t, err)
}

func TestJoinFirstRowWins(t *testing.T) {
	tab := prediction.New([]prediction.Sample{{FID: "a", IID: "1"}, {FID: "b", IID: "2"}, {FID: "c", IID: "3"}})
	got := Join(tab, []prsparser.SampleScore{
		{FID: "b", IID: "2", Score: 0.2},
		{FID: "a", IID: "1", Score: 0.1},
		{FID: "a", IID: "1", Score: 9},
		{FID: "c", IID: "3", Score: math.NaN(), Missing: true},
	})
	assert.Equal(t, 0.1, got[0])
	assert.Equal(t, 0.2, got[1])
	assert.True(t, math.IsNaN(got[2]))
}

func TestFillOrDrop(t *testing.T) {
	nan := math.NaN()
	samples := make([]prediction.Sample, 10)
	tab := prediction.New(samples)
	require.NoError(t, tab.AddColumn("keep", []float64{5, nan, 3, 4, 6, 7, 8, 9, 10, 11}))
	require.NoError(t, tab.AddColumn("drop", []float64{5, nan, nan, 4, 6, 7, 8, 9, 10, 11}))
	require.NoError(t, tab.AddColumn("full", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}))

	dropped := FillOrDrop(tab, 0.1)
	assert.Equal(t, []string{"drop"}, dropped)
	assert.Equal(t, []string{"keep", "full"}, tab.Algorithms)
	assert.Equal(t, 3.0, tab.Scores["keep"][1])

	for _, algo := range tab.Algorithms {
		assert.Zero(t, prediction.MissingCount(tab.Scores[algo]), algo)
	}
}

func TestRunDropsSparseColumn(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "cohort.fam"), "f1 i1 0 0 1 2\nf2 i2 0 0 2 1\nf3 i3 0 0 1 -9\n")
	writeFile(t, filepath.Join(dir, "pred", "cohort.PRScs.profile"),
		" FID IID PHENO CNT CNT2 SCORESUM\n f1 i1 2 10 5 0.5\n f2 i2 1 10 5 0.25\n")
	writeFile(t, filepath.Join(dir, "pred", "cohort.CandT.profile"),
		" FID IID PHENO CNT CNT2 SCORESUM\n f1 i1 2 10 5 1\n f2 i2 1 10 5 2\n f3 i3 -9 10 5 3\n")
	writeFile(t, filepath.Join(dir, "pred", "cohort.GenEpi.csv"),
		"FID,IID,score\nf3,i3,0.3\nf1,i1,0.1\nf2,i2,0.2\n")

	a := Aggregator{Config: config.Default(), Method: prediction.Classification}
	tab, results, err := a.Run(context.Background(), filepath.Join(dir, "cohort.fam"), filepath.Join(dir, "pred", "cohort"))
	require.NoError(t, err)
	require.Len(t, results, 3)

	// PRScs covers 2 of 3 samples (33% missing) and is dropped.
	assert.Equal(t, []string{"CandT", "GenEpi"}, tab.Algorithms)
	assert.Equal(t, []float64{1, 2, 3}, tab.Scores["CandT"])
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, tab.Scores["GenEpi"])
	assert.Equal(t, null.FloatFrom(1), tab.Samples[0].Phenotype)
	assert.Equal(t, null.FloatFrom(0), tab.Samples[1].Phenotype)
	assert.False(t, tab.Samples[2].Phenotype.Valid)
}

func TestDiscoverCapturesAlgorithm(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "x.LDpred2.profile"), "")
	writeFile(t, filepath.Join(dir, "x.Lassosum.profile"), "")

	sources, err := Discover(context.Background(), filepath.Join(dir, "x"), config.Default().ScoreLayouts, nil)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "LDpred2", sources[0].Algorithm)
	assert.Equal(t, "Lassosum", sources[1].Algorithm)

	assert.Equal(t, "PRScs", captured("/a/b.*.profile", "/a/b.PRScs.profile"))
	assert.Equal(t, "", captured("/a/b.*.profile", "/a/c.PRScs.txt"))
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ailabstw/PGSbuilder/analysis"
	"github.com/ailabstw/PGSbuilder/cohortref"
	"github.com/ailabstw/PGSbuilder/covariate"
	"github.com/ailabstw/PGSbuilder/prediction"
	"github.com/ailabstw/PGSbuilder/prsparser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtures(t *testing.T) (predPath, covPath string) {
	t.Helper()
	dir := t.TempDir()

	var pred, cov strings.Builder
	pred.WriteString("FID,IID,phenotype,PRScs,LDpred2\n")
	cov.WriteString("FID\tIID\tsex\tage\n")
	for i := 0; i < 40; i++ {
		y := i % 2
		fmt.Fprintf(&pred, "f%d,i%d,%d,%g,%g\n", i, i, y, float64(i)/10+float64(y), float64((i*7)%40)/40)
		fmt.Fprintf(&cov, "f%d\ti%d\t%d\t%d\n", i, i, 1+(i/3)%2, 30+(i*11)%37)
	}

	predPath = filepath.Join(dir, "prediction.csv")
	covPath = filepath.Join(dir, "cov.tsv")
	require.NoError(t, os.WriteFile(predPath, []byte(pred.String()), 0o644))
	require.NoError(t, os.WriteFile(covPath, []byte(cov.String()), 0o644))

	return predPath, covPath
}

func TestTargetThenTest(t *testing.T) {
	ctx := context.Background()
	predPath, covPath := fixtures(t)
	root := t.TempDir()

	target := options{
		PredFile:       predPath,
		Method:         prediction.Classification,
		Mode:           ModeTarget,
		OutDir:         filepath.Join(root, "target"),
		Cov:            covPath,
		RunPerformance: true,
		PercentileNum:  4,
		NAValues:       prsparser.NAValues,
	}
	require.NoError(t, run(ctx, nil, target))

	for _, name := range []string{
		cohortref.RankRefFile,
		cohortref.HistRefFile,
		cohortref.RankFile,
		analysis.PerformanceFile,
		analysis.PercentileFile,
		filepath.Join(CovDir, covariate.ModelsFile),
		filepath.Join(CovDir, covariate.WeightsFile),
		filepath.Join(CovDir, PredictionFile),
		filepath.Join(CovDir, cohortref.RankRefFile),
		filepath.Join(CovDir, cohortref.RankFile),
		filepath.Join(CovDir, analysis.PerformanceFile),
	} {
		_, err := os.Stat(filepath.Join(target.OutDir, name))
		assert.NoError(t, err, name)
	}

	test := target
	test.Mode = ModeTest
	test.OutDir = filepath.Join(root, "test")
	test.RankRefFile = filepath.Join(target.OutDir, cohortref.RankRefFile)
	test.CovRefDir = filepath.Join(target.OutDir, CovDir)
	require.NoError(t, run(ctx, nil, test))

	// The test run writes no reference of its own.
	_, err := os.Stat(filepath.Join(test.OutDir, cohortref.RankRefFile))
	assert.True(t, os.IsNotExist(err))

	// Replaying the references on the cohort they were built from reproduces
	// the target outputs.
	for _, name := range []string{
		cohortref.RankFile,
		filepath.Join(CovDir, PredictionFile),
		filepath.Join(CovDir, cohortref.RankFile),
	} {
		want, err := os.ReadFile(filepath.Join(target.OutDir, name))
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(test.OutDir, name))
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got), name)
	}
}

func TestPreflight(t *testing.T) {
	ctx := context.Background()
	predPath, covPath := fixtures(t)
	root := t.TempDir()

	o := options{
		PredFile:      predPath,
		Method:        prediction.Regression,
		Mode:          ModeTest,
		OutDir:        filepath.Join(root, "out"),
		PercentileNum: 10,
		NAValues:      prsparser.NAValues,
	}

	// No rank reference.
	require.Error(t, run(ctx, nil, o))
	_, err := os.Stat(o.OutDir)
	assert.True(t, os.IsNotExist(err), "nothing is written")

	// Covariates without models.
	ref := filepath.Join(root, cohortref.RankRefFile)
	require.NoError(t, os.WriteFile(ref, []byte("rank,PRScs\n0,1\n100,2\n"), 0o644))
	o.RankRefFile = ref
	o.Cov = covPath
	require.Error(t, run(ctx, nil, o))

	// Models without the adjusted rank reference.
	covRef := filepath.Join(root, CovDir)
	require.NoError(t, os.MkdirAll(covRef, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(covRef, covariate.ModelsFile), []byte("{}"), 0o644))
	o.CovRefDir = covRef
	err = run(ctx, nil, o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), cohortref.RankRefFile)
	_, err = os.Stat(o.OutDir)
	assert.True(t, os.IsNotExist(err), "nothing is written")

	// A covariate file that does not exist is skipped.
	o.Cov = filepath.Join(root, "absent.tsv")
	require.NoError(t, run(ctx, nil, o))

	o.Mode = "train"
	assert.Error(t, run(ctx, nil, o))
}

func TestUnknownMethod(t *testing.T) {
	predPath, _ := fixtures(t)

	err := run(context.Background(), nil, options{
		PredFile:       predPath,
		Method:         prediction.Method("cls"),
		Mode:           ModeTarget,
		OutDir:         t.TempDir(),
		RunPerformance: true,
		PercentileNum:  10,
	})
	assert.True(t, errors.Is(err, analysis.ErrUnknownMethod), "%v", err)
}

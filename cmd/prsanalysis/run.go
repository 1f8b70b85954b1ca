package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	pgsbuilder "github.com/ailabstw/PGSbuilder"
	"github.com/ailabstw/PGSbuilder/analysis"
	"github.com/ailabstw/PGSbuilder/cohortref"
	"github.com/ailabstw/PGSbuilder/covariate"
	"github.com/ailabstw/PGSbuilder/prediction"
	"github.com/carbocation/pfx"
)

const (
	ModeTarget = "target"
	ModeTest   = "test"

	CovDir         = "cov"
	PredictionFile = "prediction.csv"
)

type options struct {
	PredFile       string
	Method         prediction.Method
	Mode           string
	OutDir         string
	RankRefFile    string
	Cov            string
	CovRefDir      string
	RunPerformance bool
	PercentileNum  int
	NAValues       []string
}

// hasCov reports whether a covariate file was given and exists. A missing
// file is logged and ignored.
func (o options) hasCov(ctx context.Context, client *storage.Client) bool {
	if o.Cov == "" {
		return false
	}
	if !pgsbuilder.Exists(ctx, o.Cov, client) {
		log.Printf("Covariate file %s not found, skipping covariates\n", o.Cov)
		return false
	}

	return true
}

// preflight rejects a run before it writes anything.
func (o options) preflight(ctx context.Context, client *storage.Client) error {
	switch o.Mode {
	case ModeTarget, ModeTest:
	default:
		return fmt.Errorf("mode must be %s or %s, got %q", ModeTarget, ModeTest, o.Mode)
	}

	if o.Mode != ModeTest {
		return nil
	}

	if o.RankRefFile == "" || !pgsbuilder.Exists(ctx, o.RankRefFile, client) {
		return fmt.Errorf("a rank reference file is required in test mode")
	}
	if o.hasCov(ctx, client) {
		if o.CovRefDir == "" {
			return fmt.Errorf("covariate models (--cov_ref_dir) are required in test mode when covariates are given")
		}
		for _, name := range []string{covariate.ModelsFile, cohortref.RankRefFile} {
			if p := pgsbuilder.JoinPath(o.CovRefDir, name); !pgsbuilder.Exists(ctx, p, client) {
				return fmt.Errorf("%s is required in test mode when covariates are given", p)
			}
		}
	}

	return nil
}

func run(ctx context.Context, client *storage.Client, o options) error {
	var analyzer *analysis.Analyzer
	if o.RunPerformance {
		var err error
		if analyzer, err = analysis.New(o.Method, o.PercentileNum); err != nil {
			return err
		}
	}

	if err := o.preflight(ctx, client); err != nil {
		return err
	}

	t, err := prediction.ReadFile(ctx, o.PredFile, client, o.NAValues)
	if err != nil {
		return err
	}
	log.Printf("%d samples, %d algorithms in %s\n", t.Len(), len(t.Algorithms), o.PredFile)

	if err := os.MkdirAll(o.OutDir, 0o755); err != nil {
		return pfx.Err(err)
	}

	log.Println("###### Building Cohort Reference ######")
	if err := rank(ctx, client, t, o.Mode, o.RankRefFile, o.OutDir); err != nil {
		return err
	}

	if analyzer != nil {
		log.Println("###### Analyzing PRS Performance ######")
		if _, err := analyzer.Run(t, o.OutDir); err != nil {
			return err
		}
	}

	if !o.hasCov(ctx, client) {
		return nil
	}

	log.Println("###### Adjusting for Covariates ######")
	cov, err := covariate.ReadCovariates(ctx, o.Cov, client, o.NAValues)
	if err != nil {
		return err
	}
	f, err := covariate.Join(t, cov)
	if err != nil {
		return err
	}

	covDir := filepath.Join(o.OutDir, CovDir)
	var pred *prediction.Table
	switch o.Mode {
	case ModeTarget:
		var bundle *covariate.Bundle
		if bundle, pred, err = covariate.Train(f, o.Method); err != nil {
			return err
		}
		if err := bundle.WriteFiles(covDir); err != nil {
			return err
		}
	case ModeTest:
		bundle, err := covariate.ReadBundle(ctx, pgsbuilder.JoinPath(o.CovRefDir, covariate.ModelsFile), client, o.Method)
		if err != nil {
			return err
		}
		if pred, err = covariate.Test(f, bundle); err != nil {
			return err
		}
	}

	if err := pred.WriteFile(filepath.Join(covDir, PredictionFile)); err != nil {
		return err
	}

	covRankRef := ""
	if o.Mode == ModeTest {
		covRankRef = pgsbuilder.JoinPath(o.CovRefDir, cohortref.RankRefFile)
	}
	if err := rank(ctx, client, pred, o.Mode, covRankRef, covDir); err != nil {
		return err
	}

	if analyzer != nil {
		log.Println("###### Analyzing Covariate-Adjusted Performance ######")
		if _, err := analyzer.Run(pred, covDir); err != nil {
			return err
		}
	}

	return nil
}

// rank builds the reference from t in target mode, or reads refPath in test
// mode, and writes the percentile ranks of t into dir.
func rank(ctx context.Context, client *storage.Client, t *prediction.Table, mode, refPath, dir string) error {
	var ref *cohortref.Reference
	var err error

	if mode == ModeTarget {
		if ref, err = cohortref.Build(t); err != nil {
			return err
		}
		if err := ref.WriteFiles(dir); err != nil {
			return err
		}
	} else if ref, err = cohortref.ReadRankFile(ctx, refPath, client); err != nil {
		return err
	}

	return ref.Apply(t).WriteFile(filepath.Join(dir, cohortref.RankFile))
}

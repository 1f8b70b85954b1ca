// Package prsresults joins the per-sample score files of every scoring
// algorithm onto the phenotype table of a PLINK .fam file.
package prsresults

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"cloud.google.com/go/storage"
	pgsbuilder "github.com/ailabstw/PGSbuilder"
	"github.com/ailabstw/PGSbuilder/config"
	"github.com/ailabstw/PGSbuilder/prediction"
	"github.com/ailabstw/PGSbuilder/prsparser"
	"github.com/carbocation/pfx"
	"gonum.org/v1/gonum/floats"
	"gopkg.in/guregu/null.v3"
)

// MissingPhenotype is the PLINK code for an unknown phenotype.
const MissingPhenotype = -9

// Result is the outcome of reading one score source. Exactly one of Scores
// and Err is set.
type Result struct {
	Source Source
	Scores []prsparser.SampleScore
	Err    error
}

type Aggregator struct {
	Config config.Config
	Method prediction.Method
	Client *storage.Client
}

// PhenotypeTable turns .fam rows into an empty prediction table. In
// classification mode 1 and 2 become 0 (control) and 1 (case); other values
// are kept. -9 is missing.
func PhenotypeTable(fam []pgsbuilder.FAMRow, method prediction.Method, naValues []string) (*prediction.Table, error) {
	samples := make([]prediction.Sample, len(fam))
	for i, row := range fam {
		samples[i] = prediction.Sample{FID: row.FID, IID: row.IID}

		v, ok, err := prsparser.ParseFloat(row.Phenotype, naValues)
		if err != nil {
			return nil, fmt.Errorf("sample %s %s: phenotype %q: %w", row.FID, row.IID, row.Phenotype, err)
		}
		if !ok || v == MissingPhenotype {
			continue
		}
		if method == prediction.Classification && (v == 1 || v == 2) {
			v--
		}
		samples[i].Phenotype = null.FloatFrom(v)
	}

	return prediction.New(samples), nil
}

// Load reads one score source.
func (a Aggregator) Load(ctx context.Context, src Source) Result {
	layout := src.Layout
	if layout.FIDColumn == "" {
		layout.FIDColumn = prediction.ColFID
	}
	if layout.IIDColumn == "" {
		layout.IIDColumn = prediction.ColIID
	}

	data, err := pgsbuilder.ReadAll(ctx, src.Path, a.Client)
	if err != nil {
		return Result{Source: src, Err: pfx.Err(err)}
	}

	scores, err := prsparser.ParseScores(data, layout, a.Config.NAValues)
	if err != nil {
		return Result{Source: src, Err: fmt.Errorf("%s: %w", src.Path, err)}
	}

	return Result{Source: src, Scores: scores}
}

// Join left-joins one score file onto the samples of t. Samples without a
// (parseable) score get NaN. The first row of a duplicated sample wins.
func Join(t *prediction.Table, scores []prsparser.SampleScore) []float64 {
	index := make(map[prediction.Key]int, len(scores))
	for i, s := range scores {
		k := prediction.Key{FID: s.FID, IID: s.IID}
		if _, exists := index[k]; !exists {
			index[k] = i
		}
	}

	out := make([]float64, t.Len())
	for i, sample := range t.Samples {
		j, ok := index[sample.Key()]
		if !ok || scores[j].Missing {
			out[i] = math.NaN()
			continue
		}
		out[i] = scores[j].Score
	}

	return out
}

// FillOrDrop drops every column whose missing fraction exceeds threshold and
// fills the remaining gaps with the column minimum. It returns the dropped
// algorithms.
func FillOrDrop(t *prediction.Table, threshold float64) []string {
	dropped := make([]string, 0)
	n := t.Len()
	if n == 0 {
		return dropped
	}

	for _, algo := range append([]string(nil), t.Algorithms...) {
		col := t.Scores[algo]
		na := prediction.MissingCount(col)
		frac := float64(na) / float64(n)
		log.Printf("NA count of %s = %d / %d, %.2f%%\n", algo, na, n, frac*100)

		if frac > threshold || na == n {
			log.Printf("Drop %s because more than %.0f%% are NA\n", algo, threshold*100)
			t.DropColumn(algo)
			dropped = append(dropped, algo)
			continue
		}
		if na == 0 {
			continue
		}

		observed := make([]float64, 0, n-na)
		for _, v := range col {
			if !math.IsNaN(v) {
				observed = append(observed, v)
			}
		}
		minimum := floats.Min(observed)
		for i, v := range col {
			if math.IsNaN(v) {
				col[i] = minimum
			}
		}
		log.Printf("Fill %s with minimum (%v)\n", algo, minimum)
	}

	return dropped
}

// Run builds the aggregated prediction table: phenotypes from famPath, one
// column per score file found under predPrefix, then the missing-value
// policy.
func (a Aggregator) Run(ctx context.Context, famPath, predPrefix string) (*prediction.Table, []Result, error) {
	fam, err := pgsbuilder.ReadFAM(ctx, famPath, a.Client)
	if err != nil {
		return nil, nil, pfx.Err(err)
	}

	t, err := PhenotypeTable(fam, a.Method, a.Config.NAValues)
	if err != nil {
		return nil, nil, pfx.Err(fmt.Errorf("%s: %w", famPath, err))
	}

	sources, err := Discover(ctx, predPrefix, a.Config.ScoreLayouts, a.Client)
	if err != nil {
		return nil, nil, err
	}

	log.Println("Loading prediction dataframe ...")
	results := make([]Result, 0, len(sources))
	for _, src := range sources {
		r := a.Load(ctx, src)
		results = append(results, r)
		if r.Err != nil {
			log.Printf("Skipping %s: %v\n", src.Algorithm, r.Err)
			continue
		}

		if err := t.AddColumn(src.Algorithm, Join(t, r.Scores)); err != nil {
			return nil, nil, pfx.Err(err)
		}
	}
	log.Println("Available algorithms:", strings.Join(t.Algorithms, ", "))

	log.Println("Checking NA ...")
	FillOrDrop(t, a.Config.MissingThreshold)

	return t, results, nil
}

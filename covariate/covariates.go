package covariate

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/storage"
	pgsbuilder "github.com/ailabstw/PGSbuilder"
	"github.com/ailabstw/PGSbuilder/prediction"
	"github.com/ailabstw/PGSbuilder/prsparser"
	"github.com/carbocation/pfx"
)

// Covariates is a per-sample covariate table. Missing values are NaN.
type Covariates struct {
	Names   []string
	Samples []prediction.Key
	Values  map[string][]float64
}

// ReadCovariates loads a tab- or comma-delimited covariate file with FID and
// IID columns. Every other column is a numeric covariate.
func ReadCovariates(ctx context.Context, path string, client *storage.Client, naValues []string) (*Covariates, error) {
	data, err := pgsbuilder.ReadAll(ctx, path, client)
	if err != nil {
		return nil, pfx.Err(err)
	}

	c, err := ParseCovariates(data, naValues)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return c, nil
}

func ParseCovariates(data []byte, naValues []string) (*Covariates, error) {
	t, err := pgsbuilder.ParseDelimitedTable(data, 0, true)
	if err != nil {
		return nil, err
	}

	ids, err := t.Require(prediction.ColFID, prediction.ColIID)
	if err != nil {
		return nil, err
	}

	c := &Covariates{
		Names:   make([]string, 0, len(t.Header)),
		Samples: make([]prediction.Key, len(t.Rows)),
		Values:  make(map[string][]float64),
	}
	cols := make([]int, 0, len(t.Header))
	for i, name := range t.Header {
		if i == ids[0] || i == ids[1] {
			continue
		}
		if _, dup := c.Values[name]; dup {
			return nil, fmt.Errorf("covariate %s appears twice", name)
		}
		c.Names = append(c.Names, name)
		c.Values[name] = make([]float64, len(t.Rows))
		cols = append(cols, i)
	}

	for r, row := range t.Rows {
		c.Samples[r] = prediction.Key{FID: row[ids[0]], IID: row[ids[1]]}
		for k, i := range cols {
			v, _, err := prsparser.ParseFloat(row[i], naValues)
			if err != nil {
				return nil, fmt.Errorf("row %d, covariate %s: %q is not numeric", r+1, c.Names[k], row[i])
			}
			c.Values[c.Names[k]][r] = v
		}
	}

	return c, nil
}

// Frame is the inner join of a prediction table and a covariate table. Cols
// holds both the algorithm scores and the covariates, by name.
type Frame struct {
	Samples    []prediction.Sample
	Algorithms []string
	Covariates []string
	Cols       map[string][]float64
}

// Join keeps the samples present in both tables, in prediction order. The
// first covariate row of a duplicated sample wins.
func Join(t *prediction.Table, c *Covariates) (*Frame, error) {
	for _, name := range c.Names {
		if _, clash := t.Scores[name]; clash {
			return nil, fmt.Errorf("covariate %s has the same name as an algorithm", name)
		}
	}

	index := make(map[prediction.Key]int, len(c.Samples))
	for i, k := range c.Samples {
		if _, exists := index[k]; !exists {
			index[k] = i
		}
	}

	f := &Frame{
		Samples:    make([]prediction.Sample, 0, t.Len()),
		Algorithms: append([]string(nil), t.Algorithms...),
		Covariates: append([]string(nil), c.Names...),
		Cols:       make(map[string][]float64, len(t.Algorithms)+len(c.Names)),
	}
	rows := make([]int, 0, t.Len())
	for i, s := range t.Samples {
		j, ok := index[s.Key()]
		if !ok {
			continue
		}
		f.Samples = append(f.Samples, s)
		rows = append(rows, i)
		for _, name := range c.Names {
			f.Cols[name] = append(f.Cols[name], c.Values[name][j])
		}
	}
	for _, algo := range t.Algorithms {
		col := make([]float64, len(rows))
		for k, i := range rows {
			col[k] = t.Scores[algo][i]
		}
		f.Cols[algo] = col
	}
	for _, name := range c.Names {
		if f.Cols[name] == nil {
			f.Cols[name] = make([]float64, 0)
		}
	}

	log.Printf("%d PRS algorithms: %v\n", len(f.Algorithms), f.Algorithms)
	log.Printf("%d covariates: %v\n", len(f.Covariates), f.Covariates)
	log.Printf("%d of %d samples have covariates\n", len(f.Samples), t.Len())

	return f, nil
}

func (f *Frame) Len() int { return len(f.Samples) }

// WithPhenotype drops samples whose phenotype is missing.
func (f *Frame) WithPhenotype() *Frame {
	out := &Frame{
		Samples:    make([]prediction.Sample, 0, len(f.Samples)),
		Algorithms: f.Algorithms,
		Covariates: f.Covariates,
		Cols:       make(map[string][]float64, len(f.Cols)),
	}
	for name := range f.Cols {
		out.Cols[name] = make([]float64, 0, len(f.Samples))
	}
	for i, s := range f.Samples {
		if !s.Phenotype.Valid {
			continue
		}
		out.Samples = append(out.Samples, s)
		for name, col := range f.Cols {
			out.Cols[name] = append(out.Cols[name], col[i])
		}
	}

	return out
}

// PredictorSets lists "cov" followed by every algorithm.
func (f *Frame) PredictorSets() []string {
	return append([]string{CovariatesOnly}, f.Algorithms...)
}

// SetColumns returns the ordered model columns of a predictor set.
func (f *Frame) SetColumns(set string) []string {
	if set == CovariatesOnly {
		return append([]string(nil), f.Covariates...)
	}

	return append([]string{set}, f.Covariates...)
}

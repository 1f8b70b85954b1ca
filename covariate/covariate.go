// Package covariate trains per-predictor-set regression models on PRS scores
// plus covariates and replays them on other cohorts from a JSON bundle.
package covariate

import (
	"errors"
	"fmt"
	"log"

	"github.com/ailabstw/PGSbuilder/prediction"
	"github.com/carbocation/pfx"
)

// Train fits "cov" and every algorithm (score plus covariates) on the samples
// of f that have a phenotype. The returned table holds the predictions,
// computed through the same path Test uses.
func Train(f *Frame, method prediction.Method) (*Bundle, *prediction.Table, error) {
	train := f.WithPhenotype()
	if dropped := f.Len() - train.Len(); dropped > 0 {
		log.Printf("Drop %d samples with no phenotype\n", dropped)
	}
	if train.Len() == 0 {
		return nil, nil, fmt.Errorf("no samples with a phenotype to train on")
	}

	y := make([]float64, train.Len())
	for i, s := range train.Samples {
		y[i] = s.Phenotype.Float64
	}

	bundle := NewBundle(method)
	out := prediction.New(append([]prediction.Sample(nil), train.Samples...))

	for _, set := range train.PredictorSets() {
		columns := train.SetColumns(set)
		if len(columns) == 0 {
			log.Printf("Skip %s because it has no columns\n", set)
			continue
		}
		if set == CovariatesOnly {
			log.Println("Training covariates only ...")
		} else {
			log.Printf("Training %s with covariates ...\n", set)
		}

		m, err := fit(train, columns, y, method)
		if errors.Is(err, ErrNotConverged) {
			log.Printf("Warning: %s: %v\n", set, err)
			err = nil
		}
		if err != nil {
			return nil, nil, pfx.Err(fmt.Errorf("%s: %w", set, err))
		}
		bundle.Models[set] = m

		pred, err := m.Predict(train, method)
		if err != nil {
			return nil, nil, pfx.Err(fmt.Errorf("%s: %w", set, err))
		}
		if err := out.AddColumn(set, pred); err != nil {
			return nil, nil, pfx.Err(err)
		}
	}

	return bundle, out, nil
}

func fit(f *Frame, columns []string, y []float64, method prediction.Method) (Model, error) {
	m := Model{
		Columns:          columns,
		NumericalColumns: make([]int, 0),
		ScalerMean:       make([]float64, 0),
		ScalerScale:      make([]float64, 0),
	}

	for j, name := range columns {
		col, ok := f.Cols[name]
		if !ok {
			return m, fmt.Errorf("column %s is absent", name)
		}
		if !IsNumerical(col) {
			continue
		}
		mean, scale := FitScaler(col)
		m.NumericalColumns = append(m.NumericalColumns, j)
		m.ScalerMean = append(m.ScalerMean, mean)
		m.ScalerScale = append(m.ScalerScale, scale)
	}

	// Coefficients are not needed to build the design matrix.
	x, err := m.Design(f)
	if err != nil {
		return m, err
	}

	switch method {
	case prediction.Classification:
		m.Coef, m.Intercept, err = FitLogistic(x, y)
	case prediction.Regression:
		m.Coef, m.Intercept, err = FitOLS(x, y)
	default:
		err = fmt.Errorf("%q: %w", method, prediction.ErrUnknownMethod)
	}

	return m, err
}

// Test replays every model of the bundle whose predictor set exists in f.
// Sets without a model are skipped. A column the model needs but f lacks is
// an error.
func Test(f *Frame, b *Bundle) (*prediction.Table, error) {
	out := prediction.New(append([]prediction.Sample(nil), f.Samples...))

	for _, set := range f.PredictorSets() {
		m, ok := b.Models[set]
		if !ok {
			log.Printf("Skip %s because of no available model\n", set)
			continue
		}
		if set == CovariatesOnly {
			log.Println("Testing covariates only ...")
		} else {
			log.Printf("Testing %s with covariates ...\n", set)
		}

		pred, err := m.Predict(f, b.Method)
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("%s: %w", set, err))
		}
		if err := out.AddColumn(set, pred); err != nil {
			return nil, pfx.Err(err)
		}
	}

	return out, nil
}

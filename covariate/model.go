package covariate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	pgsbuilder "github.com/ailabstw/PGSbuilder"
	"github.com/ailabstw/PGSbuilder/prediction"
	"github.com/carbocation/pfx"
	"gonum.org/v1/gonum/mat"
)

// SchemaVersion is written into every bundle and required when reading one.
const SchemaVersion = 1

// CovariatesOnly names the predictor set without any PRS column.
const CovariatesOnly = "cov"

// Output file names under the covariate directory.
const (
	ModelsFile  = "models.json"
	WeightsFile = "weight.json"
)

// ErrSchemaVersion is returned for bundles written by an incompatible
// version or for a different method.
var ErrSchemaVersion = errors.New("incompatible covariate model bundle")

// Model is one fitted predictor set. NumericalColumns index into Columns;
// ScalerMean and ScalerScale are aligned with NumericalColumns.
type Model struct {
	Columns          []string  `json:"columns"`
	NumericalColumns []int     `json:"numerical_columns"`
	ScalerMean       []float64 `json:"scaler_mean"`
	ScalerScale      []float64 `json:"scaler_scale"`
	Coef             []float64 `json:"reg_coef"`
	Intercept        float64   `json:"reg_intercept"`
}

// Bundle is the persisted train/test contract.
type Bundle struct {
	SchemaVersion int               `json:"schema_version"`
	Method        prediction.Method `json:"method"`
	Models        map[string]Model  `json:"models"`
}

func NewBundle(method prediction.Method) *Bundle {
	return &Bundle{
		SchemaVersion: SchemaVersion,
		Method:        method,
		Models:        make(map[string]Model),
	}
}

// Validate checks the internal consistency of one model.
func (m Model) Validate() error {
	if len(m.Coef) != len(m.Columns) {
		return fmt.Errorf("%d coefficients for %d columns", len(m.Coef), len(m.Columns))
	}
	if len(m.ScalerMean) != len(m.NumericalColumns) || len(m.ScalerScale) != len(m.NumericalColumns) {
		return fmt.Errorf("scaler has %d means and %d scales for %d numerical columns", len(m.ScalerMean), len(m.ScalerScale), len(m.NumericalColumns))
	}
	for _, i := range m.NumericalColumns {
		if i < 0 || i >= len(m.Columns) {
			return fmt.Errorf("numerical column %d out of range", i)
		}
	}

	return nil
}

// Design builds the standardized model matrix of f: one row per sample, one
// column per model column. Missing values become 0 after scaling.
func (m Model) Design(f *Frame) (*mat.Dense, error) {
	n, p := f.Len(), len(m.Columns)
	if n == 0 || p == 0 {
		return nil, fmt.Errorf("empty design: %d samples, %d columns", n, p)
	}

	x := mat.NewDense(n, p, nil)
	for j, name := range m.Columns {
		col, ok := f.Cols[name]
		if !ok {
			return nil, fmt.Errorf("column %s required by the model is absent", name)
		}
		for i, v := range col {
			x.Set(i, j, v)
		}
	}

	for k, j := range m.NumericalColumns {
		mean, scale := m.ScalerMean[k], m.ScalerScale[k]
		for i := 0; i < n; i++ {
			x.Set(i, j, (x.At(i, j)-mean)/scale)
		}
	}

	x.Apply(func(_, _ int, v float64) float64 {
		if math.IsNaN(v) {
			return 0
		}
		return v
	}, x)

	return x, nil
}

// Predict returns the linear predictor, passed through the logistic function
// for classification.
func (m Model) Predict(f *Frame, method prediction.Method) ([]float64, error) {
	x, err := m.Design(f)
	if err != nil {
		return nil, err
	}

	var z mat.VecDense
	z.MulVec(x, mat.NewVecDense(len(m.Coef), append([]float64(nil), m.Coef...)))

	out := make([]float64, f.Len())
	for i := range out {
		v := z.AtVec(i) + m.Intercept
		if method == prediction.Classification {
			v = sigmoid(v)
		}
		out[i] = v
	}

	return out, nil
}

// Weights maps each column to its coefficient.
func (m Model) Weights() map[string]float64 {
	out := make(map[string]float64, len(m.Columns))
	for j, name := range m.Columns {
		out[name] = m.Coef[j]
	}

	return out
}

// ReadBundle loads models.json and checks it against the run's method.
func ReadBundle(ctx context.Context, path string, client *storage.Client, method prediction.Method) (*Bundle, error) {
	data, err := pgsbuilder.ReadAll(ctx, path, client)
	if err != nil {
		return nil, pfx.Err(err)
	}

	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	if b.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%s: schema version %d, expected %d: %w", path, b.SchemaVersion, SchemaVersion, ErrSchemaVersion)
	}
	if b.Method != method {
		return nil, fmt.Errorf("%s: models were trained for %q, this run is %q: %w", path, b.Method, method, ErrSchemaVersion)
	}
	for name, m := range b.Models {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("%s: model %s: %w", path, name, err)
		}
	}

	return &b, nil
}

// WriteFiles writes models.json and weight.json into dir.
func (b *Bundle) WriteFiles(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return pfx.Err(err)
	}

	data, err := json.Marshal(b)
	if err != nil {
		return pfx.Err(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ModelsFile), data, 0o644); err != nil {
		return pfx.Err(err)
	}

	weights := make(map[string]map[string]float64, len(b.Models))
	for name, m := range b.Models {
		weights[name] = m.Weights()
	}
	if data, err = json.Marshal(weights); err != nil {
		return pfx.Err(err)
	}

	return pfx.Err(os.WriteFile(filepath.Join(dir, WeightsFile), data, 0o644))
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

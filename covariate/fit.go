package covariate

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// InverseRegularization is the inverse L2 penalty strength of the logistic
// fit. The intercept is not penalized.
const InverseRegularization = 1.0

// LogisticIterations caps the major iterations of the logistic fit.
var LogisticIterations = 1000

const logisticTolerance = 1e-4

// ErrNotConverged marks a logistic fit that stopped before reaching the
// optimum. The coefficients returned with it are usable.
var ErrNotConverged = errors.New("logistic regression did not converge")

// IsNumerical reports whether a column has more than two distinct observed
// values. Binary and constant columns are left unscaled.
func IsNumerical(col []float64) bool {
	seen := make(map[float64]struct{}, 3)
	for _, v := range col {
		if math.IsNaN(v) {
			continue
		}
		seen[v] = struct{}{}
		if len(seen) > 2 {
			return true
		}
	}

	return false
}

// FitScaler returns the mean and population standard deviation of the
// observed values. A zero (or undefined) deviation scales by 1.
func FitScaler(col []float64) (mean, scale float64) {
	observed := make([]float64, 0, len(col))
	for _, v := range col {
		if !math.IsNaN(v) {
			observed = append(observed, v)
		}
	}
	if len(observed) == 0 {
		return 0, 1
	}

	mean, scale = stat.PopMeanStdDev(observed, nil)
	if scale == 0 || math.IsNaN(scale) {
		scale = 1
	}

	return mean, scale
}

// FitOLS fits y = x*coef + intercept by least squares. Rank-deficient
// designs get the minimum-norm solution.
func FitOLS(x *mat.Dense, y []float64) (coef []float64, intercept float64, err error) {
	n, p := x.Dims()
	if n != len(y) {
		return nil, 0, fmt.Errorf("%d rows for %d responses", n, len(y))
	}

	means := make([]float64, p)
	centered := mat.NewDense(n, p, nil)
	for j := 0; j < p; j++ {
		col := mat.Col(nil, j, x)
		means[j] = stat.Mean(col, nil)
		floats.AddConst(-means[j], col)
		centered.SetCol(j, col)
	}
	yMean := stat.Mean(y, nil)
	yc := make([]float64, n)
	copy(yc, y)
	floats.AddConst(-yMean, yc)

	var svd mat.SVD
	if ok := svd.Factorize(centered, mat.SVDThin); !ok {
		return nil, 0, fmt.Errorf("least squares: SVD failed to converge")
	}

	coef = make([]float64, p)
	if rank := svd.Rank(1e-12); rank > 0 {
		var beta mat.VecDense
		svd.SolveVecTo(&beta, mat.NewVecDense(n, yc), rank)
		for j := range coef {
			coef[j] = beta.AtVec(j)
		}
	}

	return coef, yMean - floats.Dot(means, coef), nil
}

// FitLogistic fits an L2-regularized logistic regression with an
// unpenalized intercept. y holds 0/1 labels.
func FitLogistic(x *mat.Dense, y []float64) (coef []float64, intercept float64, err error) {
	n, p := x.Dims()
	if n != len(y) {
		return nil, 0, fmt.Errorf("%d rows for %d responses", n, len(y))
	}
	for _, v := range y {
		if v != 0 && v != 1 {
			return nil, 0, fmt.Errorf("logistic regression needs 0/1 labels, got %v", v)
		}
	}

	z := make([]float64, n)
	linear := func(w []float64) {
		for i := 0; i < n; i++ {
			z[i] = floats.Dot(x.RawRowView(i), w[:p]) + w[p]
		}
	}

	problem := optimize.Problem{
		Func: func(w []float64) float64 {
			linear(w)
			loss := 0.0
			for i := 0; i < n; i++ {
				loss += softplus(z[i]) - y[i]*z[i]
			}
			return InverseRegularization*loss + 0.5*floats.Dot(w[:p], w[:p])
		},
		Grad: func(grad, w []float64) {
			linear(w)
			for j := range grad {
				grad[j] = 0
			}
			for i := 0; i < n; i++ {
				r := InverseRegularization * (sigmoid(z[i]) - y[i])
				floats.AddScaled(grad[:p], r, x.RawRowView(i))
				grad[p] += r
			}
			floats.Add(grad[:p], w[:p])
		},
	}

	settings := &optimize.Settings{
		GradientThreshold: 1e-8,
		MajorIterations:   LogisticIterations,
	}
	result, err := optimize.Minimize(problem, make([]float64, p+1), settings, &optimize.LBFGS{})
	if result == nil {
		return nil, 0, fmt.Errorf("logistic regression: %w", err)
	}
	for _, v := range result.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, 0, fmt.Errorf("logistic regression diverged (%v)", err)
		}
	}

	coef = append([]float64(nil), result.X[:p]...)
	intercept = result.X[p]

	// Line-search stalls near the optimum are fine; judge by the gradient.
	grad := make([]float64, p+1)
	problem.Grad(grad, result.X)
	if norm := floats.Norm(grad, math.Inf(1)); norm > logisticTolerance {
		return coef, intercept, fmt.Errorf("%w: gradient %.3g after %d iterations (%v, %v)", ErrNotConverged, norm, result.Stats.MajorIterations, result.Status, err)
	}

	return coef, intercept, nil
}

// softplus is log(1 + exp(z)) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}

	return math.Log1p(math.Exp(z))
}

package prediction

import (
	"fmt"
	"math"

	"gopkg.in/guregu/null.v3"
)

// Sample identifies one individual and carries its (possibly missing)
// phenotype. Binary phenotypes are coded 0 = control, 1 = case.
type Sample struct {
	FID       string
	IID       string
	Phenotype null.Float
}

// Key joins samples across files.
type Key struct {
	FID string
	IID string
}

func (s Sample) Key() Key { return Key{s.FID, s.IID} }

// Table is the per-sample score table shared by every stage of the pipeline:
// FID, IID, phenotype, then one column per algorithm in Algorithms order.
// Missing scores are NaN.
type Table struct {
	Samples    []Sample
	Algorithms []string
	Scores     map[string][]float64
}

func New(samples []Sample) *Table {
	return &Table{
		Samples:    samples,
		Algorithms: make([]string, 0),
		Scores:     make(map[string][]float64),
	}
}

func (t *Table) Len() int { return len(t.Samples) }

// AddColumn appends (or replaces, keeping its position) an algorithm column.
func (t *Table) AddColumn(name string, values []float64) error {
	if len(values) != len(t.Samples) {
		return fmt.Errorf("column %s has %d values for %d samples", name, len(values), len(t.Samples))
	}
	if _, exists := t.Scores[name]; !exists {
		t.Algorithms = append(t.Algorithms, name)
	}
	t.Scores[name] = values

	return nil
}

func (t *Table) Column(name string) ([]float64, bool) {
	v, ok := t.Scores[name]
	return v, ok
}

func (t *Table) DropColumn(name string) {
	if _, exists := t.Scores[name]; !exists {
		return
	}
	delete(t.Scores, name)

	kept := t.Algorithms[:0]
	for _, a := range t.Algorithms {
		if a != name {
			kept = append(kept, a)
		}
	}
	t.Algorithms = kept
}

// Phenotypes returns the phenotype vector with NaN for missing values.
func (t *Table) Phenotypes() []float64 {
	out := make([]float64, len(t.Samples))
	for i, s := range t.Samples {
		if s.Phenotype.Valid {
			out[i] = s.Phenotype.Float64
		} else {
			out[i] = math.NaN()
		}
	}

	return out
}

// Subset returns a new table holding the given rows, in the given order.
func (t *Table) Subset(rows []int) *Table {
	samples := make([]Sample, len(rows))
	for k, i := range rows {
		samples[k] = t.Samples[i]
	}

	out := New(samples)
	for _, a := range t.Algorithms {
		src := t.Scores[a]
		col := make([]float64, len(rows))
		for k, i := range rows {
			col[k] = src[i]
		}
		out.Algorithms = append(out.Algorithms, a)
		out.Scores[a] = col
	}

	return out
}

// WithPhenotype drops samples whose phenotype is missing.
func (t *Table) WithPhenotype() *Table {
	rows := make([]int, 0, len(t.Samples))
	for i, s := range t.Samples {
		if s.Phenotype.Valid {
			rows = append(rows, i)
		}
	}

	return t.Subset(rows)
}

// IdentityColumns returns a table with the same samples and no algorithms.
func (t *Table) IdentityColumns() *Table {
	samples := make([]Sample, len(t.Samples))
	copy(samples, t.Samples)

	return New(samples)
}

// MissingCount counts NaN values in a column.
func MissingCount(values []float64) int {
	n := 0
	for _, v := range values {
		if math.IsNaN(v) {
			n++
		}
	}

	return n
}

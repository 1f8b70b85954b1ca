package analysis

import (
	"fmt"
	"io"

	"github.com/ailabstw/PGSbuilder/prediction"
	"github.com/aybabtme/uniplot/histogram"
	"github.com/carbocation/pfx"
	"github.com/montanaflynn/stats"
)

const (
	distributionBins  = 30
	distributionWidth = 50
)

// WriteDistribution renders a text histogram of every tool's scores. For
// classification, controls and cases are drawn separately.
func (r *Report) WriteDistribution(w io.Writer) error {
	groups := []struct {
		name string
		keep func(prediction.Sample) bool
	}{
		{"all", func(prediction.Sample) bool { return true }},
	}
	if r.Method == prediction.Classification {
		groups = []struct {
			name string
			keep func(prediction.Sample) bool
		}{
			{"control", func(s prediction.Sample) bool { return s.Phenotype.Float64 == 0 }},
			{"case", func(s prediction.Sample) bool { return s.Phenotype.Float64 == 1 }},
		}
	}

	for _, tool := range r.Tools {
		t, ok := r.tables[tool]
		if !ok {
			continue
		}
		for _, g := range groups {
			values := make(stats.Float64Data, 0, t.Len())
			for i, s := range t.Samples {
				if g.keep(s) {
					values = append(values, t.Scores[tool][i])
				}
			}
			if len(values) == 0 {
				continue
			}

			mean, _ := stats.Mean(values)
			if _, err := fmt.Fprintf(w, "%s, %s (n=%d, mean=%.4g)\n", tool, g.name, len(values), mean); err != nil {
				return pfx.Err(err)
			}

			hist := histogram.Hist(distributionBins, values)
			if err := histogram.Fprint(w, hist, histogram.Linear(distributionWidth)); err != nil {
				return pfx.Err(err)
			}
			if _, err := fmt.Fprintln(w); err != nil {
				return pfx.Err(err)
			}
		}
	}

	return nil
}

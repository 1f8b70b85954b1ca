package weights

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	pgsbuilder "github.com/ailabstw/PGSbuilder"
	"github.com/ailabstw/PGSbuilder/config"
	"github.com/ailabstw/PGSbuilder/prsparser"
	"github.com/carbocation/pfx"
)

// SNP is one row of the beta matrix: PLINK metadata joined with the base
// summary statistics. Fields the summary statistics do not cover are zero,
// and A1 is "0".
type SNP struct {
	Chrom  string
	Pos    uint32
	ID     string
	Ref    string
	Alt    string
	A1     string
	P      float64
	Log10P float64
	Beta   float64
}

// SumStat is the part of a base summary-statistics row the builder consumes.
type SumStat struct {
	ID     string
	A1     string
	P      float64
	Log10P float64
	Beta   float64
}

// ReadSumStats loads a whitespace-delimited summary-statistics file.
func ReadSumStats(ctx context.Context, path string, client *storage.Client, columns map[string][]string, naValues []string) (map[string]SumStat, error) {
	data, err := pgsbuilder.ReadAll(ctx, path, client)
	if err != nil {
		return nil, pfx.Err(err)
	}

	out, err := ParseSumStats(data, columns, naValues)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return out, nil
}

// ParseSumStats resolves the ID, A1, P, LOG10_P and BETA columns through the
// synonym table and indexes rows by ID. The first row of a duplicated ID
// wins.
func ParseSumStats(data []byte, columns map[string][]string, naValues []string) (map[string]SumStat, error) {
	t, err := pgsbuilder.ParseDelimitedTable(data, ' ', true)
	if err != nil {
		return nil, err
	}

	required := []string{config.ColID, config.ColA1, config.ColP, config.ColLog10P, config.ColBeta}
	idx := make([]int, len(required))
	missing := make([]string, 0)
	for k, canonical := range required {
		names := columns[canonical]
		if len(names) == 0 {
			names = []string{canonical}
		}
		i, ok := t.ColAny(names...)
		if !ok {
			missing = append(missing, canonical)
			continue
		}
		idx[k] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("summary statistics lack required column(s) %s (header: %v)", strings.Join(missing, ", "), t.Header)
	}

	out := make(map[string]SumStat, len(t.Rows))
	for line, row := range t.Rows {
		id := row[idx[0]]
		if _, exists := out[id]; exists {
			continue
		}

		s := SumStat{ID: id, A1: row[idx[1]]}
		for k, dst := range []*float64{&s.P, &s.Log10P, &s.Beta} {
			v, ok, err := prsparser.ParseFloat(row[idx[2+k]], naValues)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %s: %w", line+1, required[2+k], err)
			}
			if ok {
				*dst = v
			}
		}
		out[id] = s
	}

	return out, nil
}

// Universe left-joins the summary statistics onto the PLINK variants,
// preserving variant order.
func Universe(bim []pgsbuilder.BIMRow, stats map[string]SumStat) []SNP {
	out := make([]SNP, len(bim))
	for i, v := range bim {
		snp := SNP{
			Chrom: v.Chromosome,
			Pos:   v.Coordinate,
			ID:    v.VariantID,
			Ref:   v.Ref(),
			Alt:   v.Alt(),
			A1:    "0",
		}
		if s, ok := stats[v.VariantID]; ok {
			snp.A1 = s.A1
			snp.P = s.P
			snp.Log10P = s.Log10P
			snp.Beta = s.Beta
		}
		out[i] = snp
	}

	return out
}

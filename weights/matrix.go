package weights

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ailabstw/PGSbuilder/prediction"
	"github.com/carbocation/pfx"
)

// MetadataColumns lead every beta.tsv.
var MetadataColumns = []string{"CHR", "POS", "ID", "REF", "ALT", "A1", "P", "LOG10_P", "BETA"}

// Matrix is the SNP x algorithm beta table. Each column is aligned to SNPs
// and contains no NaN.
type Matrix struct {
	SNPs       []SNP
	Algorithms []string
	Beta       map[string][]float64
}

// Collect keeps the successful results, in order.
func Collect(snps []SNP, results []Result) *Matrix {
	m := &Matrix{
		SNPs:       snps,
		Algorithms: make([]string, 0, len(results)),
		Beta:       make(map[string][]float64, len(results)),
	}
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		if _, exists := m.Beta[r.Algorithm]; exists {
			continue
		}
		m.Algorithms = append(m.Algorithms, r.Algorithm)
		m.Beta[r.Algorithm] = r.Beta
	}

	return m
}

// WriteTSV writes the metadata columns followed by one column per algorithm.
func (m *Matrix) WriteTSV(w io.Writer) error {
	bw := bufio.NewWriter(w)

	header := append(append([]string(nil), MetadataColumns...), m.Algorithms...)
	if _, err := fmt.Fprintln(bw, strings.Join(header, "\t")); err != nil {
		return pfx.Err(err)
	}

	row := make([]string, len(header))
	for i, s := range m.SNPs {
		row[0] = s.Chrom
		row[1] = fmt.Sprint(s.Pos)
		row[2] = s.ID
		row[3] = s.Ref
		row[4] = s.Alt
		row[5] = s.A1
		row[6] = prediction.FormatFloat(s.P)
		row[7] = prediction.FormatFloat(s.Log10P)
		row[8] = prediction.FormatFloat(s.Beta)
		for k, algo := range m.Algorithms {
			row[len(MetadataColumns)+k] = prediction.FormatFloat(m.Beta[algo][i])
		}
		if _, err := fmt.Fprintln(bw, strings.Join(row, "\t")); err != nil {
			return pfx.Err(err)
		}
	}

	return pfx.Err(bw.Flush())
}

func (m *Matrix) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return pfx.Err(err)
	}

	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}

	if err := m.WriteTSV(f); err != nil {
		f.Close()
		return err
	}

	return pfx.Err(f.Close())
}

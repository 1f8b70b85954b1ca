package prediction

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"cloud.google.com/go/storage"
	pgsbuilder "github.com/ailabstw/PGSbuilder"
	"github.com/ailabstw/PGSbuilder/prsparser"
	"github.com/carbocation/pfx"
	"gopkg.in/guregu/null.v3"
)

// Fixed leading columns of every prediction-shaped CSV.
const (
	ColFID       = "FID"
	ColIID       = "IID"
	ColPhenotype = "phenotype"
)

// FormatFloat renders numbers the same way in every output file.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ReadCSV parses a table whose first three columns are FID, IID and phenotype
// and whose remaining columns are algorithm scores.
func ReadCSV(r io.Reader, naValues []string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("reading header: %w", err))
	}
	if len(header) > 0 {
		header[0] = string(bytes.TrimPrefix([]byte(header[0]), []byte("\xef\xbb\xbf")))
	}
	if len(header) < 3 || header[0] != ColFID || header[1] != ColIID || header[2] != ColPhenotype {
		return nil, pfx.Err(fmt.Errorf("expected header to start with %s,%s,%s, got %v", ColFID, ColIID, ColPhenotype, header))
	}

	algos := header[3:]
	cols := make([][]float64, len(algos))
	samples := make([]Sample, 0)

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, pfx.Err(err)
		}
		if len(rec) != len(header) {
			return nil, pfx.Err(fmt.Errorf("line %d: expected %d fields, found %d", line, len(header), len(rec)))
		}

		s := Sample{FID: rec[0], IID: rec[1]}
		pheno, ok, err := prsparser.ParseFloat(rec[2], naValues)
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("line %d: phenotype %q: %w", line, rec[2], err))
		}
		if ok {
			s.Phenotype = null.FloatFrom(pheno)
		}
		samples = append(samples, s)

		for k := range algos {
			v, _, err := prsparser.ParseFloat(rec[3+k], naValues)
			if err != nil {
				return nil, pfx.Err(fmt.Errorf("line %d: %s %q: %w", line, algos[k], rec[3+k], err))
			}
			cols[k] = append(cols[k], v)
		}
	}

	t := New(samples)
	for k, algo := range algos {
		if cols[k] == nil {
			cols[k] = make([]float64, 0)
		}
		if err := t.AddColumn(algo, cols[k]); err != nil {
			return nil, pfx.Err(err)
		}
	}

	return t, nil
}

// ReadFile reads a prediction table from a local path or a gs:// URL.
func ReadFile(ctx context.Context, path string, client *storage.Client, naValues []string) (*Table, error) {
	rc, err := pgsbuilder.Open(ctx, path, client)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer rc.Close()

	t, err := ReadCSV(rc, naValues)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return t, nil
}

// WriteCSV writes FID, IID, phenotype and then every algorithm column. A
// missing phenotype or score is written as an empty field.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := append([]string{ColFID, ColIID, ColPhenotype}, t.Algorithms...)
	if err := cw.Write(header); err != nil {
		return pfx.Err(err)
	}

	rec := make([]string, len(header))
	for i, s := range t.Samples {
		rec[0], rec[1] = s.FID, s.IID
		rec[2] = ""
		if s.Phenotype.Valid {
			rec[2] = FormatFloat(s.Phenotype.Float64)
		}
		for k, algo := range t.Algorithms {
			v := t.Scores[algo][i]
			if math.IsNaN(v) {
				rec[3+k] = ""
			} else {
				rec[3+k] = FormatFloat(v)
			}
		}
		if err := cw.Write(rec); err != nil {
			return pfx.Err(err)
		}
	}

	cw.Flush()
	return pfx.Err(cw.Error())
}

// WriteFile writes the table to path, creating parent directories.
func (t *Table) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return pfx.Err(err)
	}

	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}

	if err := t.WriteCSV(f); err != nil {
		f.Close()
		return err
	}

	return pfx.Err(f.Close())
}

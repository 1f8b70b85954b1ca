package prsparser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	pgsbuilder "github.com/ailabstw/PGSbuilder"
	"github.com/carbocation/pfx"
)

// ErrMissingArtifact marks an algorithm whose output is simply absent. Callers
// skip such algorithms rather than failing.
var ErrMissingArtifact = errors.New("artifact not found")

// NAValues are the tokens treated as missing numbers unless overridden.
var NAValues = []string{"", "NA", "NaN", "nan", "na", "N/A"}

// ParseFloat parses a number, treating any of naValues as missing.
func ParseFloat(s string, naValues []string) (float64, bool, error) {
	for _, na := range naValues {
		if s == na {
			return math.NaN(), false, nil
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN(), false, err
	}
	if math.IsNaN(v) {
		return v, false, nil
	}

	return v, true, nil
}

// Loader reads the artifacts of weight layouts out of one PRS directory.
type Loader struct {
	Dir      string
	Basename string
	Client   *storage.Client
}

func (l Loader) read(ctx context.Context, rel string) ([]byte, error) {
	path := pgsbuilder.JoinPath(l.Dir, rel)

	data, err := pgsbuilder.ReadAll(ctx, path, l.Client)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrMissingArtifact)
	}

	return data, err
}

// Load reads the artifact of one algorithm according to its layout.
func (l Loader) Load(ctx context.Context, algo string, layout WeightLayout) (Artifact, error) {
	out := Artifact{Algorithm: algo, Kind: layout.Kind}

	switch layout.Kind {
	case KindThreshold:
		data, err := l.read(ctx, Resolve(layout.SNPFile, algo, l.Basename))
		if err != nil {
			return out, err
		}
		out.Selected = ParseSNPList(data)

		// An unreadable threshold means nothing passes, which later surfaces
		// as an all-zero column.
		out.Threshold = 0
		if data, err := l.read(ctx, Resolve(layout.ThresholdFile, algo, l.Basename)); err != nil {
			log.Printf("%s: no usable p-value threshold (%v), using 0\n", algo, err)
		} else if threshold, err := ParseThreshold(data); err != nil {
			log.Printf("%s: no usable p-value threshold (%v), using 0\n", algo, err)
		} else {
			out.Threshold = threshold
		}

	case KindVector:
		data, err := l.read(ctx, Resolve(layout.BetaFile, algo, l.Basename))
		if err != nil {
			return out, err
		}
		if out.Vector, err = ParseBetaVector(data); err != nil {
			return out, pfx.Err(fmt.Errorf("%s: %w", algo, err))
		}

	case KindTable:
		data, err := l.read(ctx, Resolve(layout.BetaFile, algo, l.Basename))
		if err != nil {
			return out, err
		}
		if out.Table, err = ParseBetaTable(data, layout); err != nil {
			return out, pfx.Err(fmt.Errorf("%s: %w", algo, err))
		}

	default:
		return out, fmt.Errorf("%s: unknown layout kind %q", algo, layout.Kind)
	}

	return out, nil
}

// ParseSNPList reads a whitespace-separated list of SNP identifiers.
func ParseSNPList(data []byte) map[string]struct{} {
	out := make(map[string]struct{})
	for _, id := range strings.Fields(string(data)) {
		out[id] = struct{}{}
	}

	return out
}

// ParseThreshold reads the first token of a best-p-value file.
func ParseThreshold(data []byte) (float64, error) {
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty threshold file")
	}

	return strconv.ParseFloat(fields[0], 64)
}

// ParseBetaVector reads a whitespace-separated list of effect sizes.
func ParseBetaVector(data []byte) ([]float64, error) {
	fields := strings.Fields(string(data))
	out := make([]float64, 0, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i+1, err)
		}
		out = append(out, v)
	}

	return out, nil
}

func (layout WeightLayout) columns(t *pgsbuilder.DelimitedTable) (id, allele, beta int, err error) {
	if layout.HasHeader {
		cols, err := t.Require(layout.ColID, layout.ColAllele, layout.ColBeta)
		if err != nil {
			return 0, 0, 0, err
		}
		return cols[0], cols[1], cols[2], nil
	}

	idx := make([]int, 3)
	for k, c := range []string{layout.ColID, layout.ColAllele, layout.ColBeta} {
		i, err := strconv.Atoi(c)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("column %q is not a 0-based column number", c)
		}
		if i < 0 || i >= len(t.Header) {
			return 0, 0, 0, fmt.Errorf("column %d out of range (%d columns)", i, len(t.Header))
		}
		idx[k] = i
	}

	return idx[0], idx[1], idx[2], nil
}

// ParseBetaTable reads an algorithm's own effect-size table.
func ParseBetaTable(data []byte, layout WeightLayout) ([]NativeBeta, error) {
	t, err := pgsbuilder.ParseDelimitedTable(data, ' ', layout.HasHeader)
	if err != nil {
		return nil, err
	}
	if len(t.Rows) == 0 {
		return nil, fmt.Errorf("no effect sizes found")
	}

	colID, colAllele, colBeta, err := layout.columns(t)
	if err != nil {
		return nil, err
	}

	out := make([]NativeBeta, 0, len(t.Rows))
	for i, row := range t.Rows {
		score, err := strconv.ParseFloat(row[colBeta], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, NativeBeta{
			SNP:          row[colID],
			EffectAllele: Allele(row[colAllele]),
			Score:        score,
		})
	}

	return out, nil
}

// ParseScores reads a per-sample score file. The delimiter is sniffed, so both
// whitespace-aligned PLINK profiles and comma-separated files are accepted.
func ParseScores(data []byte, layout ScoreLayout, naValues []string) ([]SampleScore, error) {
	// A UTF-8 byte order mark would otherwise leak into the first header.
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	t, err := pgsbuilder.ParseDelimitedTable(data, 0, true)
	if err != nil {
		return nil, err
	}

	cols, err := t.Require(layout.FIDColumn, layout.IIDColumn, layout.ScoreColumn)
	if err != nil {
		return nil, err
	}

	out := make([]SampleScore, 0, len(t.Rows))
	for i, row := range t.Rows {
		v, ok, err := ParseFloat(row[cols[2]], naValues)
		if err != nil {
			return nil, fmt.Errorf("data row %d (%s %s): %s: %w", i+1, row[cols[0]], row[cols[1]], layout.ScoreColumn, err)
		}
		out = append(out, SampleScore{
			FID:     row[cols[0]],
			IID:     row[cols[1]],
			Score:   v,
			Missing: !ok,
		})
	}

	return out, nil
}

package cohortref

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	pgsbuilder "github.com/ailabstw/PGSbuilder"
	"github.com/ailabstw/PGSbuilder/prediction"
	"github.com/carbocation/pfx"
)

// Output file names.
const (
	RankRefFile = "rank_ref.csv"
	HistRefFile = "hist_ref.csv"
	RankFile    = "rank.csv"
)

// WriteRankCSV writes one row per anchor: the rank, then the score of every
// algorithm at that rank.
func (r *Reference) WriteRankCSV(w io.Writer) error {
	return writeIndexed(w, "rank", r.Ranks, r.Algorithms, r.Scores)
}

// WriteHistCSV writes one row per histogram bin.
func (r *Reference) WriteHistCSV(w io.Writer) error {
	bins := make([]float64, HistogramBins)
	for i := range bins {
		bins[i] = float64(i)
	}

	return writeIndexed(w, "bin", bins, r.Algorithms, r.Histogram)
}

func writeIndexed(w io.Writer, index string, keys []float64, algos []string, cols map[string][]float64) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(append([]string{index}, algos...)); err != nil {
		return pfx.Err(err)
	}

	rec := make([]string, len(algos)+1)
	for i, key := range keys {
		rec[0] = prediction.FormatFloat(key)
		for k, algo := range algos {
			col := cols[algo]
			if i >= len(col) {
				return fmt.Errorf("%s: %d values for %d rows", algo, len(col), len(keys))
			}
			rec[k+1] = prediction.FormatFloat(col[i])
		}
		if err := cw.Write(rec); err != nil {
			return pfx.Err(err)
		}
	}

	cw.Flush()
	return pfx.Err(cw.Error())
}

// ReadRankCSV parses a rank reference. The first column holds the rank,
// whatever its header, and every other column is an algorithm.
func ReadRankCSV(r io.Reader) (*Reference, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, pfx.Err(err)
	}
	if len(records) < 2 || len(records[0]) < 2 {
		return nil, fmt.Errorf("rank reference has no anchors or no algorithms")
	}

	header := records[0]
	ref := &Reference{
		Ranks:      make([]float64, 0, len(records)-1),
		Algorithms: make([]string, 0, len(header)-1),
		Scores:     make(map[string][]float64, len(header)-1),
	}
	for _, algo := range header[1:] {
		algo = strings.TrimSpace(algo)
		ref.Algorithms = append(ref.Algorithms, algo)
		ref.Scores[algo] = make([]float64, 0, len(records)-1)
	}

	for line, rec := range records[1:] {
		rank, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: rank %q: %w", line+2, rec[0], err)
		}
		ref.Ranks = append(ref.Ranks, rank)

		for k, algo := range ref.Algorithms {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[k+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s %q: %w", line+2, algo, rec[k+1], err)
			}
			ref.Scores[algo] = append(ref.Scores[algo], v)
		}
	}

	if err := ref.Validate(); err != nil {
		return nil, err
	}

	return ref, nil
}

// ReadRankFile reads a rank reference from a local path or a gs:// URL.
func ReadRankFile(ctx context.Context, path string, client *storage.Client) (*Reference, error) {
	rc, err := pgsbuilder.Open(ctx, path, client)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer rc.Close()

	ref, err := ReadRankCSV(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return ref, nil
}

// WriteFiles writes rank_ref.csv and, when the histogram is known,
// hist_ref.csv into dir.
func (r *Reference) WriteFiles(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return pfx.Err(err)
	}

	if err := writeFile(filepath.Join(dir, RankRefFile), r.WriteRankCSV); err != nil {
		return err
	}

	if r.Histogram == nil {
		return nil
	}

	return writeFile(filepath.Join(dir, HistRefFile), r.WriteHistCSV)
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}

	if err := write(f); err != nil {
		f.Close()
		return err
	}

	return pfx.Err(f.Close())
}

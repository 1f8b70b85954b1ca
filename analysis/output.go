package analysis

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/ailabstw/PGSbuilder/prediction"
	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"
	"gopkg.in/guregu/null.v3"
)

// Output file names.
const (
	PerformanceFile  = "performance.json"
	ROCFile          = "roc.json"
	PercentileFile   = "percentile.csv"
	WorkbookFile     = "analysis.xlsx"
	DistributionFile = "distribution.txt"
)

type rocJSON struct {
	FPR []float64  `json:"fpr"`
	TPR []float64  `json:"tpr"`
	AUC null.Float `json:"auc"`
}

// jsonFloat turns NaN and infinities into null, which encoding/json cannot
// represent otherwise.
func jsonFloat(v float64) null.Float {
	return null.NewFloat(v, !math.IsNaN(v) && !math.IsInf(v, 0))
}

// Performance is the metric -> tool -> value summary. Correlations are
// [coefficient, p-value] pairs.
func (r *Report) Performance() map[string]map[string]interface{} {
	out := make(map[string]map[string]interface{})

	switch r.Method {
	case prediction.Classification:
		out["ROC"] = make(map[string]interface{}, len(r.Tools))
		out["PRC"] = make(map[string]interface{}, len(r.Tools))
		for _, tool := range r.Tools {
			out["ROC"][tool] = jsonFloat(r.AUC[tool])
			out["PRC"][tool] = jsonFloat(r.AP[tool])
		}
	case prediction.Regression:
		out["Pearson"] = make(map[string]interface{}, len(r.Tools))
		out["Spearman"] = make(map[string]interface{}, len(r.Tools))
		for _, tool := range r.Tools {
			p, s := r.Pearson[tool], r.Spearman[tool]
			out["Pearson"][tool] = []null.Float{jsonFloat(p.R), jsonFloat(p.P)}
			out["Spearman"][tool] = []null.Float{jsonFloat(s.R), jsonFloat(s.P)}
		}
	}

	return out
}

// WritePercentileCSV writes the odds-ratio or per-bin phenotype table.
func (r *Report) WritePercentileCSV(w io.Writer) error {
	if r.Method == prediction.Classification {
		rows := r.OddsRatios
		if rows == nil {
			rows = []OddsRatioRow{}
		}
		return pfx.Err(gocsv.Marshal(&rows, w))
	}

	rows := r.Phenotype
	if rows == nil {
		rows = []PhenotypeRow{}
	}
	return pfx.Err(gocsv.Marshal(&rows, w))
}

// WriteFiles writes performance.json, percentile.csv, analysis.xlsx and
// distribution.txt into dir, plus roc.json for classification.
func (r *Report) WriteFiles(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return pfx.Err(err)
	}

	if err := writeJSON(filepath.Join(dir, PerformanceFile), r.Performance()); err != nil {
		return err
	}

	if r.Method == prediction.Classification {
		curves := make(map[string]rocJSON, len(r.Tools))
		for _, tool := range r.Tools {
			c := r.ROC[tool]
			curves[tool] = rocJSON{
				FPR: nonNil(c.X),
				TPR: nonNil(c.Y),
				AUC: jsonFloat(r.AUC[tool]),
			}
		}
		if err := writeJSON(filepath.Join(dir, ROCFile), curves); err != nil {
			return err
		}
	}

	if err := writeText(filepath.Join(dir, PercentileFile), r.WritePercentileCSV); err != nil {
		return err
	}

	if err := r.WriteWorkbook(filepath.Join(dir, WorkbookFile)); err != nil {
		return err
	}

	return writeText(filepath.Join(dir, DistributionFile), r.WriteDistribution)
}

// WriteWorkbook writes a "performance" and a "percentile" sheet.
func (r *Report) WriteWorkbook(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	const perfSheet, pctSheet = "performance", "percentile"
	if err := f.SetSheetName("Sheet1", perfSheet); err != nil {
		return pfx.Err(err)
	}
	if _, err := f.NewSheet(pctSheet); err != nil {
		return pfx.Err(err)
	}

	var perf [][]interface{}
	switch r.Method {
	case prediction.Classification:
		perf = append(perf, []interface{}{"tool", "auROC", "auPRC"})
		for _, tool := range r.Tools {
			perf = append(perf, []interface{}{tool, cell(r.AUC[tool]), cell(r.AP[tool])})
		}
	case prediction.Regression:
		perf = append(perf, []interface{}{"tool", "pearson", "pearson_p", "spearman", "spearman_p"})
		for _, tool := range r.Tools {
			p, s := r.Pearson[tool], r.Spearman[tool]
			perf = append(perf, []interface{}{tool, cell(p.R), cell(p.P), cell(s.R), cell(s.P)})
		}
	}

	var pct [][]interface{}
	switch r.Method {
	case prediction.Classification:
		pct = append(pct, []interface{}{"tool", "percentile", "OR", "ci_upper", "ci_lower", "pos_num", "neg_num", "fisher_p"})
		for _, row := range r.OddsRatios {
			pct = append(pct, []interface{}{row.Tool, row.Percentile, cell(row.OR), cell(row.CIUpper), cell(row.CILower), row.PosNum, row.NegNum, cell(row.FisherP)})
		}
	case prediction.Regression:
		pct = append(pct, []interface{}{"tool", "percentile", "count", "mean", "sd"})
		for _, row := range r.Phenotype {
			pct = append(pct, []interface{}{row.Tool, row.Percentile, row.Count, cell(row.Mean), cell(row.SD)})
		}
	}

	for sheet, rows := range map[string][][]interface{}{perfSheet: perf, pctSheet: pct} {
		for i, row := range rows {
			addr, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				return pfx.Err(err)
			}
			if err := f.SetSheetRow(sheet, addr, &row); err != nil {
				return pfx.Err(fmt.Errorf("%s row %d: %w", sheet, i+1, err))
			}
		}
	}

	return pfx.Err(f.SaveAs(path))
}

// cell leaves non-finite values blank.
func cell(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}

	return v
}

func nonNil(x []float64) []float64 {
	if x == nil {
		return []float64{}
	}

	return x
}

func writeJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return pfx.Err(os.WriteFile(path, data, 0o644))
}

func writeText(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := write(w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return pfx.Err(err)
	}

	return pfx.Err(f.Close())
}

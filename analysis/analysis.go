// Package analysis measures how well each PRS algorithm predicts the
// phenotype: ROC and precision-recall for case/control traits, correlation
// for quantitative traits, and percentile-stratified risk for both.
package analysis

import (
	"fmt"
	"log"
	"math"

	"github.com/ailabstw/PGSbuilder/prediction"
	"github.com/carbocation/pfx"
)

// DefaultPercentileNum is the number of percentile bins when none is set.
const DefaultPercentileNum = 10

// ErrUnknownMethod is returned for any method other than clf or reg.
var ErrUnknownMethod = prediction.ErrUnknownMethod

type Analyzer struct {
	Method        prediction.Method
	PercentileNum int
}

// New validates the method before anything is computed or written.
func New(method prediction.Method, percentileNum int) (*Analyzer, error) {
	if method != prediction.Classification && method != prediction.Regression {
		return nil, fmt.Errorf("%q: %w", method, ErrUnknownMethod)
	}
	if percentileNum < 1 {
		return nil, fmt.Errorf("percentile number must be positive, got %d", percentileNum)
	}

	return &Analyzer{Method: method, PercentileNum: percentileNum}, nil
}

// Report holds every statistic of one analysis run. Only the maps of the
// run's method are filled.
type Report struct {
	Method  prediction.Method
	Samples int
	Tools   []string

	// Classification
	AUC        map[string]float64
	AP         map[string]float64
	ROC        map[string]Curve
	PRC        map[string]Curve
	OddsRatios []OddsRatioRow

	// Regression
	Pearson   map[string]Correlation
	Spearman  map[string]Correlation
	Phenotype []PhenotypeRow

	// Per tool, the samples that carry a score.
	tables map[string]*prediction.Table
}

// Analyze computes the report of t. Samples without a phenotype are dropped
// first.
func (a *Analyzer) Analyze(t *prediction.Table) (*Report, error) {
	t2 := t.WithPhenotype()
	log.Printf("Drop %d samples with no phenotype\n", t.Len()-t2.Len())
	if t2.Len() == 0 {
		return nil, fmt.Errorf("no samples with a phenotype to analyze")
	}

	r := &Report{
		Method:  a.Method,
		Samples: t2.Len(),
		Tools:   append([]string(nil), t2.Algorithms...),
		tables:  make(map[string]*prediction.Table, len(t2.Algorithms)),
	}
	for _, tool := range r.Tools {
		r.tables[tool] = scored(t2, tool)
	}

	switch a.Method {
	case prediction.Classification:
		log.Println("Analyzing Classification ...")
		if err := a.classification(r, t2); err != nil {
			return nil, pfx.Err(err)
		}
	case prediction.Regression:
		log.Println("Analyzing Regression ...")
		a.regression(r)
	default:
		return nil, fmt.Errorf("%q: %w", a.Method, ErrUnknownMethod)
	}

	return r, nil
}

// Run analyzes t and writes every output into outDir.
func (a *Analyzer) Run(t *prediction.Table, outDir string) (*Report, error) {
	r, err := a.Analyze(t)
	if err != nil {
		return nil, err
	}

	if err := r.WriteFiles(outDir); err != nil {
		return nil, err
	}
	r.Plot(outDir)

	return r, nil
}

// scored returns the rows of t whose score for tool is finite.
func scored(t *prediction.Table, tool string) *prediction.Table {
	scores, _ := t.Column(tool)
	rows := make([]int, 0, len(scores))
	for i, v := range scores {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			rows = append(rows, i)
		}
	}
	if n := len(scores) - len(rows); n > 0 {
		log.Printf("%s: drop %d samples with no score\n", tool, n)
	}

	return t.Subset(rows)
}

func binaryLabels(t *prediction.Table) ([]bool, error) {
	labels := make([]bool, t.Len())
	for i, s := range t.Samples {
		switch s.Phenotype.Float64 {
		case 0:
		case 1:
			labels[i] = true
		default:
			return nil, fmt.Errorf("sample %s/%s: phenotype %v is not 0 or 1", s.FID, s.IID, s.Phenotype.Float64)
		}
	}

	return labels, nil
}

func (a *Analyzer) classification(r *Report, t *prediction.Table) error {
	labels, err := binaryLabels(t)
	if err != nil {
		return err
	}
	if pos, neg := classCounts(labels); pos == 0 || neg == 0 {
		log.Printf("Only one class is present (%d cases, %d controls); AUC and AP are undefined\n", pos, neg)
	}

	r.AUC = make(map[string]float64, len(r.Tools))
	r.AP = make(map[string]float64, len(r.Tools))
	r.ROC = make(map[string]Curve, len(r.Tools))
	r.PRC = make(map[string]Curve, len(r.Tools))

	toolLabels := make(map[string][]bool, len(r.Tools))
	for _, tool := range r.Tools {
		// Rows were validated above.
		toolLabels[tool], _ = binaryLabels(r.tables[tool])
	}

	log.Println("Calculating metrics auROC and auPRC ...")
	for _, tool := range r.Tools {
		scores := r.tables[tool].Scores[tool]
		r.ROC[tool], r.AUC[tool] = ROC(scores, toolLabels[tool])
		r.PRC[tool], r.AP[tool] = PrecisionRecall(scores, toolLabels[tool])
		log.Printf("%s: auROC = %.4f, auPRC = %.4f\n", tool, r.AUC[tool], r.AP[tool])
	}

	log.Println("Calculating percentile distribution ...")
	for _, tool := range r.Tools {
		r.OddsRatios = append(r.OddsRatios, OddsRatios(tool, r.tables[tool].Scores[tool], toolLabels[tool], a.PercentileNum)...)
	}

	return nil
}

func (a *Analyzer) regression(r *Report) {
	r.Pearson = make(map[string]Correlation, len(r.Tools))
	r.Spearman = make(map[string]Correlation, len(r.Tools))

	log.Println("Calculating metrics Pearson and Spearman correlation ...")
	for _, tool := range r.Tools {
		t := r.tables[tool]
		y := t.Phenotypes()
		r.Pearson[tool] = Pearson(y, t.Scores[tool])
		r.Spearman[tool] = Spearman(y, t.Scores[tool])
		log.Printf("%s: Pearson = %.4f, Spearman = %.4f\n", tool, r.Pearson[tool].R, r.Spearman[tool].R)
	}

	log.Println("Calculating percentile distribution ...")
	for _, tool := range r.Tools {
		t := r.tables[tool]
		r.Phenotype = append(r.Phenotype, PhenotypeByBin(tool, t.Scores[tool], t.Phenotypes(), a.PercentileNum)...)
	}
}

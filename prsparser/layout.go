package prsparser

import (
	"sort"
	"strings"
)

// Kind tells the weight builder how an algorithm reports its per-SNP effects.
type Kind string

const (
	// KindThreshold algorithms (clumping and thresholding) select a set of
	// SNPs and a p-value cutoff; the effect sizes come from the base summary
	// statistics.
	KindThreshold Kind = "threshold"

	// KindVector algorithms emit one effect size per metadata SNP, in metadata
	// order, without identifiers.
	KindVector Kind = "vector"

	// KindTable algorithms emit their own table of identifier, reporting
	// allele and effect size.
	KindTable Kind = "table"
)

// WeightLayout describes where an algorithm leaves its per-SNP artifact under
// the PRS directory and how to read it. Paths are templates in which {algo}
// and {basename} are substituted.
type WeightLayout struct {
	Kind          Kind   `json:"kind" yaml:"kind"`
	SNPFile       string `json:"snp_file,omitempty" yaml:"snp_file,omitempty"`
	ThresholdFile string `json:"threshold_file,omitempty" yaml:"threshold_file,omitempty"`
	BetaFile      string `json:"beta_file,omitempty" yaml:"beta_file,omitempty"`

	// Table layouts only. With HasHeader the columns are header names;
	// otherwise they are 0-based column numbers written as text.
	HasHeader bool   `json:"has_header,omitempty" yaml:"has_header,omitempty"`
	ColID     string `json:"col_id,omitempty" yaml:"col_id,omitempty"`
	ColAllele string `json:"col_allele,omitempty" yaml:"col_allele,omitempty"`
	ColBeta   string `json:"col_beta,omitempty" yaml:"col_beta,omitempty"`
}

// ScoreLayout describes the per-sample score files of one or more
// algorithms. Pattern is a path template in which {prefix} is substituted; a
// single * in it captures the algorithm name. Patterns without * name the
// algorithm through Algorithm.
type ScoreLayout struct {
	Pattern     string `json:"pattern" yaml:"pattern"`
	Algorithm   string `json:"algorithm,omitempty" yaml:"algorithm,omitempty"`
	FIDColumn   string `json:"fid_column" yaml:"fid_column"`
	IIDColumn   string `json:"iid_column" yaml:"iid_column"`
	ScoreColumn string `json:"score_column" yaml:"score_column"`
}

var WeightLayouts = map[string]WeightLayout{
	"CandT": {
		Kind:          KindThreshold,
		SNPFile:       "{algo}/{basename}.valid.snp",
		ThresholdFile: "{algo}/best_pvalue_range",
	},
	"PRSice2": {
		Kind:          KindThreshold,
		SNPFile:       "{algo}/{basename}.valid.snp",
		ThresholdFile: "{algo}/best_pvalue_range",
	},
	"Lassosum": {
		Kind:     KindVector,
		BetaFile: "{algo}/{basename}.beta",
	},
	"LDpred2": {
		Kind:      KindTable,
		BetaFile:  "{algo}/{basename}.beta.tsv",
		HasHeader: true,
		ColID:     "rsid",
		ColAllele: "a1",
		ColBeta:   "beta",
	},
	"PRScs": {
		// CHR ID POS A1 A2 BETA
		Kind:      KindTable,
		BetaFile:  "{algo}/effect_size.txt",
		ColID:     "1",
		ColAllele: "3",
		ColBeta:   "5",
	},
}

var ScoreLayouts = map[string]ScoreLayout{
	"profile": {
		Pattern:     "{prefix}.*.profile",
		FIDColumn:   "FID",
		IIDColumn:   "IID",
		ScoreColumn: "SCORESUM",
	},
	"GenEpi": {
		Pattern:     "{prefix}.GenEpi.csv",
		Algorithm:   "GenEpi",
		FIDColumn:   "FID",
		IIDColumn:   "IID",
		ScoreColumn: "score",
	},
}

// LayoutNames lists the known weight layouts in a stable order.
func LayoutNames() string {
	names := make([]string, 0, len(WeightLayouts))
	for m := range WeightLayouts {
		names = append(names, m)
	}
	sort.Strings(names)

	return strings.Join(names, ", ")
}

// ScoreLayoutNames orders the names of layouts for discovery: layouts whose
// pattern captures the algorithm with * come first, then by name.
func ScoreLayoutNames(layouts map[string]ScoreLayout) []string {
	names := make([]string, 0, len(layouts))
	for m := range layouts {
		names = append(names, m)
	}
	sort.Slice(names, func(i, j int) bool {
		wi := strings.Contains(layouts[names[i]].Pattern, "*")
		wj := strings.Contains(layouts[names[j]].Pattern, "*")
		if wi != wj {
			return wi
		}
		return names[i] < names[j]
	})

	return names
}

// Resolve substitutes the template placeholders of a layout path.
func Resolve(template, algo, basename string) string {
	r := strings.NewReplacer("{algo}", algo, "{basename}", basename)
	return r.Replace(template)
}

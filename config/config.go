package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ailabstw/PGSbuilder/prsparser"
	"github.com/carbocation/pfx"
	"gopkg.in/yaml.v3"
)

// Config gathers the thresholds, column synonyms and artifact layouts used by
// the weight builder, the score aggregator and the analysis. Nothing in the
// pipeline reads package-level defaults directly; everything flows through a
// Config.
type Config struct {
	ConfigPath string `json:"-" yaml:"-"`

	Algorithms []string `json:"algorithms" yaml:"algorithms"`

	// Algorithms whose score columns are missing in more than this fraction of
	// samples are dropped.
	MissingThreshold float64 `json:"missing_threshold" yaml:"missing_threshold"`

	PercentileNum int      `json:"percentile_num" yaml:"percentile_num"`
	NAValues      []string `json:"na_values" yaml:"na_values"`

	// Canonical summary-statistics column => accepted header names, in order
	// of preference.
	SumStatColumns map[string][]string `json:"sumstat_columns" yaml:"sumstat_columns"`

	WeightLayouts map[string]prsparser.WeightLayout `json:"weight_layouts" yaml:"weight_layouts"`
	ScoreLayouts  map[string]prsparser.ScoreLayout  `json:"score_layouts" yaml:"score_layouts"`
}

// Canonical summary-statistics columns.
const (
	ColChrom  = "CHROM"
	ColPos    = "POS"
	ColID     = "ID"
	ColRef    = "REF"
	ColAlt    = "ALT"
	ColA1     = "A1"
	ColP      = "P"
	ColLog10P = "LOG10_P"
	ColBeta   = "BETA"
)

// Default returns the built-in configuration. Each call returns fresh maps.
func Default() Config {
	c := Config{
		MissingThreshold: 0.1,
		PercentileNum:    10,
		NAValues:         append([]string(nil), prsparser.NAValues...),
		SumStatColumns: map[string][]string{
			ColChrom:  {"#CHROM", "CHROM", "CHR"},
			ColPos:    {"POS", "BP"},
			ColID:     {"ID", "SNP"},
			ColRef:    {"REF"},
			ColAlt:    {"ALT"},
			ColA1:     {"A1"},
			ColP:      {"P"},
			ColLog10P: {"LOG10_P"},
			ColBeta:   {"BETA"},
		},
		WeightLayouts: make(map[string]prsparser.WeightLayout),
		ScoreLayouts:  make(map[string]prsparser.ScoreLayout),
	}

	for k, v := range prsparser.WeightLayouts {
		c.WeightLayouts[k] = v
		c.Algorithms = append(c.Algorithms, k)
	}
	for k, v := range prsparser.ScoreLayouts {
		c.ScoreLayouts[k] = v
	}
	sort.Strings(c.Algorithms)

	return c
}

// ParseConfigFromPath reads a JSON or YAML (by extension) configuration on top
// of Default. Layouts and synonyms in the file extend or override the
// built-in ones.
func ParseConfigFromPath(path string) (Config, error) {
	out := Default()
	path = ExpandHome(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return out, pfx.Err(err)
	}

	var file Config
	var set scalars
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return out, pfx.Err(err)
		}
		if err := yaml.Unmarshal(data, &set); err != nil {
			return out, pfx.Err(err)
		}
	default:
		if err := json.Unmarshal(data, &file); err != nil {
			if e, ok := err.(*json.SyntaxError); ok {
				log.Printf("syntax error at byte offset %d", e.Offset)
			}
			return out, pfx.Err(err)
		}
		if err := json.Unmarshal(data, &set); err != nil {
			return out, pfx.Err(err)
		}
	}

	out.merge(file, set)
	out.ConfigPath = path

	return out, pfx.Err(out.Validate())
}

// scalars records which numeric keys a file sets, so that an explicit 0
// still overrides the default.
type scalars struct {
	MissingThreshold *float64 `json:"missing_threshold" yaml:"missing_threshold"`
	PercentileNum    *int     `json:"percentile_num" yaml:"percentile_num"`
}

func (c *Config) merge(file Config, set scalars) {
	if len(file.Algorithms) > 0 {
		c.Algorithms = file.Algorithms
	}
	if set.MissingThreshold != nil {
		c.MissingThreshold = *set.MissingThreshold
	}
	if set.PercentileNum != nil {
		c.PercentileNum = *set.PercentileNum
	}
	if file.NAValues != nil {
		c.NAValues = file.NAValues
	}
	for k, v := range file.SumStatColumns {
		c.SumStatColumns[k] = v
	}
	for k, v := range file.WeightLayouts {
		c.WeightLayouts[k] = v
	}
	for k, v := range file.ScoreLayouts {
		c.ScoreLayouts[k] = v
	}
}

// Validate rejects configurations that cannot produce meaningful output.
func (c Config) Validate() error {
	if c.MissingThreshold < 0 || c.MissingThreshold > 1 {
		return fmt.Errorf("missing_threshold must be within [0, 1], got %v", c.MissingThreshold)
	}
	if c.PercentileNum < 1 {
		return fmt.Errorf("percentile_num must be positive, got %d", c.PercentileNum)
	}
	for name, layout := range c.WeightLayouts {
		switch layout.Kind {
		case prsparser.KindThreshold, prsparser.KindVector, prsparser.KindTable:
		default:
			return fmt.Errorf("weight layout %s: unknown kind %q", name, layout.Kind)
		}
	}
	for name, layout := range c.ScoreLayouts {
		if layout.Pattern == "" || layout.ScoreColumn == "" {
			return fmt.Errorf("score layout %s: pattern and score_column are required", name)
		}
		if !strings.Contains(layout.Pattern, "*") && layout.Algorithm == "" {
			return fmt.Errorf("score layout %s: a pattern without * needs an algorithm name", name)
		}
	}

	return nil
}

// ExpandHome expands ~ to its proper path, where appropriate.
// Via https://stackoverflow.com/a/17617721/199475
func ExpandHome(path string) string {
	usr, err := user.Current()
	if err != nil {
		return path
	}

	dir := usr.HomeDir

	if path == "~" {
		// In case of "~", which won't be caught by the "else if"
		path = dir
	} else if strings.HasPrefix(path, "~/") {
		path = filepath.Join(dir, path[2:])
	}

	return path
}

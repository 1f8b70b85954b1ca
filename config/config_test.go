package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ailabstw/PGSbuilder/prsparser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 0.1, c.MissingThreshold)
	assert.Equal(t, 10, c.PercentileNum)
	assert.Contains(t, c.WeightLayouts, "PRScs")
	assert.Contains(t, c.ScoreLayouts, "GenEpi")

	// Mutating one default must not leak into the package registry.
	c.WeightLayouts["PRScs"] = prsparser.WeightLayout{Kind: prsparser.KindVector}
	assert.Equal(t, prsparser.KindTable, prsparser.WeightLayouts["PRScs"].Kind)
}

func TestParseJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pgs.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"algorithms": ["PRScs", "SBayesR"],
		"missing_threshold": 0.2,
		"weight_layouts": {
			"SBayesR": {"kind": "table", "beta_file": "{algo}/{basename}.snpRes", "has_header": true, "col_id": "Name", "col_allele": "A1", "col_beta": "A1Effect"}
		}
	}`), 0o644))

	c, err := ParseConfigFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"PRScs", "SBayesR"}, c.Algorithms)
	assert.Equal(t, 0.2, c.MissingThreshold)
	assert.Equal(t, 10, c.PercentileNum)
	assert.Equal(t, "A1Effect", c.WeightLayouts["SBayesR"].ColBeta)
	assert.Contains(t, c.WeightLayouts, "Lassosum")
}

func TestParseYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pgs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
percentile_num: 5
na_values: ["", "NA", "-9"]
sumstat_columns:
  CHROM: ["chromosome"]
`), 0o644))

	c, err := ParseConfigFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 5, c.PercentileNum)
	assert.Equal(t, []string{"", "NA", "-9"}, c.NAValues)
	assert.Equal(t, []string{"chromosome"}, c.SumStatColumns[ColChrom])
	assert.Equal(t, []string{"BETA"}, c.SumStatColumns[ColBeta])
}

func TestValidateRejectsUnknownKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"weight_layouts": {"X": {"kind": "magic"}}}`), 0o644))

	_, err := ParseConfigFromPath(path)
	assert.Error(t, err)
}

func TestParseExplicitZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strict.yaml")
	require.NoError(t, os.WriteFile(path, []byte("missing_threshold: 0\n"), 0o644))

	c, err := ParseConfigFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, c.MissingThreshold)
	assert.Equal(t, 10, c.PercentileNum)
	assert.Equal(t, path, c.ConfigPath)

	path = filepath.Join(t.TempDir(), "zero.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"percentile_num": 0}`), 0o644))
	_, err = ParseConfigFromPath(path)
	assert.Error(t, err)
}

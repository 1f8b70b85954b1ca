package prsparser

import "strings"

type Allele string

// Matches compares alleles case-insensitively.
func (a Allele) Matches(b string) bool {
	return strings.EqualFold(string(a), b)
}

// NativeBeta is one row of an algorithm's own effect-size table, expressed
// against the algorithm's reporting allele.
type NativeBeta struct {
	SNP          string
	EffectAllele Allele
	Score        float64
}

// Artifact holds everything an algorithm left behind that the weight builder
// needs. Which fields are populated depends on Kind.
type Artifact struct {
	Algorithm string
	Kind      Kind

	// KindThreshold
	Selected  map[string]struct{}
	Threshold float64

	// KindVector
	Vector []float64

	// KindTable
	Table []NativeBeta
}

// SampleScore is one row of a per-sample score file. Missing is set when the
// score was NA or unparseable as a number.
type SampleScore struct {
	FID     string
	IID     string
	Score   float64
	Missing bool
}

package weights

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/ailabstw/PGSbuilder/prsparser"
)

// ErrNoSignal marks an algorithm whose effect sizes are all 0.0 or NaN.
var ErrNoSignal = errors.New("beta estimates are all 0.0 or NaN")

// Result is the outcome of one algorithm. Exactly one of Beta and Err is set.
type Result struct {
	Algorithm string
	Beta      []float64
	Err       error
}

// Skipped reports whether the algorithm left no output at all.
func (r Result) Skipped() bool {
	return errors.Is(r.Err, prsparser.ErrMissingArtifact)
}

// Builder turns per-algorithm artifacts into beta columns aligned to SNPs.
type Builder struct {
	SNPs    []SNP
	Loader  prsparser.Loader
	Layouts map[string]prsparser.WeightLayout

	byID map[string][]int
}

func NewBuilder(snps []SNP, loader prsparser.Loader, layouts map[string]prsparser.WeightLayout) *Builder {
	b := &Builder{
		SNPs:    snps,
		Loader:  loader,
		Layouts: layouts,
		byID:    make(map[string][]int, len(snps)),
	}
	for i, s := range snps {
		b.byID[s.ID] = append(b.byID[s.ID], i)
	}

	return b
}

// BuildAll processes every algorithm independently.
func (b *Builder) BuildAll(ctx context.Context, algos []string) []Result {
	out := make([]Result, 0, len(algos))
	for _, algo := range algos {
		out = append(out, b.Build(ctx, algo))
	}

	return out
}

// Build loads and aligns one algorithm. Missing artifacts, parse failures and
// all-zero columns are reported through Result.Err.
func (b *Builder) Build(ctx context.Context, algo string) Result {
	layout, ok := b.Layouts[algo]
	if !ok {
		return Result{Algorithm: algo, Err: fmt.Errorf("%s: no artifact layout registered", algo)}
	}

	artifact, err := b.Loader.Load(ctx, algo, layout)
	if errors.Is(err, prsparser.ErrMissingArtifact) {
		log.Printf("%s: no output found, skipping\n", algo)
		return Result{Algorithm: algo, Err: err}
	} else if err != nil {
		log.Printf("%s: %v\n", algo, err)
		return Result{Algorithm: algo, Err: err}
	}

	log.Printf("Loading %s ...\n", algo)
	beta, err := b.Column(artifact)
	if err != nil {
		log.Printf("%s: %v\n", algo, err)
		return Result{Algorithm: algo, Err: err}
	}

	if !hasSignal(beta) {
		log.Printf("Beta estimated by %s are all 0.0 or NaN, dropping\n", algo)
		return Result{Algorithm: algo, Err: fmt.Errorf("%s: %w", algo, ErrNoSignal)}
	}

	for i, v := range beta {
		if math.IsNaN(v) {
			beta[i] = 0
		}
	}

	return Result{Algorithm: algo, Beta: beta}
}

// Column aligns an artifact to the SNP order and expresses every effect size
// against the ALT allele.
func (b *Builder) Column(a prsparser.Artifact) ([]float64, error) {
	out := make([]float64, len(b.SNPs))

	switch a.Kind {
	case prsparser.KindThreshold:
		for i, s := range b.SNPs {
			if _, selected := a.Selected[s.ID]; !selected || s.P > a.Threshold {
				continue
			}
			out[i] = alignToAlt(s.Beta, s.A1, s.Alt)
		}

	case prsparser.KindVector:
		if len(a.Vector) != len(b.SNPs) {
			return nil, fmt.Errorf("%s: %d effect sizes for %d variants", a.Algorithm, len(a.Vector), len(b.SNPs))
		}
		for i, s := range b.SNPs {
			out[i] = alignToAlt(a.Vector[i], s.A1, s.Alt)
		}

	case prsparser.KindTable:
		seen := make(map[string]struct{}, len(a.Table))
		matched := 0
		for _, nb := range a.Table {
			if _, dup := seen[nb.SNP]; dup {
				continue
			}
			seen[nb.SNP] = struct{}{}

			for _, i := range b.byID[nb.SNP] {
				out[i] = alignToAlt(nb.Score, string(nb.EffectAllele), b.SNPs[i].Alt)
				matched++
			}
		}
		log.Printf("%s: %d of %d effect sizes matched a variant\n", a.Algorithm, matched, len(a.Table))

	default:
		return nil, fmt.Errorf("%s: unknown layout kind %q", a.Algorithm, a.Kind)
	}

	return out, nil
}

func alignToAlt(beta float64, reporting, alt string) float64 {
	if beta == 0 || prsparser.Allele(reporting).Matches(alt) {
		return beta
	}

	return -beta
}

func hasSignal(beta []float64) bool {
	for _, v := range beta {
		if v != 0 && !math.IsNaN(v) {
			return true
		}
	}

	return false
}

package pgsbuilder

// Map columns in the BIM file to their positions
const (
	Chromosome int = iota
	VariantID
	Morgans
	Coordinate
	Allele1
	Allele2
)

// BIMRow is one variant of a PLINK .bim file. PLINK writes the alternate
// allele in the Allele1 column and the reference allele in Allele2.
type BIMRow struct {
	Chromosome string
	Coordinate uint32 // Labeled "position" by most applications
	VariantID  string // E.g., RSID
	Allele1    string // Can contain > 1 character
	Allele2    string // Can contain > 1 character
	// Morgans string // This is excluded intentionally
}

// Alt is the allele every effect size in this project is expressed against.
func (r BIMRow) Alt() string { return r.Allele1 }

func (r BIMRow) Ref() string { return r.Allele2 }

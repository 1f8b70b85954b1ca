package pgsbuilder

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
)

// Map columns in the FAM file to their positions
const (
	FamilyID int = iota
	IndividualID
	FatherID
	MotherID
	Sex
	Phenotype
)

// FAMRow is one sample of a PLINK .fam file. The phenotype is kept as text so
// that callers can apply their own missing-value and case/control coding.
type FAMRow struct {
	FID       string
	IID       string
	Father    string
	Mother    string
	Sex       string
	Phenotype string
}

// ReadFAM loads a whitespace-delimited, header-less .fam file.
func ReadFAM(ctx context.Context, path string, client *storage.Client) ([]FAMRow, error) {
	data, err := ReadAll(ctx, path, client)
	if err != nil {
		return nil, pfx.Err(err)
	}

	t, err := ParseDelimitedTable(data, ' ', false)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	if len(t.Rows) > 0 && len(t.Header) < Phenotype+1 {
		return nil, pfx.Err(fmt.Errorf("%s: expected %d columns, found %d", path, Phenotype+1, len(t.Header)))
	}

	out := make([]FAMRow, 0, len(t.Rows))
	for _, cols := range t.Rows {
		out = append(out, FAMRow{
			FID:       cols[FamilyID],
			IID:       cols[IndividualID],
			Father:    cols[FatherID],
			Mother:    cols[MotherID],
			Sex:       cols[Sex],
			Phenotype: cols[Phenotype],
		})
	}

	return out, nil
}

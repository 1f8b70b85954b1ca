package pgsbuilder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
)

type BIM struct {
	path    string
	file    io.ReadCloser
	scanner *bufio.Scanner
	line    int
	err     error
}

func OpenBIM(ctx context.Context, path string, client *storage.Client) (*BIM, error) {
	bim := &BIM{
		path: path,
	}

	file, err := Open(ctx, path, client)
	if err != nil {
		return nil, err
	}
	bim.file = file
	bim.scanner = bufio.NewScanner(file)
	bim.scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return bim, nil
}

func (b *BIM) Close() error {
	return b.file.Close()
}

func (b *BIM) Err() error {
	if b.err != nil {
		return b.err
	}

	return b.scanner.Err()
}

// Read returns the next row, or nil at EOF or on error. Check Err afterwards.
func (b *BIM) Read() *BIMRow {
	for b.scanner.Scan() {
		b.line++
		cols := strings.Fields(b.scanner.Text())
		if len(cols) == 0 {
			continue
		}

		if len(cols) < Allele2+1 {
			b.err = fmt.Errorf("%s line %d: expected %d columns, found %d", b.path, b.line, Allele2+1, len(cols))
			return nil
		}

		row := &BIMRow{
			Chromosome: cols[Chromosome],
			VariantID:  cols[VariantID],
			Allele1:    cols[Allele1],
			Allele2:    cols[Allele2],
		}

		coord64, err := strconv.ParseUint(cols[Coordinate], 10, 32)
		if err != nil {
			b.err = fmt.Errorf("%s line %d: %w", b.path, b.line, err)
			return nil
		}
		row.Coordinate = uint32(coord64)

		return row
	}

	return nil
}

// ReadBIM loads every variant of a .bim file, preserving file order.
func ReadBIM(ctx context.Context, path string, client *storage.Client) ([]BIMRow, error) {
	b, err := OpenBIM(ctx, path, client)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer b.Close()

	out := make([]BIMRow, 0)
	for v := b.Read(); v != nil; v = b.Read() {
		out = append(out, *v)
	}
	if err := b.Err(); err != nil {
		return nil, pfx.Err(err)
	}

	return out, nil
}

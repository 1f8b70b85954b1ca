package pgsbuilder

import (
	"bytes"
	"io"
	"strings"

	"github.com/csimplestring/go-csv/detector"
)

// DetermineDelimiter returns the single most likely rune that would delimit the
// values in the reader, assuming a CSV-like file. Whitespace-aligned files
// (e.g., PLINK .profile output) usually come back as ' '.
func DetermineDelimiter(r io.Reader) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(r, '"')

	if len(delimiters) > 0 && len(delimiters[0]) > 0 {
		return rune(delimiters[0][0])
	}

	return ' '
}

// DetermineDelimiterBytes sniffs the delimiter from the first lines of an
// in-memory file. Comma and tab win outright when the header contains them,
// since the detector is easily confused by short files.
func DetermineDelimiterBytes(data []byte) rune {
	header := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		header = data[:i]
	}

	switch {
	case bytes.IndexByte(header, '\t') >= 0:
		return '\t'
	case bytes.IndexByte(header, ',') >= 0:
		return ','
	}

	// Only accept the detector's answer when it is a real field separator;
	// otherwise the decimal point of numeric columns can win.
	switch d := DetermineDelimiter(bytes.NewReader(data)); d {
	case ';', '|':
		return d
	}

	return ' '
}

// SplitFields splits a single line according to the delimiter. Comma and tab
// delimited lines keep empty fields; anything else is treated as runs of
// whitespace.
func SplitFields(line string, delim rune) []string {
	line = strings.TrimRight(line, "\r")

	switch delim {
	case ',', '\t', ';', '|':
		cols := strings.Split(line, string(delim))
		for i := range cols {
			cols[i] = strings.TrimSpace(cols[i])
		}
		return cols
	}

	return strings.Fields(line)
}

package pgsbuilder

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// DelimitedTable is a small in-memory, header-addressable text table. It backs
// the score, covariate and summary-statistics readers.
type DelimitedTable struct {
	Header    []string
	Rows      [][]string
	Delimiter rune
	index     map[string]int
}

// ParseDelimitedTable splits data into rows. When delim is 0, the delimiter is
// sniffed. When hasHeader is false, columns are named by their 0-based index.
func ParseDelimitedTable(data []byte, delim rune, hasHeader bool) (*DelimitedTable, error) {
	if delim == 0 {
		delim = DetermineDelimiterBytes(data)
	}

	t := &DelimitedTable{Delimiter: delim, Rows: make([][]string, 0)}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		cols := SplitFields(text, delim)

		if t.Header == nil && hasHeader {
			t.Header = cols
			continue
		}

		if t.Header == nil {
			t.Header = make([]string, len(cols))
			for i := range cols {
				t.Header[i] = fmt.Sprint(i)
			}
		}

		if len(cols) < len(t.Header) {
			return nil, fmt.Errorf("line %d: expected %d columns, found %d", line, len(t.Header), len(cols))
		}
		t.Rows = append(t.Rows, cols)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	t.index = make(map[string]int, len(t.Header))
	for i, name := range t.Header {
		if _, exists := t.index[name]; !exists {
			t.index[name] = i
		}
	}

	return t, nil
}

// Col returns the position of the named column.
func (t *DelimitedTable) Col(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// ColAny returns the position of the first of names that is present.
func (t *DelimitedTable) ColAny(names ...string) (int, bool) {
	for _, name := range names {
		if i, ok := t.index[name]; ok {
			return i, true
		}
	}

	return -1, false
}

// Require resolves every named column or reports all that are absent.
func (t *DelimitedTable) Require(names ...string) ([]int, error) {
	out := make([]int, len(names))
	missing := make([]string, 0)
	for k, name := range names {
		i, ok := t.index[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		out[k] = i
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required column(s) %s not found in header %v", strings.Join(missing, ", "), t.Header)
	}

	return out, nil
}

package weights

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/carbocation/pfx"
)

// Status summarizes which requested algorithms produced a usable beta column.
// It is serialized to LOG/algo_status.json.
type Status struct {
	Tools   []string            `json:"TOOLS"`
	Success []string            `json:"SUCCESS"`
	Fail    []string            `json:"FAIL"`
	FailLog map[string][]string `json:"FAIL_LOG"`

	noSignal map[string]bool
}

// NewStatus classifies every requested algorithm. An algorithm is a success
// only if the matrix holds its column.
func NewStatus(requested []string, m *Matrix, results []Result) Status {
	s := Status{
		Tools:    append([]string{}, requested...),
		Success:  make([]string, 0),
		Fail:     make([]string, 0),
		FailLog:  make(map[string][]string),
		noSignal: make(map[string]bool),
	}

	for _, r := range results {
		if errors.Is(r.Err, ErrNoSignal) {
			s.noSignal[r.Algorithm] = true
		}
	}

	for _, algo := range requested {
		if _, ok := m.Beta[algo]; ok {
			s.Success = append(s.Success, algo)
		} else {
			s.Fail = append(s.Fail, algo)
		}
	}

	return s
}

// AttachLogs fills FAIL_LOG from <logDir>/<algo>.log. Lines keep their
// trailing newline. A missing log yields an empty list.
func (s *Status) AttachLogs(logDir string) error {
	for _, algo := range s.Fail {
		lines := make([]string, 0)

		data, err := os.ReadFile(filepath.Join(logDir, algo+".log"))
		if errors.Is(err, os.ErrNotExist) {
			s.FailLog[algo] = lines
			continue
		} else if err != nil {
			return pfx.Err(err)
		}

		r := bufio.NewReader(bytes.NewReader(data))
		for {
			line, err := r.ReadString('\n')
			if line != "" {
				lines = append(lines, line)
			}
			if err != nil {
				break
			}
		}

		if s.noSignal[algo] {
			lines = append(lines,
				fmt.Sprintf("Beta estimated by %s are all 0.0 or NaN\n", algo),
				fmt.Sprintf("There may be too few significant SNPs to compute polygenic risk score using %s\n", algo),
			)
		}
		s.FailLog[algo] = lines
	}

	return nil
}

// WriteFiles writes algo_status.json and fail_list into logDir.
func (s Status) WriteFiles(logDir string) error {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return pfx.Err(err)
	}

	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return pfx.Err(err)
	}
	if err := os.WriteFile(filepath.Join(logDir, "algo_status.json"), data, 0o644); err != nil {
		return pfx.Err(err)
	}

	var buf bytes.Buffer
	for _, algo := range s.Fail {
		buf.WriteString(algo)
		buf.WriteByte('\n')
	}

	return pfx.Err(os.WriteFile(filepath.Join(logDir, "fail_list"), buf.Bytes(), 0o644))
}

package prediction

import (
	"errors"
	"fmt"
)

// Method selects between case/control and quantitative phenotypes.
type Method string

const (
	Classification Method = "clf"
	Regression     Method = "reg"
)

// ErrUnknownMethod is a fatal configuration error.
var ErrUnknownMethod = errors.New("method must be clf or reg")

func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case Classification, Regression:
		return m, nil
	}

	return "", fmt.Errorf("%q: %w", s, ErrUnknownMethod)
}

func (m Method) String() string { return string(m) }

package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound       = errors.New("data file not found")
	ErrEmptyInput     = errors.New("data file is empty")
	ErrMissingColumn  = errors.New("missing column")
	ErrInvalidRange   = errors.New("invalid range")
	ErrMalformedInput = errors.New("malformed input")
	ErrNotLoaded      = errors.New("dataset not loaded yet")
	ErrNoStore        = errors.New("observation store not configured")
)

// MissingColumns returns an ErrMissingColumn error naming cols.
func MissingColumns(cols ...Column) error {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = string(c)
	}
	return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(names, ", "))
}

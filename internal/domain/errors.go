package domain

import (
	"errors"
	"strings"
)

var (
	// ErrIO reports an input file that is missing or unreadable.
	ErrIO = errors.New("io error")

	// ErrParse reports a malformed CSV or a value that cannot be interpreted,
	// such as an unparsable last_updated timestamp.
	ErrParse = errors.New("parse error")

	// ErrMissingColumn reports that a step's required columns are absent.
	// Steps failing with it are skipped rather than aborting the run.
	ErrMissingColumn = errors.New("missing column")
)

// MissingColumnError names the columns a step needed but did not find.
type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return "missing columns: " + strings.Join(e.Columns, ", ")
}

func (e *MissingColumnError) Unwrap() error {
	return ErrMissingColumn
}

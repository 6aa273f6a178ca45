package parser

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrParse           = errors.New("parse failed")
	ErrNoData          = errors.New("input needs a header row and at least one data row")
	ErrNoValidRows     = errors.New("no valid rows found")
	ErrColumnCount     = errors.New("column count mismatch")
	ErrMissingIdentity = errors.New("row has neither student id nor name")
	ErrRowLimit        = errors.New("row limit exceeded")
)

// RowError describes a single rejected data row. Line is the 1-based position
// among non-blank input lines, so the header is line 1.
type RowError struct {
	Line int
	Err  error
	Msg  string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Line, e.Msg)
}

func (e RowError) Unwrap() error { return e.Err }

// ParseError is returned when a whole parse cycle fails. RowErrors carries
// every row-level problem seen before the failure was decided.
type ParseError struct {
	Reason    error
	RowErrors []RowError
}

func (e *ParseError) Error() string {
	if len(e.RowErrors) == 0 {
		return fmt.Sprintf("%s: %s", ErrParse, e.Reason)
	}
	msgs := make([]string, 0, len(e.RowErrors))
	for _, re := range e.RowErrors {
		msgs = append(msgs, re.Error())
	}
	return fmt.Sprintf("%s: %s (%s)", ErrParse, e.Reason, strings.Join(msgs, "; "))
}

// Is matches ErrParse so callers can test the kind without a type assertion.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

func (e *ParseError) Unwrap() error { return e.Reason }

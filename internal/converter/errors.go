package converter

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingColumn indicates the input lacks a required source column.
	ErrMissingColumn = errors.New("missing required column")

	// ErrInvalidDate indicates a date cell could not be parsed.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidDuration indicates a duration cell is not a number of seconds.
	ErrInvalidDuration = errors.New("invalid duration")
)

// SchemaError lists every required column absent from the input header.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingColumn, strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Unwrap() error {
	return ErrMissingColumn
}

// DateParseError reports a date cell that matched none of the accepted layouts.
// Row is the 1-based data row (the header is not counted).
type DateParseError struct {
	Row    int
	Column string
	Value  string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("row %d column %q: %s %q", e.Row, e.Column, ErrInvalidDate, e.Value)
}

func (e *DateParseError) Unwrap() error {
	return ErrInvalidDate
}

// ConversionError reports a duration cell that is not numeric.
type ConversionError struct {
	Row    int
	Column string
	Value  string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("row %d column %q: %s %q", e.Row, e.Column, ErrInvalidDuration, e.Value)
}

func (e *ConversionError) Unwrap() error {
	return ErrInvalidDuration
}

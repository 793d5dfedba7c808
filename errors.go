package main

import (
	"fmt"
	"strings"
)

// UsageError indicates missing or invalid command-line arguments.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return "usage error: " + e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

func usageErrorf(format string, args ...any) *UsageError {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

// FileLoadError indicates the input could not be read or parsed as CSV.
type FileLoadError struct {
	Path string
	Err  error
}

func (e *FileLoadError) Error() string {
	return fmt.Sprintf("file load error: %s: %v", e.Path, e.Err)
}

func (e *FileLoadError) Unwrap() error { return e.Err }

// ColumnNotFoundError indicates the requested column is not in the header row.
type ColumnNotFoundError struct {
	Column    string
	Available []string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column not found: %q (available: %s)", e.Column, strings.Join(e.Available, ", "))
}

// TypeMismatchError indicates numeric statistics were required of a
// non-numeric column.
type TypeMismatchError struct {
	Column string
	Type   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: column %q has non-numeric type %s", e.Column, e.Type)
}

package main

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessagesAreDistinguishable(t *testing.T) {
	tests := []struct {
		err    error
		prefix string
	}{
		{usageErrorf("missing required flag %s", "-f/--file"), "usage error: "},
		{&FileLoadError{Path: "x.csv", Err: os.ErrNotExist}, "file load error: "},
		{&ColumnNotFoundError{Column: "c", Available: []string{"a", "b"}}, "column not found: "},
		{&TypeMismatchError{Column: "c", Type: "VARCHAR"}, "type mismatch: "},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			assert.True(t, strings.HasPrefix(tt.err.Error(), tt.prefix), tt.err.Error())
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	err := error(&FileLoadError{Path: "x.csv", Err: os.ErrNotExist})
	assert.True(t, errors.Is(err, os.ErrNotExist))

	cause := errors.New("boom")
	assert.ErrorIs(t, &UsageError{Err: cause}, cause)
}

func TestColumnNotFoundMessage(t *testing.T) {
	err := &ColumnNotFoundError{Column: "Amount", Available: []string{"id", "amount"}}
	assert.Equal(t, `column not found: "Amount" (available: id, amount)`, err.Error())
}

// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMagic is returned when the expected tag bytes are absent at the
	// position being decoded.
	ErrInvalidMagic = errors.New("invalid magic")

	// ErrTruncatedData is returned when a read would run past the end of the source.
	ErrTruncatedData = errors.New("truncated data")

	// ErrInconsistentOffset is returned when a non-zero table offset points
	// outside the source.
	ErrInconsistentOffset = errors.New("inconsistent offset")

	// ErrUnexpectedConstant marks a fixed field that does not hold its known value.
	// It is only ever reported as a warning.
	ErrUnexpectedConstant = errors.New("unexpected constant")
)

// TableError reports the failure of a single table. Other tables of the same
// archive are unaffected by it.
type TableError struct {
	Table  TableKind
	Offset int64 // absolute position in the source
	Err    error
}

func (e *TableError) Error() string {
	return fmt.Sprintf("%s at 0x%X: %v", e.Table, e.Offset, e.Err)
}

func (e *TableError) Unwrap() error {
	return e.Err
}

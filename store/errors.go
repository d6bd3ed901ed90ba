// store/errors.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package store

import "errors"

// Sentinel errors returned by this package. Callers should compare with
// errors.Is rather than equality, since functions wrap these with context.
var (
	// ErrFormatInvalid is returned when a column file's header or chunk
	// index fails validation: bad magic, unsupported version, or a chunk
	// index entry that falls outside the file.
	ErrFormatInvalid = errors.New("store: invalid column file format")

	// ErrOutOfRange is returned when a read targets a location index at or
	// beyond the file's nLocations.
	ErrOutOfRange = errors.New("store: location out of range")

	// ErrIO wraps open/read/write/rename failures.
	ErrIO = errors.New("store: io error")
)

// reader/errors.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package reader

import "errors"

// ErrCancelled is returned when the query's deadline has passed.
var ErrCancelled = errors.New("reader: cancelled")

// ErrVariableUnknown is returned when a requested variable is neither
// directly present nor synthesizable for this Domain.
var ErrVariableUnknown = errors.New("reader: unknown variable")

// splitter/errors.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package splitter

import "errors"

// ErrIO wraps an open/read/write/rename failure from the underlying
// filesystem or column-file layer.
var ErrIO = errors.New("splitter: io error")

// ErrCancelled is returned when the caller's deadline has already passed.
var ErrCancelled = errors.New("splitter: cancelled")

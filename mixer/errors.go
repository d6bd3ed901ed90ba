// mixer/errors.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package mixer

import "errors"

// ErrUnitMismatch is returned when two Readers that both contribute a
// finite value for the same variable disagree on unit. This is a
// programmer/configuration error, not a data condition, and is fatal for
// the request.
var ErrUnitMismatch = errors.New("mixer: unit mismatch across domains")

// grid/errors.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package grid

import "errors"

// ErrGridMiss is returned by FindPoint when the requested coordinate falls
// outside the grid's bounding box.
var ErrGridMiss = errors.New("grid: no point within bounds")

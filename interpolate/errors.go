// interpolate/errors.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package interpolate

import "errors"

// ErrUpsamplingForbidden is returned when the requested destination step is
// coarser than the source step, or does not evenly divide it.
var ErrUpsamplingForbidden = errors.New("interpolate: upsampling forbidden")

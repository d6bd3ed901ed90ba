// mixer/mixer.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package mixer overlays multiple NWP domains of differing resolution into
// a single point answer, preferring the highest-resolution non-missing
// value at each timestep.
package mixer

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/mmp/wx/domain"
	"github.com/mmp/wx/grid"
	"github.com/mmp/wx/reader"
)

// Mixer holds an ordered list of per-domain Readers, lowest-resolution
// first; later entries take priority when both have finite data.
type Mixer struct {
	Readers []*reader.Reader
}

// NewFromReaders builds a Mixer directly from already-bound Readers,
// ordered coarse-to-fine (lowest resolution first).
func NewFromReaders(readers ...*reader.Reader) *Mixer {
	return &Mixer{Readers: readers}
}

// Prefetch fans out an advisory prefetch to every underlying Reader.
func (m *Mixer) Prefetch(variable string, timeRange domain.TimeRangeDt) {
	for _, r := range m.Readers {
		r.Prefetch(variable, timeRange)
	}
}

// Get calls every Reader that supports variable and reduces position-wise:
// result[t] is the last (highest-priority) non-NaN value across Readers.
// Unit is taken from the first Reader to contribute a finite value; a
// later Reader disagreeing on unit is ErrUnitMismatch.
func (m *Mixer) Get(ctx context.Context, variable string, timeRange domain.TimeRangeDt) ([]float32, domain.Unit, error) {
	out := make([]float32, timeRange.Count())
	for i := range out {
		out[i] = float32(math.NaN())
	}

	var unit domain.Unit
	unitSet := false

	for _, r := range m.Readers {
		vals, u, err := r.Get(ctx, variable, timeRange)
		if errors.Is(err, reader.ErrVariableUnknown) || errors.Is(err, grid.ErrGridMiss) {
			continue
		}
		if err != nil {
			return nil, domain.UnitUnknown, err
		}

		for i, v := range vals {
			if math.IsNaN(float64(v)) {
				continue
			}
			if !unitSet {
				unit = u
				unitSet = true
			} else if unit != u {
				return nil, domain.UnitUnknown, fmt.Errorf("variable %s: %w", variable, ErrUnitMismatch)
			}
			out[i] = v
		}
	}
	return out, unit, nil
}

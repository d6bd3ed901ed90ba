// reader/reader.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package reader implements point-oriented variable access for a single
// Domain: pressure-level synthesis, elevation correction, unit
// normalization, and temporal resampling.
package reader

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mmp/wx/domain"
	"github.com/mmp/wx/grid"
	"github.com/mmp/wx/interpolate"
	"github.com/mmp/wx/splitter"
)

// Reader is bound to one (Domain, point).
type Reader struct {
	Dom             *domain.Domain
	Splitter        *splitter.Splitter
	Point           uint64
	GridElevation   float64
	TargetElevation float64
	Lat, Lon        float64

	Solar interpolate.SolarGeometryFunc
}

// New binds a Reader to the grid point nearest (lat,lon,elevation) in dom,
// per mode. Returns grid.ErrGridMiss if the point falls outside dom's grid.
func New(dom *domain.Domain, sp *splitter.Splitter, lat, lon, elevation float64, mode grid.Mode) (*Reader, error) {
	idx, gridElev, err := dom.Grid.FindPoint(lat, lon, elevation, mode)
	if err != nil {
		return nil, err
	}
	return &Reader{
		Dom: dom, Splitter: sp, Point: uint64(idx),
		GridElevation: gridElev, TargetElevation: elevation,
		Lat: lat, Lon: lon,
	}, nil
}

// Prefetch forwards an advisory prefetch for variable over timeRange
// through the Splitter.
func (r *Reader) Prefetch(variable string, timeRange domain.TimeRangeDt) {
	v, _, _, ok := r.resolveVariable(variable)
	if !ok {
		return
	}
	window := r.nativeWindow(v, timeRange)
	r.Splitter.WillNeed(v.Name, r.Point, window)
}

// Get returns timeRange.Count() values for variable and the unit they are
// expressed in.
func (r *Reader) Get(ctx context.Context, variable string, timeRange domain.TimeRangeDt) ([]float32, domain.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.UnitUnknown, ErrCancelled
	}

	v, lo, hi, ok := r.resolveVariable(variable)
	if !ok {
		return nil, domain.UnitUnknown, fmt.Errorf("%s: %w", variable, ErrVariableUnknown)
	}

	var native []float32
	var err error
	if lo != nil && hi != nil {
		native, err = r.synthesizeLevel(ctx, v, lo, hi, timeRange)
	} else {
		native, err = r.getNative(ctx, v, timeRange)
	}
	if err != nil {
		return nil, domain.UnitUnknown, err
	}

	unit := v.Unit
	if unit == domain.UnitPascal {
		unit = domain.UnitHectopascal
	}

	if timeRange.DtSeconds == r.Dom.DtSeconds {
		return native, unit, nil
	}

	window := r.nativeWindow(v, timeRange)
	out, err := interpolate.Resample(interpolate.Request{
		Kind: v.Interpolation, Src: native, SrcStart: window.Start, DtSrc: r.Dom.DtSeconds,
		DstStart: timeRange.Start, DtDst: timeRange.DtSeconds, DstCount: timeRange.Count(),
		Bounds: v.Bounds, Lat: r.Lat, Lon: r.Lon, Solar: r.Solar,
	})
	if err != nil {
		return nil, domain.UnitUnknown, err
	}
	return out, unit, nil
}

// getNative fetches, unit-normalizes and elevation-corrects v's raw series
// at the domain's native step over the (possibly widened) window that
// covers timeRange.
func (r *Reader) getNative(ctx context.Context, v *domain.Variable, timeRange domain.TimeRangeDt) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrCancelled
	}
	window := r.nativeWindow(v, timeRange)
	vals, err := r.Splitter.Read(v.Name, r.Point, window)
	if err != nil {
		return nil, err
	}
	r.applyUnitAndElevation(v, vals)
	return vals, nil
}

func (r *Reader) applyUnitAndElevation(v *domain.Variable, vals []float32) {
	if v.Unit == domain.UnitPascal {
		for i, x := range vals {
			if !math.IsNaN(float64(x)) {
				vals[i] = x / 100
			}
		}
	}

	if v.IsElevationCorrectable && v.Unit == domain.UnitCelsius &&
		!math.IsNaN(r.GridElevation) && !math.IsNaN(r.TargetElevation) {
		delta := float32((r.GridElevation - r.TargetElevation) * 0.0065)
		for i, x := range vals {
			if !math.IsNaN(float64(x)) {
				vals[i] = x + delta
			}
		}
	}
}

// nativeWindow returns the domain-native-step window that must be fetched
// to answer timeRange, including the interpolation kernel's padding.
func (r *Reader) nativeWindow(v *domain.Variable, timeRange domain.TimeRangeDt) domain.TimeRangeDt {
	dtSrc := r.Dom.DtSeconds
	if timeRange.DtSeconds == dtSrc {
		return timeRange
	}
	pad := interpolate.Padding(v.Interpolation)
	alignedStart := floorDiv(timeRange.Start, dtSrc) * dtSrc
	alignedEnd := ceilDiv(timeRange.End, dtSrc) * dtSrc
	widen := int64(pad-1) * dtSrc
	return domain.TimeRangeDt{Start: alignedStart - widen, End: alignedEnd + widen, DtSeconds: dtSrc}
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) == (b < 0) {
		q++
	}
	return q
}

// resolveVariable looks up name directly in the Domain; failing that, if
// name names a pressure level the Domain does not carry, it returns the
// bracketing levels' Variables for synthesis (lo, hi non-nil).
func (r *Reader) resolveVariable(name string) (v, lo, hi *domain.Variable, ok bool) {
	if direct, found := r.Dom.Variables[name]; found {
		return direct, nil, nil, true
	}

	base, level, isLevel := parsePressureLevelName(name)
	if !isLevel {
		return nil, nil, nil, false
	}

	levels := r.Dom.PressureLevels(base)
	var loLevel, hiLevel int
	found := false
	for i := 0; i+1 < len(levels); i++ {
		if levels[i] <= level && level <= levels[i+1] {
			loLevel, hiLevel = levels[i], levels[i+1]
			found = true
			break
		}
	}
	if !found {
		return nil, nil, nil, false
	}
	loVar, _ := r.Dom.VariableAtLevel(base, loLevel)
	hiVar, _ := r.Dom.VariableAtLevel(base, hiLevel)
	if loVar == nil || hiVar == nil {
		return nil, nil, nil, false
	}

	synthesized := &domain.Variable{
		Name: name, BaseName: base, PressureLevel: level,
		Unit: loVar.Unit, Interpolation: loVar.Interpolation, Bounds: loVar.Bounds,
		Scalefactor: loVar.Scalefactor,
	}
	return synthesized, loVar, hiVar, true
}

// parsePressureLevelName splits a name of the form "<base>_<level>hPa" into
// its base and level, e.g. "temperature_950hPa" -> ("temperature", 950).
func parsePressureLevelName(name string) (base string, level int, ok bool) {
	const suffix = "hPa"
	idx := strings.LastIndex(name, "_")
	if idx < 0 || !strings.HasSuffix(name, suffix) {
		return "", 0, false
	}
	levelStr := strings.TrimSuffix(name[idx+1:], suffix)
	n, err := strconv.Atoi(levelStr)
	if err != nil {
		return "", 0, false
	}
	return name[:idx], n, true
}

// synthesizeLevel linearly interpolates v's level between the bracketing
// lo/hi levels. Relative humidity uses the mean of the brackets;
// geopotential height is interpolated in pressure-space.
func (r *Reader) synthesizeLevel(ctx context.Context, v, lo, hi *domain.Variable, timeRange domain.TimeRangeDt) ([]float32, error) {
	loVals, err := r.getNative(ctx, lo, timeRange)
	if err != nil {
		return nil, err
	}
	hiVals, err := r.getNative(ctx, hi, timeRange)
	if err != nil {
		return nil, err
	}

	f := float64(v.PressureLevel-lo.PressureLevel) / float64(hi.PressureLevel-lo.PressureLevel)

	out := make([]float32, len(loVals))
	for i := range out {
		a, b := loVals[i], hiVals[i]
		if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
			out[i] = float32(math.NaN())
			continue
		}
		switch {
		case strings.HasPrefix(v.BaseName, "relative_humidity"):
			out[i] = (a + b) / 2
		case strings.HasPrefix(v.BaseName, "geopotential_height"):
			pa := heightToPressure(float64(a))
			pb := heightToPressure(float64(b))
			p := pa + f*(pb-pa)
			out[i] = float32(pressureToHeight(p))
		default:
			out[i] = float32((1-f)*float64(a) + f*float64(b))
		}
	}
	return out, nil
}

// interpolate/interpolate.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package interpolate resamples a time series from a coarser native step to
// a finer requested step using one of three kernels: linear, Hermite
// (Catmull-Rom), and solar-backwards-averaged deaveraging.
package interpolate

import "math"

// Kind selects a temporal resampling kernel.
type Kind int

const (
	Linear Kind = iota
	Hermite
	SolarBackwardsAveraged
)

// Padding returns the number of source steps of context Kind needs on
// either side of the destination range; callers widen their source fetch
// by Padding(kind)-1 steps on each side.
func Padding(k Kind) int {
	switch k {
	case Hermite, SolarBackwardsAveraged:
		return 2
	default:
		return 1
	}
}

// Request describes one resampling call.
type Request struct {
	Kind Kind

	// Src holds the padded source samples; Src[0] corresponds to SrcStart.
	Src      []float32
	SrcStart int64
	DtSrc    int64

	// DstStart/DtDst/DstCount describe the requested output range.
	DstStart int64
	DtDst    int64
	DstCount int

	// Bounds, if non-nil, clamps Hermite output (e.g. relative humidity).
	Bounds *[2]float32

	// Lat/Lon and Solar are used only by SolarBackwardsAveraged; Solar
	// defaults to DefaultSolarGeometry if nil.
	Lat, Lon float64
	Solar    SolarGeometryFunc
}

// Resample produces req.DstCount values at req.DtDst starting at
// req.DstStart. Every kernel propagates NaN: any NaN in its stencil yields
// a NaN output sample.
func Resample(req Request) ([]float32, error) {
	if req.DtSrc <= 0 || req.DtDst <= 0 || req.DtDst > req.DtSrc || req.DtSrc%req.DtDst != 0 {
		return nil, ErrUpsamplingForbidden
	}
	if req.Solar == nil {
		req.Solar = DefaultSolarGeometry
	}

	switch req.Kind {
	case Hermite:
		return resampleHermite(req), nil
	case SolarBackwardsAveraged:
		return resampleSolar(req), nil
	default:
		return resampleLinear(req), nil
	}
}

func srcFloatIndex(req Request, t int64) float64 {
	return float64(t-req.SrcStart) / float64(req.DtSrc)
}

func resampleLinear(req Request) []float32 {
	out := make([]float32, req.DstCount)
	for i := range out {
		t := req.DstStart + int64(i)*req.DtDst
		out[i] = linearAt(req.Src, srcFloatIndex(req, t))
	}
	return out
}

func linearAt(src []float32, fi float64) float32 {
	i0 := int(math.Floor(fi))
	f := fi - float64(i0)
	if f == 0 && i0 >= 0 && i0+1 == len(src) {
		return src[i0]
	}
	if i0 < 0 || i0+1 >= len(src) {
		return float32(math.NaN())
	}
	a, b := src[i0], src[i0+1]
	if isNaN(a) || isNaN(b) {
		return float32(math.NaN())
	}
	return float32((1-f)*float64(a) + f*float64(b))
}

func resampleHermite(req Request) []float32 {
	out := make([]float32, req.DstCount)
	for i := range out {
		t := req.DstStart + int64(i)*req.DtDst
		fi := srcFloatIndex(req, t)
		i0 := int(math.Floor(fi))
		f := fi - float64(i0)

		if i0-1 < 0 || i0+2 >= len(req.Src) {
			out[i] = float32(math.NaN())
			continue
		}
		p0, p1, p2, p3 := req.Src[i0-1], req.Src[i0], req.Src[i0+1], req.Src[i0+2]
		if isNaN(p0) || isNaN(p1) || isNaN(p2) || isNaN(p3) {
			out[i] = float32(math.NaN())
			continue
		}
		v := catmullRom(float64(p0), float64(p1), float64(p2), float64(p3), f)
		if req.Bounds != nil {
			v = clampf(v, float64(req.Bounds[0]), float64(req.Bounds[1]))
		}
		out[i] = float32(v)
	}
	return out
}

func catmullRom(p0, p1, p2, p3, t float64) float64 {
	t2 := t * t
	t3 := t2 * t
	a0 := -0.5*p0 + 1.5*p1 - 1.5*p2 + 0.5*p3
	a1 := p0 - 2.5*p1 + 2*p2 - 0.5*p3
	a2 := -0.5*p0 + 0.5*p2
	a3 := p1
	return a0*t3 + a1*t2 + a2*t + a3
}

func resampleSolar(req Request) []float32 {
	out := make([]float32, req.DstCount)
	for i := range out {
		t := req.DstStart + int64(i)*req.DtDst
		out[i] = solarAt(req, t)
	}
	return out
}

// solarAt deaverages the trailing-average source sample covering
// [t, t+DtDst) to an instantaneous-rescaled, re-averaged destination value.
func solarAt(req Request, t int64) float32 {
	// The source interval ending at srcEnd is (srcEnd-DtSrc, srcEnd]; find
	// the one containing [t, t+DtDst).
	srcIdx := int(math.Ceil(float64(t+req.DtDst-req.SrcStart) / float64(req.DtSrc)))
	if srcIdx < 0 || srcIdx >= len(req.Src) {
		return float32(math.NaN())
	}
	avg := req.Src[srcIdx]
	if isNaN(avg) {
		return float32(math.NaN())
	}

	srcEnd := req.SrcStart + int64(srcIdx)*req.DtSrc
	etrSrc := req.Solar(req.Lat, req.Lon, srcEnd-req.DtSrc, srcEnd)

	if etrSrc < solarEpsilon {
		// Deaveraging is ill-conditioned (e.g. polar night); fall back to
		// linear interpolation between the bracketing source samples.
		return linearAt(req.Src, srcFloatIndex(req, t))
	}

	k := float64(avg) / etrSrc
	etrDst := req.Solar(req.Lat, req.Lon, t, t+req.DtDst)
	v := k * etrDst
	if v < 0 {
		v = 0
	}
	return float32(v)
}

func isNaN(v float32) bool { return math.IsNaN(float64(v)) }

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

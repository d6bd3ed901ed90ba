// interpolate/interpolate_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package interpolate

import (
	"math"
	"testing"
)

func TestLinearUpsampleBoundariesMatchSource(t *testing.T) {
	src := []float32{1, 2, 3, 4, 5} // dt=10800, 5 source samples -> 3 dst per source step
	req := Request{
		Kind: Linear, Src: src, SrcStart: 0, DtSrc: 10800,
		DstStart: 0, DtDst: 3600, DstCount: 13,
	}
	out, err := Resample(req)
	if err != nil {
		t.Fatal(err)
	}
	// Every 3rd output sample lands on a source boundary.
	for i := 0; i < 5; i++ {
		idx := i * 3
		if idx >= len(out) {
			break
		}
		if out[idx] != src[i] {
			t.Errorf("index %d: got %v want source %v", idx, out[idx], src[i])
		}
	}
	// Monotone: since source is monotone increasing, output must be too.
	for i := 1; i < len(out); i++ {
		if out[i] < out[i-1] {
			t.Errorf("not monotone at %d: %v < %v", i, out[i], out[i-1])
		}
	}
}

func TestUpsamplingForbidden(t *testing.T) {
	req := Request{Kind: Linear, Src: []float32{1, 2}, SrcStart: 0, DtSrc: 3600, DstStart: 0, DtDst: 10800, DstCount: 1}
	if _, err := Resample(req); err != ErrUpsamplingForbidden {
		t.Fatalf("got %v want ErrUpsamplingForbidden", err)
	}
	req2 := Request{Kind: Linear, Src: []float32{1, 2}, SrcStart: 0, DtSrc: 3600, DstStart: 0, DtDst: 1000, DstCount: 1}
	if _, err := Resample(req2); err != ErrUpsamplingForbidden {
		t.Fatalf("got %v want ErrUpsamplingForbidden (non-divisor)", err)
	}
}

func TestNaNPropagation(t *testing.T) {
	nan := float32(math.NaN())
	src := []float32{1, nan, 3}
	req := Request{Kind: Linear, Src: src, SrcStart: 0, DtSrc: 3600, DstStart: 0, DtDst: 1800, DstCount: 4}
	out, err := Resample(req)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range out {
		if !math.IsNaN(float64(v)) {
			t.Errorf("expected all-NaN output, got %v", out)
			break
		}
	}
}

func TestHermiteBoundsClamp(t *testing.T) {
	src := []float32{90, 99, 101, 95, 90} // 101 would overshoot 100
	bounds := [2]float32{0, 100}
	req := Request{
		Kind: Hermite, Src: src, SrcStart: 0, DtSrc: 3600,
		DstStart: 3600, DtDst: 900, DstCount: 4, Bounds: &bounds,
	}
	out, err := Resample(req)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range out {
		if v < 0 || v > 100 {
			t.Errorf("unclamped value %v", v)
		}
	}
}

func TestSolarOutputNonNegative(t *testing.T) {
	src := []float32{200, 300, 250}
	req := Request{
		Kind: SolarBackwardsAveraged, Src: src, SrcStart: 0, DtSrc: 3600,
		DstStart: 0, DtDst: 1800, DstCount: 2, Lat: 30, Lon: 0,
	}
	out, err := Resample(req)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range out {
		if v < 0 {
			t.Errorf("solar output must be clamped >=0, got %v", v)
		}
	}
}

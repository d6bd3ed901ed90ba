// store/store_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package store

import (
	"math"
	"path/filepath"
	"testing"
)

func rampData(nLoc, nTime int) [][]float32 {
	data := make([][]float32, nLoc)
	for loc := range data {
		data[loc] = make([]float32, nTime)
		for t := range data[loc] {
			data[loc][t] = float32(loc) + float32(t)/24
		}
	}
	return data
}

func TestWriteThenPointRead(t *testing.T) {
	nLoc, nTime := 100, 240
	data := rampData(nLoc, nTime)
	h := Header{NLocations: uint64(nLoc), NTime: uint64(nTime), ChunkLoc: 6, ChunkTime: 48, Scalefactor: 20}

	path := filepath.Join(t.TempDir(), "ramp.om")
	if err := Create(path, h, data, nil); err != nil {
		t.Fatal(err)
	}
	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	got, err := f.Read(42, 10, 10)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range got {
		want := 42 + float32(10+i)/24
		if math.Abs(float64(v-want)) > 0.025 {
			t.Errorf("index %d: got %v want %v", i, v, want)
		}
	}
}

func TestMissingRoundTrip(t *testing.T) {
	nLoc, nTime := 100, 240
	data := rampData(nLoc, nTime)
	data[42][15] = float32(math.NaN())
	h := Header{NLocations: uint64(nLoc), NTime: uint64(nTime), ChunkLoc: 6, ChunkTime: 48, Scalefactor: 20}

	path := filepath.Join(t.TempDir(), "ramp.om")
	if err := Create(path, h, data, nil); err != nil {
		t.Fatal(err)
	}
	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	got, err := f.Read(42, 10, 10)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range got {
		if i == 5 {
			if !math.IsNaN(float64(v)) {
				t.Errorf("index 5: want NaN, got %v", v)
			}
			continue
		}
		want := 42 + float32(10+i)/24
		if math.Abs(float64(v-want)) > 0.025 {
			t.Errorf("index %d: got %v want %v", i, v, want)
		}
	}
}

func TestCrossShardStraddle(t *testing.T) {
	nLoc, nTime := 10, 400
	data := rampData(nLoc, nTime)
	h := Header{NLocations: uint64(nLoc), NTime: uint64(nTime), ChunkLoc: 6, ChunkTime: 168, Scalefactor: 20}

	path := filepath.Join(t.TempDir(), "ramp.om")
	if err := Create(path, h, data, nil); err != nil {
		t.Fatal(err)
	}
	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	// 160..176 spans the time-chunk boundary at 168.
	got, err := f.Read(0, 160, 16)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range got {
		want := float32(160+i) / 24
		if math.Abs(float64(v-want)) > 0.025 {
			t.Errorf("index %d: got %v want %v", i, v, want)
		}
	}
}

// TestChunkingInvariance checks that two files holding the same values but
// different chunk geometry produce identical read results.
func TestChunkingInvariance(t *testing.T) {
	nLoc, nTime := 20, 200
	data := rampData(nLoc, nTime)

	h1 := Header{NLocations: uint64(nLoc), NTime: uint64(nTime), ChunkLoc: 6, ChunkTime: 48, Scalefactor: 20}
	h2 := Header{NLocations: uint64(nLoc), NTime: uint64(nTime), ChunkLoc: 4, ChunkTime: 30, Scalefactor: 20}

	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.om")
	p2 := filepath.Join(dir, "b.om")
	if err := Create(p1, h1, data, nil); err != nil {
		t.Fatal(err)
	}
	if err := Create(p2, h2, data, nil); err != nil {
		t.Fatal(err)
	}

	f1, err := Open(p1)
	if err != nil {
		t.Fatal(err)
	}
	defer f1.Close()
	f2, err := Open(p2)
	if err != nil {
		t.Fatal(err)
	}
	defer f2.Close()

	for loc := 0; loc < nLoc; loc++ {
		v1, err := f1.Read(uint64(loc), 0, uint64(nTime))
		if err != nil {
			t.Fatal(err)
		}
		v2, err := f2.Read(uint64(loc), 0, uint64(nTime))
		if err != nil {
			t.Fatal(err)
		}
		for i := range v1 {
			if v1[i] != v2[i] {
				t.Errorf("loc %d time %d: %v != %v", loc, i, v1[i], v2[i])
			}
		}
	}
}

func TestQuantizationRoundTrip(t *testing.T) {
	scale := float32(20)
	for _, x := range []float32{0, 1.2345, -9.876, 100, -100, 1638.35} {
		q := quantize(x, scale)
		got := dequantize(q, scale)
		want := math.Round(float64(x)*float64(scale)) / float64(scale)
		if math.Abs(float64(got)-want) > 0.5/float64(scale) {
			t.Errorf("x=%v: got %v want ~%v", x, got, want)
		}
	}
}

func TestOutOfRangeLocation(t *testing.T) {
	h := Header{NLocations: 4, NTime: 8, ChunkLoc: 2, ChunkTime: 4, Scalefactor: 10}
	data := rampData(4, 8)
	path := filepath.Join(t.TempDir(), "small.om")
	if err := Create(path, h, data, nil); err != nil {
		t.Fatal(err)
	}
	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if _, err := f.Read(10, 0, 1); err == nil {
		t.Fatal("expected ErrOutOfRange")
	}
}

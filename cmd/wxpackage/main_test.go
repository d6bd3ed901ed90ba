// cmd/wxpackage/main_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/mmp/wx/log"
	"github.com/mmp/wx/store"
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

func TestRepackPreservesValues(t *testing.T) {
	nLoc, nTime := 50, 240
	data := rampData(nLoc, nTime)
	data[7][100] = float32(math.NaN())

	h := store.Header{NLocations: uint64(nLoc), NTime: uint64(nTime), ChunkLoc: 6, ChunkTime: 48, Scalefactor: 20}

	dir := t.TempDir()
	src := filepath.Join(dir, "src.om")
	if err := store.Create(src, h, data, nil); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(dir, "dst.om")
	lg := log.New("error", dir)
	if err := repack(src, dst, 11, 37, true, lg); err != nil {
		t.Fatalf("repack: %v", err)
	}

	df, err := store.Open(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer df.Close()

	hd := df.Header()
	if hd.ChunkLoc != 11 || hd.ChunkTime != 37 {
		t.Errorf("repacked header = %+v, want ChunkLoc=11 ChunkTime=37", hd)
	}

	got, err := df.Read(42, 10, 10)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range got {
		want := float32(42) + float32(10+i)/24
		if math.Abs(float64(v-want)) > 0.025 {
			t.Errorf("index %d: got %v, want ~%v", i, v, want)
		}
	}

	nanGot, err := df.Read(7, 100, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(float64(nanGot[0])) {
		t.Errorf("expected NaN at [7,100], got %v", nanGot[0])
	}
}

func TestRepackKeepsSourceChunkTimeWhenZero(t *testing.T) {
	nLoc, nTime := 20, 96
	data := rampData(nLoc, nTime)
	h := store.Header{NLocations: uint64(nLoc), NTime: uint64(nTime), ChunkLoc: 4, ChunkTime: 24, Scalefactor: 20}

	dir := t.TempDir()
	src := filepath.Join(dir, "src.om")
	if err := store.Create(src, h, data, nil); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(dir, "dst.om")
	lg := log.New("error", dir)
	if err := repack(src, dst, 9, 0, false, lg); err != nil {
		t.Fatalf("repack: %v", err)
	}

	df, err := store.Open(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer df.Close()
	if hd := df.Header(); hd.ChunkTime != 24 {
		t.Errorf("ChunkTime = %d, want 24 (kept from source)", hd.ChunkTime)
	}
}

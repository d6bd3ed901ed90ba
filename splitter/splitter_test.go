// splitter/splitter_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package splitter

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mmp/wx/domain"
)

func TestWriteThenReadWithinShard(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, "", 4, 24, 3600, nil, nil)

	values := [][]float32{{1, 2, 3}, {10, 20, 30}}
	tr := domain.TimeRangeDt{Start: 0, End: 3 * 3600, DtSeconds: 3600}
	if err := s.Write("temp", 0, tr, values, 20); err != nil {
		t.Fatal(err)
	}

	got, err := s.Read("temp", 1, tr)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{10, 20, 30}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 0.1 {
			t.Errorf("index %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestReadGapIsNaN(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, "", 2, 24, 3600, nil, nil)

	tr := domain.TimeRangeDt{Start: 0, End: 5 * 3600, DtSeconds: 3600}
	got, err := s.Read("temp", 0, tr)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range got {
		if !math.IsNaN(float64(v)) {
			t.Errorf("expected NaN for unwritten shard, got %v", v)
		}
	}
}

func TestCrossShardWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	omFileLength := 4
	s := New(dir, "", 1, omFileLength, 3600, nil, nil)

	// Shard width is 4 hours; write a ramp spanning shards 0 and 1.
	n := 8
	row := make([]float32, n)
	for i := range row {
		row[i] = float32(i)
	}
	tr := domain.TimeRangeDt{Start: 0, End: int64(n) * 3600, DtSeconds: 3600}
	if err := s.Write("temp", 0, tr, [][]float32{row}, 20); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, "temp_0.om")); err != nil {
		t.Errorf("expected shard 0 file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "temp_1.om")); err != nil {
		t.Errorf("expected shard 1 file: %v", err)
	}

	got, err := s.Read("temp", 0, domain.TimeRangeDt{Start: 3 * 3600, End: 6 * 3600, DtSeconds: 3600})
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{3, 4, 5}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 0.1 {
			t.Errorf("index %d: got %v want %v", i, got[i], want[i])
		}
	}
}

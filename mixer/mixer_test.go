// mixer/mixer_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package mixer

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/mmp/wx/domain"
	"github.com/mmp/wx/grid"
	"github.com/mmp/wx/reader"
	"github.com/mmp/wx/splitter"
)

func buildReader(t *testing.T, data []float32) *reader.Reader {
	t.Helper()
	dir := t.TempDir()
	g := &grid.Grid{Kind: grid.KindRegular, Nx: 2, Ny: 2, Lat0: 0, Lon0: 0, Dlat: 1, Dlon: 1, LonMin: -180}
	dom := &domain.Domain{
		Name: "d", Grid: g, DtSeconds: 3600,
		OmfileDirectory: filepath.Join(dir), OmFileLength: 24,
		Variables: map[string]*domain.Variable{
			"v": {Name: "v", Scalefactor: 20, Unit: domain.UnitCelsius},
		},
	}
	sp := splitter.New(dom.OmfileDirectory, "", dom.Grid.Count(), dom.OmFileLength, dom.DtSeconds, nil, nil)
	tr := domain.TimeRangeDt{Start: 0, End: int64(len(data)) * 3600, DtSeconds: 3600}
	if err := sp.Write("v", 0, tr, [][]float32{data}, 20); err != nil {
		t.Fatal(err)
	}
	r, err := reader.New(dom, sp, 0, 0, 0, grid.Nearest)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestMixerOverride(t *testing.T) {
	nan := float32(math.NaN())
	lowRes := buildReader(t, []float32{10, 10, 10, 10})
	hiRes := buildReader(t, []float32{nan, 12, 12, nan})

	m := NewFromReaders(lowRes, hiRes)
	tr := domain.TimeRangeDt{Start: 0, End: 4 * 3600, DtSeconds: 3600}
	out, _, err := m.Get(context.Background(), "v", tr)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{10, 12, 12, 10}
	for i := range want {
		if math.Abs(float64(out[i]-want[i])) > 0.1 {
			t.Errorf("index %d: got %v want %v", i, out[i], want[i])
		}
	}
}

func TestMixerMonotoneCoverage(t *testing.T) {
	nan := float32(math.NaN())
	lowRes := buildReader(t, []float32{5, 6, 7, 8})
	hiRes := buildReader(t, []float32{nan, nan, 9, nan})

	m := NewFromReaders(lowRes, hiRes)
	tr := domain.TimeRangeDt{Start: 0, End: 4 * 3600, DtSeconds: 3600}
	out, _, err := m.Get(context.Background(), "v", tr)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range out {
		if math.IsNaN(float64(v)) {
			t.Errorf("index %d: higher-priority NaN introduced a gap over finite low-res data", i)
		}
	}
}

// reader/reader_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package reader

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/mmp/wx/domain"
	"github.com/mmp/wx/grid"
	"github.com/mmp/wx/splitter"
)

func testDomain(t *testing.T, dir string) *domain.Domain {
	t.Helper()
	g := &grid.Grid{Kind: grid.KindRegular, Nx: 4, Ny: 4, Lat0: 0, Lon0: 0, Dlat: 1, Dlon: 1, LonMin: -180}
	return &domain.Domain{
		Name: "test", Grid: g, DtSeconds: 3600,
		OmfileDirectory: dir, OmFileLength: 48,
		Variables: map[string]*domain.Variable{
			"temperature_2m": {
				Name: "temperature_2m", Scalefactor: 20, Unit: domain.UnitCelsius,
				IsElevationCorrectable: true, Interpolation: domain.InterpolationLinear,
			},
			"temperature_850hPa": {
				Name: "temperature_850hPa", BaseName: "temperature", PressureLevel: 850,
				Scalefactor: 20, Unit: domain.UnitCelsius, Interpolation: domain.InterpolationLinear,
			},
			"temperature_1000hPa": {
				Name: "temperature_1000hPa", BaseName: "temperature", PressureLevel: 1000,
				Scalefactor: 20, Unit: domain.UnitCelsius, Interpolation: domain.InterpolationLinear,
			},
		},
	}
}

func TestPressureLevelSynthesis(t *testing.T) {
	dir := filepath.Join(t.TempDir())
	dom := testDomain(t, dir)
	sp := splitter.New(dir, "", dom.Grid.Count(), dom.OmFileLength, dom.DtSeconds, nil, nil)

	tr := domain.TimeRangeDt{Start: 0, End: 4 * 3600, DtSeconds: 3600}
	t850 := []float32{10, 10, 10, 10}
	t1000 := []float32{20, 20, 20, 20}
	if err := sp.Write("temperature_850hPa", 0, tr, [][]float32{t850}, 20); err != nil {
		t.Fatal(err)
	}
	if err := sp.Write("temperature_1000hPa", 0, tr, [][]float32{t1000}, 20); err != nil {
		t.Fatal(err)
	}

	r, err := New(dom, sp, 0, 0, 0, grid.Nearest)
	if err != nil {
		t.Fatal(err)
	}

	vals, _, err := r.Get(context.Background(), "temperature_950hPa", tr)
	if err != nil {
		t.Fatal(err)
	}
	want := float32(10 + (950-850)/float64(1000-850)*(20-10))
	for _, v := range vals {
		if math.Abs(float64(v-want)) > 0.1 {
			t.Errorf("got %v want %v", v, want)
		}
	}
}

func TestElevationCorrectionLinearity(t *testing.T) {
	dir := t.TempDir()
	dom := testDomain(t, dir)
	dom.Grid.Elevation = make([]float32, dom.Grid.Count())
	for i := range dom.Grid.Elevation {
		dom.Grid.Elevation[i] = 200
	}
	sp := splitter.New(dir, "", dom.Grid.Count(), dom.OmFileLength, dom.DtSeconds, nil, nil)

	tr := domain.TimeRangeDt{Start: 0, End: 2 * 3600, DtSeconds: 3600}
	if err := sp.Write("temperature_2m", 0, tr, [][]float32{{15, 15}}, 20); err != nil {
		t.Fatal(err)
	}

	r1, err := New(dom, sp, 0, 0, 0, grid.Nearest)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := New(dom, sp, 0, 0, 100, grid.Nearest)
	if err != nil {
		t.Fatal(err)
	}

	v1, _, err := r1.Get(context.Background(), "temperature_2m", tr)
	if err != nil {
		t.Fatal(err)
	}
	v2, _, err := r2.Get(context.Background(), "temperature_2m", tr)
	if err != nil {
		t.Fatal(err)
	}
	for i := range v1 {
		diff := v1[i] - v2[i]
		want := float32(0.0065 * 100)
		if math.Abs(float64(diff-want)) > 0.1 {
			t.Errorf("index %d: diff=%v want %v", i, diff, want)
		}
	}
}

func TestInterpolationIdentity(t *testing.T) {
	dir := t.TempDir()
	dom := testDomain(t, dir)
	sp := splitter.New(dir, "", dom.Grid.Count(), dom.OmFileLength, dom.DtSeconds, nil, nil)

	tr := domain.TimeRangeDt{Start: 0, End: 4 * 3600, DtSeconds: 3600}
	data := []float32{1, 2, 3, 4}
	if err := sp.Write("temperature_2m", 0, tr, [][]float32{data}, 20); err != nil {
		t.Fatal(err)
	}

	r, err := New(dom, sp, 0, 0, 0, grid.Nearest)
	if err != nil {
		t.Fatal(err)
	}
	vals, _, err := r.Get(context.Background(), "temperature_2m", tr)
	if err != nil {
		t.Fatal(err)
	}
	for i := range data {
		if math.Abs(float64(vals[i]-data[i])) > 0.1 {
			t.Errorf("index %d: got %v want %v", i, vals[i], data[i])
		}
	}
}

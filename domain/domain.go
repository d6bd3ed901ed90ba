// domain/domain.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package domain describes NWP model configurations and the variables they
// expose. Rather than a generic Domain type with per-model downcasts, each
// model is a tagged Kind value plus a small per-Variable capability table.
// The reader does not read the capability bits: pressure-level synthesis
// applies to any Variable with a BaseName and PressureLevel, and no
// cloud-cover or diffuse-radiation derivation is performed.
package domain

import "github.com/mmp/wx/grid"

// Kind tags a Domain's originating model family.
type Kind int

const (
	KindUnknown Kind = iota
	KindGlobal       // coarse global model, e.g. GFS
	KindRegional     // finer regional model, e.g. HRRR
)

// Domain is a named NWP source: a Grid, a native time step, storage roots,
// and the shard width used by the splitter.
type Domain struct {
	Name string
	Kind Kind
	Grid *grid.Grid

	DtSeconds int64

	// OmfileDirectory holds the rolling shard files for this domain.
	OmfileDirectory string
	// OmfileArchive optionally holds yearly long-term archive files.
	// Empty disables archive routing.
	OmfileArchive string

	// OmFileLength is the number of timesteps per shard (the splitter's
	// shard width).
	OmFileLength int

	// Variables known to be present for this Domain, keyed by name.
	Variables map[string]*Variable
}

// Variable identifies one on-disk time series: the file-name stem, the
// quantization scale, its unit, and a set of capability bits (which the
// Reader does not read).
type Variable struct {
	Name string

	// Scalefactor is the multiplier applied before quantizing to int16.
	Scalefactor float32

	// Interpolation selects the temporal kernel used when resampling this
	// variable to a finer step.
	Interpolation InterpolationKind

	// Unit is the variable's SI (or near-SI) unit as stored on disk.
	Unit Unit

	// IsElevationCorrectable marks surface temperature-like variables that
	// receive the lapse-rate correction in Reader.Get.
	IsElevationCorrectable bool

	// Bounds, if non-nil, clamps interpolated output (e.g. relative
	// humidity to [0,100]).
	Bounds *[2]float32

	// PressureLevel is the hPa level this Variable represents, or 0 if it
	// is not a pressure-level variable.
	PressureLevel int

	// BaseName is the family name shared across pressure levels of the
	// same quantity, e.g. "temperature" for "temperature_850hPa". Used to
	// find bracketing levels for synthesis.
	BaseName string

	// Capability bits. The Reader does not read them.
	CanInterpolatePressure      bool
	DerivesCloudCoverFromRH     bool
	DerivesDiffuseFromShortwave bool
}

// InterpolationKind selects a temporal resampling kernel.
type InterpolationKind int

const (
	InterpolationLinear InterpolationKind = iota
	InterpolationHermite
	InterpolationSolarBackwardsAveraged
)

// Unit is the SI (or near-SI) unit a Variable's on-disk values are declared
// in. The Mixer fails fast if two contributing Readers disagree.
type Unit int

const (
	UnitUnknown Unit = iota
	UnitCelsius
	UnitPercent
	UnitHectopascal
	UnitPascal
	UnitMetersPerSecond
	UnitWattsPerSquareMeter
	UnitMillimeters
	UnitMeters
)

// PressureLevels returns the sorted list of pressure levels (hPa) available
// for baseName in this Domain.
func (d *Domain) PressureLevels(baseName string) []int {
	var levels []int
	for _, v := range d.Variables {
		if v.BaseName == baseName && v.PressureLevel != 0 {
			levels = append(levels, v.PressureLevel)
		}
	}
	for i := 1; i < len(levels); i++ {
		for j := i; j > 0 && levels[j-1] > levels[j]; j-- {
			levels[j-1], levels[j] = levels[j], levels[j-1]
		}
	}
	return levels
}

// VariableAtLevel looks up the Variable for baseName at exactly level,
// returning (nil, false) if the Domain does not carry that level.
func (d *Domain) VariableAtLevel(baseName string, level int) (*Variable, bool) {
	for _, v := range d.Variables {
		if v.BaseName == baseName && v.PressureLevel == level {
			return v, true
		}
	}
	return nil, false
}

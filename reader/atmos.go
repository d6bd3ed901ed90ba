// reader/atmos.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package reader

import "math"

// Standard-atmosphere constants (ICAO), used only to convert between
// pressure and geopotential height when synthesizing a missing pressure
// level (spec's open question: the reference atmosphere is not otherwise
// documented, so this is the standard troposphere model).
const (
	standardSeaLevelPressureHPa = 1013.25
	standardSeaLevelTempK       = 288.15
	standardLapseRateKPerM      = 0.0065
	standardExponent            = 5.25587611 // g*M/(R*L)
)

// pressureToHeight returns the geopotential height (m) for pressure
// (hPa) under the standard troposphere model.
func pressureToHeight(hPa float64) float64 {
	return (standardSeaLevelTempK / standardLapseRateKPerM) *
		(1 - math.Pow(hPa/standardSeaLevelPressureHPa, 1/standardExponent))
}

// heightToPressure is the inverse of pressureToHeight.
func heightToPressure(heightM float64) float64 {
	return standardSeaLevelPressureHPa *
		math.Pow(1-standardLapseRateKPerM*heightM/standardSeaLevelTempK, standardExponent)
}

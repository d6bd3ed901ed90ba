// interpolate/solar.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package interpolate

import "math"

// SolarGeometryFunc returns the mean extraterrestrial irradiance in W/m^2
// over [start,end) (unix seconds) at (lat,lon). The real astronomical
// formula (solar declination, hour angle, eccentricity correction) is a
// derivation-formula concern owned outside this package; callers normally
// supply their own. DefaultSolarGeometry is a coarse stand-in so the solar
// kernel is exercisable without that dependency.
type SolarGeometryFunc func(lat, lon float64, start, end int64) float64

// solarEpsilon is the mean-ETR threshold below which deaveraging is
// considered ill-conditioned (e.g. near the poles during polar night); the
// solar kernel falls back to linear interpolation for that sample.
const solarEpsilon = 1e-6

// DefaultSolarGeometry approximates mean top-of-atmosphere irradiance with
// a clear-sky sinusoidal day/night model: zero through the night half of
// the day and a half-sine peaking at local solar noon, scaled by
// cos(latitude). It has no seasonal term and is intentionally coarse.
func DefaultSolarGeometry(lat, lon float64, start, end int64) float64 {
	if end <= start {
		return 0
	}
	const steps = 8
	dt := float64(end-start) / steps
	var sum float64
	for i := 0; i < steps; i++ {
		t := float64(start) + (float64(i)+0.5)*dt
		sum += instantaneousETR(lat, lon, t)
	}
	return sum / steps
}

func instantaneousETR(lat, lon, unixSeconds float64) float64 {
	const daySeconds = 86400.0
	const solarConstant = 1361.0

	dayFrac := math.Mod(unixSeconds, daySeconds) / daySeconds
	// Longitude shifts local solar time relative to UTC.
	localFrac := math.Mod(dayFrac+lon/360+1, 1)

	// Solar elevation proxy: peaks at local noon (localFrac==0.5), zero at
	// midnight, modulated by a crude latitude attenuation.
	hourAngle := (localFrac - 0.5) * 2 * math.Pi
	elevationProxy := math.Cos(hourAngle) * math.Cos(radians(lat))
	if elevationProxy <= 0 {
		return 0
	}
	return solarConstant * elevationProxy
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

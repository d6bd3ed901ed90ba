// grid/lambert.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package grid

import "math"

// LambertProjection is a spherical Lambert conformal conic projection, the
// common projection for regional NWP domains (e.g. HRRR). Standard
// parallels Phi1/Phi2 may be equal (tangent case).
type LambertProjection struct {
	Phi0, Phi1, Phi2 float64 // degrees
	Lambda0          float64 // degrees
	n, f, rho0       float64 // derived
}

// NewLambertProjection precomputes the projection's derived constants.
func NewLambertProjection(phi0, phi1, phi2, lambda0 float64) *LambertProjection {
	p := &LambertProjection{Phi0: phi0, Phi1: phi1, Phi2: phi2, Lambda0: lambda0}

	r1, r2 := radians(phi1), radians(phi2)
	if phi1 == phi2 {
		p.n = math.Sin(r1)
	} else {
		p.n = math.Log(math.Cos(r1)/math.Cos(r2)) /
			math.Log(math.Tan(math.Pi/4+r2/2)/math.Tan(math.Pi/4+r1/2))
	}
	p.f = math.Cos(r1) * math.Pow(math.Tan(math.Pi/4+r1/2), p.n) / p.n
	p.rho0 = p.rhoOf(radians(phi0))
	return p
}

func (p *LambertProjection) rhoOf(phiRad float64) float64 {
	return earthRadiusMeters * p.f / math.Pow(math.Tan(math.Pi/4+phiRad/2), p.n)
}

// Forward projects (lat,lon) in degrees to planar (x,y) meters relative to
// the projection's origin parallel/meridian.
func (p *LambertProjection) Forward(lat, lon float64) (x, y float64) {
	rho := p.rhoOf(radians(lat))
	theta := p.n * radians(lon-p.Lambda0)
	x = rho * math.Sin(theta)
	y = p.rho0 - rho*math.Cos(theta)
	return
}

// Inverse projects planar (x,y) meters back to (lat,lon) degrees.
func (p *LambertProjection) Inverse(x, y float64) (lat, lon float64) {
	rho := math.Copysign(math.Sqrt(x*x+(p.rho0-y)*(p.rho0-y)), p.n)
	theta := math.Atan2(x, p.rho0-y)
	phi := 2*math.Atan(math.Pow(earthRadiusMeters*p.f/rho, 1/p.n)) - math.Pi/2
	lambda := p.Lambda0 + degrees(theta)/p.n
	return degrees(phi), lambda
}

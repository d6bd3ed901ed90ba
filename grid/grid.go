// grid/grid.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package grid implements lat/lon grid descriptors and elevation-aware
// point selection for NWP domains.
package grid

import "math"

// Kind selects a Grid's coordinate system.
type Kind int

const (
	// KindRegular is an evenly spaced lat/lon lattice.
	KindRegular Kind = iota
	// KindProjected is a regularly spaced lattice in a projected plane
	// (e.g. Lambert conformal conic), common for regional models.
	KindProjected
)

// SeaElevation is the sentinel elevation value marking a sea point in an
// elevation map.
const SeaElevation = float32(-999)

// Mode selects how FindPoint resolves a query point to a grid index.
type Mode int

const (
	// Nearest picks the closest grid cell, ignoring elevation.
	Nearest Mode = iota
	// TerrainOptimised inspects the 3x3 neighborhood of the nearest cell
	// and prefers the non-sea candidate whose elevation best matches the
	// query elevation.
	TerrainOptimised
)

// Grid is an immutable descriptor of a 2-D lattice of nx*ny points.
type Grid struct {
	Kind Kind
	Nx   int
	Ny   int

	// Regular-grid parameters (degrees).
	Lat0, Lon0, Dlat, Dlon float64
	// LonMin is the lower bound of the grid's native longitude range,
	// either -180 or 0; longitudes are normalized into [LonMin, LonMin+360)
	// before indexing.
	LonMin float64

	// Projected-grid parameters.
	Projection    *LambertProjection
	OriginX       float64 // meters, projected coordinate of index (0,0)
	OriginY       float64
	Dx, Dy        float64 // meters

	// Elevation is an optional companion elevation map, one float32 per
	// point in row-major (iy*Nx+ix) order. Nil if absent. SeaElevation
	// marks a sea point.
	Elevation []float32
}

// Count returns the total number of grid points.
func (g *Grid) Count() int { return g.Nx * g.Ny }

// index converts a 2-D (ix,iy) cell to a flat point index.
func (g *Grid) index(ix, iy int) int { return iy*g.Nx + ix }

// Coordinates returns the (lat,lon) of point index, in degrees.
func (g *Grid) Coordinates(index int) (lat, lon float64) {
	ix := index % g.Nx
	iy := index / g.Nx

	switch g.Kind {
	case KindProjected:
		x := g.OriginX + float64(ix)*g.Dx
		y := g.OriginY + float64(iy)*g.Dy
		return g.Projection.Inverse(x, y)
	default:
		return g.Lat0 + float64(iy)*g.Dlat, g.Lon0 + float64(ix)*g.Dlon
	}
}

// elevationAt returns the elevation at cell (ix,iy), or SeaElevation if the
// grid carries no elevation map or the cell is out of bounds.
func (g *Grid) elevationAt(ix, iy int) float32 {
	if g.Elevation == nil || ix < 0 || ix >= g.Nx || iy < 0 || iy >= g.Ny {
		return SeaElevation
	}
	return g.Elevation[g.index(ix, iy)]
}

// nearestCell returns the (ix,iy) cell closest to (lat,lon), and whether it
// falls within the grid's bounding box.
func (g *Grid) nearestCell(lat, lon float64) (ix, iy int, ok bool) {
	lat = clamp(lat, -90, 90)

	switch g.Kind {
	case KindProjected:
		x, y := g.Projection.Forward(lat, lon)
		fx := (x - g.OriginX) / g.Dx
		fy := (y - g.OriginY) / g.Dy
		ix = int(math.Round(fx))
		iy = int(math.Round(fy))
	default:
		lon = normalizeLon(lon, g.LonMin)
		fx := (lon - g.Lon0) / g.Dlon
		fy := (lat - g.Lat0) / g.Dlat
		ix = int(math.Round(fx))
		iy = int(math.Round(fy))
	}

	if ix < 0 || ix >= g.Nx || iy < 0 || iy >= g.Ny {
		return 0, 0, false
	}
	return ix, iy, true
}

// FindPoint resolves (lat,lon,elevation) to a grid index and that point's
// elevation, per mode. Returns ErrGridMiss if the query falls outside the
// grid's bounding box. When the grid carries no elevation map, the nearest
// cell is returned with a NaN elevation.
func (g *Grid) FindPoint(lat, lon, elevation float64, mode Mode) (index int, gridElevation float64, err error) {
	ix, iy, ok := g.nearestCell(lat, lon)
	if !ok {
		return 0, 0, ErrGridMiss
	}

	if g.Elevation == nil {
		return g.index(ix, iy), math.NaN(), nil
	}
	if mode == Nearest {
		return g.index(ix, iy), float64(g.elevationAt(ix, iy)), nil
	}

	type candidate struct {
		ix, iy int
		elev   float32
	}
	var best *candidate
	var bestElevDiff, bestDist float64

	qLat, qLon := lat, lon
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			cx, cy := ix+dx, iy+dy
			if cx < 0 || cx >= g.Nx || cy < 0 || cy >= g.Ny {
				continue
			}
			elev := g.elevationAt(cx, cy)
			if elev == SeaElevation {
				continue
			}
			diff := math.Abs(float64(elev) - elevation)
			cLat, cLon := g.Coordinates(g.index(cx, cy))
			dist := greatCircleMeters(qLat, qLon, cLat, cLon)

			if best == nil || diff < bestElevDiff || (diff == bestElevDiff && dist < bestDist) {
				best = &candidate{cx, cy, elev}
				bestElevDiff = diff
				bestDist = dist
			}
		}
	}

	if best == nil {
		// All neighbors are sea (or absent); fall back to the raw nearest.
		return g.index(ix, iy), float64(g.elevationAt(ix, iy)), nil
	}
	return g.index(best.ix, best.iy), float64(best.elev), nil
}

package rules

import (
	"math"

	"adsbactions/pkg/geo"
)

// DefaultGridCellDegrees is the default spatial grid cell size, about 60 nm
// on a side at the equator (spec.md §4.4, §9).
const DefaultGridCellDegrees = 1.0

type cellKey struct {
	lat int
	lon int
}

// spatialGrid maps a (floor(lat/G), floor(lon/G)) cell to the indices of
// every rule whose bounding box intersects it. It never removes a rule
// that would otherwise match: a rule's bbox is added to every cell it
// intersects, so the grid is purely an additive pre-filter.
type spatialGrid struct {
	cellDegrees float64
	cells       map[cellKey][]int
}

func newSpatialGrid(cellDegrees float64) *spatialGrid {
	if cellDegrees <= 0 {
		cellDegrees = DefaultGridCellDegrees
	}
	return &spatialGrid{cellDegrees: cellDegrees, cells: make(map[cellKey][]int)}
}

func (g *spatialGrid) cellOf(lat, lon float64) cellKey {
	return cellKey{
		lat: int(math.Floor(lat / g.cellDegrees)),
		lon: int(math.Floor(lon / g.cellDegrees)),
	}
}

// addRule registers ruleIdx in every cell bbox intersects.
func (g *spatialGrid) addRule(ruleIdx int, bbox geo.BBox) {
	minCell := g.cellOf(bbox.MinLat, bbox.MinLon)
	maxCell := g.cellOf(bbox.MaxLat, bbox.MaxLon)
	for lat := minCell.lat; lat <= maxCell.lat; lat++ {
		for lon := minCell.lon; lon <= maxCell.lon; lon++ {
			key := cellKey{lat, lon}
			g.cells[key] = append(g.cells[key], ruleIdx)
		}
	}
}

// candidatesAt returns the rule indices registered in the cell containing
// (lat, lon).
func (g *spatialGrid) candidatesAt(lat, lon float64) []int {
	return g.cells[g.cellOf(lat, lon)]
}

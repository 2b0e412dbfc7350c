// Package region defines the boundary between the core and the external
// region/geodesic library that spec.md treats as a black box: KML parsing
// and polygon-in-polygon math are explicitly out of scope (see spec.md
// §1 Non-goals). The core only ever calls Layer.Contains.
//
// BoxLayer is a minimal concrete Layer provided for tests and small deployments
// that don't need real geodesic polygons — an axis-aligned lat/lon/altitude
// region list, not a KML/geodesic engine.
package region

import "adsbactions/pkg/geo"

// Layer answers region-membership questions for one independent region set
// (conventionally, one per KML file in the source system). A Flight tracks
// at most one current region per Layer (spec.md §4, Open Questions: the
// library semantics, not the legacy positional-bbox semantics, are
// canonical).
type Layer interface {
	// Contains returns the name of the region containing the given
	// position, or ok=false if the position is in no region of this layer.
	Contains(lat, lon, heading float64, altBaro int) (name string, ok bool)
}

// Region is one named area within a BoxLayer.
type Region struct {
	Name string

	MinLat, MaxLat float64
	MinLon, MaxLon float64

	// MinAlt/MaxAlt bound baro altitude in feet; MaxAlt <= 0 means
	// unbounded above.
	MinAlt, MaxAlt int

	// MinHeading/MaxHeading optionally bound track in degrees. Equal
	// values (the zero value included) mean "unconstrained".
	MinHeading, MaxHeading float64
}

func (r Region) containsPoint(lat, lon, heading float64, altBaro int) bool {
	if lat < r.MinLat || lat > r.MaxLat || lon < r.MinLon || lon > r.MaxLon {
		return false
	}
	if altBaro < r.MinAlt {
		return false
	}
	if r.MaxAlt > 0 && altBaro > r.MaxAlt {
		return false
	}
	if r.MinHeading != r.MaxHeading {
		h := geo.NormalizeDegrees(heading)
		lo := geo.NormalizeDegrees(r.MinHeading)
		hi := geo.NormalizeDegrees(r.MaxHeading)
		if lo <= hi {
			if h < lo || h > hi {
				return false
			}
		} else if h < lo && h > hi {
			// wrapping window, e.g. 350-10
			return false
		}
	}
	return true
}

// BoxLayer is an ordered list of named Regions; the first Region whose
// bounds contain the point wins, mirroring the "first matching box" rule in
// the source's bboxes.py.
type BoxLayer struct {
	Regions []Region
}

// Contains implements Layer.
func (b BoxLayer) Contains(lat, lon, heading float64, altBaro int) (string, bool) {
	for _, r := range b.Regions {
		if r.containsPoint(lat, lon, heading, altBaro) {
			return r.Name, true
		}
	}
	return "", false
}

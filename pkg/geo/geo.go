// Package geo provides the great-circle math the rest of the system needs:
// nautical-mile distance between two points, bearing, and the bounding-box
// offsets used by the rule engine's spatial pre-filter.
package geo

import "math"

const (
	degreesToRadians = math.Pi / 180.0
	radiansToDegrees = 180.0 / math.Pi

	// earthRadiusKm is the WGS84 mean radius.
	earthRadiusKm = 6371.0

	kmToNM = 1 / 1.852
)

// Point is a bare lat/lon pair in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// DistanceNM returns the great-circle distance between two points in
// nautical miles using the Haversine formula. Symmetric, and zero for
// identical points.
func DistanceNM(a, b Point) float64 {
	lat1 := a.Lat * degreesToRadians
	lon1 := a.Lon * degreesToRadians
	lat2 := b.Lat * degreesToRadians
	lon2 := b.Lon * degreesToRadians

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c * kmToNM
}

// Bearing returns the initial great-circle bearing from `from` to `to`, in
// degrees, 0-360 with 0 = north.
func Bearing(from, to Point) float64 {
	lat1 := from.Lat * degreesToRadians
	lon1 := from.Lon * degreesToRadians
	lat2 := to.Lat * degreesToRadians
	lon2 := to.Lon * degreesToRadians

	dLon := lon2 - lon1
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	bearing := math.Atan2(y, x) * radiansToDegrees
	if bearing < 0 {
		bearing += 360
	}
	return bearing
}

// NMToLatLonOffsets converts a radius in nautical miles, centered at the
// given latitude, to a (latOffset, lonOffset) pair in degrees. Used by the
// rule engine to build a cheap rectangular pre-filter around a latlongring
// condition before running the real distance check.
func NMToLatLonOffsets(radiusNM, atLat float64) (latOffset, lonOffset float64) {
	radiusKm := radiusNM / kmToNM
	latOffset = (radiusKm / earthRadiusKm) * radiansToDegrees

	cosLat := math.Cos(atLat * degreesToRadians)
	if math.Abs(cosLat) < 1e-9 {
		// At the poles a longitude offset is meaningless; make it span
		// the full range rather than divide by ~zero.
		lonOffset = 180
		return
	}
	lonOffset = (radiusKm / (earthRadiusKm * cosLat)) * radiansToDegrees
	return
}

// UnwrapTrackDelta returns the signed shortest-arc difference between two
// track headings in degrees, handling the 0/360 wraparound.
func UnwrapTrackDelta(from, to float64) float64 {
	diff := to - from
	if diff > 180 {
		diff -= 360
	} else if diff < -180 {
		diff += 360
	}
	return diff
}

// NormalizeDegrees folds an angle into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	d := math.Mod(deg, 360.0)
	if d < 0 {
		d += 360.0
	}
	return d
}

// BBox is an axis-aligned lat/lon rectangle, used by the rule engine's
// spatial grid to cheaply reject candidate rules before the real distance
// check.
type BBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// BBoxAround returns the bounding box of a circle of the given radius (in
// nautical miles) centered at the given point.
func BBoxAround(center Point, radiusNM float64) BBox {
	latOff, lonOff := NMToLatLonOffsets(radiusNM, center.Lat)
	return BBox{
		MinLat: center.Lat - latOff,
		MaxLat: center.Lat + latOff,
		MinLon: center.Lon - lonOff,
		MaxLon: center.Lon + lonOff,
	}
}

// Contains reports whether the point falls within the box.
func (b BBox) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

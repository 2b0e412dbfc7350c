// Package location implements the Location value object: one immutable
// position sample parsed from a raw ADS-B JSON message.
package location

import (
	"fmt"
	"strings"

	"adsbactions/pkg/geo"
)

// Category holds the secondary ADS-B fields that arrive intermittently.
// Unrecognized keys are preserved in Extra so a rule referencing a field
// this struct doesn't name explicitly still has something to read.
type Category struct {
	Squawk          string
	Emergency       string
	EmitterCategory string
	BaroRate        float64
	HasBaroRate     bool

	Extra map[string]interface{}
}

// Location is one immutable position sample. Fields are never mutated
// after construction; callers that need a derived value build a new one.
type Location struct {
	Lat, Lon    float64
	AltBaro     int
	Timestamp   float64
	GroundSpeed float64
	Track       float64
	Callsign    string
	ICAOHex     string
	Tail        string
	Category    Category

	// Suspicious is set by the resampler's anti-teleport guard; it is not
	// populated by FromRaw.
	Suspicious bool
}

// FromRaw builds a Location from a decoded JSON message. Absent or
// wrong-typed numeric fields default to zero rather than failing: raw
// ADS-B streams are noisy and a single malformed field must not drop the
// whole message.
func FromRaw(raw map[string]interface{}) Location {
	loc := Location{
		Lat:         floatField(raw, "lat"),
		Lon:         floatField(raw, "lon"),
		Timestamp:   floatField(raw, "now"),
		GroundSpeed: floatField(raw, "gs"),
		Track:       floatField(raw, "track"),
		Callsign:    strings.TrimSpace(stringField(raw, "flight")),
		ICAOHex:     strings.ToLower(strings.TrimSpace(stringField(raw, "hex"))),
	}
	loc.AltBaro = altBaroField(raw)
	loc.Category = categoryFromRaw(raw)

	if loc.ICAOHex != "" {
		if tail, ok := tailFromICAO(loc.ICAOHex); ok {
			loc.Tail = tail
		}
	}
	return loc
}

// altBaroField handles the "ground" sentinel the ADS-B wire format uses in
// place of a numeric altitude.
func altBaroField(raw map[string]interface{}) int {
	v, ok := raw["alt_baro"]
	if !ok {
		return 0
	}
	if _, ok := v.(string); ok {
		// The only string value the wire format uses here is "ground";
		// any other string is malformed input and also defaults to 0.
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

func floatField(raw map[string]interface{}, key string) float64 {
	v, ok := raw[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func stringField(raw map[string]interface{}, key string) string {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

func categoryFromRaw(raw map[string]interface{}) Category {
	cat := Category{Extra: map[string]interface{}{}}
	known := map[string]bool{
		"squawk": true, "emergency": true, "category": true, "baro_rate": true,
		"lat": true, "lon": true, "now": true, "gs": true, "track": true,
		"flight": true, "hex": true, "alt_baro": true,
	}
	if v, ok := raw["squawk"]; ok {
		cat.Squawk = fmt.Sprintf("%v", v)
	}
	if v, ok := raw["emergency"]; ok {
		cat.Emergency = fmt.Sprintf("%v", v)
	}
	if v, ok := raw["category"]; ok {
		cat.EmitterCategory = fmt.Sprintf("%v", v)
	}
	if v, ok := raw["baro_rate"]; ok {
		cat.BaroRate = floatField(map[string]interface{}{"baro_rate": v}, "baro_rate")
		cat.HasBaroRate = true
	}
	for k, v := range raw {
		if !known[k] {
			cat.Extra[k] = v
		}
	}
	return cat
}

// IsHeartbeat reports whether this message carries no real flight data —
// the ADS-B convention is flight == "N/A", used solely to advance ingested
// time so checkpointing runs during quiet periods.
func (l Location) IsHeartbeat() bool {
	return l.Callsign == "N/A"
}

// FlightID chooses the stable identity for a Flight built from this
// Location: derived tail, else the raw callsign (if non-empty and not
// "N/A"), else the hex, else empty (caller must drop the message).
func (l Location) FlightID() string {
	if l.Tail != "" {
		return l.Tail
	}
	if l.Callsign != "" && l.Callsign != "N/A" {
		return l.Callsign
	}
	return l.ICAOHex
}

// DistanceNM returns the great-circle distance to another Location in
// nautical miles.
func (l Location) DistanceNM(other Location) float64 {
	return geo.DistanceNM(geo.Point{Lat: l.Lat, Lon: l.Lon}, geo.Point{Lat: other.Lat, Lon: other.Lon})
}

// ToStr renders a compact line sufficient to round-trip the fields the
// system's testable properties care about (lat, lon, alt_baro, track,
// flight_id).
func (l Location) ToStr() string {
	return fmt.Sprintf("%s lat=%.6f lon=%.6f alt=%d track=%.1f ts=%.0f",
		l.FlightID(), l.Lat, l.Lon, l.AltBaro, l.Track, l.Timestamp)
}

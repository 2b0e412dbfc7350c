// Package flight implements the Flight entity: per-aircraft state tracked
// across position updates (spec.md §4.2). A Flight is exclusively owned by
// a registry.FlightRegistry; it is mutated only while the registry's lock
// or the flight's own Lock is held.
package flight

import (
	"sync"

	"adsbactions/pkg/location"
	"adsbactions/pkg/region"
)

// altWindowSize is the length of the rolling altitude window used to
// derive the up/level/down trend (spec.md §4.2 TrackAlt).
const altWindowSize = 5

// Membership is one region layer's current-or-previous occupancy: either a
// region name, or ok=false meaning "in no region of this layer".
type Membership struct {
	Name string
	Ok   bool
}

// Flight is per-aircraft state: identity, position history, per-layer
// region membership, a rolling altitude trend, and a free-form flags map
// rule actions write to and later rules or sinks read.
type Flight struct {
	mu sync.Mutex

	FlightID string
	OtherID  string

	FirstLoc location.Location
	LastLoc  location.Location

	InsideRegions     []Membership
	PrevInsideRegions []Membership
	PrevValid         bool

	altWindow []int

	Flags map[string]interface{}

	// ExternalID is an opaque identifier assigned once by a downstream
	// database sink and cached here so later lookups don't re-insert.
	ExternalID interface{}

	regionUpdates int
}

// New creates a Flight from its first observed Location, whose altitude
// seeds the altitude-trend window. numLayers sizes the per-layer
// region-membership slices.
func New(id, otherID string, loc location.Location, numLayers int) *Flight {
	return &Flight{
		FlightID:          id,
		OtherID:           otherID,
		FirstLoc:          loc,
		LastLoc:           loc,
		InsideRegions:     make([]Membership, numLayers),
		PrevInsideRegions: make([]Membership, numLayers),
		altWindow:         []int{loc.AltBaro},
		Flags:             make(map[string]interface{}),
	}
}

// Lock/Unlock guard Flags and ExternalID against concurrent access from
// rule-action callbacks. Always acquired inner to the registry's lock.
func (f *Flight) Lock()   { f.mu.Lock() }
func (f *Flight) Unlock() { f.mu.Unlock() }

// UpdateLoc replaces LastLoc. ADS-B secondary fields (the Category bundle)
// arrive intermittently; if the new Location carries none but the previous
// one did, the previous bundle is carried forward since it is still the
// most recent authoritative value. Every update also re-tracks the
// altitude trend (spec.md §4.2) and publishes it to Flags so rules and
// sinks can read it without calling TrackAlt themselves.
func (f *Flight) UpdateLoc(loc location.Location) {
	if isEmptyCategory(loc.Category) && !isEmptyCategory(f.LastLoc.Category) {
		loc.Category = f.LastLoc.Category
	}
	f.LastLoc = loc
	f.Flags["alt_trend"] = f.TrackAlt(loc.AltBaro)
}

func isEmptyCategory(c location.Category) bool {
	return c.Squawk == "" && c.Emergency == "" && c.EmitterCategory == "" &&
		!c.HasBaroRate && len(c.Extra) == 0
}

// UpdateInsideRegions asks each region layer whether loc falls inside one
// of its regions, shifting the current membership into
// PrevInsideRegions first. PrevValid becomes true from the second update
// onward, distinguishing "first update" from "was in none".
func (f *Flight) UpdateInsideRegions(layers []region.Layer, loc location.Location) {
	copy(f.PrevInsideRegions, f.InsideRegions)
	if f.regionUpdates > 0 {
		f.PrevValid = true
	}
	f.regionUpdates++

	for i, layer := range layers {
		if i >= len(f.InsideRegions) {
			break
		}
		if layer == nil {
			f.InsideRegions[i] = Membership{}
			continue
		}
		name, ok := layer.Contains(loc.Lat, loc.Lon, loc.Track, loc.AltBaro)
		f.InsideRegions[i] = Membership{Name: name, Ok: ok}
	}
}

// TrackAlt reports whether alt sits above (+1), at (0), or below (-1) the
// mean of the window as it stood *before* this call, then appends alt to
// the rolling window (capped at the last five values). Comparing against
// the prior mean, not one that already includes alt, is what makes the
// result a trend rather than a restatement of alt's position among its
// own neighbors.
func (f *Flight) TrackAlt(alt int) int {
	avg := alt
	if len(f.altWindow) > 0 {
		sum := 0
		for _, a := range f.altWindow {
			sum += a
		}
		avg = int(float64(sum) / float64(len(f.altWindow)))
	}

	if len(f.altWindow) == altWindowSize {
		f.altWindow = f.altWindow[1:]
	}
	f.altWindow = append(f.altWindow, alt)

	switch {
	case alt > avg:
		return 1
	case alt < avg:
		return -1
	default:
		return 0
	}
}

// InAnyRegion reports whether the flight currently occupies any region in
// any layer.
func (f *Flight) InAnyRegion() bool {
	return anyMembership(f.InsideRegions)
}

// WasInAnyRegion reports whether the flight's previous update placed it in
// any region in any layer.
func (f *Flight) WasInAnyRegion() bool {
	return anyMembership(f.PrevInsideRegions)
}

func anyMembership(m []Membership) bool {
	for _, e := range m {
		if e.Ok {
			return true
		}
	}
	return false
}

// IsInRegions reports whether the flight currently occupies any region
// named in names, across any layer. An empty list asks "is the flight in
// no region at all", matching the `regions: []` rule expression.
func (f *Flight) IsInRegions(names []string) bool {
	return matchesRegions(f.InsideRegions, names)
}

// WasInRegions is the previous-update analog of IsInRegions.
func (f *Flight) WasInRegions(names []string) bool {
	return matchesRegions(f.PrevInsideRegions, names)
}

func matchesRegions(memberships []Membership, names []string) bool {
	if len(names) == 0 {
		return !anyMembership(memberships)
	}
	for _, m := range memberships {
		if !m.Ok {
			continue
		}
		for _, n := range names {
			if m.Name == n {
				return true
			}
		}
	}
	return false
}

// Package registry implements FlightRegistry: the flight-id -> Flight map
// that owns every tracked aircraft (spec.md §4.3).
package registry

import (
	"sync"

	"adsbactions/pkg/flight"
	"adsbactions/pkg/location"
	"adsbactions/pkg/region"
)

// RuleEngine is the subset of rules.Engine the registry drives. Declaring
// it here (rather than importing pkg/rules) keeps registry and rules free
// of an import cycle: rules.Engine depends on flight.Flight and
// region.Layer only, never on registry.Registry.
type RuleEngine interface {
	ProcessFlight(f *flight.Flight)
	DoExpire(f *flight.Flight)
	HandleProximityConditions(flights []*flight.Flight, now float64)
}

// Registry maps flight_id -> Flight, guarded by a single lock, with a
// flight created on first sight and removed by age-based expiry.
type Registry struct {
	mu      sync.Mutex
	flights map[string]*flight.Flight

	// Layers is the ordered list of region layers applied to every
	// position update; its length fixes Flight.InsideRegions' size.
	Layers []region.Layer
}

// New creates an empty Registry bound to the given region layers.
func New(layers []region.Layer) *Registry {
	return &Registry{
		flights: make(map[string]*flight.Flight),
		Layers:  layers,
	}
}

// AddLocation finds or creates the Flight named by loc.FlightID(), applies
// the position update and region-membership check under the registry
// lock, then runs rule evaluation with the lock released — so rule actions
// (which may take the flight's own lock, or block on I/O) never hold up
// other flights' updates. Returns the ingested timestamp, or false if the
// Location carries no usable flight id.
func (r *Registry) AddLocation(loc location.Location, engine RuleEngine) (float64, bool) {
	id := loc.FlightID()
	if id == "" || id == "N/A" {
		return 0, false
	}

	r.mu.Lock()
	f, ok := r.flights[id]
	if !ok {
		f = flight.New(id, loc.Callsign, loc, len(r.Layers))
		r.flights[id] = f
	} else {
		f.UpdateLoc(loc)
	}
	f.UpdateInsideRegions(r.Layers, f.LastLoc)
	r.mu.Unlock()

	if engine != nil {
		engine.ProcessFlight(f)
	}
	return loc.Timestamp, true
}

// ExpireOld removes every Flight whose LastLoc is older than expireSecs
// relative to now, then, with the lock released, fires each removed
// flight's expire_callback actions.
func (r *Registry) ExpireOld(engine RuleEngine, now, expireSecs float64) {
	cutoff := now - expireSecs

	r.mu.Lock()
	stale := make([]*flight.Flight, 0)
	for id, f := range r.flights {
		if f.LastLoc.Timestamp < cutoff {
			stale = append(stale, f)
			delete(r.flights, id)
		}
	}
	r.mu.Unlock()

	for _, f := range stale {
		if engine != nil {
			engine.DoExpire(f)
		}
	}
}

// CheckDistance delegates the pairwise proximity pass to the rule engine,
// which owns the rule-parameterized thresholds (spec.md §4.3, §4.4).
func (r *Registry) CheckDistance(engine RuleEngine, now float64) {
	if engine == nil {
		return
	}
	engine.HandleProximityConditions(r.Snapshot(), now)
}

// Snapshot returns the current set of tracked flights. The slice is a
// point-in-time copy of the map; the Flight pointers it holds are shared
// with the registry and must be accessed through their own Lock/Unlock
// when mutating Flags or ExternalID.
func (r *Registry) Snapshot() []*flight.Flight {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*flight.Flight, 0, len(r.flights))
	for _, f := range r.flights {
		out = append(out, f)
	}
	return out
}

// Get returns the Flight for id, if tracked.
func (r *Registry) Get(id string) (*flight.Flight, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flights[id]
	return f, ok
}

// Len returns the number of currently tracked flights.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flights)
}

package resampler

import (
	"adsbactions/pkg/flight"
	"adsbactions/pkg/location"
	"adsbactions/pkg/region"
	"adsbactions/pkg/rules"
)

// RuleEngine is the subset of rules.Engine the proximity sweep drives.
type RuleEngine interface {
	ProcessFlight(f *flight.Flight)
	HandleProximityConditions(flights []*flight.Flight, now float64)
}

var _ RuleEngine = (*rules.Engine)(nil)

// DoProxChecks drives a synthetic replay of the resampled history for
// post-hoc proximity analysis (spec.md §4.6): stepping through
// [minTs, maxTs] by sampleInterval, it builds a synthetic flight snapshot
// from exactly the Locations present at each second, updates region
// membership, runs the proximity pass, expires stale synthetic flights,
// and invokes gcCallback so the caller (the LOS engine) can finalize
// records.
func (r *Resampler) DoProxChecks(engine RuleEngine, layers []region.Layer, sampleInterval int, gcCallback func(now float64)) {
	minTs, maxTs, ok := r.TimeRange()
	if !ok || sampleInterval <= 0 {
		return
	}

	synth := make(map[string]*flight.Flight)

	for t := minTs; t <= maxTs; t += int64(sampleInterval) {
		r.mu.Lock()
		points := append([]location.Location(nil), r.perSecond[t]...)
		r.mu.Unlock()

		for _, loc := range points {
			id := loc.FlightID()
			if id == "" {
				continue
			}
			f, exists := synth[id]
			if !exists {
				f = flight.New(id, loc.Callsign, loc, len(layers))
				synth[id] = f
			} else {
				f.UpdateLoc(loc)
			}
			f.UpdateInsideRegions(layers, f.LastLoc)
			engine.ProcessFlight(f)
		}

		engine.HandleProximityConditions(snapshotFlights(synth), float64(t))

		expireStale(synth, float64(t))

		if gcCallback != nil {
			gcCallback(float64(t))
		}
	}
}

func snapshotFlights(m map[string]*flight.Flight) []*flight.Flight {
	out := make([]*flight.Flight, 0, len(m))
	for _, f := range m {
		out = append(out, f)
	}
	return out
}

func expireStale(m map[string]*flight.Flight, now float64) {
	for id, f := range m {
		if now-f.LastLoc.Timestamp > MaxInterpolateSecs {
			delete(m, id)
		}
	}
}

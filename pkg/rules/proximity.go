package rules

import "adsbactions/pkg/flight"

// HandleProximityConditions runs the periodic pairwise proximity pass
// (spec.md §4.4): each rule carrying a `proximity` condition gets its own
// filtered candidate list (conditions + freshness), then every unique pair
// within that list is checked against the rule's altitude/lateral
// thresholds. Survivors fire the rule's actions with both flights.
func (e *Engine) HandleProximityConditions(flights []*flight.Flight, now float64) {
	for _, idx := range e.proximityIx {
		rule := &e.rules[idx]
		params := rule.Conditions.Proximity
		if params == nil {
			continue
		}

		candidates := e.filterProximityCandidates(rule, flights, now)
		for i := 0; i < len(candidates); i++ {
			for j := i + 1; j < len(candidates); j++ {
				a, b := candidates[i], candidates[j]
				altDist := absFloat(float64(a.LastLoc.AltBaro - b.LastLoc.AltBaro))
				if altDist >= params.AltSepFt {
					continue
				}
				latDist := a.LastLoc.DistanceNM(b.LastLoc)
				if latDist >= params.LatSepNM {
					continue
				}
				e.stats.RuleMatches.Add(1)
				e.executeActions(rule, a, b, now)
			}
		}
	}
}

// filterProximityCandidates applies a proximity rule's non-pair conditions
// to each flight individually, plus the freshness gate: only a flight
// whose last position is within MinFreshSecs of now participates, so a
// stale track from a lagging feed doesn't spuriously pair with a fresh one.
func (e *Engine) filterProximityCandidates(rule *Rule, flights []*flight.Flight, now float64) []*flight.Flight {
	out := make([]*flight.Flight, 0, len(flights))
	for _, f := range flights {
		if now-f.LastLoc.Timestamp > e.minFresh {
			continue
		}
		if !e.evaluateConditions(rule, f, f.LastLoc.Timestamp) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

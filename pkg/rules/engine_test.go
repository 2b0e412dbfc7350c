package rules

import (
	"testing"

	"adsbactions/pkg/callbacks"
	"adsbactions/pkg/flight"
	"adsbactions/pkg/location"
	"adsbactions/pkg/region"
	"adsbactions/pkg/stats"
)

func newFlightAt(id string, alt int, ts float64, layers []region.Layer) *flight.Flight {
	loc := location.Location{Lat: 40.7635, Lon: -119.2122, AltBaro: alt, Timestamp: ts}
	f := flight.New(id, id, loc, len(layers))
	f.UpdateInsideRegions(layers, loc)
	return f
}

func groundAirLayers() []region.Layer {
	return []region.Layer{region.BoxLayer{Regions: []region.Region{
		{Name: "Ground", MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180, MinAlt: 0, MaxAlt: 500},
		{Name: "Air", MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180, MinAlt: 501, MaxAlt: 0},
	}}}
}

func TestTakeoffTransition(t *testing.T) {
	layers := groundAirLayers()
	cbs := callbacks.New()
	fired := 0
	cbs.Register("takeoff", func(f *flight.Flight) { fired++ })

	truth := true
	engine := NewEngine(Config{
		Rules: []Rule{{
			Name: "takeoff",
			Conditions: Conditions{
				Enabled:           &truth,
				TransitionRegions: &[2]string{"Ground", "Air"},
			},
			Actions: Actions{Callback: "takeoff", Note: "saw_takeoff"},
		}},
		Callbacks: cbs,
		Stats:     stats.New(),
	})

	f := newFlightAt("N12345", 400, 1000, layers)
	engine.ProcessFlight(f)
	if fired != 0 {
		t.Fatalf("rule should not fire on the first update, fired=%d", fired)
	}

	second := location.Location{Lat: 40.7635, Lon: -119.2122, AltBaro: 600, Timestamp: 1005}
	f.UpdateLoc(second)
	f.UpdateInsideRegions(layers, second)
	engine.ProcessFlight(f)

	if fired != 1 {
		t.Fatalf("expected exactly 1 fire on the takeoff transition, got %d", fired)
	}
	if f.Flags["note"] != "saw_takeoff" {
		t.Fatalf("expected note flag to be set, got %v", f.Flags["note"])
	}
}

func TestCooldownSuppressesRefire(t *testing.T) {
	cbs := callbacks.New()
	fired := 0
	cbs.Register("cb", func(f *flight.Flight) { fired++ })

	cooldownMin := 180.0
	engine := NewEngine(Config{
		Rules: []Rule{{
			Name: "banned-rule",
			Conditions: Conditions{
				AircraftList: "banned",
				Cooldown:     &cooldownMin,
			},
			Actions: Actions{Callback: "cb"},
		}},
		AircraftLists: map[string][]string{"banned": {"N999ZZ"}},
		Callbacks:     cbs,
		Stats:         stats.New(),
	})

	f := flight.New("N999ZZ", "N999ZZ", location.Location{Timestamp: 0}, 0)
	for _, ts := range []float64{0, 100, 20000} {
		f.LastLoc = location.Location{Timestamp: ts}
		engine.ProcessFlight(f)
	}

	if fired != 2 {
		t.Fatalf("expected 2 fires (t=0 and t=20000, t=100 suppressed by 180min cooldown), got %d", fired)
	}
}

func TestAltitudeBandFiltering(t *testing.T) {
	cbs := callbacks.New()
	fired := 0
	cbs.Register("alt", func(f *flight.Flight) { fired++ })

	minAlt, maxAlt := 4000, 10000
	engine := NewEngine(Config{
		Rules: []Rule{{
			Name:       "alt-band",
			Conditions: Conditions{MinAlt: &minAlt, MaxAlt: &maxAlt},
			Actions:    Actions{Callback: "alt"},
		}},
		Callbacks: cbs,
		Stats:     stats.New(),
	})

	f := flight.New("N1", "N1", location.Location{Timestamp: 0}, 0)
	expected := []int{0, 1, 2, 2}
	for i, alt := range []int{3000, 4000, 5000, 11000} {
		f.LastLoc = location.Location{AltBaro: alt, Timestamp: float64(i)}
		engine.ProcessFlight(f)
		if fired != expected[i] {
			t.Fatalf("after alt=%d: expected %d fires, got %d", alt, expected[i], fired)
		}
	}
}

func TestProximityPass(t *testing.T) {
	cbs := callbacks.New()
	calls := 0
	cbs.RegisterPair("los", func(a, b *flight.Flight) { calls++ })

	engine := NewEngine(Config{
		Rules: []Rule{{
			Name:       "los-rule",
			Conditions: Conditions{Proximity: &ProximityParams{AltSepFt: 400, LatSepNM: 0.3}},
			Actions:    Actions{Callback: "los"},
		}},
		Callbacks:    cbs,
		Stats:        stats.New(),
		MinFreshSecs: 10,
	})

	loc := location.Location{Lat: 40.0, Lon: -119.0, AltBaro: 5000, Timestamp: 100}
	a := flight.New("N1", "N1", loc, 0)
	b := flight.New("N2", "N2", loc, 0)

	engine.HandleProximityConditions([]*flight.Flight{a, b}, 100)

	if calls != 1 {
		t.Fatalf("expected exactly 1 proximity match, got %d", calls)
	}
}

func TestProximityRuleNeverMatchesPerPosition(t *testing.T) {
	cbs := callbacks.New()
	fired := 0
	cbs.Register("cb", func(f *flight.Flight) { fired++ })

	engine := NewEngine(Config{
		Rules: []Rule{{
			Name:       "prox",
			Conditions: Conditions{Proximity: &ProximityParams{AltSepFt: 100, LatSepNM: 1}},
			Actions:    Actions{Callback: "cb"},
		}},
		Callbacks: cbs,
		Stats:     stats.New(),
	})

	f := flight.New("N1", "N1", location.Location{Timestamp: 0}, 0)
	engine.ProcessFlight(f)
	if fired != 0 {
		t.Fatalf("a proximity rule must never fire from ProcessFlight, fired=%d", fired)
	}
}

func TestUnknownCallbackLogsAndSkips(t *testing.T) {
	engine := NewEngine(Config{
		Rules: []Rule{{
			Name:    "ghost",
			Actions: Actions{Callback: "does-not-exist"},
		}},
		Callbacks: callbacks.New(),
		Stats:     stats.New(),
	})

	f := flight.New("N1", "N1", location.Location{Timestamp: 0}, 0)
	engine.ProcessFlight(f) // must not panic
}

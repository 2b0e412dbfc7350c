package resampler

import (
	"testing"

	"adsbactions/pkg/flight"
	"adsbactions/pkg/location"
)

type fakeEngine struct {
	processed int
	proximity int
}

func (e *fakeEngine) ProcessFlight(f *flight.Flight) { e.processed++ }
func (e *fakeEngine) HandleProximityConditions(flights []*flight.Flight, now float64) {
	if len(flights) >= 2 {
		e.proximity++
	}
}

func TestDoProxChecksDrivesSweepAndGC(t *testing.T) {
	r := New(nil, nil)
	r.AddLocation(location.Location{Tail: "N1", Lat: 40, Lon: -119, AltBaro: 5000, Timestamp: 100})
	r.AddLocation(location.Location{Tail: "N2", Lat: 40, Lon: -119, AltBaro: 5000, Timestamp: 100})

	engine := &fakeEngine{}
	gcCalls := 0
	r.DoProxChecks(engine, nil, 1, func(now float64) { gcCalls++ })

	if engine.processed != 2 {
		t.Fatalf("expected 2 ProcessFlight calls, got %d", engine.processed)
	}
	if engine.proximity == 0 {
		t.Fatalf("expected the proximity pass to see both flights together at least once")
	}
	if gcCalls == 0 {
		t.Fatalf("expected the gc callback to be invoked")
	}
}

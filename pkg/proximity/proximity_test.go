package proximity

import (
	"testing"

	"adsbactions/pkg/flight"
	"adsbactions/pkg/location"
)

type fakeSink struct {
	addCalls    int
	updateCalls int
	lastAdd     *Record
	lastUpdate  *Record
}

func (s *fakeSink) AddLOS(rec *Record) (interface{}, error) {
	s.addCalls++
	cp := *rec
	s.lastAdd = &cp
	return "row-1", nil
}

func (s *fakeSink) UpdateLOS(rec *Record) error {
	s.updateCalls++
	cp := *rec
	s.lastUpdate = &cp
	return nil
}

func mkFlight(id string, lat, lon float64, alt int, ts float64) *flight.Flight {
	loc := location.Location{Tail: id, Lat: lat, Lon: lon, AltBaro: alt, Timestamp: ts}
	return flight.New(id, "", loc, 0)
}

func TestLOSLifecycleTracksMinimumAndFinalizes(t *testing.T) {
	sink := &fakeSink{}
	e := NewEngine(sink, nil, 60, nil)

	a := mkFlight("N100", 40.0, -119.0, 5000, 100)
	b := mkFlight("N200", 40.0, -118.99, 5100, 100)
	e.OnMatch(a, b)

	if sink.addCalls != 1 {
		t.Fatalf("expected AddLOS called once at first detection, got %d", sink.addCalls)
	}
	if sink.updateCalls != 0 {
		t.Fatalf("expected no UpdateLOS before GC, got %d", sink.updateCalls)
	}

	// t=110: closer approach, becomes the recorded minimum.
	a.UpdateLoc(location.Location{Tail: "N100", Lat: 40.0, Lon: -119.0, AltBaro: 5000, Timestamp: 110})
	b.UpdateLoc(location.Location{Tail: "N200", Lat: 40.0005, Lon: -119.0005, AltBaro: 5050, Timestamp: 110})
	e.OnMatch(a, b)

	// t=120: separation opens back up; must not overwrite the t=110 minimum.
	a.UpdateLoc(location.Location{Tail: "N100", Lat: 40.0, Lon: -119.0, AltBaro: 5000, Timestamp: 120})
	b.UpdateLoc(location.Location{Tail: "N200", Lat: 40.05, Lon: -118.9, AltBaro: 5400, Timestamp: 120})
	e.OnMatch(a, b)

	if sink.addCalls != 1 {
		t.Fatalf("expected AddLOS still called exactly once, got %d", sink.addCalls)
	}

	open := e.Snapshot()
	if len(open) != 1 {
		t.Fatalf("expected exactly one open LOS record, got %d", len(open))
	}
	rec := open[0]
	if rec.CreateTime != 100 || rec.LastTime != 120 {
		t.Fatalf("expected CreateTime=100 LastTime=120, got %v/%v", rec.CreateTime, rec.LastTime)
	}
	if rec.MinLocA.Timestamp != 110 || rec.MinLocB.Timestamp != 110 {
		t.Fatalf("expected the closest-approach locations to be t=110's, got %v/%v",
			rec.MinLocA.Timestamp, rec.MinLocB.Timestamp)
	}

	// GC before the 60s window elapses: nothing finalizes.
	e.GC(150)
	if len(e.Snapshot()) != 1 {
		t.Fatalf("expected the record to survive GC at t=150 (only 30s idle)")
	}

	// GC after 60s idle: finalizes, using t=110's minima, not t=120's separation.
	e.GC(200)
	if len(e.Snapshot()) != 0 {
		t.Fatalf("expected the record to be finalized and removed by t=200")
	}
	if sink.updateCalls != 1 {
		t.Fatalf("expected UpdateLOS called exactly once at finalization, got %d", sink.updateCalls)
	}
	if sink.lastUpdate.MinLocA.Timestamp != 110 {
		t.Fatalf("expected the finalized record's minima to reflect t=110, got ts=%v",
			sink.lastUpdate.MinLocA.Timestamp)
	}
}

func TestOnMatchCanonicalizesPairOrder(t *testing.T) {
	sink := &fakeSink{}
	e := NewEngine(sink, nil, 60, nil)

	a := mkFlight("N200", 40.0, -119.0, 5000, 100)
	b := mkFlight("N100", 40.0, -118.99, 5100, 100)
	e.OnMatch(a, b) // a.FlightID > b.FlightID, must still key the same as the reverse call

	a2 := mkFlight("N100", 40.0, -118.99, 5100, 105)
	b2 := mkFlight("N200", 40.0, -119.0, 5000, 105)
	e.OnMatch(a2, b2)

	if sink.addCalls != 1 {
		t.Fatalf("expected the reversed-order call to update the same record, got %d AddLOS calls", sink.addCalls)
	}
}

func TestGCLeavesFreshRecordsOpen(t *testing.T) {
	sink := &fakeSink{}
	e := NewEngine(sink, nil, 60, nil)

	a := mkFlight("N1", 40.0, -119.0, 5000, 100)
	b := mkFlight("N2", 40.0, -118.99, 5100, 100)
	e.OnMatch(a, b)

	e.GC(130)
	if len(e.Snapshot()) != 1 {
		t.Fatalf("expected a record only 30s idle to stay open")
	}
	if sink.updateCalls != 0 {
		t.Fatalf("expected no finalization yet, got %d UpdateLOS calls", sink.updateCalls)
	}
}

package resampler

import (
	"testing"

	"adsbactions/pkg/location"
)

func rawLoc(tail string, lat, lon float64, alt int, ts float64) location.Location {
	return location.Location{Tail: tail, Lat: lat, Lon: lon, AltBaro: alt, Timestamp: ts}
}

func TestInterpolationDensity(t *testing.T) {
	r := New(nil, nil)
	r.AddLocation(rawLoc("N1", 40.0, -119.0, 5000, 1000))
	r.AddLocation(rawLoc("N1", 40.01, -119.0, 5000, 1005))
	r.AddLocation(rawLoc("N1", 40.05, -119.0, 5000, 1040))

	count := 0
	r.ForEachResampledPoint(func(loc location.Location) { count++ })
	if count != 41 {
		t.Fatalf("expected 41 per-second entries across [1000,1040], got %d", count)
	}

	for sec := int64(1000); sec <= 1040; sec++ {
		if r.PerSecondCount(sec) != 1 {
			t.Fatalf("expected exactly 1 entry at t=%d, got %d", sec, r.PerSecondCount(sec))
		}
	}
}

func TestGapAboveThresholdStartsNewSequence(t *testing.T) {
	r := New(nil, nil)
	r.AddLocation(rawLoc("N1", 40.0, -119.0, 5000, 1000))
	r.AddLocation(rawLoc("N1", 40.1, -119.0, 5000, 1200)) // 200s gap, > 60s

	if r.sequenceCounter["N1"] != 2 {
		t.Fatalf("expected sequence to increment after a >60s gap, got %d", r.sequenceCounter["N1"])
	}
	// No points should be synthesized for the 1001-1199 range.
	for sec := int64(1001); sec < 1200; sec++ {
		if r.PerSecondCount(sec) != 0 {
			t.Fatalf("expected no synthesized points at t=%d after a large gap", sec)
		}
	}
}

func TestAltitudeFilter(t *testing.T) {
	r := New(nil, nil)
	r.AddLocation(rawLoc("N1", 40.0, -119.0, 1000, 1000)) // below MinAltitude
	if r.PerSecondCount(1000) != 0 {
		t.Fatalf("expected the out-of-band point to be skipped")
	}
}

func TestAntiTeleportFlagging(t *testing.T) {
	r := New(nil, nil)
	r.AddLocation(rawLoc("N1", 40.0, -119.0, 5000, 1000))
	// ~600nm in 10s implies a wildly implausible speed.
	r.AddLocation(rawLoc("N1", 50.0, -119.0, 5000, 1010))

	flagged := false
	r.ForEachResampledPoint(func(loc location.Location) {
		if loc.Timestamp == 1010 && loc.Suspicious {
			flagged = true
		}
	})
	if !flagged {
		t.Fatalf("expected the teleporting point to be marked suspicious")
	}
}

func TestNoInterpolationWithoutTail(t *testing.T) {
	r := New(nil, nil)
	r.AddLocation(location.Location{Lat: 40, Lon: -119, AltBaro: 5000, Timestamp: 1000})
	min, _, ok := r.TimeRange()
	if ok {
		t.Fatalf("a location with no tail must be skipped entirely, got data at t=%d", min)
	}
}

package flight

import (
	"testing"

	"adsbactions/pkg/location"
	"adsbactions/pkg/region"
)

func loc(alt int, ts float64) location.Location {
	return location.Location{Lat: 40.0, Lon: -119.0, AltBaro: alt, Timestamp: ts}
}

func TestUpdateLocPreservesCategory(t *testing.T) {
	f := New("N12345", "N12345", loc(1000, 0), 1)
	f.LastLoc.Category = location.Category{Squawk: "1200"}

	next := loc(1100, 10)
	f.UpdateLoc(next)

	if f.LastLoc.Category.Squawk != "1200" {
		t.Fatalf("expected carried-forward squawk, got %+v", f.LastLoc.Category)
	}
}

func TestUpdateLocReplacesNonEmptyCategory(t *testing.T) {
	f := New("N12345", "N12345", loc(1000, 0), 1)
	f.LastLoc.Category = location.Category{Squawk: "1200"}

	next := loc(1100, 10)
	next.Category = location.Category{Squawk: "7700"}
	f.UpdateLoc(next)

	if f.LastLoc.Category.Squawk != "7700" {
		t.Fatalf("expected new squawk to win, got %+v", f.LastLoc.Category)
	}
}

type nameLayer struct {
	name string
	ok   bool
}

func (l nameLayer) Contains(lat, lon, heading float64, altBaro int) (string, bool) {
	return l.name, l.ok
}

func TestUpdateInsideRegionsPrevValid(t *testing.T) {
	f := New("N1", "N1", loc(100, 0), 1)
	layers := []region.Layer{nameLayer{name: "Ground", ok: true}}

	f.UpdateInsideRegions(layers, f.LastLoc)
	if f.PrevValid {
		t.Fatalf("PrevValid should be false after the first update")
	}

	f.UpdateInsideRegions(layers, f.LastLoc)
	if !f.PrevValid {
		t.Fatalf("PrevValid should be true after the second update")
	}
}

func TestIsInRegionsEmptyMeansNoRegion(t *testing.T) {
	f := New("N1", "N1", loc(100, 0), 1)
	f.InsideRegions = []Membership{{}}

	if !f.IsInRegions(nil) {
		t.Fatalf("expected empty names list to match 'in no region'")
	}

	f.InsideRegions = []Membership{{Name: "Gate", Ok: true}}
	if f.IsInRegions(nil) {
		t.Fatalf("flight in a region should not match the empty-list condition")
	}
}

func TestTrackAlt(t *testing.T) {
	f := New("N1", "N1", loc(1000, 0), 1)
	for _, a := range []int{1000, 1000, 1000, 1000} {
		f.TrackAlt(a)
	}
	if got := f.TrackAlt(2000); got != 1 {
		t.Fatalf("expected +1 trend for climbing alt, got %d", got)
	}
	if got := f.TrackAlt(0); got != -1 {
		t.Fatalf("expected -1 trend for a sharp drop below the window mean, got %d", got)
	}
}

func TestUpdateLocPublishesAltTrend(t *testing.T) {
	f := New("N1", "N1", loc(1000, 0), 1)
	f.UpdateLoc(loc(2000, 10))

	if got := f.Flags["alt_trend"]; got != 1 {
		t.Fatalf("expected alt_trend flag 1 for a climb, got %v", got)
	}
}

func TestWasInRegions(t *testing.T) {
	f := New("N1", "N1", loc(100, 0), 1)
	layers := []region.Layer{nameLayer{name: "Ground", ok: true}}
	f.UpdateInsideRegions(layers, f.LastLoc)

	layers2 := []region.Layer{nameLayer{name: "Air", ok: true}}
	f.UpdateInsideRegions(layers2, f.LastLoc)

	if !f.WasInRegions([]string{"Ground"}) {
		t.Fatalf("expected previous membership to include Ground")
	}
	if !f.IsInRegions([]string{"Air"}) {
		t.Fatalf("expected current membership to include Air")
	}
}

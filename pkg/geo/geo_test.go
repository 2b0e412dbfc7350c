package geo

import (
	"math"
	"testing"
)

func TestDistanceNMIdenticalIsZero(t *testing.T) {
	p := Point{Lat: 40.7635, Lon: -119.2122}
	if d := DistanceNM(p, p); d != 0 {
		t.Errorf("expected 0, got %f", d)
	}
}

func TestDistanceNMSymmetric(t *testing.T) {
	a := Point{Lat: 40.0, Lon: -120.0}
	b := Point{Lat: 41.0, Lon: -119.0}
	if d1, d2 := DistanceNM(a, b), DistanceNM(b, a); math.Abs(d1-d2) > 1e-9 {
		t.Errorf("expected symmetric distance, got %f vs %f", d1, d2)
	}
}

func TestDistanceNMKnownValue(t *testing.T) {
	// Roughly 60nm per degree of latitude.
	a := Point{Lat: 40.0, Lon: -120.0}
	b := Point{Lat: 41.0, Lon: -120.0}
	d := DistanceNM(a, b)
	if d < 59 || d > 61 {
		t.Errorf("expected ~60nm, got %f", d)
	}
}

func TestUnwrapTrackDelta(t *testing.T) {
	tests := []struct {
		from, to, want float64
	}{
		{350, 10, 20},
		{10, 350, -20},
		{0, 180, 180},
		{90, 90, 0},
	}
	for _, tt := range tests {
		if got := UnwrapTrackDelta(tt.from, tt.to); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("UnwrapTrackDelta(%v, %v) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestBBoxAroundContainsCenter(t *testing.T) {
	center := Point{Lat: 37.5, Lon: -122.0}
	box := BBoxAround(center, 10)
	if !box.Contains(center) {
		t.Error("expected bbox to contain its own center")
	}
	far := Point{Lat: 37.5, Lon: 10.0}
	if box.Contains(far) {
		t.Error("expected bbox to reject a far-away point")
	}
}

func TestNormalizeDegrees(t *testing.T) {
	if got := NormalizeDegrees(-10); got != 350 {
		t.Errorf("expected 350, got %v", got)
	}
	if got := NormalizeDegrees(370); got != 10 {
		t.Errorf("expected 10, got %v", got)
	}
}

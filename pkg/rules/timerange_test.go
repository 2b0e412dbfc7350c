package rules

import "testing"

func TestParseTimeRangeWrap(t *testing.T) {
	tr, err := ParseTimeRange("2300-0100")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tr.Wraps {
		t.Fatalf("expected a wrapping window")
	}

	// 2026-01-01T23:30:00Z
	midnight := float64(1767310200)
	if !tr.Matches(midnight) {
		t.Fatalf("expected 23:30 UTC to fall within the wrapping window")
	}
}

func TestTimeRangeIdempotentAcrossDays(t *testing.T) {
	tr, err := ParseTimeRange("0900-1700")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ts := 1767268800.0 // 2026-01-01T12:00:00Z
	if tr.Matches(ts) != tr.Matches(ts+86400) {
		t.Fatalf("time_ranges match should be idempotent across a full day shift")
	}
}

func TestParseTimeRangeRejectsMalformed(t *testing.T) {
	if _, err := ParseTimeRange("930-1700"); err == nil {
		t.Fatalf("expected an error for a malformed window")
	}
	if _, err := ParseTimeRange("2500-1700"); err == nil {
		t.Fatalf("expected an error for an out-of-range hour")
	}
}

package rules

import (
	"fmt"
	"strconv"
	"time"
)

// ParseTimeRange parses one "HHMM-HHMM" window. A window whose end is
// before its start wraps past midnight (spec.md §3, §4.4).
func ParseTimeRange(s string) (TimeRange, error) {
	if len(s) != 9 || s[4] != '-' {
		return TimeRange{}, fmt.Errorf("rules: malformed time_ranges window %q", s)
	}
	start, err := parseHHMM(s[0:4])
	if err != nil {
		return TimeRange{}, fmt.Errorf("rules: malformed time_ranges window %q: %w", s, err)
	}
	end, err := parseHHMM(s[5:9])
	if err != nil {
		return TimeRange{}, fmt.Errorf("rules: malformed time_ranges window %q: %w", s, err)
	}
	return TimeRange{StartMin: start, EndMin: end, Wraps: end < start}, nil
}

func parseHHMM(s string) (int, error) {
	h, err := strconv.Atoi(s[0:2])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour %q", s[0:2])
	}
	m, err := strconv.Atoi(s[2:4])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute %q", s[2:4])
	}
	return h*60 + m, nil
}

// Matches reports whether the UTC minute-of-day for ts falls inside the
// window. Idempotent under a full-day shift: Matches(ts) == Matches(ts +
// 86400) for any ts, since only the minute-of-day is consulted.
func (w TimeRange) Matches(ts float64) bool {
	minuteOfDay := minuteOfDayUTC(ts)
	if !w.Wraps {
		return minuteOfDay >= w.StartMin && minuteOfDay <= w.EndMin
	}
	return minuteOfDay >= w.StartMin || minuteOfDay <= w.EndMin
}

func minuteOfDayUTC(ts float64) int {
	t := time.Unix(int64(ts), 0).UTC()
	return t.Hour()*60 + t.Minute()
}

// MatchesAny reports whether ts falls in any of the given windows. An
// empty window set never matches.
func MatchesAny(windows []TimeRange, ts float64) bool {
	for _, w := range windows {
		if w.Matches(ts) {
			return true
		}
	}
	return false
}

// Package stats holds the process-wide counters spec.md §2 and §5 call for:
// incremented from any thread, with no exactness requirement.
package stats

import "sync/atomic"

// Stats is a composed object passed explicitly to the ingest loop, the
// rule engine, and the LOS engine (spec.md §9 Design Notes), rather than a
// package-level singleton.
type Stats struct {
	PositionsIngested  atomic.Int64
	HeartbeatsIngested atomic.Int64
	MalformedLines     atomic.Int64
	FlightsDropped     atomic.Int64
	FlightsExpired     atomic.Int64

	RuleMatches       atomic.Int64
	CallbacksFired    atomic.Int64
	CallbackFailures  atomic.Int64
	UnknownConditions atomic.Int64
	UnknownActions    atomic.Int64

	ResamplerPointsAdded  atomic.Int64
	ResamplerPointsSynth  atomic.Int64
	ResamplerSkippedAlt   atomic.Int64
	ResamplerSkippedRegion atomic.Int64
	ResamplerSuspicious   atomic.Int64

	LOSEventsCreated    atomic.Int64
	LOSEventsUpdated    atomic.Int64
	LOSEventsFinalized  atomic.Int64
	LOSSinkFailures     atomic.Int64
}

// New returns a zeroed Stats instance.
func New() *Stats { return &Stats{} }

// Snapshot is a point-in-time, plain-value copy suitable for JSON
// serialization (the introspection API's /stats endpoint).
type Snapshot struct {
	PositionsIngested  int64 `json:"positions_ingested"`
	HeartbeatsIngested int64 `json:"heartbeats_ingested"`
	MalformedLines     int64 `json:"malformed_lines"`
	FlightsDropped     int64 `json:"flights_dropped"`
	FlightsExpired     int64 `json:"flights_expired"`

	RuleMatches       int64 `json:"rule_matches"`
	CallbacksFired    int64 `json:"callbacks_fired"`
	CallbackFailures  int64 `json:"callback_failures"`
	UnknownConditions int64 `json:"unknown_conditions"`
	UnknownActions    int64 `json:"unknown_actions"`

	ResamplerPointsAdded   int64 `json:"resampler_points_added"`
	ResamplerPointsSynth   int64 `json:"resampler_points_synthesized"`
	ResamplerSkippedAlt    int64 `json:"resampler_skipped_altitude"`
	ResamplerSkippedRegion int64 `json:"resampler_skipped_region"`
	ResamplerSuspicious    int64 `json:"resampler_suspicious"`

	LOSEventsCreated   int64 `json:"los_events_created"`
	LOSEventsUpdated   int64 `json:"los_events_updated"`
	LOSEventsFinalized int64 `json:"los_events_finalized"`
	LOSSinkFailures    int64 `json:"los_sink_failures"`
}

// Snapshot takes a consistent-enough read of every counter.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		PositionsIngested:      s.PositionsIngested.Load(),
		HeartbeatsIngested:     s.HeartbeatsIngested.Load(),
		MalformedLines:         s.MalformedLines.Load(),
		FlightsDropped:         s.FlightsDropped.Load(),
		FlightsExpired:         s.FlightsExpired.Load(),
		RuleMatches:            s.RuleMatches.Load(),
		CallbacksFired:         s.CallbacksFired.Load(),
		CallbackFailures:       s.CallbackFailures.Load(),
		UnknownConditions:      s.UnknownConditions.Load(),
		UnknownActions:         s.UnknownActions.Load(),
		ResamplerPointsAdded:   s.ResamplerPointsAdded.Load(),
		ResamplerPointsSynth:   s.ResamplerPointsSynth.Load(),
		ResamplerSkippedAlt:    s.ResamplerSkippedAlt.Load(),
		ResamplerSkippedRegion: s.ResamplerSkippedRegion.Load(),
		ResamplerSuspicious:    s.ResamplerSuspicious.Load(),
		LOSEventsCreated:       s.LOSEventsCreated.Load(),
		LOSEventsUpdated:       s.LOSEventsUpdated.Load(),
		LOSEventsFinalized:     s.LOSEventsFinalized.Load(),
		LOSSinkFailures:        s.LOSSinkFailures.Load(),
	}
}

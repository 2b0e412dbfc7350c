// Package resampler implements the per-second interpolated position
// history described in spec.md §4.6: raw samples are linearly interpolated
// into a continuous 1 Hz table, gaps beyond MaxInterpolateSecs start a new
// per-tail sequence, and an anti-teleport heuristic flags implausible
// jumps for downstream filtering.
package resampler

import (
	"math"
	"sort"
	"sync"

	"adsbactions/pkg/geo"
	"adsbactions/pkg/location"
	"adsbactions/pkg/region"
	"adsbactions/pkg/stats"
)

const (
	// MinAltitude/MaxAltitude bound the baro-altitude band the resampler
	// studies: the system exists to analyze terminal traffic, so clipping
	// to this band is a quality-preserving optimization, not a bug.
	MinAltitude = 3000
	MaxAltitude = 12000

	// MaxInterpolateSecs is the largest gap, in seconds, the resampler
	// will bridge with synthesized points before starting a new sequence
	// for the same tail.
	MaxInterpolateSecs = 60

	// MaxPlausibleSpeedKt is the anti-teleport ceiling: an implied speed
	// above this between two consecutive points for the same tail marks
	// the newer point (and any points interpolated in between) suspicious.
	MaxPlausibleSpeedKt = 600

	// MaxSpeedDeltaKt is the second anti-teleport heuristic: an absolute
	// change in implied speed between consecutive segments beyond this
	// also marks the point suspicious, even if the absolute speed itself
	// is plausible.
	MaxSpeedDeltaKt = 100
)

type trackState struct {
	raw        []location.Location
	lastSpeed  float64
	hasLastSpd bool
}

// Resampler holds per-flight raw history and a time-indexed table of raw
// plus synthesized points at 1 Hz (spec.md §3 ResamplerHistory).
type Resampler struct {
	mu sync.Mutex

	perFlight map[string]*trackState
	perSecond map[int64][]location.Location

	sequenceCounter map[string]int
	lastSeenTail    map[string]float64

	// regionLayers, if non-empty, gates every accepted point on being
	// inside at least one region of at least one layer — the resampler's
	// optional bbox pre-filter (spec.md §4.6).
	regionLayers []region.Layer

	stats *stats.Stats
}

// New returns an empty Resampler. layers may be nil to disable the region
// pre-filter.
func New(layers []region.Layer, st *stats.Stats) *Resampler {
	if st == nil {
		st = stats.New()
	}
	return &Resampler{
		perFlight:       make(map[string]*trackState),
		perSecond:       make(map[int64][]location.Location),
		sequenceCounter: make(map[string]int),
		lastSeenTail:    make(map[string]float64),
		regionLayers:    layers,
		stats:           st,
	}
}

// AddLocation ingests one raw position, synthesizing intermediate points
// when the gap since the same tail's last sample is small enough to
// bridge, and skipping the point entirely when it falls outside the
// resampler's altitude or region scope (spec.md §4.6).
func (r *Resampler) AddLocation(loc location.Location) {
	if loc.Tail == "" {
		return
	}
	if loc.AltBaro < MinAltitude || loc.AltBaro > MaxAltitude {
		r.stats.ResamplerSkippedAlt.Add(1)
		return
	}
	if len(r.regionLayers) > 0 && !r.insideAnyLayer(loc) {
		r.stats.ResamplerSkippedRegion.Add(1)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seq := r.sequenceFor(loc.Tail, loc.Timestamp)
	flightID := flightKey(loc.Tail, seq)

	ts := &trackState{}
	if existing, ok := r.perFlight[flightID]; ok {
		ts = existing
	} else {
		r.perFlight[flightID] = ts
	}

	if len(ts.raw) > 0 {
		prev := ts.raw[len(ts.raw)-1]
		gap := loc.Timestamp - prev.Timestamp
		if gap > 1 && gap <= MaxInterpolateSecs {
			r.synthesize(flightID, prev, loc, ts, gap)
		}
	}

	r.markSuspicious(ts, &loc)

	ts.raw = append(ts.raw, loc)
	r.appendPerSecond(int64(loc.Timestamp), loc)
	r.stats.ResamplerPointsAdded.Add(1)
}

func (r *Resampler) insideAnyLayer(loc location.Location) bool {
	for _, layer := range r.regionLayers {
		if layer == nil {
			continue
		}
		if _, ok := layer.Contains(loc.Lat, loc.Lon, loc.Track, loc.AltBaro); ok {
			return true
		}
	}
	return false
}

// sequenceFor assigns the tail's "{tail}_{N}" sequence number, starting a
// new sequence when the gap since last sight of this tail exceeds
// MaxInterpolateSecs.
func (r *Resampler) sequenceFor(tail string, now float64) int {
	seq, seen := r.sequenceCounter[tail]
	switch {
	case !seen:
		seq = 1
	case now-r.lastSeenTail[tail] > MaxInterpolateSecs:
		seq++
	}
	r.sequenceCounter[tail] = seq
	r.lastSeenTail[tail] = now
	return seq
}

func flightKey(tail string, seq int) string {
	return tail + "_" + itoa(seq)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// synthesize linearly interpolates one Location per integer second
// strictly between prev and next, appending each into perSecond only
// (never into the raw per-flight history) per spec.md §4.6.
func (r *Resampler) synthesize(flightID string, prev, next location.Location, ts *trackState, gap float64) {
	trackDelta := geo.UnwrapTrackDelta(prev.Track, next.Track)

	startSec := int64(math.Ceil(prev.Timestamp))
	if float64(startSec) == prev.Timestamp {
		startSec++
	}
	endSec := int64(math.Floor(next.Timestamp))

	for sec := startSec; sec < endSec; sec++ {
		frac := (float64(sec) - prev.Timestamp) / (next.Timestamp - prev.Timestamp)
		synth := location.Location{
			Lat:         lerp(prev.Lat, next.Lat, frac),
			Lon:         lerp(prev.Lon, next.Lon, frac),
			AltBaro:     int(lerp(float64(prev.AltBaro), float64(next.AltBaro), frac)),
			GroundSpeed: lerp(prev.GroundSpeed, next.GroundSpeed, frac),
			Track:       geo.NormalizeDegrees(prev.Track + trackDelta*frac),
			Timestamp:   float64(sec),
			Callsign:    next.Callsign,
			ICAOHex:     next.ICAOHex,
			Tail:        next.Tail,
			Category:    next.Category,
		}
		r.appendPerSecond(sec, synth)
		r.stats.ResamplerPointsSynth.Add(1)
	}
}

func lerp(a, b, frac float64) float64 { return a + (b-a)*frac }

// markSuspicious applies the two anti-teleport heuristics (spec.md §4.6):
// an implied speed above MaxPlausibleSpeedKt, or an absolute change in
// implied speed versus the previous segment above MaxSpeedDeltaKt.
func (r *Resampler) markSuspicious(ts *trackState, loc *location.Location) {
	if len(ts.raw) == 0 {
		return
	}
	prev := ts.raw[len(ts.raw)-1]
	dt := loc.Timestamp - prev.Timestamp
	if dt <= 0 {
		return
	}
	impliedSpeedKt := prev.DistanceNM(*loc) / (dt / 3600.0)

	suspicious := impliedSpeedKt > MaxPlausibleSpeedKt
	if ts.hasLastSpd && math.Abs(impliedSpeedKt-ts.lastSpeed) > MaxSpeedDeltaKt {
		suspicious = true
	}
	if suspicious {
		loc.Suspicious = true
		r.stats.ResamplerSuspicious.Add(1)
		r.flagSynthesizedSegment(loc.Tail, prev.Timestamp, loc.Timestamp)
	}

	ts.lastSpeed = impliedSpeedKt
	ts.hasLastSpd = true
}

// flagSynthesizedSegment propagates Suspicious to every synthesized point
// generated for tail in the (prevTs, nowTs) gap, using the same second
// range synthesize fills.
func (r *Resampler) flagSynthesizedSegment(tail string, prevTs, nowTs float64) {
	start := int64(math.Floor(prevTs)) + 1
	end := int64(math.Floor(nowTs))
	for sec := start; sec < end; sec++ {
		points := r.perSecond[sec]
		for i := range points {
			if points[i].Tail == tail {
				points[i].Suspicious = true
			}
		}
	}
}

func (r *Resampler) appendPerSecond(sec int64, loc location.Location) {
	r.perSecond[sec] = append(r.perSecond[sec], loc)
}

// ForEachResampledPoint iterates every per-second entry in timestamp
// order, yielding each Location (raw and synthesized alike).
func (r *Resampler) ForEachResampledPoint(fn func(loc location.Location)) {
	r.mu.Lock()
	secs := make([]int64, 0, len(r.perSecond))
	for sec := range r.perSecond {
		secs = append(secs, sec)
	}
	sort.Slice(secs, func(i, j int) bool { return secs[i] < secs[j] })
	// Copy out the points under the lock so fn can run without it held.
	snapshot := make([][]location.Location, len(secs))
	for i, sec := range secs {
		snapshot[i] = append([]location.Location(nil), r.perSecond[sec]...)
	}
	r.mu.Unlock()

	for _, points := range snapshot {
		for _, loc := range points {
			fn(loc)
		}
	}
}

// PerSecondCount returns the number of entries recorded at the given
// integer timestamp, for tests and diagnostics.
func (r *Resampler) PerSecondCount(sec int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.perSecond[sec])
}

// TimeRange returns the [min, max] integer timestamps present in
// perSecond, and false if the resampler has no data yet.
func (r *Resampler) TimeRange() (min, max int64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	first := true
	for sec := range r.perSecond {
		if first || sec < min {
			min = sec
		}
		if first || sec > max {
			max = sec
		}
		first = false
	}
	return min, max, !first
}

// Package proximity implements the LOS (loss-of-separation) engine:
// deduplicated event lifetimes keyed by flight-id pair, minimum-approach
// tracking, and GC-driven finalization (spec.md §4.7).
package proximity

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"adsbactions/pkg/flight"
	"adsbactions/pkg/location"
	"adsbactions/pkg/rules"
	"adsbactions/pkg/stats"
)

// DefaultGCTimeSecs is LOS_GC_TIME: how long a record may go without an
// update before it is finalized and removed (spec.md §3).
const DefaultGCTimeSecs = 60

// Key canonically identifies one LOS episode by its ordered flight-id
// pair, so detecting (A,B) or (B,A) first yields the same record.
type Key struct {
	A, B string
}

func keyFor(aID, bID string) Key {
	if aID <= bID {
		return Key{aID, bID}
	}
	return Key{bID, aID}
}

// Record is one currently-open (or just-finalized) LOS episode (spec.md
// §3). Locations are stored by value, not by Flight reference, so a
// finalized record outlives the transient Flight pointers the proximity
// pass passed in.
type Record struct {
	FlightA, FlightB string

	// FirstLocA/FirstLocB are the two aircrafts' positions at first
	// detection; MinLocA/MinLocB are deep copies taken whenever a new
	// minimum separation is observed, preserving the closest-approach
	// geometry even after later, less-close updates arrive.
	FirstLocA, FirstLocB location.Location
	MinLocA, MinLocB     location.Location

	LatDistNM float64
	AltDistFt float64

	MinLatDistNM float64
	MinAltDistFt float64

	CreateTime float64
	LastTime   float64

	// TrackHistorySecs is the shorter of the two aircrafts' own track
	// histories (time since each was first tracked) as of the episode's
	// creation, fixed at that point rather than recomputed at finalize
	// time since a long-lived episode shouldn't make a short-lived track
	// look more established than it was when the encounter began.
	TrackHistorySecs float64

	CategoryA, CategoryB string

	ExternalID interface{}
}

// Sink is the external collaborator that persists LOS episodes (spec.md
// §4.7, §6): a database writer, external API, or similar. The core only
// calls it; it never retries on failure (spec.md §7).
type Sink interface {
	AddLOS(rec *Record) (externalID interface{}, err error)
	UpdateLOS(rec *Record) error
}

// NopSink discards every call; it is the default when no sink is wired.
type NopSink struct{}

func (NopSink) AddLOS(rec *Record) (interface{}, error) { return nil, nil }
func (NopSink) UpdateLOS(rec *Record) error             { return nil }

// Engine owns the in-flight LOS record set and drives GC.
type Engine struct {
	mu      sync.Mutex
	current map[Key]*Record

	sink       Sink
	stats      *stats.Stats
	gcTimeSecs float64
	logger     *log.Logger

	quit chan struct{}
}

// NewEngine returns an Engine backed by sink (NopSink{} if nil).
func NewEngine(sink Sink, st *stats.Stats, gcTimeSecs float64, logger *log.Logger) *Engine {
	if sink == nil {
		sink = NopSink{}
	}
	if st == nil {
		st = stats.New()
	}
	if gcTimeSecs <= 0 {
		gcTimeSecs = DefaultGCTimeSecs
	}
	if logger == nil {
		logger = log.New(os.Stderr, "proximity: ", log.LstdFlags)
	}
	return &Engine{
		current:    make(map[Key]*Record),
		sink:       sink,
		stats:      st,
		gcTimeSecs: gcTimeSecs,
		logger:     logger,
		quit:       make(chan struct{}),
	}
}

// OnMatch is the proximity-rule callback (spec.md §4.7 step-by-step):
// canonicalize the pair, compute current separations, then either update
// an open record's minima or open a new one and dispatch it to the sink.
func (e *Engine) OnMatch(a, b *flight.Flight) {
	if a.FlightID > b.FlightID {
		a, b = b, a
	}
	now := a.LastLoc.Timestamp
	latDist := a.LastLoc.DistanceNM(b.LastLoc)
	altDist := absFloat(float64(a.LastLoc.AltBaro - b.LastLoc.AltBaro))
	key := keyFor(a.FlightID, b.FlightID)

	e.mu.Lock()
	rec, exists := e.current[key]
	if exists {
		e.updateLocked(rec, a, b, latDist, altDist, now)
		e.mu.Unlock()
		e.stats.LOSEventsUpdated.Add(1)
		return
	}

	rec = newRecord(a, b, latDist, altDist, now)
	e.current[key] = rec
	e.mu.Unlock()

	e.stats.LOSEventsCreated.Add(1)
	externalID, err := e.sink.AddLOS(rec)
	if err != nil {
		e.stats.LOSSinkFailures.Add(1)
		e.logger.Printf("sink AddLOS failed for %v: %v", key, err)
		return
	}
	e.mu.Lock()
	rec.ExternalID = externalID
	e.mu.Unlock()
}

func newRecord(a, b *flight.Flight, latDist, altDist, now float64) *Record {
	return &Record{
		FlightA: a.FlightID, FlightB: b.FlightID,
		FirstLocA: a.LastLoc, FirstLocB: b.LastLoc,
		MinLocA: a.LastLoc, MinLocB: b.LastLoc,
		LatDistNM: latDist, AltDistFt: altDist,
		MinLatDistNM: latDist, MinAltDistFt: altDist,
		CreateTime: now, LastTime: now,
		TrackHistorySecs: minTrackHistorySecs(a, b, now),
		CategoryA:        a.LastLoc.Category.EmitterCategory,
		CategoryB:        b.LastLoc.Category.EmitterCategory,
	}
}

// minTrackHistorySecs returns the shorter of how long each aircraft has
// been tracked (since its own FirstLoc) as of now.
func minTrackHistorySecs(a, b *flight.Flight, now float64) float64 {
	ah := now - a.FirstLoc.Timestamp
	bh := now - b.FirstLoc.Timestamp
	if ah < bh {
		return ah
	}
	return bh
}

// updateLocked must be called with e.mu held. It always overwrites
// LastTime; if either distance is a new minimum it tightens the minima and
// replaces the closest-approach locations with the current ones.
func (e *Engine) updateLocked(rec *Record, a, b *flight.Flight, latDist, altDist, now float64) {
	rec.LatDistNM = latDist
	rec.AltDistFt = altDist
	rec.LastTime = now

	if latDist < rec.MinLatDistNM || altDist < rec.MinAltDistFt {
		if latDist < rec.MinLatDistNM {
			rec.MinLatDistNM = latDist
		}
		if altDist < rec.MinAltDistFt {
			rec.MinAltDistFt = altDist
		}
		rec.MinLocA = a.LastLoc
		rec.MinLocB = b.LastLoc
	}
}

// GC walks a snapshot of the current event set and finalizes every record
// that has gone gcTimeSecs without an update: dispatch UpdateLOS with the
// final minima, log the postprocessing CSV line, and remove it (spec.md
// §4.7). Concurrent re-entry on the same key is not expected since a key
// missing mid-sweep is logged and skipped, not treated as an error that
// halts the sweep (spec.md §7).
func (e *Engine) GC(now float64) {
	e.mu.Lock()
	stale := make([]Key, 0)
	for k, rec := range e.current {
		if now-rec.LastTime > e.gcTimeSecs {
			stale = append(stale, k)
		}
	}
	e.mu.Unlock()

	for _, k := range stale {
		e.finalize(k)
	}
}

func (e *Engine) finalize(k Key) {
	e.mu.Lock()
	rec, ok := e.current[k]
	if ok {
		delete(e.current, k)
	}
	e.mu.Unlock()

	if !ok {
		e.logger.Printf("ERROR: LOS key %v missing at GC time (race with re-entry)", k)
		return
	}

	if err := e.sink.UpdateLOS(rec); err != nil {
		e.stats.LOSSinkFailures.Add(1)
		e.logger.Printf("sink UpdateLOS (finalize) failed for %v: %v", k, err)
	}
	e.stats.LOSEventsFinalized.Add(1)
	e.logFinalization(rec)
}

// logFinalization emits the grep-able CSV postprocessing line (spec.md
// §6, §9): a replay URL and the midpoint of the two closest-approach
// locations. The reserved notused/interp/audio/type/phase columns are
// literal placeholders per spec.md §9's Open Question.
func (e *Engine) logFinalization(rec *Record) {
	midLat := (rec.MinLocA.Lat + rec.MinLocB.Lat) / 2
	midLon := (rec.MinLocA.Lon + rec.MinLocB.Lon) / 2
	quality := rules.ClassifyQuality(rec.LastTime-rec.CreateTime, rec.TrackHistorySecs, rec.MinLatDistNM, rec.MinAltDistFt, rec.CategoryA, rec.CategoryB)
	replayURL := fmt.Sprintf("https://globe.airplanes.live/?icao=%s,%s&lat=%.4f&lon=%.4f&zoom=11",
		rec.FlightA, rec.FlightB, midLat, midLon)

	e.logger.Printf("CSV OUTPUT FOR POSTPROCESSING: %s,%s,%.1f,%.1f,%.1f,%.1f,%s,%s,%.6f,%.6f,notused,interp,audio,type,phase",
		rec.FlightA, rec.FlightB, rec.MinLatDistNM, rec.MinAltDistFt, rec.CreateTime, rec.LastTime,
		quality, replayURL, midLat, midLon)
}

// RunGCLoop runs GC on a fixed wall-clock interval until stopped, using
// time.Now for the "now" it passes to GC. This is the network-mode path
// (spec.md §4.7); the batch/resampler path instead calls GC directly from
// Resampler.DoProxChecks's gc callback, driven by ingested time.
func (e *Engine) RunGCLoop(delay time.Duration) {
	ticker := time.NewTicker(delay)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.GC(float64(time.Now().Unix()))
		case <-e.quit:
			return
		}
	}
}

// Stop signals RunGCLoop to exit.
func (e *Engine) Stop() { close(e.quit) }

// Snapshot returns the current open records, for the introspection API.
func (e *Engine) Snapshot() []*Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Record, 0, len(e.current))
	for _, rec := range e.current {
		out = append(out, rec)
	}
	return out
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

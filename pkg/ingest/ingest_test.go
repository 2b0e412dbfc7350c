package ingest

import (
	"strings"
	"testing"

	"adsbactions/pkg/flight"
	"adsbactions/pkg/ioformat"
	"adsbactions/pkg/registry"
	"adsbactions/pkg/stats"
)

type countingEngine struct {
	processed int
	expired   int
	proximity int
}

func (e *countingEngine) ProcessFlight(f *flight.Flight)    { e.processed++ }
func (e *countingEngine) DoExpire(f *flight.Flight)         { e.expired++ }
func (e *countingEngine) HandleProximityConditions(fs []*flight.Flight, now float64) {
	e.proximity++
}

func jsonlReader(lines ...string) *ioformat.LineReader {
	return ioformat.NewLineReader(strings.NewReader(strings.Join(lines, "\n") + "\n"))
}

func TestRunReplayFeedsPositionsAndCheckpoints(t *testing.T) {
	reg := registry.New(nil)
	engine := &countingEngine{}
	st := stats.New()
	r := NewRunner(reg, engine, st, nil)
	r.CheckpointIntervalSecs = 10
	gcCalls := 0
	r.GC = func(now float64) { gcCalls++ }

	src := jsonlReader(
		`{"hex":"a1b2c3","flight":"N1","lat":40.0,"lon":-119.0,"alt_baro":5000,"now":1000}`,
		`{"hex":"a1b2c3","flight":"N1","lat":40.01,"lon":-119.0,"alt_baro":5000,"now":1015}`,
		`{"flight":"N/A","now":1020}`,
	)

	if err := r.RunReplay(src); err != nil {
		t.Fatalf("RunReplay: %v", err)
	}

	if st.PositionsIngested.Load() != 2 {
		t.Fatalf("expected 2 positions ingested, got %d", st.PositionsIngested.Load())
	}
	if st.HeartbeatsIngested.Load() != 1 {
		t.Fatalf("expected 1 heartbeat ingested, got %d", st.HeartbeatsIngested.Load())
	}
	if engine.processed != 2 {
		t.Fatalf("expected ProcessFlight called twice, got %d", engine.processed)
	}
	// Checkpoint interval is 10s; the second position (t=1015) crosses it
	// from the first (t=1000), so exactly one checkpoint should have run,
	// and the heartbeat at t=1020 is too soon after it for a second.
	if engine.proximity != 1 {
		t.Fatalf("expected exactly 1 checkpoint's proximity pass, got %d", engine.proximity)
	}
	if gcCalls != 1 {
		t.Fatalf("expected the GC hook invoked once per checkpoint, got %d", gcCalls)
	}
}

func TestRunReplaySkipsMalformedLines(t *testing.T) {
	reg := registry.New(nil)
	engine := &countingEngine{}
	st := stats.New()
	r := NewRunner(reg, engine, st, nil)

	src := jsonlReader(
		`not json`,
		`{"hex":"a1b2c3","flight":"N1","lat":40.0,"lon":-119.0,"alt_baro":5000,"now":1000}`,
	)

	if err := r.RunReplay(src); err != nil {
		t.Fatalf("RunReplay: %v", err)
	}
	if st.MalformedLines.Load() != 1 {
		t.Fatalf("expected 1 malformed line counted, got %d", st.MalformedLines.Load())
	}
	if st.PositionsIngested.Load() != 1 {
		t.Fatalf("expected the well-formed line after it to still be ingested, got %d",
			st.PositionsIngested.Load())
	}
}

func TestConsumeDropsMessageWithNoUsableFlightID(t *testing.T) {
	reg := registry.New(nil)
	engine := &countingEngine{}
	st := stats.New()
	r := NewRunner(reg, engine, st, nil)

	r.consume(map[string]interface{}{"lat": 40.0, "lon": -119.0, "now": 1000.0})

	if st.FlightsDropped.Load() != 1 {
		t.Fatalf("expected the id-less message to be dropped, got %d drops", st.FlightsDropped.Load())
	}
	if reg.Len() != 0 {
		t.Fatalf("expected nothing added to the registry, got %d flights", reg.Len())
	}
}

func TestCheckpointNotRunOnFirstMessage(t *testing.T) {
	reg := registry.New(nil)
	engine := &countingEngine{}
	st := stats.New()
	r := NewRunner(reg, engine, st, nil)
	r.CheckpointIntervalSecs = 10

	r.consume(map[string]interface{}{
		"hex": "a1b2c3", "flight": "N1", "lat": 40.0, "lon": -119.0, "alt_baro": 5000.0, "now": 1000.0,
	})

	if engine.proximity != 0 {
		t.Fatalf("expected no checkpoint on the very first ingested message, got %d", engine.proximity)
	}
}

func TestForceCheckpointRunsImmediately(t *testing.T) {
	reg := registry.New(nil)
	engine := &countingEngine{}
	st := stats.New()
	r := NewRunner(reg, engine, st, nil)
	r.CheckpointIntervalSecs = 1000

	if r.ForceCheckpoint() {
		t.Fatal("expected ForceCheckpoint to no-op before any message sets the time baseline")
	}

	r.consume(map[string]interface{}{
		"hex": "a1b2c3", "flight": "N1", "lat": 40.0, "lon": -119.0, "alt_baro": 5000.0, "now": 1000.0,
	})
	if engine.proximity != 0 {
		t.Fatalf("expected no automatic checkpoint yet, got %d", engine.proximity)
	}

	if !r.ForceCheckpoint() {
		t.Fatal("expected ForceCheckpoint to run once the baseline is set")
	}
	if engine.proximity != 1 {
		t.Fatalf("expected the forced checkpoint to run the proximity pass, got %d", engine.proximity)
	}
}

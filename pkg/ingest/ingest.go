// Package ingest implements the outer loop spec.md §4.8 describes: decode
// one line at a time from either a live network feed or a replay file,
// feed each position into the FlightRegistry, and checkpoint
// (expire stale flights, run the proximity pass, sweep LOS GC) on
// ingested-time intervals rather than wall clock, so replay reproduces a
// live run bit-for-bit.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"time"

	"adsbactions/pkg/ioformat"
	"adsbactions/pkg/location"
	"adsbactions/pkg/registry"
	"adsbactions/pkg/stats"
)

// DefaultCheckpointIntervalSecs is CHECKPOINT_INTERVAL (spec.md §4.8) for
// batch/replay runs: how much ingested time must pass between
// expiry/proximity sweeps. Network-mode callers should configure 5s
// instead (pkg/config seeds this mode-appropriately); a Runner built
// directly, without going through config, gets the batch value.
const DefaultCheckpointIntervalSecs = 10

// DefaultExpireSecs is EXPIRE_SECS (spec.md §3): how long a flight may go
// without an update before ExpireOld removes it and fires its
// expire_callback actions. 180s debounces a poor-signal aircraft's dropped
// updates without holding a truly-gone flight open indefinitely.
const DefaultExpireSecs = 180

// DefaultReconnectDelay is how long the network loop sleeps before
// redialing after a read error (spec.md §7).
const DefaultReconnectDelay = 2 * time.Second

// RuleEngine is the subset of rules.Engine the registry itself already
// declares; ingest only ever hands it to the registry, never calls it
// directly.
type RuleEngine = registry.RuleEngine

// GCFunc sweeps any out-of-band state (the LOS engine's Engine.GC) driven
// by the same ingested-time clock as checkpointing.
type GCFunc func(now float64)

// Runner drives a Registry through a stream of decoded positions,
// checkpointing on ingested time.
type Runner struct {
	Registry *registry.Registry
	Engine   RuleEngine
	Stats    *stats.Stats
	Logger   *log.Logger

	CheckpointIntervalSecs float64
	ExpireSecs             float64

	// ReconnectDelay is how long RunNetwork sleeps before redialing after
	// a dial or read failure. Zero means DefaultReconnectDelay.
	ReconnectDelay time.Duration

	// GC is called at every checkpoint, after ExpireOld/CheckDistance, so
	// callers can wire proximity.Engine.GC without ingest importing the
	// proximity package (spec.md's layering: ingest only knows Registry
	// and RuleEngine).
	GC GCFunc

	lastCheckpoint float64
	haveCheckpoint bool
}

// NewRunner returns a Runner with spec.md's default intervals; callers
// may override CheckpointIntervalSecs/ExpireSecs/GC before use.
func NewRunner(reg *registry.Registry, engine RuleEngine, st *stats.Stats, logger *log.Logger) *Runner {
	if st == nil {
		st = stats.New()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Registry:               reg,
		Engine:                 engine,
		Stats:                  st,
		Logger:                 logger,
		CheckpointIntervalSecs: DefaultCheckpointIntervalSecs,
		ExpireSecs:             DefaultExpireSecs,
	}
}

// consume handles one decoded message: a heartbeat only advances the
// checkpoint clock, a message with no usable flight id is counted as
// dropped, and anything else is parsed into a Location and fed to the
// registry (spec.md §4.8, §7). Malformed lines never reach consume; the
// read loops log and skip them.
func (r *Runner) consume(raw map[string]interface{}) {
	loc := location.FromRaw(raw)
	if loc.IsHeartbeat() {
		r.Stats.HeartbeatsIngested.Add(1)
		r.maybeCheckpoint(loc.Timestamp)
		return
	}

	now, ok := r.Registry.AddLocation(loc, r.Engine)
	if !ok {
		r.Stats.FlightsDropped.Add(1)
		return
	}
	r.Stats.PositionsIngested.Add(1)
	r.maybeCheckpoint(now)
}

// ForceCheckpoint runs a checkpoint immediately at the last ingested
// timestamp, for an operator-triggered sweep outside the normal interval
// (the api package's admin subset). It is a no-op before the first
// message has set the time baseline.
func (r *Runner) ForceCheckpoint() bool {
	if !r.haveCheckpoint {
		return false
	}
	r.checkpoint(r.lastCheckpoint)
	return true
}

func (r *Runner) maybeCheckpoint(now float64) {
	if !r.haveCheckpoint {
		r.lastCheckpoint = now
		r.haveCheckpoint = true
		return
	}
	if now-r.lastCheckpoint < r.CheckpointIntervalSecs {
		return
	}
	r.lastCheckpoint = now
	r.checkpoint(now)
}

func (r *Runner) checkpoint(now float64) {
	r.Registry.ExpireOld(r.Engine, now, r.ExpireSecs)
	r.Registry.CheckDistance(r.Engine, now)
	if r.GC != nil {
		r.GC(now)
	}
}

// RunReplay drains src to completion, treating io.EOF as a clean finish.
// Every error other than EOF or a malformed line ends the replay and is
// returned wrapped to the caller (spec.md §7: malformed lines are the one kind of
// per-message error that doesn't abort the stream).
func (r *Runner) RunReplay(src *ioformat.LineReader) error {
	for {
		raw, err := src.Next()
		if err != nil {
			var malformed *ioformat.MalformedLineError
			if errors.As(err, &malformed) {
				r.Stats.MalformedLines.Add(1)
				r.Logger.Printf("malformed replay line: %v", malformed)
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("replay read: %w", err)
		}
		r.consume(raw)
	}
}

// Dialer opens the live network feed. Production wiring is a plain TCP
// dial; tests substitute an in-memory net.Pipe or similar.
type Dialer func() (net.Conn, error)

// RunNetwork connects via dial and processes lines until ctx is
// cancelled, reconnecting after ReconnectDelay (DefaultReconnectDelay when
// unset) on any dial or read error
// (spec.md §7: "Connection drop: sleep 2s, reconnect, resume processing").
// A malformed line never triggers a reconnect; only a genuine read/EOF
// failure on the connection does.
func (r *Runner) RunNetwork(ctx context.Context, dial Dialer) error {
	delay := r.ReconnectDelay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := dial()
		if err != nil {
			r.Logger.Printf("dial failed: %v, retrying in %s", err, delay)
			if !sleepOrDone(ctx, delay) {
				return ctx.Err()
			}
			continue
		}

		err = r.readConn(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			r.Logger.Printf("connection lost: %v, reconnecting in %s", err, delay)
		}
		if !sleepOrDone(ctx, delay) {
			return ctx.Err()
		}
	}
}

func (r *Runner) readConn(ctx context.Context, conn net.Conn) error {
	lr := ioformat.NewLineReader(conn)

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	go func() {
		<-watchCtx.Done()
		if ctx.Err() != nil {
			conn.Close()
		}
	}()

	for {
		raw, err := lr.Next()
		if err != nil {
			var malformed *ioformat.MalformedLineError
			if errors.As(err, &malformed) {
				r.Stats.MalformedLines.Add(1)
				r.Logger.Printf("malformed line: %v", malformed)
				continue
			}
			return err
		}
		r.consume(raw)
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Command replay drives the ingest pipeline from a gzip sorted-JSONL
// recording instead of a live feed, reproducing a past run bit-for-bit
// since checkpointing is driven by ingested time, not wall clock
// (spec.md §4.8, §6).
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"adsbactions/internal/bootstrap"
	"adsbactions/pkg/config"
	"adsbactions/pkg/ingest"
	"adsbactions/pkg/ioformat"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "path to configuration file")
	replayPath := flag.String("replay", "", "gzip sorted-JSONL recording to replay (overrides ingest.replay_path)")
	flag.Parse()

	logger := log.New(os.Stderr, "replay: ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *replayPath != "" {
		cfg.Ingest.ReplayPath = *replayPath
	}
	if cfg.Ingest.ReplayPath == "" {
		logger.Fatal("ingest.replay_path must be set for replay mode")
	}

	rt, err := bootstrap.Build(cfg, logger)
	if err != nil {
		logger.Fatalf("bootstrap: %v", err)
	}
	defer rt.Close()

	src, closer, err := ioformat.OpenGzipSortedJSONL(cfg.Ingest.ReplayPath)
	if err != nil {
		logger.Fatalf("open replay file: %v", err)
	}
	defer closer.Close()

	runner := ingest.NewRunner(rt.Registry, rt.Rules, rt.Stats, logger)
	if cfg.Ingest.CheckpointIntervalSecs > 0 {
		runner.CheckpointIntervalSecs = cfg.Ingest.CheckpointIntervalSecs
	}
	if cfg.Ingest.ExpireSecs > 0 {
		runner.ExpireSecs = cfg.Ingest.ExpireSecs
	}
	runner.GC = rt.Proximity.GC

	start := time.Now()
	if err := runner.RunReplay(src); err != nil {
		logger.Fatalf("replay: %v", err)
	}
	rt.Proximity.GC(replayFinalTime(rt))

	snap := rt.Stats.Snapshot()
	logger.Printf("replay finished in %s: %d positions, %d heartbeats, %d malformed lines, %d flights dropped",
		time.Since(start), snap.PositionsIngested, snap.HeartbeatsIngested, snap.MalformedLines, snap.FlightsDropped)
	logger.Printf("rule matches=%d callbacks_fired=%d los_created=%d los_finalized=%d",
		snap.RuleMatches, snap.CallbacksFired, snap.LOSEventsCreated, snap.LOSEventsFinalized)
}

// replayFinalTime forces every still-open LOS record closed by GC-ing far
// enough past the last ingested timestamp; the registry has no flights
// left expired mid-replay whose timestamp we could otherwise reuse.
func replayFinalTime(rt *bootstrap.Runtime) float64 {
	var maxTs float64
	for _, f := range rt.Registry.Snapshot() {
		if f.LastLoc.Timestamp > maxTs {
			maxTs = f.LastLoc.Timestamp
		}
	}
	return maxTs + 1e9
}

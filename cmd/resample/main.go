// Command resample runs the batch post-hoc pipeline (spec.md §4.6): feed a
// recording through the per-second resampler, then sweep the resulting
// interpolated history through the rule engine's proximity pass to detect
// losses of separation that a live run's coarser sampling might have
// missed between position reports.
package main

import (
	"errors"
	"flag"
	"io"
	"log"
	"os"

	"adsbactions/internal/bootstrap"
	"adsbactions/pkg/config"
	"adsbactions/pkg/ioformat"
	"adsbactions/pkg/location"
	"adsbactions/pkg/resampler"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "path to configuration file")
	inputPath := flag.String("input", "", "gzip sorted-JSONL recording to resample (overrides ingest.replay_path)")
	sampleInterval := flag.Int("interval", 0, "resample interval in seconds (overrides resampler.sample_interval_secs)")
	flag.Parse()

	logger := log.New(os.Stderr, "resample: ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *inputPath != "" {
		cfg.Ingest.ReplayPath = *inputPath
	}
	if cfg.Ingest.ReplayPath == "" {
		logger.Fatal("ingest.replay_path (or -input) must name a recording to resample")
	}
	interval := cfg.Resampler.SampleIntervalSecs
	if *sampleInterval > 0 {
		interval = *sampleInterval
	}

	rt, err := bootstrap.Build(cfg, logger)
	if err != nil {
		logger.Fatalf("bootstrap: %v", err)
	}
	defer rt.Close()

	src, closer, err := ioformat.OpenGzipSortedJSONL(cfg.Ingest.ReplayPath)
	if err != nil {
		logger.Fatalf("open recording: %v", err)
	}
	defer closer.Close()

	rs := resampler.New(rt.Layers, rt.Stats)
	if err := feedResampler(rs, src); err != nil {
		logger.Fatalf("resample: %v", err)
	}

	minTs, maxTs, ok := rs.TimeRange()
	if !ok {
		logger.Println("no positions found in recording; nothing to analyze")
		return
	}
	logger.Printf("resampled time range [%d, %d] at %ds intervals", minTs, maxTs, interval)

	rs.DoProxChecks(rt.Rules, rt.Layers, interval, rt.Proximity.GC)
	rt.Proximity.GC(float64(maxTs) + 1e9)

	snap := rt.Stats.Snapshot()
	logger.Printf("resample points added=%d synthesized=%d skipped_altitude=%d skipped_region=%d suspicious=%d",
		snap.ResamplerPointsAdded, snap.ResamplerPointsSynth, snap.ResamplerSkippedAlt,
		snap.ResamplerSkippedRegion, snap.ResamplerSuspicious)
	logger.Printf("rule matches=%d los_created=%d los_finalized=%d",
		snap.RuleMatches, snap.LOSEventsCreated, snap.LOSEventsFinalized)
}

func feedResampler(rs *resampler.Resampler, src *ioformat.LineReader) error {
	for {
		raw, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			var malformed *ioformat.MalformedLineError
			if errors.As(err, &malformed) {
				log.Printf("resample: malformed line: %v", malformed)
				continue
			}
			return err
		}
		loc := location.FromRaw(raw)
		if loc.IsHeartbeat() {
			continue
		}
		rs.AddLocation(loc)
	}
}

// Package bootstrap wires the shared pipeline (region layers, rule engine,
// registry, proximity engine, optional Postgres sink) the three
// entrypoints (network ingest, replay, batch resample) all assemble the
// same way, so each cmd/ main stays a thin driver over a common core.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"adsbactions/pkg/callbacks"
	"adsbactions/pkg/config"
	"adsbactions/pkg/ioformat"
	"adsbactions/pkg/proximity"
	"adsbactions/pkg/region"
	"adsbactions/pkg/registry"
	"adsbactions/pkg/rules"
	"adsbactions/pkg/stats"
	"adsbactions/pkg/webhooks"
	"adsbactions/store/postgres"
)

// Runtime bundles the collaborators a cmd/ main drives directly.
type Runtime struct {
	Stats     *stats.Stats
	Layers    []region.Layer
	Registry  *registry.Registry
	Rules     *rules.Engine
	Proximity *proximity.Engine
	Store     *postgres.Store // nil when cfg.Store.DSN is empty
	Logger    *log.Logger
}

// Build loads the rule configuration named by cfg, wires the proximity
// engine's OnMatch in as the "los_check" callback every `proximity` rule's
// action references, and opens the optional Postgres sink.
func Build(cfg *config.Config, logger *log.Logger) (*Runtime, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "adsbactions: ", log.LstdFlags)
	}
	st := stats.New()

	loaded, err := rules.Load(cfg.Rules.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load rules: %w", err)
	}

	layers, err := region.LoadLayers(loaded.RegionLayerPaths)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load region layers: %w", err)
	}

	var store *postgres.Store
	var sink proximity.Sink = proximity.NopSink{}
	if cfg.Store.DSN != "" {
		store, err = postgres.Connect(cfg.Store.DSN, cfg.Store.MaxOpenConns, cfg.Store.MaxIdleConns)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: connect store: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = store.InitSchema(ctx)
		cancel()
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("bootstrap: init schema: %w", err)
		}
		sink = store
	}

	proxEngine := proximity.NewEngine(sink, st, cfg.Ingest.LOSGCSecs, logger)

	callbackRegistry := callbacks.New()
	callbackRegistry.RegisterPair("los_check", proxEngine.OnMatch)

	engine := rules.NewEngine(rules.Config{
		Rules:           loaded.Rules,
		AircraftLists:   loaded.AircraftLists,
		UseSpatialGrid:  true,
		GridCellDegrees: rules.DefaultGridCellDegrees,
		Callbacks:       callbackRegistry,
		Webhooks:        webhooks.New(),
		Stats:           st,
		Sink:            ioformat.NewJSONLSink(),
		Logger:          logger,
	})

	reg := registry.New(layers)

	return &Runtime{
		Stats:     st,
		Layers:    layers,
		Registry:  reg,
		Rules:     engine,
		Proximity: proxEngine,
		Store:     store,
		Logger:    logger,
	}, nil
}

// Close releases the Store, if one was opened.
func (rt *Runtime) Close() error {
	if rt.Store == nil {
		return nil
	}
	return rt.Store.Close()
}

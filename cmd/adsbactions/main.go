// Command adsbactions runs the live network ingest loop: dial a
// line-delimited JSON ADS-B feed, track flights, evaluate rules, detect
// losses of separation, and optionally serve an introspection API
// (spec.md §4.8, §9).
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adsbactions/api"
	"adsbactions/internal/bootstrap"
	"adsbactions/pkg/config"
	"adsbactions/pkg/ingest"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "path to configuration file")
	flag.Parse()

	logger := log.New(os.Stderr, "adsbactions: ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if cfg.Ingest.NetworkAddr == "" {
		logger.Fatal("ingest.network_addr must be set for network mode")
	}

	rt, err := bootstrap.Build(cfg, logger)
	if err != nil {
		logger.Fatalf("bootstrap: %v", err)
	}
	defer rt.Close()

	go rt.Proximity.RunGCLoop(time.Duration(cfg.Ingest.LOSGCSecs) * time.Second)
	defer rt.Proximity.Stop()

	runner := ingest.NewRunner(rt.Registry, rt.Rules, rt.Stats, logger)
	if cfg.Ingest.CheckpointIntervalSecs > 0 {
		runner.CheckpointIntervalSecs = cfg.Ingest.CheckpointIntervalSecs
	}
	if cfg.Ingest.ExpireSecs > 0 {
		runner.ExpireSecs = cfg.Ingest.ExpireSecs
	}
	runner.GC = rt.Proximity.GC
	if cfg.Ingest.ReconnectDelaySecs > 0 {
		runner.ReconnectDelay = time.Duration(cfg.Ingest.ReconnectDelaySecs * float64(time.Second))
	}

	ctx, cancel := context.WithCancel(context.Background())

	if cfg.API.Host != "" {
		apiServer := newAPIServer(cfg, rt, runner)
		go func() {
			addr := cfg.API.Host + ":" + cfg.API.Port
			if err := apiServer.Run(ctx, addr); err != nil {
				logger.Printf("api server: %v", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)
	go func() {
		done <- runner.RunNetwork(ctx, dialer(cfg.Ingest.NetworkAddr))
	}()

	select {
	case <-sigCh:
		logger.Println("shutting down...")
		cancel()
		<-done
	case err := <-done:
		if err != nil {
			logger.Printf("ingest loop exited: %v", err)
		}
		cancel()
	}
}

func dialer(addr string) ingest.Dialer {
	return func() (net.Conn, error) {
		return net.DialTimeout("tcp", addr, 10*time.Second)
	}
}

func newAPIServer(cfg *config.Config, rt *bootstrap.Runtime, runner *ingest.Runner) *api.Server {
	var auth *api.AuthService
	if cfg.API.JWTSecret != "" {
		auth = api.NewAuthService(api.AuthConfig{
			JWTSecret:         cfg.API.JWTSecret,
			AdminPasswordHash: cfg.API.AdminPasswordHash,
		})
	}
	return api.NewServer(api.Deps{
		Registry:  rt.Registry,
		Stats:     rt.Stats,
		Proximity: rt.Proximity,
		Rules:     rt.Rules,
		Checkpoint: func() {
			runner.ForceCheckpoint()
		},
	}, auth, rt.Logger)
}

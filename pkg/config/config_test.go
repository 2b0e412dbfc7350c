package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Ingest.Mode != "replay" {
		t.Errorf("expected default ingest mode replay, got %s", cfg.Ingest.Mode)
	}
	if cfg.Ingest.CheckpointIntervalSecs != 10 {
		t.Errorf("expected default batch checkpoint interval 10, got %v", cfg.Ingest.CheckpointIntervalSecs)
	}
	if cfg.Ingest.ExpireSecs != 180 {
		t.Errorf("expected default expire secs 180, got %v", cfg.Ingest.ExpireSecs)
	}
	if cfg.Ingest.LOSGCSecs != 60 {
		t.Errorf("expected default LOS GC secs 60, got %v", cfg.Ingest.LOSGCSecs)
	}
	if cfg.Resampler.SampleIntervalSecs != 1 {
		t.Errorf("expected default sample interval 1, got %d", cfg.Resampler.SampleIntervalSecs)
	}
	if cfg.Store.DSN != "" {
		t.Errorf("expected no store DSN by default, got %q", cfg.Store.DSN)
	}
	if cfg.API.Port != "8090" {
		t.Errorf("expected default API port 8090, got %s", cfg.API.Port)
	}
}

func TestLoadNonExistentFileReturnsDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.json")
	if err != nil {
		t.Fatalf("expected no error for a missing file, got: %v", err)
	}
	if cfg.Ingest.Mode != "replay" {
		t.Errorf("expected default config for a missing file, got mode %s", cfg.Ingest.Mode)
	}
}

func TestLoadValidConfigOverlaysDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	// Only override ingest settings; the rest should fall back to the
	// defaults already present on the struct json.Unmarshal decodes into.
	partial := `{"ingest": {"mode": "network", "network_addr": "127.0.0.1:30003"}}`
	if err := os.WriteFile(configPath, []byte(partial), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ingest.Mode != "network" {
		t.Errorf("expected overridden mode network, got %s", cfg.Ingest.Mode)
	}
	if cfg.Ingest.NetworkAddr != "127.0.0.1:30003" {
		t.Errorf("expected overridden network addr, got %s", cfg.Ingest.NetworkAddr)
	}
	if cfg.API.Port != "8090" {
		t.Errorf("expected the untouched API port to keep its default, got %s", cfg.API.Port)
	}
	if cfg.Ingest.CheckpointIntervalSecs != 5 {
		t.Errorf("expected network mode to seed the 5s checkpoint interval, got %v", cfg.Ingest.CheckpointIntervalSecs)
	}
}

func TestLoadExplicitCheckpointIntervalOverridesModeDefault(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	explicit := `{"ingest": {"mode": "network", "checkpoint_interval_secs": 42}}`
	if err := os.WriteFile(configPath, []byte(explicit), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ingest.CheckpointIntervalSecs != 42 {
		t.Errorf("expected the explicit checkpoint interval to win over the mode default, got %v", cfg.Ingest.CheckpointIntervalSecs)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.json")
	if err := os.WriteFile(configPath, []byte("{ not json"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
	if !strings.Contains(err.Error(), "parse") {
		t.Errorf("expected a parse error, got: %v", err)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "dir", "config.json")

	cfg := DefaultConfig()
	cfg.Ingest.Mode = "network"
	cfg.Ingest.NetworkAddr = "adsb.example.com:30003"
	cfg.Store.DSN = "postgres://user@localhost/adsbactions"

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("expected the config file to exist: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Ingest.NetworkAddr != cfg.Ingest.NetworkAddr {
		t.Errorf("expected network addr to round-trip, got %s", loaded.Ingest.NetworkAddr)
	}
	if loaded.Store.DSN != cfg.Store.DSN {
		t.Errorf("expected store DSN to round-trip, got %s", loaded.Store.DSN)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	os.Setenv("ADSBACTIONS_NETWORK_ADDR", "env-host:30003")
	os.Setenv("ADSBACTIONS_STORE_DSN", "postgres://env-dsn")
	os.Setenv("ADSBACTIONS_API_PORT", "9999")
	os.Setenv("ADSBACTIONS_JWT_SECRET", "env-secret")
	defer func() {
		os.Unsetenv("ADSBACTIONS_NETWORK_ADDR")
		os.Unsetenv("ADSBACTIONS_STORE_DSN")
		os.Unsetenv("ADSBACTIONS_API_PORT")
		os.Unsetenv("ADSBACTIONS_JWT_SECRET")
	}()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	data, _ := json.Marshal(DefaultConfig())
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ingest.NetworkAddr != "env-host:30003" {
		t.Errorf("expected network addr from env, got %s", cfg.Ingest.NetworkAddr)
	}
	if cfg.Store.DSN != "postgres://env-dsn" {
		t.Errorf("expected store DSN from env, got %s", cfg.Store.DSN)
	}
	if cfg.API.Port != "9999" {
		t.Errorf("expected API port from env, got %s", cfg.API.Port)
	}
	if cfg.API.JWTSecret != "env-secret" {
		t.Errorf("expected JWT secret from env, got %s", cfg.API.JWTSecret)
	}
}

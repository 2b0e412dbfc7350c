// Package config implements the runtime configuration file format
// (spec.md §9): JSON on disk, sensible defaults when the file is absent,
// and a handful of environment-variable overrides for secrets that don't
// belong checked into a config file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultNetworkCheckpointIntervalSecs and DefaultBatchCheckpointIntervalSecs
// are CHECKPOINT_INTERVAL (spec.md §4.8) for each ingest mode: a live
// network feed sweeps more often than a bulk replay/resample pass.
const (
	DefaultNetworkCheckpointIntervalSecs = 5
	DefaultBatchCheckpointIntervalSecs   = 10
)

// DefaultExpireSecs is EXPIRE_SECS (spec.md §3): long enough to debounce a
// poor-signal aircraft's dropped updates without holding a truly-gone
// flight open indefinitely.
const DefaultExpireSecs = 180

// Config is the complete runtime configuration for one adsbactions
// process (ingest, resampler, optional store, optional introspection
// API). The rule set itself is a separate file, parsed by
// rules.Load — Rules.ConfigPath just points at it.
type Config struct {
	Ingest    IngestConfig    `json:"ingest"`
	Rules     RulesConfig     `json:"rules"`
	Resampler ResamplerConfig `json:"resampler"`
	Store     StoreConfig     `json:"store"`
	API       APIConfig       `json:"api"`
}

// IngestConfig selects and parameterizes the ingest loop (pkg/ingest).
type IngestConfig struct {
	// Mode is "network" or "replay".
	Mode string `json:"mode"`

	// NetworkAddr is the host:port to dial in network mode.
	NetworkAddr string `json:"network_addr"`

	// ReplayPath is the gzip sorted-JSONL file to read in replay mode.
	ReplayPath string `json:"replay_path"`

	// CheckpointIntervalSecs is CHECKPOINT_INTERVAL, in ingested seconds.
	CheckpointIntervalSecs float64 `json:"checkpoint_interval_secs"`

	// ExpireSecs is how long a flight may go unseen before it expires.
	ExpireSecs float64 `json:"expire_secs"`

	// ReconnectDelaySecs is how long the network loop sleeps before
	// redialing after a connection error.
	ReconnectDelaySecs float64 `json:"reconnect_delay_secs"`

	// LOSGCSecs is LOS_GC_TIME: how long a LOS record may go without an
	// update before it is finalized.
	LOSGCSecs float64 `json:"los_gc_secs"`
}

// RulesConfig points at the rule-configuration YAML file (rules.Load).
type RulesConfig struct {
	ConfigPath string `json:"config_path"`
}

// ResamplerConfig parameterizes the batch resample + proximity sweep
// entrypoint (cmd/resample).
type ResamplerConfig struct {
	SampleIntervalSecs int `json:"sample_interval_secs"`
}

// StoreConfig holds the optional Postgres LOS-event sink's connection
// settings (store/postgres). Empty DSN means no sink is wired.
type StoreConfig struct {
	DSN          string `json:"dsn"`
	MaxOpenConns int    `json:"max_open_conns"`
	MaxIdleConns int    `json:"max_idle_conns"`
}

// APIConfig holds the optional chi-based introspection server's settings
// (api package). Empty Host means the API is not started.
type APIConfig struct {
	Host string `json:"host"`
	Port string `json:"port"`

	TLSEnabled  bool   `json:"tls_enabled"`
	TLSCertFile string `json:"tls_cert_file"`
	TLSKeyFile  string `json:"tls_key_file"`

	// JWTSecret signs and verifies the admin bearer tokens. Left empty in
	// DefaultConfig; operators must set it via file or
	// ADSBACTIONS_JWT_SECRET before enabling the admin subset.
	JWTSecret string `json:"jwt_secret"`

	// AdminPasswordHash is a bcrypt hash of the admin password (see
	// api.HashAdminPassword). Left empty, the admin subset's login
	// endpoint always rejects, even with a valid JWTSecret.
	AdminPasswordHash string `json:"admin_password_hash"`
}

// Load reads configuration from a JSON file, falling back to
// DefaultConfig if the file doesn't exist, then applies environment
// overrides for values better kept out of a config file on disk.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvironmentOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	// Peek at the ingest mode before seeding defaults, so a file that
	// switches mode without also naming an explicit checkpoint interval
	// still gets the interval appropriate to the mode it switched to
	// (network: 5s, batch/replay: 10s) rather than silently inheriting
	// whichever mode DefaultConfig() happens to assume.
	var modePeek struct {
		Ingest struct {
			Mode string `json:"mode"`
		} `json:"ingest"`
	}
	if err := json.Unmarshal(data, &modePeek); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg := DefaultConfig()
	cfg.Ingest.CheckpointIntervalSecs = checkpointIntervalForMode(modePeek.Ingest.Mode)
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	return cfg, nil
}

// checkpointIntervalForMode returns CHECKPOINT_INTERVAL for mode (spec.md
// §4.8); an unrecognized or empty mode gets the batch value, matching
// DefaultConfig's replay-mode default.
func checkpointIntervalForMode(mode string) float64 {
	if mode == "network" {
		return DefaultNetworkCheckpointIntervalSecs
	}
	return DefaultBatchCheckpointIntervalSecs
}

// Save writes the configuration to path as indented JSON, creating any
// missing parent directories.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: create dir for %s: %w", path, err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// DefaultConfig returns a runtime config for a replay-mode, sinkless,
// API-less run: the smallest configuration that can exercise the core
// pipeline end to end with nothing external wired in.
func DefaultConfig() *Config {
	return &Config{
		Ingest: IngestConfig{
			Mode:                   "replay",
			CheckpointIntervalSecs: DefaultBatchCheckpointIntervalSecs,
			ExpireSecs:             DefaultExpireSecs,
			ReconnectDelaySecs:     2,
			LOSGCSecs:              60,
		},
		Rules: RulesConfig{
			ConfigPath: "configs/rules.yaml",
		},
		Resampler: ResamplerConfig{
			SampleIntervalSecs: 1,
		},
		Store: StoreConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 2,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: "8090",
		},
	}
}

// applyEnvironmentOverrides lets operators supply secrets and
// deployment-specific endpoints without committing them to the config
// file on disk.
func (c *Config) applyEnvironmentOverrides() {
	if v := os.Getenv("ADSBACTIONS_NETWORK_ADDR"); v != "" {
		c.Ingest.NetworkAddr = v
	}
	if v := os.Getenv("ADSBACTIONS_STORE_DSN"); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv("ADSBACTIONS_API_PORT"); v != "" {
		c.API.Port = v
	}
	if v := os.Getenv("ADSBACTIONS_JWT_SECRET"); v != "" {
		c.API.JWTSecret = v
	}
	if v := os.Getenv("ADSBACTIONS_ADMIN_PASSWORD_HASH"); v != "" {
		c.API.AdminPasswordHash = v
	}
}

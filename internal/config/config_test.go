// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// validConfig returns a Config that passes Validate, for mutation tests.
func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Remote.BaseURL = "https://api.example.com"
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FISCUS_REMOTE_BASE_URL", "https://api.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Remote.Timeout != 15*time.Second {
		t.Errorf("Remote.Timeout = %v, want 15s", cfg.Remote.Timeout)
	}
	if cfg.Sync.PullLimit != 5000 {
		t.Errorf("Sync.PullLimit = %d, want 5000", cfg.Sync.PullLimit)
	}
	if cfg.Sync.PushBatchSize != 200 {
		t.Errorf("Sync.PushBatchSize = %d, want 200", cfg.Sync.PushBatchSize)
	}
	if cfg.Connectivity.Quorum != 2 {
		t.Errorf("Connectivity.Quorum = %d, want 2", cfg.Connectivity.Quorum)
	}
	if len(cfg.Connectivity.ProbeEndpoints) != 3 {
		t.Errorf("Connectivity.ProbeEndpoints has %d entries, want 3", len(cfg.Connectivity.ProbeEndpoints))
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want info/json", cfg.Logging)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FISCUS_REMOTE_BASE_URL", "https://api.example.com")
	t.Setenv("FISCUS_REMOTE_TIMEOUT", "30s")
	t.Setenv("FISCUS_SYNC_OWNER_ID", "user-42")
	t.Setenv("FISCUS_SYNC_PUSH_BATCH_SIZE", "50")
	t.Setenv("FISCUS_LOG_LEVEL", "debug")
	t.Setenv("FISCUS_DATA_DIR", "/tmp/fiscus-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Remote.Timeout != 30*time.Second {
		t.Errorf("Remote.Timeout = %v, want 30s", cfg.Remote.Timeout)
	}
	if cfg.Sync.OwnerID != "user-42" {
		t.Errorf("Sync.OwnerID = %q, want user-42", cfg.Sync.OwnerID)
	}
	if cfg.Sync.PushBatchSize != 50 {
		t.Errorf("Sync.PushBatchSize = %d, want 50", cfg.Sync.PushBatchSize)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug (alias)", cfg.Logging.Level)
	}
	if cfg.Store.Path != "/tmp/fiscus-test" {
		t.Errorf("Store.Path = %q, want /tmp/fiscus-test (alias)", cfg.Store.Path)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
remote:
  base_url: https://file.example.com
  timeout: 20s
sync:
  pull_limit: 1000
connectivity:
  probe_endpoints:
    - https://probe-a.example.com/204
    - https://probe-b.example.com/204
  quorum: 1
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Remote.BaseURL != "https://file.example.com" {
		t.Errorf("Remote.BaseURL = %q", cfg.Remote.BaseURL)
	}
	if cfg.Sync.PullLimit != 1000 {
		t.Errorf("Sync.PullLimit = %d, want 1000", cfg.Sync.PullLimit)
	}
	if len(cfg.Connectivity.ProbeEndpoints) != 2 {
		t.Errorf("ProbeEndpoints = %v, want the 2 from the file", cfg.Connectivity.ProbeEndpoints)
	}
}

func TestEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("remote:\n  base_url: https://file.example.com\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("FISCUS_REMOTE_BASE_URL", "https://env.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Remote.BaseURL != "https://env.example.com" {
		t.Errorf("Remote.BaseURL = %q, want the env value", cfg.Remote.BaseURL)
	}
}

func TestProbeEndpointsFromEnvCommaSeparated(t *testing.T) {
	t.Setenv("FISCUS_REMOTE_BASE_URL", "https://api.example.com")
	t.Setenv("FISCUS_CONNECTIVITY_PROBE_ENDPOINTS",
		"https://a.example.com/204, https://b.example.com/204")
	t.Setenv("FISCUS_CONNECTIVITY_QUORUM", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []string{"https://a.example.com/204", "https://b.example.com/204"}
	if len(cfg.Connectivity.ProbeEndpoints) != len(want) {
		t.Fatalf("ProbeEndpoints = %v, want %v", cfg.Connectivity.ProbeEndpoints, want)
	}
	for i, ep := range want {
		if cfg.Connectivity.ProbeEndpoints[i] != ep {
			t.Errorf("ProbeEndpoints[%d] = %q, want %q", i, cfg.Connectivity.ProbeEndpoints[i], ep)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"missing base url", func(c *Config) { c.Remote.BaseURL = "" }, true},
		{"malformed base url", func(c *Config) { c.Remote.BaseURL = "not a url" }, true},
		{"zero timeout", func(c *Config) { c.Remote.Timeout = 0 }, true},
		{"no store path", func(c *Config) { c.Store.Path = "" }, true},
		{"in-memory without path ok", func(c *Config) { c.Store.Path = ""; c.Store.InMemory = true }, false},
		{"gc ratio too high", func(c *Config) { c.Store.GCRatio = 1.5 }, true},
		{"sub-second sync interval", func(c *Config) { c.Sync.Interval = 100 * time.Millisecond }, true},
		{"zero pull limit", func(c *Config) { c.Sync.PullLimit = 0 }, true},
		{"quorum above endpoint count", func(c *Config) { c.Connectivity.Quorum = 10 }, true},
		{"bad probe endpoint", func(c *Config) { c.Connectivity.ProbeEndpoints = []string{"nope"} }, true},
		{"zero flip threshold", func(c *Config) { c.Connectivity.FlipThreshold = 0 }, true},
		{"metrics enabled without listen", func(c *Config) { c.Metrics.Listen = "" }, true},
		{"metrics disabled without listen ok", func(c *Config) { c.Metrics.Enabled = false; c.Metrics.Listen = "" }, false},
		{"console log format ok", func(c *Config) { c.Logging.Format = "console" }, false},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOptionsConversion(t *testing.T) {
	cfg := validConfig()
	cfg.Sync.PullLimit = 123
	cfg.Connectivity.Quorum = 1
	cfg.Connectivity.OnlineInterval = time.Minute

	if got := cfg.EngineOptions(); got.PullLimit != 123 {
		t.Errorf("EngineOptions().PullLimit = %d, want 123", got.PullLimit)
	}
	cc := cfg.ConnectivityOptions()
	if cc.Quorum != 1 {
		t.Errorf("ConnectivityOptions().Quorum = %d, want 1", cc.Quorum)
	}
	if cc.Intervals.Online != time.Minute {
		t.Errorf("ConnectivityOptions().Intervals.Online = %v, want 1m", cc.Intervals.Online)
	}
	if got := cfg.RemoteOptions(); got.BaseURL != cfg.Remote.BaseURL {
		t.Errorf("RemoteOptions().BaseURL = %q", got.BaseURL)
	}
	if got := cfg.StoreOptions(); got.Path != cfg.Store.Path {
		t.Errorf("StoreOptions().Path = %q", got.Path)
	}
}

// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

// Package config loads and validates the daemon configuration from layered
// sources: built-in defaults, an optional YAML file, and environment
// variables, with precedence ENV > file > defaults.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/tomtom215/fiscus/internal/connectivity"
	"github.com/tomtom215/fiscus/internal/engine"
	"github.com/tomtom215/fiscus/internal/remote"
	"github.com/tomtom215/fiscus/internal/store"
)

// Config is the root configuration for the sync daemon.
type Config struct {
	Remote       RemoteConfig       `koanf:"remote"`
	Store        StoreConfig        `koanf:"store"`
	Sync         SyncConfig         `koanf:"sync"`
	Connectivity ConnectivityConfig `koanf:"connectivity"`
	Metrics      MetricsConfig      `koanf:"metrics"`
	Logging      LoggingConfig      `koanf:"logging"`
}

// RemoteConfig configures the backend API client.
type RemoteConfig struct {
	BaseURL           string        `koanf:"base_url"`
	APIKey            string        `koanf:"api_key"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`
}

// StoreConfig configures the embedded local store.
type StoreConfig struct {
	Path       string        `koanf:"path"`
	InMemory   bool          `koanf:"in_memory"`
	SyncWrites bool          `koanf:"sync_writes"`
	GCInterval time.Duration `koanf:"gc_interval"`
	GCRatio    float64       `koanf:"gc_ratio"`
}

// SyncConfig configures pull, push, and scheduling behaviour.
type SyncConfig struct {
	// OwnerID scopes sync to one owner's records. Empty disables sync
	// until an identity is established at runtime.
	OwnerID       string        `koanf:"owner_id"`
	Interval      time.Duration `koanf:"interval"`
	PullLimit     int           `koanf:"pull_limit"`
	PushBatchSize int           `koanf:"push_batch_size"`
}

// ConnectivityConfig configures the connectivity monitor.
type ConnectivityConfig struct {
	ProbeEndpoints   []string      `koanf:"probe_endpoints"`
	Quorum           int           `koanf:"quorum"`
	ProbeTimeout     time.Duration `koanf:"probe_timeout"`
	FlipThreshold    int           `koanf:"flip_threshold"`
	OfflineAfter     int           `koanf:"offline_after"`
	OfflineInterval  time.Duration `koanf:"offline_interval"`
	DegradedInterval time.Duration `koanf:"degraded_interval"`
	OnlineInterval   time.Duration `koanf:"online_interval"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Listen  string `koanf:"listen"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for internal consistency. It is called
// automatically by Load.
func (c *Config) Validate() error {
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("remote.base_url is required")
	}
	u, err := url.Parse(c.Remote.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("remote.base_url %q is not a valid URL", c.Remote.BaseURL)
	}
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("remote.timeout must be positive")
	}
	if c.Remote.RequestsPerSecond <= 0 {
		return fmt.Errorf("remote.requests_per_second must be positive")
	}

	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("store.path is required unless store.in_memory is set")
	}
	if c.Store.GCRatio <= 0 || c.Store.GCRatio >= 1 {
		return fmt.Errorf("store.gc_ratio must be between 0 and 1 exclusive")
	}

	if c.Sync.Interval < time.Second {
		return fmt.Errorf("sync.interval must be at least 1s")
	}
	if c.Sync.PullLimit <= 0 {
		return fmt.Errorf("sync.pull_limit must be positive")
	}
	if c.Sync.PushBatchSize <= 0 {
		return fmt.Errorf("sync.push_batch_size must be positive")
	}

	if c.Connectivity.Quorum <= 0 {
		return fmt.Errorf("connectivity.quorum must be positive")
	}
	if c.Connectivity.Quorum > len(c.Connectivity.ProbeEndpoints) {
		return fmt.Errorf("connectivity.quorum %d exceeds the %d configured probe endpoints",
			c.Connectivity.Quorum, len(c.Connectivity.ProbeEndpoints))
	}
	for _, ep := range c.Connectivity.ProbeEndpoints {
		u, err := url.Parse(ep)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("connectivity.probe_endpoints entry %q is not a valid URL", ep)
		}
	}
	if c.Connectivity.FlipThreshold < 1 {
		return fmt.Errorf("connectivity.flip_threshold must be at least 1")
	}
	if c.Connectivity.OfflineAfter < 1 {
		return fmt.Errorf("connectivity.offline_after must be at least 1")
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("metrics.listen is required when metrics.enabled is set")
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	return nil
}

// StoreOptions converts the section into store.Config.
func (c *Config) StoreOptions() store.Config {
	sc := store.DefaultConfig()
	sc.Path = c.Store.Path
	sc.InMemory = c.Store.InMemory
	sc.SyncWrites = c.Store.SyncWrites
	sc.GCInterval = c.Store.GCInterval
	sc.GCRatio = c.Store.GCRatio
	return sc
}

// RemoteOptions converts the section into remote.Config.
func (c *Config) RemoteOptions() remote.Config {
	rc := remote.DefaultConfig()
	rc.BaseURL = c.Remote.BaseURL
	rc.APIKey = c.Remote.APIKey
	rc.Timeout = c.Remote.Timeout
	rc.RequestsPerSecond = c.Remote.RequestsPerSecond
	rc.Burst = c.Remote.Burst
	return rc
}

// ConnectivityOptions converts the section into connectivity.Config.
func (c *Config) ConnectivityOptions() connectivity.Config {
	cc := connectivity.DefaultConfig()
	if len(c.Connectivity.ProbeEndpoints) > 0 {
		cc.Endpoints = c.Connectivity.ProbeEndpoints
	}
	cc.Quorum = c.Connectivity.Quorum
	cc.ProbeTimeout = c.Connectivity.ProbeTimeout
	cc.FlipThreshold = c.Connectivity.FlipThreshold
	cc.OfflineAfter = c.Connectivity.OfflineAfter
	cc.Intervals = connectivity.Intervals{
		Offline:  c.Connectivity.OfflineInterval,
		Degraded: c.Connectivity.DegradedInterval,
		Online:   c.Connectivity.OnlineInterval,
	}
	return cc
}

// EngineOptions converts the section into engine.Config.
func (c *Config) EngineOptions() engine.Config {
	ec := engine.DefaultConfig()
	ec.PullLimit = c.Sync.PullLimit
	ec.PushBatchSize = c.Sync.PushBatchSize
	ec.SyncInterval = c.Sync.Interval
	return ec
}

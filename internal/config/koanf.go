// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/fiscus/internal/connectivity"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/fiscus/config.yaml",
	"/etc/fiscus/config.yml",
}

// ConfigPathEnvVar overrides the config file search when set.
const ConfigPathEnvVar = "FISCUS_CONFIG_PATH"

// envPrefix namespaces the daemon's environment variables:
// FISCUS_REMOTE_BASE_URL -> remote.base_url.
const envPrefix = "FISCUS_"

// defaultConfig returns a Config with every knob at its default.
// Defaults load first and are then overridden by file and env layers.
func defaultConfig() *Config {
	return &Config{
		Remote: RemoteConfig{
			BaseURL:           "",
			APIKey:            "",
			Timeout:           15 * time.Second,
			RequestsPerSecond: 10,
			Burst:             20,
		},
		Store: StoreConfig{
			Path:       "/data/fiscus",
			InMemory:   false,
			SyncWrites: true,
			GCInterval: 30 * time.Minute,
			GCRatio:    0.5,
		},
		Sync: SyncConfig{
			OwnerID:       "",
			Interval:      5 * time.Minute,
			PullLimit:     5000,
			PushBatchSize: 200,
		},
		Connectivity: ConnectivityConfig{
			ProbeEndpoints:   connectivity.DefaultProbeEndpoints,
			Quorum:           2,
			ProbeTimeout:     3 * time.Second,
			FlipThreshold:    2,
			OfflineAfter:     3,
			OfflineInterval:  15 * time.Second,
			DegradedInterval: 45 * time.Second,
			OnlineInterval:   2 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  "127.0.0.1:9465",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from layered sources:
//  1. Defaults: built-in values from defaultConfig
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: FISCUS_-prefixed, highest priority
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists paths parsed as comma-separated slices when they
// arrive as strings from the environment.
var sliceConfigPaths = []string{
	"connectivity.probe_endpoints",
}

// processSliceFields converts comma-separated string values to slices for
// the known slice fields. Env vars come in as strings; YAML values are
// already slices and pass through untouched.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps a FISCUS_ environment variable name to its koanf
// path. Section names are single words, so the first underscore after the
// prefix separates section from key:
//
//	FISCUS_REMOTE_BASE_URL      -> remote.base_url
//	FISCUS_SYNC_PUSH_BATCH_SIZE -> sync.push_batch_size
//	FISCUS_LOG_LEVEL            -> logging.level
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))

	// Shortcuts kept for container-friendliness.
	aliases := map[string]string{
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"data_dir":   "store.path",
	}
	if path, ok := aliases[key]; ok {
		return path
	}

	section, rest, found := strings.Cut(key, "_")
	if !found {
		return section
	}
	return section + "." + rest
}

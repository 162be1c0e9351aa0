// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

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
)

// DefaultConfigPaths lists the paths where a config file is searched for,
// in order of priority. The first one found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/flapjack/config.yaml",
	"/etc/flapjack/config.yml",
}

// ConfigPathEnvVar overrides the config file search with an explicit path.
const ConfigPathEnvVar = "FLAPJACK_CONFIG_PATH"

// defaultConfig returns a Config with every field set to a sensible
// production default. Defaults are applied first, then overridden by a
// config file, then overridden again by environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            7700,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			DataDir:              "/data/flapjack",
			MaxConcurrentWriters: 64,
			MaxDocumentBytes:     100 << 10, // 100KB, matching Algolia's per-record limit
		},
		Memory: MemoryConfig{
			ElevatedMB: 1024,
			CriticalMB: 1536,
		},
		Replication: ReplicationConfig{
			NodeID: "",
			Peers:  nil,
		},
		Analytics: AnalyticsConfig{
			Enabled:              true,
			EmbeddedServer:       true,
			NATSURL:              "nats://127.0.0.1:4222",
			StoreDir:             "/data/flapjack/nats",
			DataDir:              "/data/flapjack/analytics",
			FlushSize:            1000,
			FlushInterval:        30 * time.Second,
			RetentionDays:        90,
			CorrelationCacheSize: 10000,
		},
		Security: SecurityConfig{
			AdminAPIKey:       "",
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 1000,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds a Config from defaults, an optional config file, and
// environment variables, in that order of increasing priority, then
// validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// FLAPJACK_SERVER_PORT -> server.port, FLAPJACK_REPLICATION_NODE_ID -> replication.node_id
	envProvider := env.Provider("FLAPJACK_", ".", envTransformFunc)
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

// sliceConfigPaths lists koanf paths that should be parsed as
// comma-separated strings when they arrive from an environment variable.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

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
			p = strings.TrimSpace(p)
			if p != "" {
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

// envTransformFunc lowercases an env var name stripped of its FLAPJACK_
// prefix and rewrites underscores between section and field names into
// koanf's dotted path form, e.g. SERVER_PORT -> server.port,
// REPLICATION_NODE_ID -> replication.node_id.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	sectionBoundaries := map[string]string{
		"server_":      "server.",
		"storage_":     "storage.",
		"memory_":      "memory.",
		"replication_": "replication.",
		"analytics_":   "analytics.",
		"security_":    "security.",
		"logging_":     "logging.",
	}
	for prefix, replacement := range sectionBoundaries {
		if strings.HasPrefix(key, prefix) {
			return replacement + strings.TrimPrefix(key, prefix)
		}
	}
	return key
}

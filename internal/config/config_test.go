// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package config

import (
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestValidateServer(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"zero port", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, true},
		{"negative read timeout", func(c *Config) { c.Server.ReadTimeout = -1 }, true},
		{"zero write timeout", func(c *Config) { c.Server.WriteTimeout = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateMemory(t *testing.T) {
	cfg := defaultConfig()
	cfg.Memory.ElevatedMB = 2000
	cfg.Memory.CriticalMB = 1000
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when critical_mb <= elevated_mb")
	}
}

func TestValidateReplication(t *testing.T) {
	t.Run("peers without node id", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Replication.Peers = []PeerEntry{{NodeID: "b", Addr: "http://b:7700"}}
		if err := cfg.Validate(); err == nil {
			t.Error("expected error when peers set without a node_id")
		}
	})

	t.Run("peer missing addr", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Replication.NodeID = "a"
		cfg.Replication.Peers = []PeerEntry{{NodeID: "b"}}
		if err := cfg.Validate(); err == nil {
			t.Error("expected error when a peer has no addr")
		}
	})

	t.Run("peer shares this node's id", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Replication.NodeID = "a"
		cfg.Replication.Peers = []PeerEntry{{NodeID: "a", Addr: "http://a:7700"}}
		if err := cfg.Validate(); err == nil {
			t.Error("expected error when a peer's node_id equals this node's own")
		}
	})

	t.Run("valid peer set", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Replication.NodeID = "a"
		cfg.Replication.Peers = []PeerEntry{{NodeID: "b", Addr: "http://b:7700"}}
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

func TestValidateAnalytics(t *testing.T) {
	t.Run("disabled skips remaining checks", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Analytics.Enabled = false
		cfg.Analytics.DataDir = ""
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error when analytics disabled, got %v", err)
		}
	})

	t.Run("external NATS requires a URL", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Analytics.EmbeddedServer = false
		cfg.Analytics.NATSURL = ""
		if err := cfg.Validate(); err == nil {
			t.Error("expected error when embedded_server is false and nats_url is empty")
		}
	})
}

func TestValidateLogging(t *testing.T) {
	tests := []struct {
		level, format string
		wantErr       bool
	}{
		{"info", "json", false},
		{"debug", "console", false},
		{"verbose", "json", true},
		{"info", "xml", true},
	}
	for _, tt := range tests {
		cfg := defaultConfig()
		cfg.Logging.Level = tt.level
		cfg.Logging.Format = tt.format
		err := cfg.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("level=%s format=%s: Validate() error = %v, wantErr %v", tt.level, tt.format, err, tt.wantErr)
		}
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"SERVER_PORT", "server.port"},
		{"REPLICATION_NODE_ID", "replication.node_id"},
		{"ANALYTICS_NATS_URL", "analytics.nats_url"},
		{"UNKNOWN_KEY", "unknown_key"},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.in); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFindConfigFileDefaultsToEmpty(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	if got := findConfigFile(); got != "" {
		t.Errorf("expected no config file to be found in a clean test environment, got %q", got)
	}
}

func TestDefaultConfigTimeouts(t *testing.T) {
	cfg := defaultConfig()
	if cfg.Server.ReadTimeout <= 0 || cfg.Server.WriteTimeout <= 0 {
		t.Error("default server timeouts must be positive")
	}
	if cfg.Analytics.FlushInterval < time.Second {
		t.Error("default analytics flush interval should be at least a second")
	}
}

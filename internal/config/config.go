// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package config

import "time"

// Config holds all application configuration loaded from environment
// variables and, optionally, a YAML config file.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in sensible defaults for every setting
//  2. Config File: optional YAML file (config.yaml) for persistent settings
//  3. Environment Variables: FLAPJACK_*-prefixed vars override anything
//     loaded so far
//
// Example - Load configuration from environment:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("failed to load config:", err)
//	}
//	tenants := tenant.NewManager(cfg.Storage.DataDir, cfg.Storage.MaxConcurrentWriters, cfg.Storage.MaxDocumentBytes)
//
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Storage     StorageConfig     `koanf:"storage"`
	Memory      MemoryConfig      `koanf:"memory"`
	Replication ReplicationConfig `koanf:"replication"`
	Analytics   AnalyticsConfig   `koanf:"analytics"`
	Security    SecurityConfig    `koanf:"security"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StorageConfig controls where tenant indexes, oplogs, and sidecar state
// live on disk, and the write-path's admission limits.
type StorageConfig struct {
	DataDir               string `koanf:"data_dir"`
	MaxConcurrentWriters  int64  `koanf:"max_concurrent_writers"`
	MaxDocumentBytes      int    `koanf:"max_document_bytes"`
}

// MemoryConfig controls the Memory Safety Layer's pressure thresholds, in
// megabytes of heap allocated.
type MemoryConfig struct {
	ElevatedMB uint64 `koanf:"elevated_mb"`
	CriticalMB uint64 `koanf:"critical_mb"`
}

// ReplicationConfig controls peer-to-peer oplog fan-out. Leaving Peers
// empty runs this node standalone; the Replication Manager and its
// /internal/* routes are simply never mounted.
type ReplicationConfig struct {
	NodeID string      `koanf:"node_id"`
	Peers  []PeerEntry `koanf:"peers"`
}

// PeerEntry identifies one replication peer by node ID and base URL.
type PeerEntry struct {
	NodeID string `koanf:"node_id"`
	Addr   string `koanf:"addr"`
}

// AnalyticsConfig controls the search/insights analytics pipeline: NATS
// JetStream ingestion and Parquet partition storage. Disabling it leaves
// the Query Executor untouched but analytics publish calls become no-ops
// and the /2/* routes are never mounted.
type AnalyticsConfig struct {
	Enabled              bool          `koanf:"enabled"`
	NATSURL              string        `koanf:"nats_url"`
	EmbeddedServer       bool          `koanf:"embedded_server"`
	StoreDir             string        `koanf:"store_dir"`
	DataDir              string        `koanf:"data_dir"`
	FlushSize            int           `koanf:"flush_size"`
	FlushInterval        time.Duration `koanf:"flush_interval"`
	RetentionDays        int           `koanf:"retention_days"`
	CorrelationCacheSize int           `koanf:"correlation_cache_size"`
}

// SecurityConfig controls the HTTP surface's CORS, rate limiting, and
// secured-key signing.
type SecurityConfig struct {
	AdminAPIKey       string   `koanf:"admin_api_key"`
	CORSOrigins       []string `koanf:"cors_origins"`
	RateLimitRequests int      `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package analytics

import "time"

// Config controls the analytics pipeline. When Enabled is false the
// collector's subscriber is never started and Publish* calls become
// no-ops logged at debug level, matching spec's "disabled at
// configuration time, records dropped silently" contract.
type Config struct {
	Enabled bool

	// NATSURL is the JetStream connection URL the Publisher and Collector
	// dial. When EmbeddedServer is true, cmd/flapjackd replaces it with the
	// embedded server's ClientURL() before building either.
	NATSURL string
	// EmbeddedServer runs an in-process NATS JetStream server rather
	// than dialing an external one.
	EmbeddedServer bool
	// StoreDir is the embedded server's JetStream storage directory.
	StoreDir string

	// DataDir is the root directory Parquet partitions are written
	// under: <DataDir>/<tenant>/<kind>/date=YYYY-MM-DD/.
	DataDir string

	// FlushSize is the number of buffered events per tenant per kind
	// that triggers an immediate flush.
	FlushSize int
	// FlushInterval is the maximum time between flushes regardless of
	// buffer size.
	FlushInterval time.Duration
	// RetentionDays is how long partitions are kept before the
	// retention sweep removes them.
	RetentionDays int

	// CorrelationCacheSize bounds the in-memory query-identifier to
	// (query, tenant) LRU used to correlate insight events with the
	// search that produced them.
	CorrelationCacheSize int
}

// DefaultConfig returns production-sane defaults, matching the flush/
// retention cadence spec.md describes.
func DefaultConfig() Config {
	return Config{
		Enabled:              true,
		EmbeddedServer:       true,
		DataDir:              "data/analytics",
		FlushSize:            1000,
		FlushInterval:        30 * time.Second,
		RetentionDays:        90,
		CorrelationCacheSize: 10000,
	}
}

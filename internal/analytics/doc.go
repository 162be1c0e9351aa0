// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package analytics collects search and insight events off the request
// path and answers fixed aggregations over them.
//
// Search handlers publish events onto an embedded NATS JetStream stream
// instead of calling the collector in-process, so a slow flush never adds
// latency to a search response. Collector drains that stream into two
// per-tenant in-memory ring buffers (search events, insight events) and
// flushes each to an immutable Parquet file under
// <data_dir>/<tenant>/<kind>/date=YYYY-MM-DD/ whenever a buffer crosses
// its flush size or a background timer fires, whichever comes first.
// QueryEngine answers the fixed aggregation set by scanning those Parquet
// files directly through DuckDB's read_parquet, pruning partitions by
// directory name before the scan, never by a post-scan filter.
package analytics

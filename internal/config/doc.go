// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package config loads and validates flapjack's runtime configuration.

# Overview

Config is built in three layers, in increasing order of precedence:

  1. Defaults baked into defaultConfig()
  2. An optional YAML config file (config.yaml, or the path named by
     FLAPJACK_CONFIG_PATH)
  3. Environment variables prefixed FLAPJACK_, e.g. FLAPJACK_SERVER_PORT,
     FLAPJACK_REPLICATION_NODE_ID, FLAPJACK_ANALYTICS_NATS_URL

Load() runs all three layers, then Validate()s the result.

# Sections

  - Server: HTTP listener address and timeouts
  - Storage: tenant index/oplog directory and write admission limits
  - Memory: Memory Safety Layer pressure thresholds
  - Replication: this node's ID and its peers, if any
  - Analytics: the search/insights analytics pipeline's NATS and Parquet
    settings
  - Security: CORS, rate limiting, and the admin API key
  - Logging: structured logger level and format
*/
package config

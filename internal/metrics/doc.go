// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package metrics provides Prometheus metrics collection and export for
observability of the search core.

# Overview

The package provides metrics for:
  - Query latency, errors, and facet-cache hit/miss rates
  - Per-tenant write throughput, queue depth, and admission rejections
  - Memory Safety Layer pressure readings
  - Replication peer circuit breaker state and lag
  - Analytics pipeline ingestion and Parquet flush throughput

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:7700/metrics

# Circuit Breaker Metrics

CircuitBreakerState, CircuitBreakerTransitions, CircuitBreakerRequests, and
CircuitBreakerConsecutiveFailures are shared with internal/replication,
which reports every configured peer's breaker under these exact series
names and label shapes.
*/
package metrics

// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package middleware provides chi-native HTTP middleware shared across the
search API.

Key Components:

  - Compression: gzip-encodes responses for clients that advertise support
  - PrometheusMetrics: records in-flight count, total count by status code,
    and latency histograms keyed by chi's matched route pattern

Both middleware use the standard chi signature func(http.Handler) http.Handler
and compose with r.Use in internal/api's router. Request ID generation and
correlation lives in internal/api (RequestIDWithLogging), since it is tied to
the structured logger there rather than being a standalone concern.

See Also:

  - internal/api: router wiring and request ID/logging middleware
  - internal/metrics: Prometheus metric definitions recorded here
*/
package middleware

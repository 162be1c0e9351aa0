// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gridlhq/flapjack/internal/ferror"
	"github.com/gridlhq/flapjack/internal/memory"
	"github.com/gridlhq/flapjack/internal/query"
)

// getIntParam extracts an integer query parameter with a default value.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// parseCommaSeparated parses a comma-separated string into a slice.
func parseCommaSeparated(value string) []string {
	if value == "" {
		return nil
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseTaskID parses a path-carried task ID into its numeric form.
func parseTaskID(raw string) (int64, bool) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// applyCachePressure halves cache's capacity under Elevated memory
// pressure (Section 4.1) and restores baseSize once pressure subsides. obs
// may be nil in tests that construct a Handler without a memory observer.
func applyCachePressure(cache *query.FacetCache, baseSize int, obs *memory.Observer) {
	if obs == nil {
		return
	}
	if obs.Sample().Level == memory.Elevated {
		cache.Resize(baseSize / 2)
		return
	}
	cache.Resize(baseSize)
}

// memoryPressureError builds the ferror.Error that the memory admission
// middleware returns when it rejects a request at Elevated or Critical
// pressure.
func memoryPressureError(reading memory.Reading) error {
	return ferror.Newf(ferror.MemoryPressure, "index rejecting requests: heap at %dMB exceeds limit %dMB", reading.AllocatedMB, reading.LimitMB).
		WithField("allocated_mb", reading.AllocatedMB).
		WithField("limit_mb", reading.LimitMB).
		WithField("level", reading.Level.String())
}

// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"net/http"

	"github.com/gridlhq/flapjack/internal/memory"
)

// Health reports process liveness plus the current memory-pressure level so
// operators can see admission control state without parsing metrics.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	reading := h.memory.Sample()

	status := "ok"
	if reading.Level == memory.Critical {
		status = "degraded"
	}

	NewResponseWriter(w, r).JSON(map[string]interface{}{
		"status":       status,
		"memoryLevel":  reading.Level.String(),
		"allocatedMB":  reading.AllocatedMB,
		"tenantCount":  h.tenants.Count(),
		"nodeID":       h.nodeID,
		"peerCount":    h.replication.PeerCount(),
		"availablePeers": h.replication.AvailablePeerCount(),
	})
}

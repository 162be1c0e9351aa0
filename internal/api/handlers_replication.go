// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// handlers_replication.go serves the peer-only /internal/... routes the
// Replication Manager's PeerClient calls on other nodes. These routes are
// never reached through the Authenticate middleware that guards /1 and /2:
// a misconfigured peer set is this cluster's own operational problem, not
// something an X-Algolia-API-Key is meant to gate.
package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/gridlhq/flapjack/internal/ferror"
	"github.com/gridlhq/flapjack/internal/oplog"
	"github.com/gridlhq/flapjack/internal/replication"
	"github.com/gridlhq/flapjack/internal/tenant"
)

// ReplicationHandler serves the inbound peer-to-peer replication surface.
// It is mounted only on a node configured with at least one peer.
type ReplicationHandler struct {
	manager *replication.Manager
	tenants *tenant.Manager
}

// NewReplicationHandler builds a ReplicationHandler.
func NewReplicationHandler(manager *replication.Manager, tenants *tenant.Manager) *ReplicationHandler {
	return &ReplicationHandler{manager: manager, tenants: tenants}
}

type replicateOpsRequest struct {
	TenantID string         `json:"tenant_id"`
	Ops      []*oplog.Entry `json:"ops"`
}

type replicateOpsResponse struct {
	AckedSeq uint64 `json:"acked_seq"`
}

// Replicate handles POST /internal/replicate: a peer pushes committed ops
// for one tenant, which are applied directly to the local index and oplog
// without re-triggering fan-out, and acked with this node's own resulting
// sequence number.
func (h *ReplicationHandler) Replicate(w http.ResponseWriter, r *http.Request) {
	var req replicateOpsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, ferror.Newf(ferror.Internal, "decode replicate request: %v", err))
		return
	}
	seq, err := h.tenants.ApplyReplicatedOps(r.Context(), req.TenantID, req.Ops)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(replicateOpsResponse{AckedSeq: seq})
}

type getOpsRequest struct {
	TenantID string `json:"tenant_id"`
	SinceSeq uint64 `json:"since_seq"`
}

type getOpsResponse struct {
	Ops        []*oplog.Entry `json:"ops"`
	CurrentSeq uint64         `json:"current_seq"`
}

// Ops handles POST /internal/ops: a peer rejoining after a gap asks for
// every op since the sequence number it last applied from this node.
func (h *ReplicationHandler) Ops(w http.ResponseWriter, r *http.Request) {
	var req getOpsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, ferror.Newf(ferror.Internal, "decode ops request: %v", err))
		return
	}
	ops, currentSeq, err := h.tenants.ReadOpsSince(r.Context(), req.TenantID, req.SinceSeq)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(getOpsResponse{Ops: ops, CurrentSeq: currentSeq})
}

// Status handles GET /internal/status: this node's view of every
// configured peer's replication health.
func (h *ReplicationHandler) Status(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).JSON(map[string]interface{}{
		"node_id": h.manager.NodeID(),
		"peers":   h.manager.PeerStatuses(),
	})
}

// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"github.com/go-playground/validator/v10"

	"github.com/gridlhq/flapjack/internal/analytics"
	"github.com/gridlhq/flapjack/internal/experiments"
	"github.com/gridlhq/flapjack/internal/memory"
	"github.com/gridlhq/flapjack/internal/securedkey"
	"github.com/gridlhq/flapjack/internal/tenant"
)

// ReplicationStatus is the subset of the Replication Manager the health
// endpoint reports on. It is a local interface, not a direct dependency on
// internal/replication, so this package stays wirable before that package
// exists and testable without a real peer set.
type ReplicationStatus interface {
	PeerCount() int
	AvailablePeerCount() int
}

type noopReplicationStatus struct{}

func (noopReplicationStatus) PeerCount() int          { return 0 }
func (noopReplicationStatus) AvailablePeerCount() int { return 0 }

// Handler holds every dependency the HTTP surface needs: the tenant
// manager (documents, settings, tasks), the secured-key store (auth), the
// memory observer (admission control and health reporting), the
// replication manager's status (health reporting only - replication fan-out
// itself is wired into tenant.Manager via a ReplicationNotifier), and the
// analytics publisher and experiment assigner the query path reports and
// consults on every search.
type Handler struct {
	tenants     *tenant.Manager
	keys        *securedkey.Store
	memory      *memory.Observer
	replication ReplicationStatus
	analytics   *analytics.Publisher
	assigner    experiments.Assigner
	nodeID      string
	validate    *validator.Validate
}

// NewHandler builds a Handler. replication may be nil, in which case health
// reporting treats the node as having no peers. analyticsPublisher may be
// nil, in which case searches and insights are never published. assigner
// may be nil, in which case it defaults to experiments.NoopAssigner.
func NewHandler(tenants *tenant.Manager, keys *securedkey.Store, mem *memory.Observer, replication ReplicationStatus, analyticsPublisher *analytics.Publisher, assigner experiments.Assigner, nodeID string) *Handler {
	if replication == nil {
		replication = noopReplicationStatus{}
	}
	if assigner == nil {
		assigner = experiments.NoopAssigner{}
	}
	return &Handler{
		tenants:     tenants,
		keys:        keys,
		memory:      mem,
		replication: replication,
		analytics:   analyticsPublisher,
		assigner:    assigner,
		nodeID:      nodeID,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

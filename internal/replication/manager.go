// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package replication

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gridlhq/flapjack/internal/logging"
	"github.com/gridlhq/flapjack/internal/oplog"
)

// PeerHealthStatus reports one peer's replication health for /internal/status.
type PeerHealthStatus struct {
	PeerID            string `json:"peer_id"`
	Addr              string `json:"addr"`
	LastSuccessSecAgo *int64 `json:"last_success_secs_ago,omitempty"`
	Status            string `json:"status"`
}

// Manager fans committed oplog entries out to every configured peer and
// serves catch-up reads back in. It implements tenant.ReplicationNotifier
// and api.ReplicationStatus.
type Manager struct {
	nodeID string
	peers  []*PeerClient

	// cursors tracks, per tenant then per peer, the last sequence number
	// that peer has acknowledged: sync.Map[tenant string]*sync.Map[peer string]uint64
	cursors sync.Map
}

// NewManager builds a Manager with one PeerClient per configured peer.
func NewManager(nodeID string, peerConfigs []PeerConfig) *Manager {
	peers := make([]*PeerClient, len(peerConfigs))
	for i, cfg := range peerConfigs {
		peers[i] = NewPeerClient(cfg)
	}
	return &Manager{nodeID: nodeID, peers: peers}
}

// NodeID returns this node's own identifier.
func (m *Manager) NodeID() string { return m.nodeID }

// PeerCount returns the number of configured peers, available or not.
func (m *Manager) PeerCount() int { return len(m.peers) }

// AvailablePeerCount returns the number of peers whose circuit breaker is
// not currently tripped.
func (m *Manager) AvailablePeerCount() int {
	n := 0
	for _, p := range m.peers {
		if p.IsAvailable() {
			n++
		}
	}
	return n
}

// IsPeerAvailable reports whether a specific peer's circuit breaker is
// currently closed or half-open.
func (m *Manager) IsPeerAvailable(peerID string) bool {
	for _, p := range m.peers {
		if p.PeerID() == peerID {
			return p.IsAvailable()
		}
	}
	return false
}

func (m *Manager) tenantCursors(tenantID string) *sync.Map {
	v, _ := m.cursors.LoadOrStore(tenantID, &sync.Map{})
	return v.(*sync.Map)
}

// Notify implements tenant.ReplicationNotifier. It is called synchronously
// from the tenant write worker after an oplog append commits, so it must
// never block the caller: fan-out happens on its own goroutine per peer.
func (m *Manager) Notify(tenantName string, entry *oplog.Entry) {
	m.ReplicateOps(tenantName, []*oplog.Entry{entry})
}

// ReplicateOps fans ops out to every available peer, fire-and-forget. A
// peer that fails is retried once after a 2-second backoff; a second
// failure drops the ops for that peer silently (logged as a warning) since
// catch-up will recover them later.
func (m *Manager) ReplicateOps(tenantID string, ops []*oplog.Entry) {
	if len(ops) == 0 {
		return
	}
	for _, peer := range m.peers {
		if !peer.IsAvailable() {
			logging.Debug().Str("tenant", tenantID).Str("peer", peer.PeerID()).
				Msg("replication: skipping peer, circuit breaker open")
			continue
		}
		peer := peer
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			acked, err := peer.ReplicateOps(ctx, tenantID, ops)
			if err != nil {
				logging.Warn().Err(err).Str("tenant", tenantID).Str("peer", peer.PeerID()).
					Msg("replication: peer failed, retrying in 2s")
				time.Sleep(2 * time.Second)
				acked, err = peer.ReplicateOps(ctx, tenantID, ops)
			}
			if err != nil {
				logging.Warn().Err(err).Str("tenant", tenantID).Str("peer", peer.PeerID()).
					Msg("replication: peer failed after retry, ops dropped")
				return
			}
			m.tenantCursors(tenantID).Store(peer.PeerID(), acked)
			logging.Info().Str("tenant", tenantID).Str("peer", peer.PeerID()).
				Uint64("acked_seq", acked).Msg("replication: peer acked")
		}()
	}
}

// CatchUpFromPeer tries every available peer in order and returns the ops
// from whichever one answers first, for a tenant rejoining after a gap.
func (m *Manager) CatchUpFromPeer(ctx context.Context, tenantID string, localSeq uint64) ([]*oplog.Entry, error) {
	if len(m.peers) == 0 {
		return nil, fmt.Errorf("no peers available for catch-up")
	}

	lastErr := fmt.Errorf("all peers have tripped circuit breakers")
	for _, peer := range m.peers {
		if !peer.IsAvailable() {
			continue
		}
		ops, currentSeq, err := peer.GetOps(ctx, tenantID, localSeq)
		if err != nil {
			logging.Warn().Err(err).Str("tenant", tenantID).Str("peer", peer.PeerID()).
				Msg("replication: catch-up from peer failed, trying next")
			lastErr = err
			continue
		}
		logging.Info().Str("tenant", tenantID).Str("peer", peer.PeerID()).
			Int("ops", len(ops)).Uint64("local_seq", localSeq).Uint64("peer_seq", currentSeq).
			Msg("replication: caught up from peer")
		return ops, nil
	}
	return nil, lastErr
}

// PeerCursors returns the last acknowledged sequence number per peer for a
// tenant.
func (m *Manager) PeerCursors(tenantID string) map[string]uint64 {
	cursors, ok := m.cursors.Load(tenantID)
	if !ok {
		return nil
	}
	out := make(map[string]uint64)
	cursors.(*sync.Map).Range(func(k, v interface{}) bool {
		out[k.(string)] = v.(uint64)
		return true
	})
	return out
}

// PeerStatuses reports each configured peer's health, derived from its
// last successful contact time and circuit breaker state.
func (m *Manager) PeerStatuses() []PeerHealthStatus {
	now := time.Now().Unix()
	statuses := make([]PeerHealthStatus, 0, len(m.peers))
	for _, p := range m.peers {
		lastTS := p.LastSuccessUnix()
		status := PeerHealthStatus{PeerID: p.PeerID(), Addr: p.addr}

		if lastTS == 0 {
			status.Status = "never_contacted"
			statuses = append(statuses, status)
			continue
		}
		ago := now - lastTS
		status.LastSuccessSecAgo = &ago

		switch {
		case !p.IsAvailable():
			status.Status = "circuit_open"
		case ago < 60:
			status.Status = "healthy"
		case ago < 300:
			status.Status = "stale"
		default:
			status.Status = "unhealthy"
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// StartHealthProbe pings every peer's health endpoint on the given
// interval until ctx is cancelled, independently of replication traffic,
// so peers recover from an open circuit even during a quiet period.
func (m *Manager) StartHealthProbe(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, peer := range m.peers {
				if err := peer.HealthCheck(ctx); err != nil {
					logging.Warn().Err(err).Str("peer", peer.PeerID()).Msg("replication: health probe failed")
				} else {
					logging.Debug().Str("peer", peer.PeerID()).Msg("replication: peer is healthy")
				}
			}
		}
	}
}

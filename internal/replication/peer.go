// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package replication fans out committed oplog entries to peer nodes and
// lets a rejoining node catch up from whichever peer answers first. Each
// peer is reached over HTTP behind its own circuit breaker so a peer that
// has gone dark stops taking requests rather than piling up retries.
package replication

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/gridlhq/flapjack/internal/ferror"
	"github.com/gridlhq/flapjack/internal/logging"
	"github.com/gridlhq/flapjack/internal/metrics"
	"github.com/gridlhq/flapjack/internal/oplog"
)

// PeerConfig identifies one replication peer by node ID and base URL.
type PeerConfig struct {
	NodeID string
	Addr   string
}

// replicateOpsRequest/Response and getOpsResponse mirror the wire
// shape exchanged with /internal/replicate and /internal/ops on a peer.
type replicateOpsRequest struct {
	TenantID string        `json:"tenant_id"`
	Ops      []*oplog.Entry `json:"ops"`
}

type replicateOpsResponse struct {
	AckedSeq uint64 `json:"acked_seq"`
}

type getOpsResponse struct {
	Ops        []*oplog.Entry `json:"ops"`
	CurrentSeq uint64         `json:"current_seq"`
}

// PeerClient wraps one peer's HTTP endpoint behind a circuit breaker, so a
// peer that starts failing stops absorbing retries from every caller.
type PeerClient struct {
	nodeID string
	addr   string
	client *http.Client
	cb     *gobreaker.CircuitBreaker[interface{}]

	lastSuccessUnix atomic.Int64
}

// NewPeerClient builds a client for a single replication peer. The circuit
// breaker trips once at least 5 requests have been seen and 60% of them
// failed, and re-probes in half-open state after a minute.
func NewPeerClient(cfg PeerConfig) *PeerClient {
	name := "replication-peer:" + cfg.NodeID
	pc := &PeerClient{
		nodeID: cfg.NodeID,
		addr:   cfg.Addr,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	pc.cb = gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			logging.Warn().
				Str("peer", cfg.NodeID).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("replication: peer circuit breaker transitioned")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, stateToString(from), stateToString(to)).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})
	return pc
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// PeerID returns the configured node ID of this peer.
func (p *PeerClient) PeerID() string { return p.nodeID }

// IsAvailable reports whether the circuit breaker will currently let a
// request through (closed or probing half-open).
func (p *PeerClient) IsAvailable() bool {
	return p.cb.State() != gobreaker.StateOpen
}

// LastSuccessUnix returns the unix timestamp of the last successful call to
// this peer, or 0 if none has ever succeeded.
func (p *PeerClient) LastSuccessUnix() int64 {
	return p.lastSuccessUnix.Load()
}

// State returns the circuit breaker's current state.
func (p *PeerClient) State() gobreaker.State { return p.cb.State() }

func (p *PeerClient) execute(name string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := p.cb.Execute(func() (interface{}, error) { return fn() })
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(name, "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(name, "failure").Inc()
			counts := p.cb.Counts()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(float64(counts.ConsecutiveFailures))
		}
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
	p.lastSuccessUnix.Store(time.Now().Unix())
	return result, nil
}

func (p *PeerClient) postJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return ferror.Newf(ferror.Json, "marshal peer request: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.addr+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("peer %s returned %d: %s", p.nodeID, resp.StatusCode, respBody)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

// ReplicateOps ships ops for a tenant to this peer, returning the sequence
// number it acknowledged.
func (p *PeerClient) ReplicateOps(ctx context.Context, tenantID string, ops []*oplog.Entry) (uint64, error) {
	name := "replication-peer:" + p.nodeID
	result, err := p.execute(name, func() (interface{}, error) {
		var resp replicateOpsResponse
		if err := p.postJSON(ctx, "/internal/replicate", replicateOpsRequest{TenantID: tenantID, Ops: ops}, &resp); err != nil {
			return nil, err
		}
		return resp.AckedSeq, nil
	})
	if err != nil {
		return 0, err
	}
	return result.(uint64), nil
}

// GetOps fetches every op this peer has for tenantID since sinceSeq, used
// for catch-up after a restart or a gap in the local oplog.
func (p *PeerClient) GetOps(ctx context.Context, tenantID string, sinceSeq uint64) ([]*oplog.Entry, uint64, error) {
	name := "replication-peer:" + p.nodeID
	type req struct {
		TenantID string `json:"tenant_id"`
		SinceSeq uint64 `json:"since_seq"`
	}
	result, err := p.execute(name, func() (interface{}, error) {
		var resp getOpsResponse
		if err := p.postJSON(ctx, "/internal/ops", req{TenantID: tenantID, SinceSeq: sinceSeq}, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	})
	if err != nil {
		return nil, 0, err
	}
	resp := result.(*getOpsResponse)
	return resp.Ops, resp.CurrentSeq, nil
}

// HealthCheck pings the peer's health endpoint through the circuit breaker,
// so a string of failed probes can trip it the same as real traffic would.
func (p *PeerClient) HealthCheck(ctx context.Context) error {
	name := "replication-peer:" + p.nodeID
	_, err := p.execute(name, func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.addr+"/health", nil)
		if err != nil {
			return nil, err
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("peer %s health check returned %d", p.nodeID, resp.StatusCode)
		}
		return nil, nil
	})
	return err
}

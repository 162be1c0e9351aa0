// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// EmbeddedServer wraps a self-contained NATS JetStream instance so a
// single-node deployment needs no external broker. Start it once at
// process startup and point both the Publisher and the Collector's
// Config.NATSURL at its ClientURL(), with Config.EmbeddedServer cleared.
type EmbeddedServer struct {
	server    *server.Server
	clientURL string
}

// StartEmbeddedServer starts an embedded JetStream server using cfg.StoreDir
// for persistence.
func StartEmbeddedServer(cfg Config) (*EmbeddedServer, error) {
	opts := &server.Options{
		ServerName: "flapjack-analytics",
		Host:       "127.0.0.1",
		Port:       -1, // OS-assigned port, single-node embedded use only
		JetStream:  true,
		StoreDir:   cfg.StoreDir,
		DontListen: false,
		NoLog:      false,
		MaxPayload: 8 * 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create embedded NATS server: %w", err)
	}
	ns.ConfigureLogger()
	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server not ready within timeout")
	}

	return &EmbeddedServer{server: ns, clientURL: ns.ClientURL()}, nil
}

// ClientURL returns the connection URL embedded clients should dial.
func (s *EmbeddedServer) ClientURL() string { return s.clientURL }

// Shutdown stops the embedded server, waiting for in-flight messages to
// complete or ctx to be cancelled.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error {
	s.server.Shutdown()
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.server.WaitForShutdown()
		return nil
	}
}

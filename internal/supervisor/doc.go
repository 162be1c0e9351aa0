// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package supervisor provides process supervision for flapjackd using suture v4.

# Overview

SupervisorTree organizes long-running services into three layers for
failure isolation:

	SupervisorTree ("flapjackd")
	├── data ("data-layer")
	│   └── one write worker per loaded tenant
	├── messaging ("messaging-layer")
	│   ├── replication manager's peer health prober
	│   └── analytics pipeline's NATS subscriber and flush loop
	└── api ("api-layer")
	    └── HTTP server

A crash in one tenant's write worker doesn't affect another tenant's;
a replication peer going dark doesn't affect the API's ability to serve
cached responses.

# Usage

	logger := slog.Default()
	tree, err := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())
	if err != nil {
	    log.Fatal(err)
	}

	tree.AddAPIService(httpServerService)
	tree.AddMessagingService(replicationManager)
	tree.AddMessagingService(analyticsCollector)

	if err := tree.Serve(ctx); err != nil {
	    log.Printf("supervisor stopped: %v", err)
	}

# Failure Handling

Each layer counts failures with exponential decay (TreeConfig.FailureDecay
seconds). When the count exceeds FailureThreshold, restarts back off by
FailureBackoff before retrying. Defaults match suture's own production
defaults: 5 failures, 30s decay, 15s backoff, 10s shutdown timeout.

# Service Interface

Every supervised component implements suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Returning nil means the service stopped cleanly and won't be restarted;
returning an error means it crashed and will be restarted after backoff.

# See Also

  - github.com/thejerf/suture/v4: underlying supervision library
*/
package supervisor

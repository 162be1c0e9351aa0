// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

const eventsStreamName = "EVENTS"

// ensureEventsStream idempotently creates or updates the EVENTS stream
// both subjects are published on, so publishers and the collector's
// subscriber never race a stream that doesn't exist yet.
func ensureEventsStream(ctx context.Context, js jetstream.JetStream) error {
	cfg := jetstream.StreamConfig{
		Name:        eventsStreamName,
		Subjects:    []string{searchEventsSubject, insightEventsSubject},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Discard:     jetstream.DiscardOld,
		AllowDirect: true,
	}

	if _, err := js.Stream(ctx, eventsStreamName); err == nil {
		if _, err := js.UpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("update %s stream: %w", eventsStreamName, err)
		}
		return nil
	}
	if _, err := js.CreateStream(ctx, cfg); err != nil {
		return fmt.Errorf("create %s stream: %w", eventsStreamName, err)
	}
	return nil
}

// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package analytics

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/gridlhq/flapjack/internal/logging"
)

// Publisher hands search and insight events off to JetStream so the HTTP
// request path never waits on a flush. If the pipeline is disabled,
// Publish* become no-ops logged at debug level.
type Publisher struct {
	cfg Config
	wm  message.Publisher
	nc  *natsgo.Conn
}

// NewPublisher connects to JetStream at cfg.NATSURL and ensures the EVENTS
// stream exists. Callers running an embedded broker must call
// StartEmbeddedServer first and set cfg.NATSURL to its ClientURL(). When
// cfg.Enabled is false it returns a Publisher whose methods are no-ops.
func NewPublisher(cfg Config) (*Publisher, error) {
	if !cfg.Enabled {
		return &Publisher{cfg: cfg}, nil
	}

	nc, err := natsgo.Connect(cfg.NATSURL, natsgo.RetryOnFailedConnect(true), natsgo.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}
	if err := ensureEventsStream(context.Background(), js); err != nil {
		nc.Close()
		return nil, err
	}

	logger := watermill.NewStdLogger(false, false)
	wmPub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.NATSURL,
		NatsOptions: []natsgo.Option{natsgo.RetryOnFailedConnect(true)},
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			TrackMsgId:    true,
		},
	}, logger)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return &Publisher{cfg: cfg, wm: wmPub, nc: nc}, nil
}

// PublishSearch fans a search event out to the collector asynchronously.
func (p *Publisher) PublishSearch(event *SearchEvent) {
	if !p.cfg.Enabled {
		logging.Debug().Msg("analytics: disabled, dropping search event")
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		logging.Warn().Err(err).Msg("analytics: marshal search event")
		return
	}
	msg := message.NewMessage(event.QueryID+":"+event.Tenant, payload)
	if err := p.wm.Publish(searchEventsSubject, msg); err != nil {
		logging.Warn().Err(err).Msg("analytics: publish search event")
	}
}

// PublishInsight fans an insight event out to the collector asynchronously.
func (p *Publisher) PublishInsight(event *InsightEvent) {
	if !p.cfg.Enabled {
		logging.Debug().Msg("analytics: disabled, dropping insight event")
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		logging.Warn().Err(err).Msg("analytics: marshal insight event")
		return
	}
	msg := message.NewMessage(event.Tenant+":"+event.EventName, payload)
	if err := p.wm.Publish(insightEventsSubject, msg); err != nil {
		logging.Warn().Err(err).Msg("analytics: publish insight event")
	}
}

// Close shuts the publisher's connection down.
func (p *Publisher) Close() error {
	if !p.cfg.Enabled {
		return nil
	}
	if p.wm != nil {
		_ = p.wm.Close()
	}
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}

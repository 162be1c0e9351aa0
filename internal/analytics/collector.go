// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package analytics

import (
	"container/ring"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/gridlhq/flapjack/internal/logging"
)

// eventBuffer is a bounded per-tenant FIFO of buffered events awaiting
// flush, the same container/ring-backed idiom internal/tenant's taskRing
// uses for its own bounded recent-task window.
type eventBuffer struct {
	mu    sync.Mutex
	cap   int
	buf   *ring.Ring
	n     int
}

func newEventBuffer(capacity int) *eventBuffer {
	return &eventBuffer{cap: capacity, buf: ring.New(capacity)}
}

func (b *eventBuffer) add(v interface{}) (drained []interface{}, shouldFlush bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Value = v
	b.buf = b.buf.Next()
	if b.n < b.cap {
		b.n++
	}
	if b.n >= b.cap {
		return b.drainLocked(), true
	}
	return nil, false
}

func (b *eventBuffer) drain() []interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.drainLocked()
}

func (b *eventBuffer) drainLocked() []interface{} {
	if b.n == 0 {
		return nil
	}
	out := make([]interface{}, 0, b.n)
	b.buf.Do(func(v interface{}) {
		if v != nil {
			out = append(out, v)
		}
	})
	b.buf = ring.New(b.cap)
	b.n = 0
	return out
}

type tenantBuffers struct {
	search  *eventBuffer
	insight *eventBuffer
}

// Collector drains search and insight events off JetStream into bounded
// per-tenant buffers and flushes each to an immutable Parquet partition
// when the buffer fills or the flush timer fires, whichever is first.
type Collector struct {
	cfg Config

	nc  *natsgo.Conn
	sub message.Subscriber
	db  *sql.DB

	mu      sync.Mutex
	tenants map[string]*tenantBuffers

	correlation *lru.Cache[string, SearchEvent]
}

// NewCollector connects to JetStream at cfg.NATSURL and opens the DuckDB
// connection Parquet flushes and query-engine reads share. Callers running
// an embedded broker must set cfg.NATSURL to its ClientURL() first. When
// cfg.Enabled is false, nothing is started and Serve only waits for its
// context to be cancelled.
func NewCollector(cfg Config) (*Collector, error) {
	c := &Collector{cfg: cfg, tenants: make(map[string]*tenantBuffers)}
	if !cfg.Enabled {
		return c, nil
	}

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("create analytics data dir: %w", err)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	c.db = db

	cacheSize := cfg.CorrelationCacheSize
	if cacheSize <= 0 {
		cacheSize = 10000
	}
	cache, err := lru.New[string, SearchEvent](cacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create correlation cache: %w", err)
	}
	c.correlation = cache

	nc, err := natsgo.Connect(cfg.NATSURL, natsgo.RetryOnFailedConnect(true), natsgo.MaxReconnects(-1))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	c.nc = nc

	logger := watermill.NewStdLogger(false, false)
	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.NATSURL,
		QueueGroupPrefix: "analytics-collector",
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		NatsOptions:      []natsgo.Option{natsgo.RetryOnFailedConnect(true)},
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    false,
			AckAsync:         false,
			DurablePrefix:    "analytics-collector",
			SubscribeOptions: []natsgo.SubOpt{natsgo.DeliverNew(), natsgo.AckWait(30 * time.Second)},
		},
	}, logger)
	if err != nil {
		nc.Close()
		db.Close()
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}
	c.sub = sub

	return c, nil
}

// Serve runs the collector until ctx is cancelled: drains both subjects
// and flushes every tenant's buffers on cfg.FlushInterval. It implements
// suture.Service for the supervisor tree's messaging layer.
func (c *Collector) Serve(ctx context.Context) error {
	if !c.cfg.Enabled {
		<-ctx.Done()
		return nil
	}

	searchMsgs, err := c.sub.Subscribe(ctx, searchEventsSubject)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", searchEventsSubject, err)
	}
	insightMsgs, err := c.sub.Subscribe(ctx, insightEventsSubject)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", insightEventsSubject, err)
	}

	ticker := time.NewTicker(c.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.flushAll()
			return nil
		case <-ticker.C:
			c.flushAll()
		case msg, ok := <-searchMsgs:
			if !ok {
				searchMsgs = nil
				continue
			}
			c.handleSearch(msg)
		case msg, ok := <-insightMsgs:
			if !ok {
				insightMsgs = nil
				continue
			}
			c.handleInsight(msg)
		}
	}
}

func (c *Collector) handleSearch(msg *message.Message) {
	var event SearchEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		logging.Warn().Err(err).Msg("analytics: decode search event")
		msg.Nack()
		return
	}
	msg.Ack()

	if event.QueryID != "" {
		c.correlation.Add(event.QueryID, event)
	}

	b := c.tenantBuffersFor(event.Tenant)
	if drained, flush := b.search.add(event); flush {
		c.flushKind(event.Tenant, "search", drained)
	}
}

func (c *Collector) handleInsight(msg *message.Message) {
	var event InsightEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		logging.Warn().Err(err).Msg("analytics: decode insight event")
		msg.Nack()
		return
	}
	msg.Ack()

	b := c.tenantBuffersFor(event.Tenant)
	if drained, flush := b.insight.add(event); flush {
		c.flushKind(event.Tenant, "insight", drained)
	}
}

// RecentSearch returns the search event for queryID if it was seen
// recently enough to still be in the correlation cache, letting an
// insight handler validate/enrich a click without reading from disk.
func (c *Collector) RecentSearch(queryID string) (SearchEvent, bool) {
	if c.correlation == nil {
		return SearchEvent{}, false
	}
	return c.correlation.Get(queryID)
}

func (c *Collector) tenantBuffersFor(tenant string) *tenantBuffers {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.tenants[tenant]
	if !ok {
		b = &tenantBuffers{
			search:  newEventBuffer(c.cfg.FlushSize),
			insight: newEventBuffer(c.cfg.FlushSize),
		}
		c.tenants[tenant] = b
	}
	return b
}

func (c *Collector) flushAll() {
	c.mu.Lock()
	tenants := make(map[string]*tenantBuffers, len(c.tenants))
	for k, v := range c.tenants {
		tenants[k] = v
	}
	c.mu.Unlock()

	for tenant, b := range tenants {
		if drained := b.search.drain(); len(drained) > 0 {
			c.flushKind(tenant, "search", drained)
		}
		if drained := b.insight.drain(); len(drained) > 0 {
			c.flushKind(tenant, "insight", drained)
		}
	}
}

// flushKind groups events by their own UTC event-date (not receive time)
// and writes one immutable Parquet file per date group.
func (c *Collector) flushKind(tenant, kind string, events []interface{}) {
	byDate := make(map[string][]interface{})
	for _, e := range events {
		date := eventDate(e)
		byDate[date] = append(byDate[date], e)
	}
	for date, group := range byDate {
		if err := c.writeParquetPartition(tenant, kind, date, group); err != nil {
			logging.Warn().Err(err).Str("tenant", tenant).Str("kind", kind).Str("date", date).
				Msg("analytics: flush failed")
		}
	}
}

func eventDate(e interface{}) string {
	switch v := e.(type) {
	case SearchEvent:
		return v.Date()
	case InsightEvent:
		return v.Date()
	default:
		return time.Now().UTC().Format("2006-01-02")
	}
}

func (c *Collector) writeParquetPartition(tenant, kind, date string, events []interface{}) error {
	dir := filepath.Join(c.cfg.DataDir, tenant, kind, "date="+date)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create partition dir: %w", err)
	}
	file := filepath.Join(dir, fmt.Sprintf("part-%d.parquet", time.Now().UnixNano()))

	tmpTable := fmt.Sprintf("flush_%s_%s_%d", kind, sanitizeIdent(tenant), time.Now().UnixNano())

	var createSQL, insertSQL string
	var rows [][]interface{}
	switch kind {
	case "search":
		createSQL, insertSQL, rows = searchEventsTableSQL(tmpTable, events)
	case "insight":
		createSQL, insertSQL, rows = insightEventsTableSQL(tmpTable, events)
	default:
		return fmt.Errorf("unknown event kind %q", kind)
	}

	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(createSQL); err != nil {
		return fmt.Errorf("create flush table: %w", err)
	}
	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	for _, row := range rows {
		if _, err := stmt.Exec(row...); err != nil {
			stmt.Close()
			return fmt.Errorf("insert row: %w", err)
		}
	}
	stmt.Close()

	copySQL := fmt.Sprintf(`COPY (SELECT * FROM %s) TO '%s' (FORMAT PARQUET)`, tmpTable, file)
	if _, err := tx.Exec(copySQL); err != nil {
		return fmt.Errorf("copy to parquet: %w", err)
	}
	if _, err := tx.Exec(fmt.Sprintf("DROP TABLE %s", tmpTable)); err != nil {
		return fmt.Errorf("drop flush table: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if kind == "search" {
		if err := writeUserCountSketch(file, events); err != nil {
			logging.Warn().Err(err).Str("tenant", tenant).Str("date", date).
				Msg("analytics: write user-count sketch")
		}
	}
	return nil
}

// DB returns the collector's DuckDB handle so a QueryEngine can be built
// sharing the same catalog and connection pool this collector flushes
// through. Returns nil if the pipeline is disabled.
func (c *Collector) DB() *sql.DB {
	return c.db
}

// Close shuts down the collector's NATS connection and DuckDB handle.
func (c *Collector) Close() error {
	if c.sub != nil {
		_ = c.sub.Close()
	}
	if c.nc != nil {
		c.nc.Close()
	}
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

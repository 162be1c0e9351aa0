// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package tenant

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gridlhq/flapjack/internal/ferror"
	"github.com/gridlhq/flapjack/internal/oplog"
	"github.com/gridlhq/flapjack/internal/query"
	"github.com/gridlhq/flapjack/internal/rules"
	"github.com/gridlhq/flapjack/internal/searchindex"
)

const writeQueueCapacity = 1000

// defaultFacetCacheSize is a tenant's facet cache capacity under normal
// memory pressure. Section 4.1 halves this at Elevated pressure.
const defaultFacetCacheSize = 256

// ReplicationNotifier hands off a committed oplog entry to the
// Replication Manager for fan-out to peers. It is an interface, not a
// concrete dependency on internal/replication, so this package never
// imports that one: the wiring happens at startup in cmd/flapjackd.
type ReplicationNotifier interface {
	Notify(tenantName string, entry *oplog.Entry)
}

type noopNotifier struct{}

func (noopNotifier) Notify(string, *oplog.Entry) {}

// SupervisedService is the shape suture.Service requires: a long-running
// Serve loop that returns when its context is canceled or the service
// fails. Declared locally, rather than importing internal/supervisor or
// the suture module here, so the tenant package stays free of a
// supervision-tree dependency; *writeWorker satisfies it structurally, as
// does suture.Service itself.
type SupervisedService interface {
	Serve(ctx context.Context) error
}

// DataServiceRegistrar hands a tenant's write worker to the process-wide
// supervisor tree's data layer so suture starts it, and restarts it if it
// ever returns unexpectedly. Wired in at startup from cmd/flapjackd, once
// the tree exists; left nil in tests that exercise the Manager without a
// supervisor tree.
type DataServiceRegistrar func(svc SupervisedService)

// tenantHandle bundles everything the manager keeps open for one tenant.
type tenantHandle struct {
	name string
	dir  string

	index    *searchindex.Index
	log      *oplog.Log
	synonyms *rules.SynonymStore
	rules    *rules.RuleStore

	mu       sync.RWMutex
	settings Settings

	facetCache *query.FacetCache
	generation atomic.Uint64

	tasks   *taskRing
	writeCh chan writeRequest
}

// Name returns the tenant's name.
func (h *tenantHandle) Name() string { return h.name }

// Index returns the tenant's inverted index, for read-only use by the
// query executor.
func (h *tenantHandle) Index() *searchindex.Index { return h.index }

// Synonyms returns the tenant's synonym store.
func (h *tenantHandle) Synonyms() *rules.SynonymStore { return h.synonyms }

// Rules returns the tenant's query rule store.
func (h *tenantHandle) Rules() *rules.RuleStore { return h.rules }

// FacetCache returns the tenant's facet/result cache.
func (h *tenantHandle) FacetCache() *query.FacetCache { return h.facetCache }

// FacetCacheBaseSize returns the facet cache's capacity under normal
// memory pressure, so callers can compute the Elevated-pressure halved
// capacity and restore it once pressure subsides.
func (h *tenantHandle) FacetCacheBaseSize() int { return defaultFacetCacheSize }

// Generation returns the tenant's current write generation, bumped on
// every successful write and settings change.
func (h *tenantHandle) Generation() uint64 { return h.generation.Load() }

func (h *tenantHandle) Settings() Settings {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.settings
}

func (h *tenantHandle) SetSettings(s Settings) {
	h.mu.Lock()
	h.settings = s
	h.mu.Unlock()
	h.generation.Add(1)
}

// IndexConfig derives the query executor's view of this tenant's current
// settings.
func (h *tenantHandle) IndexConfig() query.IndexConfig {
	s := h.Settings()
	return query.IndexConfig{
		FacetFields:           s.FacetSet(),
		SearchableFacetFields: s.SearchableFacetSet(),
		QueryType:             s.QueryType,
		MaxValuesPerFacet:     s.MaxValuesPerFacet,
		AttributeForDistinct:  s.AttributeForDistinct,
		MinWordSizeFor1Typo:   s.MinWordSizeFor1Typo,
		MinWordSizeFor2Typos:  s.MinWordSizeFor2Typos,
		CustomRanking:         s.CustomRanking,
	}
}

// Manager owns every tenant's on-disk state and in-memory handles, the
// global write budget, and the per-tenant write queues.
type Manager struct {
	dataDir     string
	maxDocBytes int
	budget      *writeBudget
	tenants     sync.Map // name -> *tenantHandle
	notifier    ReplicationNotifier
	registrar   DataServiceRegistrar
}

// NewManager builds a Manager rooted at dataDir, allowing at most
// maxConcurrentWriters writes in flight across all tenants at once, and
// rejecting any single document larger than maxDocBytes.
func NewManager(dataDir string, maxConcurrentWriters int64, maxDocBytes int) *Manager {
	return &Manager{
		dataDir:     dataDir,
		maxDocBytes: maxDocBytes,
		budget:      newWriteBudget(maxConcurrentWriters),
		notifier:    noopNotifier{},
	}
}

// SetReplicationNotifier wires the Replication Manager in after both are
// constructed, avoiding an import cycle.
func (m *Manager) SetReplicationNotifier(n ReplicationNotifier) {
	m.notifier = n
}

// SetDataServiceRegistrar wires the supervisor tree in after both are
// constructed. Every tenant loaded after this call has its write worker
// started under the tree's data layer instead of running unsupervised.
func (m *Manager) SetDataServiceRegistrar(r DataServiceRegistrar) {
	m.registrar = r
}

// Count reports the number of currently loaded tenants.
func (m *Manager) Count() int {
	n := 0
	m.tenants.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// Create idempotently provisions a tenant's on-disk directory and loads
// it, reusing an existing directory (and its settings/synonyms/rules) if
// one is already there.
func (m *Manager) Create(name string) (*tenantHandle, error) {
	return m.GetOrLoad(name)
}

// Get returns an already-provisioned tenant's handle, loading it from
// disk on first access but never creating a new tenant that doesn't
// already exist on disk. Handlers for search/settings/tasks use this so
// a typo'd tenant name 404s instead of silently provisioning a new one.
func (m *Manager) Get(name string) (*tenantHandle, error) {
	if v, ok := m.tenants.Load(name); ok {
		return v.(*tenantHandle), nil
	}
	if _, err := os.Stat(filepath.Join(m.dataDir, name)); err != nil {
		return nil, ferror.Newf(ferror.TenantNotFound, "tenant %q does not exist", name)
	}
	return m.GetOrLoad(name)
}

// GetOrLoad returns the tenant's handle, opening it from disk on first
// access and memoizing the result for subsequent calls. Unlike Get, it
// provisions a new tenant directory if one doesn't already exist, so it
// is only used by Create and the write pipeline.
func (m *Manager) GetOrLoad(name string) (*tenantHandle, error) {
	if v, ok := m.tenants.Load(name); ok {
		return v.(*tenantHandle), nil
	}

	dir := filepath.Join(m.dataDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ferror.Newf(ferror.Io, "create tenant directory %s: %v", dir, err)
	}

	idx, err := searchindex.Open(filepath.Join(dir, "index"))
	if err != nil {
		return nil, err
	}
	log, err := oplog.Open(filepath.Join(dir, "oplog"))
	if err != nil {
		return nil, err
	}
	settings, err := LoadSettings(filepath.Join(dir, "settings.json"))
	if err != nil {
		return nil, err
	}
	synonyms, err := rules.LoadSynonymStore(filepath.Join(dir, "synonyms.json"))
	if err != nil {
		return nil, err
	}
	ruleStore, err := rules.LoadRuleStore(filepath.Join(dir, "rules.json"))
	if err != nil {
		return nil, err
	}

	handle := &tenantHandle{
		name:       name,
		dir:        dir,
		index:      idx,
		log:        log,
		synonyms:   synonyms,
		rules:      ruleStore,
		settings:   settings,
		facetCache: query.NewFacetCache(defaultFacetCacheSize),
		tasks:      newTaskRing(),
		writeCh:    make(chan writeRequest, writeQueueCapacity),
	}

	actual, loaded := m.tenants.LoadOrStore(name, handle)
	if loaded {
		_ = idx.Close()
		_ = log.Close()
		return actual.(*tenantHandle), nil
	}
	if m.registrar != nil {
		m.registrar(newWriteWorker(m, handle))
	}
	return handle, nil
}

// Unload commits and closes a tenant's open handles without deleting its
// on-disk state.
func (m *Manager) Unload(name string) error {
	v, ok := m.tenants.LoadAndDelete(name)
	if !ok {
		return ferror.Newf(ferror.TenantNotFound, "tenant %q is not loaded", name)
	}
	handle := v.(*tenantHandle)
	if err := handle.index.Close(); err != nil {
		return err
	}
	return handle.log.Close()
}

// Delete unloads the tenant (if loaded) and removes its directory.
func (m *Manager) Delete(name string) error {
	if _, ok := m.tenants.Load(name); ok {
		if err := m.Unload(name); err != nil {
			return err
		}
	}
	dir := filepath.Join(m.dataDir, name)
	if err := os.RemoveAll(dir); err != nil {
		return ferror.Newf(ferror.Io, "delete tenant directory %s: %v", dir, err)
	}
	return nil
}

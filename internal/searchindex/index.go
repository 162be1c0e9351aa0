// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package searchindex

import (
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"

	"github.com/gridlhq/flapjack/internal/document"
	"github.com/gridlhq/flapjack/internal/ferror"
)

// Index is a single tenant's inverted index: a durable bleve.Index plus a
// reloadable bleve.IndexAlias snapshot that readers query against. The
// alias is repointed to the same underlying index after every commit so
// concurrent searches never observe a half-written batch, without the
// writer and readers ever sharing a lock across a suspension point.
type Index struct {
	mu    sync.RWMutex
	path  string
	idx   bleve.Index
	alias bleve.IndexAlias
}

// Open creates or opens the bleve index rooted at path.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		m, mErr := BuildMapping()
		if mErr != nil {
			return nil, mErr
		}
		idx, err = bleve.New(path, m)
	}
	if err != nil {
		return nil, ferror.Newf(ferror.Io, "open index at %s: %v", path, err)
	}

	alias := bleve.NewIndexAlias(idx)
	return &Index{path: path, idx: idx, alias: alias}, nil
}

// Reader returns the currently visible snapshot for queries.
func (i *Index) Reader() bleve.Index {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.alias
}

// Upsert deletes then re-adds doc by identifier within one batch, so a
// repeated write never leaves stale analyzed tokens behind.
func (i *Index) Upsert(doc *document.Document) error {
	return i.UpsertBatch([]*document.Document{doc})
}

// UpsertBatch applies many document upserts as a single bleve batch.
func (i *Index) UpsertBatch(docs []*document.Document) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.idx.NewBatch()
	for _, doc := range docs {
		batch.Delete(doc.ID)
		if err := batch.Index(doc.ID, toIndexable(doc)); err != nil {
			return ferror.Newf(ferror.Io, "batch index %s: %v", doc.ID, err)
		}
	}
	if err := i.idx.Batch(batch); err != nil {
		return ferror.Newf(ferror.Io, "commit batch: %v", err)
	}
	i.reloadLocked()
	return nil
}

// Delete removes a document by identifier.
func (i *Index) Delete(id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.idx.Delete(id); err != nil {
		return ferror.Newf(ferror.Io, "delete %s: %v", id, err)
	}
	i.reloadLocked()
	return nil
}

// Clear removes every document, leaving the index schema intact. It pages
// through match-all results rather than deleting the on-disk index, since
// callers may be holding a reader snapshot.
func (i *Index) Clear() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	const pageSize = 1000
	for {
		req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), pageSize, 0, false)
		result, err := i.idx.Search(req)
		if err != nil {
			return ferror.Newf(ferror.Io, "enumerate documents for clear: %v", err)
		}
		if len(result.Hits) == 0 {
			break
		}
		batch := i.idx.NewBatch()
		for _, hit := range result.Hits {
			batch.Delete(hit.ID)
		}
		if err := i.idx.Batch(batch); err != nil {
			return ferror.Newf(ferror.Io, "clear index: %v", err)
		}
		if len(result.Hits) < pageSize {
			break
		}
	}
	i.reloadLocked()
	return nil
}

// reloadLocked repoints the alias to the live index so new searches see
// this commit's state. Called with mu held for writing.
func (i *Index) reloadLocked() {
	newAlias := bleve.NewIndexAlias(i.idx)
	i.alias = newAlias
}

// Close releases the underlying index handles.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.idx.Close(); err != nil {
		return ferror.Newf(ferror.Io, "close index: %v", err)
	}
	return nil
}

// DocCount reports the number of live documents.
func (i *Index) DocCount() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	n, err := i.idx.DocCount()
	if err != nil {
		return 0, ferror.Newf(ferror.Io, "doc count: %v", err)
	}
	return n, nil
}

// toIndexable converts a document into the flat map bleve indexes,
// including the hidden _json_filter copy of facet-like string fields.
func toIndexable(doc *document.Document) map[string]interface{} {
	out := make(map[string]interface{}, len(doc.Fields)+1)
	filterFields := make(map[string]interface{})

	for name, v := range doc.Fields {
		out[name] = toIndexValue(v)
		if v.Kind == document.KindText && IsFacetLike(v.Text) {
			filterFields[name] = v.Text
		}
		if v.Kind == document.KindFacet {
			filterFields[name] = v.Facet
		}
	}
	if len(filterFields) > 0 {
		out["_json_filter"] = filterFields
	}
	return out
}

func toIndexValue(v document.FieldValue) interface{} {
	switch v.Kind {
	case document.KindText:
		return v.Text
	case document.KindInteger:
		return v.Integer
	case document.KindFloat:
		return v.Float
	case document.KindDate:
		return v.Date.Format(time.RFC3339)
	case document.KindFacet:
		return v.Facet
	case document.KindArray:
		items := make([]interface{}, len(v.Array))
		for idx, item := range v.Array {
			items[idx] = toIndexValue(item)
		}
		return items
	case document.KindObject:
		obj := make(map[string]interface{}, len(v.Object))
		for k, item := range v.Object {
			obj[k] = toIndexValue(item)
		}
		return obj
	default:
		return nil
	}
}

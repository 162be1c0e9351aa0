// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package tenant

import (
	"context"

	"github.com/gridlhq/flapjack/internal/document"
	"github.com/gridlhq/flapjack/internal/ferror"
	"github.com/gridlhq/flapjack/internal/oplog"
)

// ApplyReplicatedOps applies oplog entries received from a peer directly
// to the tenant's index and local oplog, bypassing the write queue and
// task ring that Submit/SubmitDelete/SubmitClear use for locally-originated
// writes: this path is driven by the Replication Manager's inbound
// /internal/replicate handler, not by a client request awaiting a task ID.
// It never calls the ReplicationNotifier, so applying a peer's ops never
// re-fans them back out. It returns the tenant's local sequence number
// after applying, which lives in this node's own sequence space, not the
// peer's - the caller (the inbound /internal/replicate handler) acks with
// this value, and the caller is responsible for not re-sending ops a peer
// has already acknowledged.
func (m *Manager) ApplyReplicatedOps(ctx context.Context, name string, ops []*oplog.Entry) (uint64, error) {
	handle, err := m.GetOrLoad(name)
	if err != nil {
		return 0, err
	}

	for _, entry := range ops {
		if err := applyReplicatedEntry(ctx, handle, entry); err != nil {
			return handle.log.LastSeq(), err
		}
	}
	return handle.log.LastSeq(), nil
}

// ReadOpsSince returns every oplog entry for tenant name with a sequence
// number greater than sinceSeq, for serving an /internal/ops catch-up
// request from a peer, along with the tenant's current local sequence.
func (m *Manager) ReadOpsSince(ctx context.Context, name string, sinceSeq uint64) ([]*oplog.Entry, uint64, error) {
	handle, err := m.Get(name)
	if err != nil {
		return nil, 0, err
	}
	entries, err := handle.log.ReadSince(ctx, sinceSeq)
	if err != nil {
		return nil, 0, err
	}
	return entries, handle.log.LastSeq(), nil
}

func applyReplicatedEntry(ctx context.Context, handle *tenantHandle, entry *oplog.Entry) error {
	switch entry.Op {
	case oplog.OpUpsertDocument:
		var docs []*document.Document
		if err := entry.UnmarshalPayload(&docs); err != nil {
			return ferror.Newf(ferror.Internal, "decode replicated upsert: %v", err)
		}
		if err := handle.index.UpsertBatch(docs); err != nil {
			return err
		}
	case oplog.OpDeleteDocument:
		var ids []string
		if err := entry.UnmarshalPayload(&ids); err != nil {
			return ferror.Newf(ferror.Internal, "decode replicated delete: %v", err)
		}
		for _, id := range ids {
			if err := handle.index.Delete(id); err != nil {
				return err
			}
		}
	case oplog.OpClearIndex:
		if err := handle.index.Clear(); err != nil {
			return err
		}
	default:
		return ferror.Newf(ferror.Internal, "unsupported replicated op %q", entry.Op)
	}

	if _, err := handle.log.Append(ctx, entry.Op, entry.Payload); err != nil {
		return err
	}
	handle.generation.Add(1)
	return nil
}

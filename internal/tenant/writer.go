// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package tenant

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/gridlhq/flapjack/internal/document"
	"github.com/gridlhq/flapjack/internal/ferror"
	"github.com/gridlhq/flapjack/internal/oplog"
)

// writeKind distinguishes the write operations a task can carry.
type writeKind int

const (
	writeUpsert writeKind = iota
	writeDelete
	writeClear
)

type writeRequest struct {
	kind    writeKind
	docs    []*document.Document
	ids     []string
	task    *TaskInfo
}

// Submit enqueues a batch write for tenant name, returning its task
// descriptor immediately. The actual indexing happens asynchronously on
// that tenant's writeWorker; callers poll the returned task's ID via
// Manager.Task to observe completion.
func (m *Manager) Submit(name string, docs []*document.Document) (*TaskInfo, error) {
	handle, err := m.GetOrLoad(name)
	if err != nil {
		return nil, err
	}
	task := handle.tasks.create(len(docs))
	req := writeRequest{kind: writeUpsert, docs: docs, task: task}
	select {
	case handle.writeCh <- req:
		return task, nil
	default:
		task.Status = TaskFailed
		task.FailureReason = "write queue is full"
		return nil, ferror.Newf(ferror.QueueFull, "tenant %q write queue is full (capacity %d)", name, writeQueueCapacity)
	}
}

// SubmitDelete enqueues a batch delete-by-ID for tenant name.
func (m *Manager) SubmitDelete(name string, ids []string) (*TaskInfo, error) {
	handle, err := m.GetOrLoad(name)
	if err != nil {
		return nil, err
	}
	task := handle.tasks.create(len(ids))
	req := writeRequest{kind: writeDelete, ids: ids, task: task}
	select {
	case handle.writeCh <- req:
		return task, nil
	default:
		task.Status = TaskFailed
		task.FailureReason = "write queue is full"
		return nil, ferror.Newf(ferror.QueueFull, "tenant %q write queue is full (capacity %d)", name, writeQueueCapacity)
	}
}

// SubmitClear enqueues a clear-index task for tenant name.
func (m *Manager) SubmitClear(name string) (*TaskInfo, error) {
	handle, err := m.GetOrLoad(name)
	if err != nil {
		return nil, err
	}
	task := handle.tasks.create(0)
	req := writeRequest{kind: writeClear, task: task}
	select {
	case handle.writeCh <- req:
		return task, nil
	default:
		task.Status = TaskFailed
		task.FailureReason = "write queue is full"
		return nil, ferror.Newf(ferror.QueueFull, "tenant %q write queue is full (capacity %d)", name, writeQueueCapacity)
	}
}

// Task looks up a previously-submitted task by its numeric ID.
func (m *Manager) Task(name string, numericID int64) (*TaskInfo, error) {
	handle, ok := m.tenants.Load(name)
	if !ok {
		return nil, ferror.Newf(ferror.TenantNotFound, "tenant %q is not loaded", name)
	}
	task, ok := handle.(*tenantHandle).tasks.get(numericID)
	if !ok {
		return nil, ferror.Newf(ferror.TaskNotFound, "task %d not found for tenant %q", numericID, name)
	}
	return task, nil
}

// writeWorker drains one tenant's write queue sequentially, implementing
// suture.Service so the supervisor tree restarts it on an unexpected
// panic/return the way the teacher's per-concern services are supervised.
type writeWorker struct {
	manager *Manager
	handle  *tenantHandle
}

func newWriteWorker(m *Manager, h *tenantHandle) *writeWorker {
	return &writeWorker{manager: m, handle: h}
}

func (w *writeWorker) String() string {
	return fmt.Sprintf("tenant-writer-%s", w.handle.name)
}

// Serve implements suture.Service.
func (w *writeWorker) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-w.handle.writeCh:
			w.process(ctx, req)
		}
	}
}

func (w *writeWorker) process(ctx context.Context, req writeRequest) {
	task := req.task
	task.Status = TaskProcessing

	if err := w.manager.budget.acquire(); err != nil {
		task.Status = TaskFailed
		task.FailureReason = err.Error()
		return
	}
	defer w.manager.budget.release()

	switch req.kind {
	case writeUpsert:
		w.processUpsert(ctx, req)
	case writeDelete:
		w.processDelete(ctx, req)
	case writeClear:
		w.processClear(ctx, req)
	}
}

func (w *writeWorker) processUpsert(ctx context.Context, req writeRequest) {
	task := req.task
	valid := make([]*document.Document, 0, len(req.docs))
	var rejected []DocFailure

	for _, doc := range req.docs {
		size := estimateDocSize(doc)
		if w.manager.maxDocBytes > 0 && size > w.manager.maxDocBytes {
			rejected = append(rejected, DocFailure{
				DocID:   doc.ID,
				Error:   string(ferror.DocumentTooLarge),
				Message: fmt.Sprintf("document is %d bytes, max is %d", size, w.manager.maxDocBytes),
			})
			continue
		}
		valid = append(valid, doc)
	}

	if len(valid) > 0 {
		if err := w.handle.index.UpsertBatch(valid); err != nil {
			task.Status = TaskFailed
			task.FailureReason = err.Error()
			return
		}
		if payload, err := json.Marshal(valid); err == nil {
			if _, err := w.handle.log.Append(ctx, oplog.OpUpsertDocument, payload); err == nil {
				w.manager.notifier.Notify(w.handle.name, &oplog.Entry{Op: oplog.OpUpsertDocument, Payload: payload})
			}
		}
		w.handle.generation.Add(1)
	}

	task.IndexedDocuments = len(valid)
	task.RejectedDocuments = rejected
	task.RejectedCount = len(rejected)
	task.Status = TaskSucceeded
}

func (w *writeWorker) processDelete(ctx context.Context, req writeRequest) {
	task := req.task
	for _, id := range req.ids {
		if err := w.handle.index.Delete(id); err != nil {
			task.Status = TaskFailed
			task.FailureReason = err.Error()
			return
		}
	}
	if payload, err := json.Marshal(req.ids); err == nil {
		if _, err := w.handle.log.Append(ctx, oplog.OpDeleteDocument, payload); err == nil {
			w.manager.notifier.Notify(w.handle.name, &oplog.Entry{Op: oplog.OpDeleteDocument, Payload: payload})
		}
	}
	w.handle.generation.Add(1)
	task.IndexedDocuments = len(req.ids)
	task.Status = TaskSucceeded
}

func (w *writeWorker) processClear(ctx context.Context, req writeRequest) {
	task := req.task
	if err := w.handle.index.Clear(); err != nil {
		task.Status = TaskFailed
		task.FailureReason = err.Error()
		return
	}
	if _, err := w.handle.log.Append(ctx, oplog.OpClearIndex, nil); err == nil {
		w.manager.notifier.Notify(w.handle.name, &oplog.Entry{Op: oplog.OpClearIndex})
	}
	w.handle.generation.Add(1)
	task.Status = TaskSucceeded
}

// estimateDocSize approximates a document's wire size for the
// document-too-large check by marshaling its JSON form; exact enough for
// an admission check without requiring the caller to have retained the
// original request bytes.
func estimateDocSize(doc *document.Document) int {
	data, err := json.Marshal(doc.ToJSON())
	if err != nil {
		return 0
	}
	return len(data)
}

// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/gridlhq/flapjack/internal/document"
	"github.com/gridlhq/flapjack/internal/ferror"
	"github.com/gridlhq/flapjack/internal/tenant"
)

// batchStepKind distinguishes the write operations one grouped batch step
// submits as a unit.
type batchStepKind int

const (
	batchStepUpsert batchStepKind = iota
	batchStepDelete
	batchStepClear
)

// batchStep is a maximal run of consecutive same-kind operations from a
// batch request, submitted to the tenant's write queue as one call.
type batchStep struct {
	kind batchStepKind
	docs []*document.Document
	ids  []string
}

// groupBatchOperations splits a batch request's operations into ordered
// steps. Consecutive addObject/updateObject/partialUpdateObject operations
// coalesce into one upsert step, and consecutive deleteObject operations
// coalesce into one delete step, but a run of one kind never merges across
// a different kind in between: addObject(A), deleteObject(B), addObject(C)
// becomes three steps, applied in that order, so B is deleted only after A
// is indexed and before C is.
func groupBatchOperations(ops []BatchOperation) ([]batchStep, error) {
	var steps []batchStep
	for _, op := range ops {
		switch op.Action {
		case "addObject", "updateObject", "partialUpdateObject":
			doc, err := document.FromJSON(op.Body)
			if err != nil {
				return nil, err
			}
			if n := len(steps); n > 0 && steps[n-1].kind == batchStepUpsert {
				steps[n-1].docs = append(steps[n-1].docs, doc)
				continue
			}
			steps = append(steps, batchStep{kind: batchStepUpsert, docs: []*document.Document{doc}})
		case "deleteObject":
			id, ok := op.Body["objectID"].(string)
			if !ok {
				return nil, ferror.New(ferror.MissingField, "deleteObject requires objectID")
			}
			if n := len(steps); n > 0 && steps[n-1].kind == batchStepDelete {
				steps[n-1].ids = append(steps[n-1].ids, id)
				continue
			}
			steps = append(steps, batchStep{kind: batchStepDelete, ids: []string{id}})
		case "clear":
			steps = append(steps, batchStep{kind: batchStepClear})
		}
	}
	return steps, nil
}

// Batch handles POST /1/indexes/{name}/batch: a mixed, ordered set of add/
// update/delete/clear operations. Each step groupBatchOperations produces
// is submitted as its own task, and the response describes the last of
// those tasks. Unlike a single category winning outright, every operation
// is applied, in the order it was declared.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	indexName := chi.URLParam(r, "name")
	if err := RequireIndexAccess(r, indexName); err != nil {
		WriteError(w, r, err)
		return
	}

	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, ferror.Newf(ferror.InvalidDocument, "decode batch request: %v", err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		WriteError(w, r, ferror.Newf(ferror.InvalidDocument, "validate batch request: %v", err))
		return
	}

	steps, err := groupBatchOperations(req.Requests)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if len(steps) == 0 {
		WriteError(w, r, ferror.New(ferror.InvalidDocument, "batch contains no operations"))
		return
	}

	var lastTask *tenant.TaskInfo
	for _, step := range steps {
		var task *tenant.TaskInfo
		var err error
		switch step.kind {
		case batchStepUpsert:
			task, err = h.tenants.Submit(indexName, step.docs)
		case batchStepDelete:
			task, err = h.tenants.SubmitDelete(indexName, step.ids)
		case batchStepClear:
			task, err = h.tenants.SubmitClear(indexName)
		}
		if err != nil {
			WriteError(w, r, err)
			return
		}
		lastTask = task
	}
	NewResponseWriter(w, r).Created(lastTask)
}

// GetObject handles GET /1/indexes/{name}/{objectID}.
func (h *Handler) GetObject(w http.ResponseWriter, r *http.Request) {
	indexName := chi.URLParam(r, "name")
	if err := RequireIndexAccess(r, indexName); err != nil {
		WriteError(w, r, err)
		return
	}
	tenantHandle, err := h.tenants.Get(indexName)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	objectID := chi.URLParam(r, "objectID")
	doc, ok, err := tenantHandle.Index().Get(objectID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if !ok {
		WriteError(w, r, ferror.Newf(ferror.TenantNotFound, "object %q not found", objectID))
		return
	}
	NewResponseWriter(w, r).JSON(doc.ToJSON())
}

// PutObject handles PUT /1/indexes/{name}/{objectID}: upsert of a single
// document whose ID comes from the path rather than the body.
func (h *Handler) PutObject(w http.ResponseWriter, r *http.Request) {
	indexName := chi.URLParam(r, "name")
	if err := RequireIndexAccess(r, indexName); err != nil {
		WriteError(w, r, err)
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, r, ferror.Newf(ferror.InvalidDocument, "decode object: %v", err))
		return
	}
	body["objectID"] = chi.URLParam(r, "objectID")

	doc, err := document.FromJSON(body)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	task, err := h.tenants.Submit(indexName, []*document.Document{doc})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(task)
}

// DeleteObject handles DELETE /1/indexes/{name}/{objectID}.
func (h *Handler) DeleteObject(w http.ResponseWriter, r *http.Request) {
	indexName := chi.URLParam(r, "name")
	if err := RequireIndexAccess(r, indexName); err != nil {
		WriteError(w, r, err)
		return
	}

	task, err := h.tenants.SubmitDelete(indexName, []string{chi.URLParam(r, "objectID")})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(task)
}

// Task handles GET /1/indexes/{name}/task/{taskID}.
func (h *Handler) Task(w http.ResponseWriter, r *http.Request) {
	indexName := chi.URLParam(r, "name")
	if err := RequireIndexAccess(r, indexName); err != nil {
		WriteError(w, r, err)
		return
	}

	id, ok := parseTaskID(chi.URLParam(r, "taskID"))
	if !ok {
		WriteError(w, r, ferror.Newf(ferror.TaskNotFound, "malformed task ID"))
		return
	}
	task, err := h.tenants.Task(indexName, id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(task)
}

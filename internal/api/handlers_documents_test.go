// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import "testing"

func TestGroupBatchOperationsPreservesMixedOrderWithoutDroppingAny(t *testing.T) {
	ops := []BatchOperation{
		{Action: "addObject", Body: map[string]interface{}{"objectID": "a"}},
		{Action: "deleteObject", Body: map[string]interface{}{"objectID": "b"}},
		{Action: "addObject", Body: map[string]interface{}{"objectID": "c"}},
	}
	steps, err := groupBatchOperations(ops)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d: %+v", len(steps), steps)
	}
	if steps[0].kind != batchStepUpsert || len(steps[0].docs) != 1 || steps[0].docs[0].ID != "a" {
		t.Fatalf("expected first step to upsert a, got %+v", steps[0])
	}
	if steps[1].kind != batchStepDelete || len(steps[1].ids) != 1 || steps[1].ids[0] != "b" {
		t.Fatalf("expected second step to delete b, got %+v", steps[1])
	}
	if steps[2].kind != batchStepUpsert || len(steps[2].docs) != 1 || steps[2].docs[0].ID != "c" {
		t.Fatalf("expected third step to upsert c, got %+v", steps[2])
	}
}

func TestGroupBatchOperationsCoalescesConsecutiveSameKind(t *testing.T) {
	ops := []BatchOperation{
		{Action: "addObject", Body: map[string]interface{}{"objectID": "a"}},
		{Action: "updateObject", Body: map[string]interface{}{"objectID": "b"}},
		{Action: "deleteObject", Body: map[string]interface{}{"objectID": "c"}},
		{Action: "deleteObject", Body: map[string]interface{}{"objectID": "d"}},
	}
	steps, err := groupBatchOperations(ops)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 coalesced steps, got %d: %+v", len(steps), steps)
	}
	if len(steps[0].docs) != 2 || len(steps[1].ids) != 2 {
		t.Fatalf("expected runs of 2 to coalesce, got %+v", steps)
	}
}

func TestGroupBatchOperationsClearNeverCoalesces(t *testing.T) {
	ops := []BatchOperation{
		{Action: "clear"},
		{Action: "clear"},
	}
	steps, err := groupBatchOperations(ops)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 2 || steps[0].kind != batchStepClear || steps[1].kind != batchStepClear {
		t.Fatalf("expected two distinct clear steps, got %+v", steps)
	}
}

func TestGroupBatchOperationsDeleteWithoutObjectIDErrors(t *testing.T) {
	ops := []BatchOperation{
		{Action: "deleteObject", Body: map[string]interface{}{}},
	}
	if _, err := groupBatchOperations(ops); err == nil {
		t.Fatal("expected an error when deleteObject has no objectID")
	}
}

func TestGroupBatchOperationsEmptyRequestYieldsNoSteps(t *testing.T) {
	steps, err := groupBatchOperations(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 0 {
		t.Fatalf("expected no steps, got %+v", steps)
	}
}

// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package tenant

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gridlhq/flapjack/internal/document"
	"github.com/gridlhq/flapjack/internal/supervisor"
)

// TestWriteWorkerRunsUnderSupervisorTree exercises the real write path end
// to end: a tenant's writeWorker, registered with an actual
// supervisor.SupervisorTree exactly as cmd/flapjackd wires it, must drain
// Manager.Submit requests and mark their tasks succeeded without any test
// doubles standing in for either piece.
func TestWriteWorkerRunsUnderSupervisorTree(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, 4, 1<<20)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tree, err := supervisor.NewSupervisorTree(logger, supervisor.TreeConfig{
		FailureBackoff:  10 * time.Millisecond,
		ShutdownTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("failed to create supervisor tree: %v", err)
	}
	m.SetDataServiceRegistrar(func(svc SupervisedService) {
		tree.AddDataService(svc)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	doc, err := document.FromJSON(map[string]any{"objectID": "widget-1", "title": "blue widget"})
	if err != nil {
		t.Fatalf("failed to build document: %v", err)
	}
	task, err := m.Submit("catalog", []*document.Document{doc})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		got, err := m.Task("catalog", task.NumericID)
		if err != nil {
			t.Fatalf("task lookup failed: %v", err)
		}
		if got.Status == TaskSucceeded {
			if got.IndexedDocuments != 1 {
				t.Fatalf("expected 1 indexed document, got %d", got.IndexedDocuments)
			}
			break
		}
		if got.Status == TaskFailed {
			t.Fatalf("task failed: %s", got.FailureReason)
		}
		select {
		case <-deadline:
			t.Fatal("write task never completed under the supervised worker")
		case <-time.After(5 * time.Millisecond):
		}
	}

	handle, err := m.Get("catalog")
	if err != nil {
		t.Fatalf("failed to fetch handle: %v", err)
	}
	got, ok, err := handle.Index().Get("widget-1")
	if err != nil {
		t.Fatalf("index lookup failed: %v", err)
	}
	if !ok || got == nil {
		t.Fatal("expected widget-1 to be indexed")
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor tree did not shut down")
	}
}

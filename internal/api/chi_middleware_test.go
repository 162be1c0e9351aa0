// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gridlhq/flapjack/internal/memory"
)

func passThrough() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMemoryAdmissionPassesAtNormal(t *testing.T) {
	obs := memory.New(1<<30, 2<<30)
	handler := MemoryAdmission(obs)(passThrough())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/1/indexes/x/batch", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 at normal pressure, got %d", rec.Code)
	}
}

func TestMemoryAdmissionRejectsAtElevated(t *testing.T) {
	obs := memory.New(0, 1<<30) // HeapAlloc is always >= 0, so Elevated fires immediately
	handler := MemoryAdmission(obs)(passThrough())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/1/indexes/x/batch", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 at elevated pressure, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "5" {
		t.Fatalf("expected Retry-After: 5, got %q", rec.Header().Get("Retry-After"))
	}
}

func TestMemoryAdmissionRejectsAtCritical(t *testing.T) {
	obs := memory.New(0, 0)
	handler := MemoryAdmission(obs)(passThrough())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/1/indexes/x/obj1", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 at critical pressure, got %d", rec.Code)
	}
}

func TestCriticalMemoryAdmissionAllowsReadsUnderElevated(t *testing.T) {
	obs := memory.New(0, 1<<30)
	handler := CriticalMemoryAdmission(obs)(passThrough())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/1/indexes/x/query", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected elevated pressure to still allow reads, got %d", rec.Code)
	}
}

func TestCriticalMemoryAdmissionRejectsReadsUnderCritical(t *testing.T) {
	obs := memory.New(0, 0)
	handler := CriticalMemoryAdmission(obs)(passThrough())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/1/indexes/x/query", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected critical pressure to reject reads too, got %d", rec.Code)
	}
}

func TestCriticalMemoryAdmissionExemptsHealth(t *testing.T) {
	obs := memory.New(0, 0)
	handler := CriticalMemoryAdmission(obs)(passThrough())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to stay reachable under critical pressure, got %d", rec.Code)
	}
}

// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordQuery(t *testing.T) {
	tests := []struct {
		name    string
		tenant  string
		errKind string
	}{
		{name: "successful query", tenant: "docs", errKind: ""},
		{name: "invalid query error", tenant: "docs", errKind: "invalid_query"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(QueryErrors.WithLabelValues(tt.tenant, "invalid_query"))
			RecordQuery(tt.tenant, 10*time.Millisecond, tt.errKind)
			after := testutil.ToFloat64(QueryErrors.WithLabelValues(tt.tenant, "invalid_query"))
			if tt.errKind != "" && after != before+1 {
				t.Errorf("expected QueryErrors to increment, got before=%v after=%v", before, after)
			}
		})
	}
}

func TestRecordWrite(t *testing.T) {
	before := testutil.CollectAndCount(WriteDuration)
	RecordWrite("docs", "upsert", 5*time.Millisecond)
	after := testutil.CollectAndCount(WriteDuration)
	if after < before {
		t.Errorf("expected WriteDuration series count to not decrease, got before=%d after=%d", before, after)
	}
}

func TestSetMemoryReading(t *testing.T) {
	SetMemoryReading(123456, 1)
	if got := testutil.ToFloat64(MemoryAllocatedBytes); got != 123456 {
		t.Errorf("MemoryAllocatedBytes = %v, want 123456", got)
	}
	if got := testutil.ToFloat64(MemoryPressureLevel); got != 1 {
		t.Errorf("MemoryPressureLevel = %v, want 1", got)
	}
}

func TestCircuitBreakerMetricsLabeled(t *testing.T) {
	name := "replication-peer:test"
	CircuitBreakerState.WithLabelValues(name).Set(2)
	CircuitBreakerTransitions.WithLabelValues(name, "closed", "open").Inc()
	CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(5)
	CircuitBreakerRequests.WithLabelValues(name, "failure").Inc()

	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues(name)); got != 2 {
		t.Errorf("CircuitBreakerState = %v, want 2", got)
	}
	if got := testutil.ToFloat64(CircuitBreakerConsecutiveFailures.WithLabelValues(name)); got != 5 {
		t.Errorf("CircuitBreakerConsecutiveFailures = %v, want 5", got)
	}
}

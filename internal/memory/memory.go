// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package memory implements the admission-control observer described in
// Section 4.1: a sampler over runtime.MemStats that classifies current heap
// pressure into three levels. The observer samples on demand, from the
// request path, rather than on a timer, so it never does work the server
// isn't already doing.
package memory

import "runtime"

// Level classifies current heap pressure.
type Level int

const (
	// Normal: writes and queries proceed unrestricted.
	Normal Level = iota
	// Elevated: new writes are rejected (503, Retry-After 5); queries still proceed.
	Elevated
	// Critical: every request except /health is rejected.
	Critical
)

func (l Level) String() string {
	switch l {
	case Normal:
		return "normal"
	case Elevated:
		return "elevated"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// Observer samples process heap usage against two configured thresholds.
// It holds no background goroutine; Sample is called inline by whatever
// code path needs a pressure reading, most commonly the admission
// middleware in internal/api.
type Observer struct {
	elevatedMB uint64
	criticalMB uint64
}

// New constructs an Observer. elevatedMB and criticalMB are heap-allocated
// megabyte thresholds; criticalMB must be greater than elevatedMB.
func New(elevatedMB, criticalMB uint64) *Observer {
	return &Observer{elevatedMB: elevatedMB, criticalMB: criticalMB}
}

// Reading is a single point-in-time sample.
type Reading struct {
	AllocatedMB uint64
	LimitMB     uint64
	Level       Level
}

// Sample reads runtime.MemStats.HeapAlloc and classifies it.
func (o *Observer) Sample() Reading {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	allocMB := ms.HeapAlloc / (1024 * 1024)

	level := Normal
	limit := o.elevatedMB
	switch {
	case allocMB >= o.criticalMB:
		level = Critical
		limit = o.criticalMB
	case allocMB >= o.elevatedMB:
		level = Elevated
		limit = o.elevatedMB
	}

	return Reading{AllocatedMB: allocMB, LimitMB: limit, Level: level}
}

// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package tenant

import (
	"sync/atomic"

	"github.com/gridlhq/flapjack/internal/ferror"
)

// writeBudget caps the number of writes being processed across every
// tenant at once. It is a concurrency cap, not a rate, so a plain atomic
// counter pair serves it better than golang.org/x/time/rate.
type writeBudget struct {
	active int64
	max    int64
}

func newWriteBudget(max int64) *writeBudget {
	return &writeBudget{max: max}
}

// acquire reserves one writer slot, failing with TooManyConcurrentWrites
// if the budget is already exhausted.
func (b *writeBudget) acquire() error {
	for {
		cur := atomic.LoadInt64(&b.active)
		if cur >= b.max {
			return ferror.Newf(ferror.TooManyConcurrentWrites, "write budget exhausted: %d/%d active writers", cur, b.max)
		}
		if atomic.CompareAndSwapInt64(&b.active, cur, cur+1) {
			return nil
		}
	}
}

// release returns one writer slot to the budget.
func (b *writeBudget) release() {
	atomic.AddInt64(&b.active, -1)
}

// inUse reports the current number of active writers, for health/metrics.
func (b *writeBudget) inUse() int64 {
	return atomic.LoadInt64(&b.active)
}

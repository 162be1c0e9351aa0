// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package analytics

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gridlhq/flapjack/internal/logging"
)

// RetentionSweeper removes Parquet partition directories older than
// cfg.RetentionDays, running as its own service on the supervisor tree's
// messaging layer alongside the Collector.
type RetentionSweeper struct {
	cfg      Config
	interval time.Duration
}

// NewRetentionSweeper builds a sweeper that checks every interval.
func NewRetentionSweeper(cfg Config, interval time.Duration) *RetentionSweeper {
	return &RetentionSweeper{cfg: cfg, interval: interval}
}

// Serve implements suture.Service. It sweeps once immediately, then on
// every tick, until ctx is cancelled.
func (s *RetentionSweeper) Serve(ctx context.Context) error {
	if !s.cfg.Enabled || s.cfg.RetentionDays <= 0 {
		<-ctx.Done()
		return nil
	}

	s.sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep walks <DataDir>/<tenant>/<kind>/date=YYYY-MM-DD and removes any
// partition whose date is older than cfg.RetentionDays.
func (s *RetentionSweeper) sweep() {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.cfg.RetentionDays).Format("2006-01-02")

	tenants, err := os.ReadDir(s.cfg.DataDir)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn().Err(err).Msg("analytics: retention sweep: list tenants")
		}
		return
	}

	for _, tenant := range tenants {
		if !tenant.IsDir() {
			continue
		}
		tenantDir := filepath.Join(s.cfg.DataDir, tenant.Name())
		kinds, err := os.ReadDir(tenantDir)
		if err != nil {
			continue
		}
		for _, kind := range kinds {
			if !kind.IsDir() {
				continue
			}
			kindDir := filepath.Join(tenantDir, kind.Name())
			partitions, err := os.ReadDir(kindDir)
			if err != nil {
				continue
			}
			for _, partition := range partitions {
				date, ok := parsePartitionDir(partition.Name())
				if !ok || date >= cutoff {
					continue
				}
				dir := filepath.Join(kindDir, partition.Name())
				if err := os.RemoveAll(dir); err != nil {
					logging.Warn().Err(err).Str("dir", dir).Msg("analytics: retention sweep: remove partition")
					continue
				}
				logging.Info().Str("tenant", tenant.Name()).Str("kind", kind.Name()).Str("date", date).
					Msg("analytics: retention sweep: removed partition")
			}
		}
	}
}

// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package analytics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/axiomhq/hyperloglog"
)

// sketchPath derives a Parquet partition's sidecar HyperLogLog file name.
func sketchPath(parquetFile string) string {
	return strings.TrimSuffix(parquetFile, ".parquet") + ".hll"
}

// writeUserCountSketch builds a HyperLogLog sketch of the distinct user
// tokens in a batch of search events and writes it next to the Parquet
// file it was flushed alongside, so UserCount can merge cardinality
// across partitions without re-reading raw rows.
func writeUserCountSketch(parquetFile string, events []interface{}) error {
	sk := hyperloglog.New14()
	var any bool
	for _, e := range events {
		ev, ok := e.(SearchEvent)
		if !ok || ev.UserToken == "" {
			continue
		}
		sk.Insert([]byte(ev.UserToken))
		any = true
	}
	if !any {
		return nil
	}

	data, err := sk.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal user-count sketch: %w", err)
	}
	return os.WriteFile(sketchPath(parquetFile), data, 0o640)
}

// mergeUserCountSketches merges the sidecar sketches of every Parquet file
// matched by parquetGlobs and returns the combined cardinality estimate.
// A partition with no sketch (no user tokens seen) is simply skipped.
func mergeUserCountSketches(parquetGlobs []string) (uint64, error) {
	merged := hyperloglog.New14()
	var found bool

	for _, pattern := range parquetGlobs {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return 0, fmt.Errorf("glob partitions: %w", err)
		}
		for _, f := range files {
			data, err := os.ReadFile(sketchPath(f))
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return 0, fmt.Errorf("read sketch for %s: %w", f, err)
			}
			sk := hyperloglog.New14()
			if err := sk.UnmarshalBinary(data); err != nil {
				return 0, fmt.Errorf("decode sketch for %s: %w", f, err)
			}
			if err := merged.Merge(sk); err != nil {
				return 0, fmt.Errorf("merge sketch for %s: %w", f, err)
			}
			found = true
		}
	}

	if !found {
		return 0, nil
	}
	return merged.Estimate(), nil
}

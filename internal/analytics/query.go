// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gridlhq/flapjack/internal/ferror"
)

// QueryEngine answers the fixed aggregation set spec.md §4.9 calls for by
// scanning the Parquet partitions Collector writes, directly through
// DuckDB's read_parquet. Partition pruning happens before the glob is
// built: a date outside [start, end] is never opened.
type QueryEngine struct {
	db      *sql.DB
	dataDir string
}

// NewQueryEngine builds a query engine sharing db with the Collector that
// flushes into dataDir, so both sides of the pipeline use one DuckDB
// catalog and one columnar format.
func NewQueryEngine(db *sql.DB, dataDir string) *QueryEngine {
	return &QueryEngine{db: db, dataDir: dataDir}
}

// DateRange is an inclusive [Start, End] partition-pruning window.
type DateRange struct {
	Start string // YYYY-MM-DD
	End   string // YYYY-MM-DD
}

// partitionGlobs lists date=YYYY-MM-DD/*.parquet globs for every partition
// directory of (tenant, kind) whose date falls within r, skipping any
// directory outside the range entirely rather than filtering rows after
// the scan.
func (q *QueryEngine) partitionGlobs(tenant, kind string, r DateRange) ([]string, error) {
	root := filepath.Join(q.dataDir, tenant, kind)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list partitions: %w", err)
	}

	var globs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		date, ok := parsePartitionDir(entry.Name())
		if !ok {
			continue
		}
		if date < r.Start || date > r.End {
			continue
		}
		globs = append(globs, filepath.Join(root, entry.Name(), "*.parquet"))
	}
	sort.Strings(globs)
	return globs, nil
}

func parsePartitionDir(name string) (string, bool) {
	const prefix = "date="
	if len(name) != len(prefix)+10 || name[:len(prefix)] != prefix {
		return "", false
	}
	return name[len(prefix):], true
}

func (q *QueryEngine) scanSQL(globs []string) string {
	list := "["
	for i, g := range globs {
		if i > 0 {
			list += ", "
		}
		list += "'" + g + "'"
	}
	list += "]"
	return fmt.Sprintf("read_parquet(%s, union_by_name=true)", list)
}

func noPartitionsErr(tenant string) error {
	return ferror.Newf(ferror.TenantNotFound, "no analytics partitions for tenant %q in range", tenant)
}

// TopSearch is one row of the top-searches aggregation.
type TopSearch struct {
	Query  string `json:"query"`
	Count  int64  `json:"count"`
	NbHits int64  `json:"avgNbHits"`
}

// TopSearches returns the most frequent queries in r, descending by count.
func (q *QueryEngine) TopSearches(ctx context.Context, tenant string, r DateRange, limit int) ([]TopSearch, error) {
	globs, err := q.partitionGlobs(tenant, "search", r)
	if err != nil || len(globs) == 0 {
		return nil, err
	}
	sqlText := fmt.Sprintf(`
		SELECT query, COUNT(*) AS cnt, CAST(AVG(nb_hits) AS BIGINT) AS avg_hits
		FROM %s
		WHERE tenant = ?
		GROUP BY query
		ORDER BY cnt DESC
		LIMIT ?`, q.scanSQL(globs))
	rows, err := q.db.QueryContext(ctx, sqlText, tenant, limit)
	if err != nil {
		return nil, fmt.Errorf("top searches: %w", err)
	}
	defer rows.Close()

	var out []TopSearch
	for rows.Next() {
		var t TopSearch
		if err := rows.Scan(&t.Query, &t.Count, &t.NbHits); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DailyCount is one day's event count.
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// SearchCount returns the total search count plus a daily breakdown.
func (q *QueryEngine) SearchCount(ctx context.Context, tenant string, r DateRange) (total int64, daily []DailyCount, err error) {
	globs, err := q.partitionGlobs(tenant, "search", r)
	if err != nil || len(globs) == 0 {
		return 0, nil, err
	}
	sqlText := fmt.Sprintf(`
		SELECT event_date, COUNT(*) AS cnt
		FROM %s
		WHERE tenant = ?
		GROUP BY event_date
		ORDER BY event_date`, q.scanSQL(globs))
	rows, qerr := q.db.QueryContext(ctx, sqlText, tenant)
	if qerr != nil {
		return 0, nil, fmt.Errorf("search count: %w", qerr)
	}
	defer rows.Close()
	for rows.Next() {
		var d DailyCount
		if err := rows.Scan(&d.Date, &d.Count); err != nil {
			return 0, nil, err
		}
		daily = append(daily, d)
		total += d.Count
	}
	return total, daily, rows.Err()
}

// NoResultRate returns the fraction of searches with zero hits, and the
// top queries among those zero-hit searches.
func (q *QueryEngine) NoResultRate(ctx context.Context, tenant string, r DateRange, limit int) (rate float64, topQueries []TopSearch, err error) {
	globs, err := q.partitionGlobs(tenant, "search", r)
	if err != nil || len(globs) == 0 {
		return 0, nil, err
	}
	var total, noResult int64
	if err := q.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE nb_hits = 0) FROM %s WHERE tenant = ?`,
		q.scanSQL(globs)), tenant).Scan(&total, &noResult); err != nil {
		return 0, nil, fmt.Errorf("no-result rate: %w", err)
	}
	if total > 0 {
		rate = float64(noResult) / float64(total)
	}

	rows, err := q.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT query, COUNT(*) AS cnt, 0
		FROM %s
		WHERE tenant = ? AND nb_hits = 0
		GROUP BY query
		ORDER BY cnt DESC
		LIMIT ?`, q.scanSQL(globs)), tenant, limit)
	if err != nil {
		return rate, nil, fmt.Errorf("top no-result queries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t TopSearch
		if err := rows.Scan(&t.Query, &t.Count, &t.NbHits); err != nil {
			return rate, nil, err
		}
		topQueries = append(topQueries, t)
	}
	return rate, topQueries, rows.Err()
}

// ClickThroughRate returns clicks-per-search and the average click position
// over r. It does not compute a per-position distribution of clicks.
func (q *QueryEngine) ClickThroughRate(ctx context.Context, tenant string, r DateRange) (ctr float64, avgPosition float64, err error) {
	searchGlobs, err := q.partitionGlobs(tenant, "search", r)
	if err != nil {
		return 0, 0, err
	}
	insightGlobs, err := q.partitionGlobs(tenant, "insight", r)
	if err != nil || len(searchGlobs) == 0 || len(insightGlobs) == 0 {
		return 0, 0, err
	}

	var searches int64
	if err := q.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT COUNT(*) FROM %s WHERE tenant = ?`, q.scanSQL(searchGlobs)), tenant).Scan(&searches); err != nil {
		return 0, 0, fmt.Errorf("click-through rate: %w", err)
	}

	var clicks sql.NullInt64
	var avgPos sql.NullFloat64
	if err := q.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*), AVG(p)
		FROM (
			SELECT UNNEST(CAST(positions AS BIGINT[])) AS p
			FROM %s
			WHERE tenant = ? AND event_type = 'click' AND query_id IS NOT NULL AND query_id != ''
		)`, q.scanSQL(insightGlobs)), tenant).Scan(&clicks, &avgPos); err != nil {
		return 0, 0, fmt.Errorf("click-through rate: %w", err)
	}

	if searches > 0 && clicks.Valid {
		ctr = float64(clicks.Int64) / float64(searches)
	}
	if avgPos.Valid {
		avgPosition = avgPos.Float64
	}
	return ctr, avgPosition, nil
}

// ConversionRate returns conversions-per-search over r.
func (q *QueryEngine) ConversionRate(ctx context.Context, tenant string, r DateRange) (float64, error) {
	searchGlobs, err := q.partitionGlobs(tenant, "search", r)
	if err != nil {
		return 0, err
	}
	insightGlobs, err := q.partitionGlobs(tenant, "insight", r)
	if err != nil || len(searchGlobs) == 0 || len(insightGlobs) == 0 {
		return 0, err
	}

	var searches, conversions int64
	if err := q.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT COUNT(*) FROM %s WHERE tenant = ?`, q.scanSQL(searchGlobs)), tenant).Scan(&searches); err != nil {
		return 0, fmt.Errorf("conversion rate: %w", err)
	}
	if err := q.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT COUNT(*) FROM %s WHERE tenant = ? AND event_type = 'conversion'`,
		q.scanSQL(insightGlobs)), tenant).Scan(&conversions); err != nil {
		return 0, fmt.Errorf("conversion rate: %w", err)
	}
	if searches == 0 {
		return 0, nil
	}
	return float64(conversions) / float64(searches), nil
}

// TopObject is one row of a top-clicked-object-identifiers aggregation.
type TopObject struct {
	ObjectID string `json:"objectID"`
	Count    int64  `json:"count"`
}

// TopClickedObjectIDs returns the most-clicked object identifiers over r.
func (q *QueryEngine) TopClickedObjectIDs(ctx context.Context, tenant string, r DateRange, limit int) ([]TopObject, error) {
	globs, err := q.partitionGlobs(tenant, "insight", r)
	if err != nil || len(globs) == 0 {
		return nil, err
	}
	rows, err := q.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT obj, COUNT(*) AS cnt
		FROM (
			SELECT UNNEST(CAST(object_ids AS VARCHAR[])) AS obj
			FROM %s
			WHERE tenant = ? AND event_type = 'click'
		)
		GROUP BY obj
		ORDER BY cnt DESC
		LIMIT ?`, q.scanSQL(globs)), tenant, limit)
	if err != nil {
		return nil, fmt.Errorf("top clicked objects: %w", err)
	}
	defer rows.Close()
	var out []TopObject
	for rows.Next() {
		var t TopObject
		if err := rows.Scan(&t.ObjectID, &t.Count); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// FilterUsage is one (attribute, value) pair's usage count in filter
// strings over the window.
type FilterUsage struct {
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
	Count     int64  `json:"count"`
}

// TopFilterAttributes returns the most common filter attribute:value
// pairs, parsed from each search's raw filter string.
func (q *QueryEngine) TopFilterAttributes(ctx context.Context, tenant string, r DateRange, limit int) ([]FilterUsage, error) {
	globs, err := q.partitionGlobs(tenant, "search", r)
	if err != nil || len(globs) == 0 {
		return nil, err
	}
	rows, err := q.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT filters, COUNT(*) AS cnt
		FROM %s
		WHERE tenant = ? AND filters IS NOT NULL AND filters != ''
		GROUP BY filters
		ORDER BY cnt DESC
		LIMIT ?`, q.scanSQL(globs)), tenant, limit)
	if err != nil {
		return nil, fmt.Errorf("top filter attributes: %w", err)
	}
	defer rows.Close()

	var out []FilterUsage
	for rows.Next() {
		var filters string
		var cnt int64
		if err := rows.Scan(&filters, &cnt); err != nil {
			return nil, err
		}
		attr, val, ok := splitFilterPair(filters)
		if !ok {
			continue
		}
		out = append(out, FilterUsage{Attribute: attr, Value: val, Count: cnt})
	}
	return out, rows.Err()
}

// splitFilterPair extracts the first "field:value" pair from a raw filter
// string for attribution purposes; compound filters attribute to their
// first clause.
func splitFilterPair(filters string) (attr, val string, ok bool) {
	for i := 0; i < len(filters); i++ {
		if filters[i] == ':' {
			val = filters[i+1:]
			for j := 0; j < len(val); j++ {
				if val[j] == ' ' {
					val = val[:j]
					break
				}
			}
			return filters[:i], val, true
		}
		if filters[i] == ' ' {
			break
		}
	}
	return "", "", false
}

// GeoBucket is one country/region's search count.
type GeoBucket struct {
	Country string `json:"country"`
	Region  string `json:"region,omitempty"`
	Count   int64  `json:"count"`
}

// GeoBreakdown returns search counts grouped by country and region.
func (q *QueryEngine) GeoBreakdown(ctx context.Context, tenant string, r DateRange) ([]GeoBucket, error) {
	globs, err := q.partitionGlobs(tenant, "search", r)
	if err != nil || len(globs) == 0 {
		return nil, err
	}
	rows, err := q.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT COALESCE(country, ''), COALESCE(region, ''), COUNT(*) AS cnt
		FROM %s
		WHERE tenant = ?
		GROUP BY country, region
		ORDER BY cnt DESC`, q.scanSQL(globs)), tenant)
	if err != nil {
		return nil, fmt.Errorf("geo breakdown: %w", err)
	}
	defer rows.Close()
	var out []GeoBucket
	for rows.Next() {
		var g GeoBucket
		if err := rows.Scan(&g.Country, &g.Region, &g.Count); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// DeviceBucket is one device category's search count.
type DeviceBucket struct {
	Device string `json:"device"`
	Count  int64  `json:"count"`
}

// DeviceBreakdown returns search counts grouped by the coarse device
// category classified from each request's User-Agent at capture time.
func (q *QueryEngine) DeviceBreakdown(ctx context.Context, tenant string, r DateRange) ([]DeviceBucket, error) {
	globs, err := q.partitionGlobs(tenant, "search", r)
	if err != nil || len(globs) == 0 {
		return nil, err
	}
	rows, err := q.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT COALESCE(NULLIF(device, ''), 'unknown'), COUNT(*) AS cnt
		FROM %s
		WHERE tenant = ?
		GROUP BY 1
		ORDER BY cnt DESC`, q.scanSQL(globs)), tenant)
	if err != nil {
		return nil, fmt.Errorf("device breakdown: %w", err)
	}
	defer rows.Close()
	var out []DeviceBucket
	for rows.Next() {
		var d DeviceBucket
		if err := rows.Scan(&d.Device, &d.Count); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UserCount returns an approximate distinct user-token count over r using
// the per-partition HyperLogLog sketches Collector writes alongside each
// Parquet file, merged without re-scanning raw rows.
func (q *QueryEngine) UserCount(ctx context.Context, tenant string, r DateRange) (uint64, error) {
	globs, err := q.partitionGlobs(tenant, "search", r)
	if err != nil || len(globs) == 0 {
		return 0, err
	}
	return mergeUserCountSketches(globs)
}

// StatusSummary is the per-tenant analytics health summary.
type StatusSummary struct {
	Tenant          string `json:"tenant"`
	TotalSearches   int64  `json:"totalSearches"`
	TotalInsights   int64  `json:"totalInsights"`
	OldestPartition string `json:"oldestPartition,omitempty"`
	NewestPartition string `json:"newestPartition,omitempty"`
}

// Status summarizes a tenant's analytics volume over the last 30 days.
func (q *QueryEngine) Status(ctx context.Context, tenant string) (StatusSummary, error) {
	r := DateRange{
		Start: time.Now().UTC().AddDate(0, 0, -30).Format("2006-01-02"),
		End:   time.Now().UTC().Format("2006-01-02"),
	}
	summary := StatusSummary{Tenant: tenant}

	searchGlobs, err := q.partitionGlobs(tenant, "search", r)
	if err != nil {
		return summary, err
	}
	if len(searchGlobs) > 0 {
		if err := q.db.QueryRowContext(ctx, fmt.Sprintf(
			`SELECT COUNT(*), MIN(event_date), MAX(event_date) FROM %s WHERE tenant = ?`,
			q.scanSQL(searchGlobs)), tenant).Scan(&summary.TotalSearches, &summary.OldestPartition, &summary.NewestPartition); err != nil {
			return summary, fmt.Errorf("status: %w", err)
		}
	}

	insightGlobs, err := q.partitionGlobs(tenant, "insight", r)
	if err != nil {
		return summary, err
	}
	if len(insightGlobs) > 0 {
		if err := q.db.QueryRowContext(ctx, fmt.Sprintf(
			`SELECT COUNT(*) FROM %s WHERE tenant = ?`, q.scanSQL(insightGlobs)), tenant).Scan(&summary.TotalInsights); err != nil {
			return summary, fmt.Errorf("status: %w", err)
		}
	}
	return summary, nil
}

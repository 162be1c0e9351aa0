// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package analytics

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// sanitizeIdent strips everything but alphanumerics and underscore from a
// tenant name so it can be embedded in a generated DuckDB identifier.
func sanitizeIdent(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "t"
	}
	return b.String()
}

func joinList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	data, _ := json.Marshal(items)
	return string(data)
}

// searchEventsTableSQL builds the temp-table schema and parameterized
// insert for a batch of buffered search events, flattening slice fields to
// JSON strings since DuckDB's Go driver binds scalar parameters.
func searchEventsTableSQL(table string, events []interface{}) (createSQL, insertSQL string, rows [][]interface{}) {
	createSQL = fmt.Sprintf(`CREATE TEMP TABLE %s (
		timestamp_millis BIGINT,
		query_id VARCHAR,
		tenant VARCHAR,
		query VARCHAR,
		nb_hits INTEGER,
		processing_time_ms BIGINT,
		user_token VARCHAR,
		source_addr VARCHAR,
		filters VARCHAR,
		facets VARCHAR,
		tags VARCHAR,
		page INTEGER,
		hits_per_page INTEGER,
		has_results BOOLEAN,
		device VARCHAR,
		country VARCHAR,
		region VARCHAR,
		experiment_name VARCHAR,
		variant_id VARCHAR,
		assignment_method VARCHAR,
		event_date VARCHAR
	)`, table)

	insertSQL = fmt.Sprintf(`INSERT INTO %s VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`, table)

	for _, e := range events {
		ev, ok := e.(SearchEvent)
		if !ok {
			continue
		}
		rows = append(rows, []interface{}{
			ev.TimestampMillis, ev.QueryID, ev.Tenant, ev.Query, ev.NbHits,
			ev.ProcessingTimeMS, ev.UserToken, ev.SourceAddr, ev.Filters,
			joinList(ev.Facets), joinList(ev.Tags), ev.Page, ev.HitsPerPage,
			ev.HasResults, ev.Device, ev.Country, ev.Region, ev.ExperimentName,
			ev.VariantID, ev.AssignmentMethod, ev.Date(),
		})
	}
	return createSQL, insertSQL, rows
}

// insightEventsTableSQL builds the temp-table schema and parameterized
// insert for a batch of buffered insight events.
func insightEventsTableSQL(table string, events []interface{}) (createSQL, insertSQL string, rows [][]interface{}) {
	createSQL = fmt.Sprintf(`CREATE TEMP TABLE %s (
		timestamp_millis BIGINT,
		event_type VARCHAR,
		event_name VARCHAR,
		tenant VARCHAR,
		user_token VARCHAR,
		authenticated_user VARCHAR,
		query_id VARCHAR,
		object_ids VARCHAR,
		positions VARCHAR,
		value DOUBLE,
		currency VARCHAR,
		interleaving_team VARCHAR,
		event_date VARCHAR
	)`, table)

	insertSQL = fmt.Sprintf(`INSERT INTO %s VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`, table)

	for _, e := range events {
		ev, ok := e.(InsightEvent)
		if !ok {
			continue
		}
		positions, _ := json.Marshal(ev.Positions)
		rows = append(rows, []interface{}{
			ev.TimestampMillis, string(ev.EventType), ev.EventName, ev.Tenant,
			ev.UserToken, ev.AuthenticatedUser, ev.QueryID, joinList(ev.ObjectIDs),
			string(positions), ev.Value, ev.Currency, ev.InterleavingTeam, ev.Date(),
		})
	}
	return createSQL, insertSQL, rows
}

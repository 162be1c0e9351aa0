// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package analytics

import "time"

const (
	searchEventsSubject  = "flapjack.events.search"
	insightEventsSubject = "flapjack.events.insight"
)

// SearchEvent is captured server-side for every query, per spec.md §4.1.
type SearchEvent struct {
	TimestampMillis   int64             `json:"timestamp_millis"`
	QueryID           string            `json:"query_id"`
	Tenant            string            `json:"tenant"`
	Query             string            `json:"query"`
	NbHits            int               `json:"nb_hits"`
	ProcessingTimeMS  int64             `json:"processing_time_ms"`
	UserToken         string            `json:"user_token,omitempty"`
	SourceAddr        string            `json:"source_addr,omitempty"`
	Filters           string            `json:"filters,omitempty"`
	Facets            []string          `json:"facets,omitempty"`
	Tags              []string          `json:"tags,omitempty"`
	Page              int               `json:"page"`
	HitsPerPage       int               `json:"hits_per_page"`
	HasResults        bool              `json:"has_results"`
	Device            string            `json:"device,omitempty"`
	Country           string            `json:"country,omitempty"`
	Region            string            `json:"region,omitempty"`
	ExperimentName    string            `json:"experiment_name,omitempty"`
	VariantID         string            `json:"variant_id,omitempty"`
	AssignmentMethod  string            `json:"assignment_method,omitempty"`
}

// Date returns the UTC calendar date an event partitions under. Events
// partition by event timestamp, never by receive time.
func (e *SearchEvent) Date() string {
	return time.UnixMilli(e.TimestampMillis).UTC().Format("2006-01-02")
}

// InsightEventType is the kind of client-reported interaction.
type InsightEventType string

const (
	InsightClick      InsightEventType = "click"
	InsightConversion InsightEventType = "conversion"
	InsightView       InsightEventType = "view"
)

// InsightEvent is received from clients after a search or a standalone
// view/conversion, per spec.md §4.1.
type InsightEvent struct {
	TimestampMillis   int64            `json:"timestamp_millis"`
	EventType         InsightEventType `json:"event_type"`
	EventName         string           `json:"event_name"`
	Tenant            string           `json:"tenant"`
	UserToken         string           `json:"user_token"`
	AuthenticatedUser string           `json:"authenticated_user,omitempty"`
	QueryID           string           `json:"query_id,omitempty"`
	ObjectIDs         []string         `json:"object_ids"`
	Positions         []int            `json:"positions,omitempty"`
	Value             float64          `json:"value,omitempty"`
	Currency          string           `json:"currency,omitempty"`
	InterleavingTeam  string           `json:"interleaving_team,omitempty"`
}

// Date returns the UTC calendar date an event partitions under.
func (e *InsightEvent) Date() string {
	return time.UnixMilli(e.TimestampMillis).UTC().Format("2006-01-02")
}

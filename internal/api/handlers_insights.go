// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/gridlhq/flapjack/internal/analytics"
	"github.com/gridlhq/flapjack/internal/ferror"
)

// insightEventRequest mirrors one entry of the Algolia Insights API's
// POST /1/events batch body.
type insightEventRequest struct {
	EventType        string   `json:"eventType" validate:"required,oneof=click conversion view"`
	EventName        string   `json:"eventName" validate:"required"`
	Index            string   `json:"index" validate:"required"`
	UserToken        string   `json:"userToken" validate:"required"`
	AuthenticatedUserToken string `json:"authenticatedUserToken,omitempty"`
	Timestamp        int64    `json:"timestamp,omitempty"`
	QueryID          string   `json:"queryID,omitempty"`
	ObjectIDs        []string `json:"objectIDs,omitempty"`
	Positions        []int    `json:"positions,omitempty"`
	Value            float64  `json:"value,omitempty"`
	Currency         string   `json:"currency,omitempty"`
}

type insightsRequest struct {
	Events []insightEventRequest `json:"events" validate:"required,max=1000,dive"`
}

// Insights handles POST /1/events, the Algolia-compatible Insights API
// for reporting click/conversion/view events back against a prior search.
func (h *Handler) Insights(w http.ResponseWriter, r *http.Request) {
	var req insightsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, ferror.Newf(ferror.InvalidQuery, "decode insights request: %v", err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		WriteError(w, r, ferror.Newf(ferror.InvalidQuery, "invalid insights request: %v", err))
		return
	}

	if h.analytics != nil {
		now := time.Now().UnixMilli()
		for _, e := range req.Events {
			ts := e.Timestamp
			if ts == 0 {
				ts = now
			}
			h.analytics.PublishInsight(&analytics.InsightEvent{
				TimestampMillis:   ts,
				EventType:         analytics.InsightEventType(e.EventType),
				EventName:         e.EventName,
				Tenant:            e.Index,
				UserToken:         e.UserToken,
				AuthenticatedUser: e.AuthenticatedUserToken,
				QueryID:           e.QueryID,
				ObjectIDs:         e.ObjectIDs,
				Positions:         e.Positions,
				Value:             e.Value,
				Currency:          e.Currency,
			})
		}
	}

	NewResponseWriter(w, r).writeJSON(http.StatusOK, map[string]string{"status": "OK"})
}

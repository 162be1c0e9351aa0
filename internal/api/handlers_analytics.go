// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// handlers_analytics.go serves the /2/... aggregation endpoints over the
// Analytics Pipeline's query engine, mirroring the Algolia Analytics API's
// tenant-scoped index parameter and startDate/endDate query parameters.
package api

import (
	"net/http"
	"time"

	"github.com/gridlhq/flapjack/internal/analytics"
	"github.com/gridlhq/flapjack/internal/ferror"
)

// AnalyticsHandler serves the /2/... read-only aggregation routes. It is
// mounted only when a node is configured with an analytics pipeline.
type AnalyticsHandler struct {
	queries *analytics.QueryEngine
}

// NewAnalyticsHandler builds an AnalyticsHandler.
func NewAnalyticsHandler(queries *analytics.QueryEngine) *AnalyticsHandler {
	return &AnalyticsHandler{queries: queries}
}

// dateRange reads the standard index/startDate/endDate query parameters,
// defaulting to the trailing 7 days when the caller omits the bounds -
// the same default window the Algolia Analytics API uses.
func dateRange(r *http.Request) (tenant string, rng analytics.DateRange, err error) {
	tenant = r.URL.Query().Get("index")
	if tenant == "" {
		return "", analytics.DateRange{}, ferror.New(ferror.Internal, "missing required query parameter \"index\"")
	}

	now := time.Now().UTC()
	rng = analytics.DateRange{
		Start: now.AddDate(0, 0, -7).Format("2006-01-02"),
		End:   now.Format("2006-01-02"),
	}
	if v := r.URL.Query().Get("startDate"); v != "" {
		rng.Start = v
	}
	if v := r.URL.Query().Get("endDate"); v != "" {
		rng.End = v
	}
	return tenant, rng, nil
}

// TopSearches handles GET /2/searches.
func (h *AnalyticsHandler) TopSearches(w http.ResponseWriter, r *http.Request) {
	tenant, rng, err := dateRange(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	limit := getIntParam(r, "limit", 10)
	results, err := h.queries.TopSearches(r.Context(), tenant, rng, limit)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(map[string]interface{}{"searches": results})
}

// SearchCount handles GET /2/searches/count.
func (h *AnalyticsHandler) SearchCount(w http.ResponseWriter, r *http.Request) {
	tenant, rng, err := dateRange(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	total, daily, err := h.queries.SearchCount(r.Context(), tenant, rng)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(map[string]interface{}{"count": total, "counts": daily})
}

// NoResultRate handles GET /2/searches/noResultRate.
func (h *AnalyticsHandler) NoResultRate(w http.ResponseWriter, r *http.Request) {
	tenant, rng, err := dateRange(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	limit := getIntParam(r, "limit", 10)
	rate, topQueries, err := h.queries.NoResultRate(r.Context(), tenant, rng, limit)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(map[string]interface{}{"rate": rate, "searches": topQueries})
}

// ClickThroughRate handles GET /2/clicks/clickThroughRate.
func (h *AnalyticsHandler) ClickThroughRate(w http.ResponseWriter, r *http.Request) {
	tenant, rng, err := dateRange(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	rate, avgPosition, err := h.queries.ClickThroughRate(r.Context(), tenant, rng)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(map[string]interface{}{"rate": rate, "clickPosition": avgPosition})
}

// TopClickedObjectIDs handles GET /2/clicks/objectIDs.
func (h *AnalyticsHandler) TopClickedObjectIDs(w http.ResponseWriter, r *http.Request) {
	tenant, rng, err := dateRange(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	limit := getIntParam(r, "limit", 10)
	results, err := h.queries.TopClickedObjectIDs(r.Context(), tenant, rng, limit)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(map[string]interface{}{"objectIDs": results})
}

// ConversionRate handles GET /2/conversions/conversionRate.
func (h *AnalyticsHandler) ConversionRate(w http.ResponseWriter, r *http.Request) {
	tenant, rng, err := dateRange(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	rate, err := h.queries.ConversionRate(r.Context(), tenant, rng)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(map[string]interface{}{"rate": rate})
}

// TopFilterAttributes handles GET /2/filters.
func (h *AnalyticsHandler) TopFilterAttributes(w http.ResponseWriter, r *http.Request) {
	tenant, rng, err := dateRange(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	limit := getIntParam(r, "limit", 10)
	results, err := h.queries.TopFilterAttributes(r.Context(), tenant, rng, limit)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(map[string]interface{}{"attributes": results})
}

// GeoBreakdown handles GET /2/geography.
func (h *AnalyticsHandler) GeoBreakdown(w http.ResponseWriter, r *http.Request) {
	tenant, rng, err := dateRange(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	results, err := h.queries.GeoBreakdown(r.Context(), tenant, rng)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(map[string]interface{}{"countries": results})
}

// DeviceBreakdown handles GET /2/devices.
func (h *AnalyticsHandler) DeviceBreakdown(w http.ResponseWriter, r *http.Request) {
	tenant, rng, err := dateRange(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	results, err := h.queries.DeviceBreakdown(r.Context(), tenant, rng)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(map[string]interface{}{"devices": results})
}

// UserCount handles GET /2/users/count.
func (h *AnalyticsHandler) UserCount(w http.ResponseWriter, r *http.Request) {
	tenant, rng, err := dateRange(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	count, err := h.queries.UserCount(r.Context(), tenant, rng)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(map[string]interface{}{"count": count})
}

// Status handles GET /2/status.
func (h *AnalyticsHandler) Status(w http.ResponseWriter, r *http.Request) {
	tenant := r.URL.Query().Get("index")
	if tenant == "" {
		WriteError(w, r, ferror.New(ferror.Internal, "missing required query parameter \"index\""))
		return
	}
	summary, err := h.queries.Status(r.Context(), tenant)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(summary)
}

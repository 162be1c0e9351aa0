// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package api is the thin HTTP adapter over the search core: request
// decoding, response encoding, and routing. It is deliberately a thin layer
// per the external-interfaces boundary — the interesting logic lives in
// internal/tenant, internal/query, and friends.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/gridlhq/flapjack/internal/ferror"
	"github.com/gridlhq/flapjack/internal/logging"
)

// APIMeta contains optional response metadata, returned alongside a search
// or task-status body during e2e debugging; Algolia-compatible clients
// ignore unrecognized top-level fields so this rides alongside the payload
// rather than wrapping it.
type APIMeta struct {
	RequestID  string `json:"requestId,omitempty"`
	DurationMs int64  `json:"processingTimeMS,omitempty"`
}

// ErrorBody is the Algolia-compatible error shape: a flat object with a
// message and status code, not a generic envelope.
type ErrorBody struct {
	Message   string `json:"message"`
	Status    int    `json:"status"`
	RequestID string `json:"requestId,omitempty"`
}

// ResponseWriter writes JSON response bodies and tracks request timing for
// the processingTimeMS field clients expect on search responses.
type ResponseWriter struct {
	w         http.ResponseWriter
	r         *http.Request
	startTime time.Time
}

// NewResponseWriter creates a new response writer.
func NewResponseWriter(w http.ResponseWriter, r *http.Request) *ResponseWriter {
	return &ResponseWriter{w: w, r: r, startTime: time.Now()}
}

// JSON writes data as-is with a 200 status. Most search/settings/task
// endpoints return their payload directly rather than through an envelope.
func (rw *ResponseWriter) JSON(data interface{}) {
	rw.writeJSON(http.StatusOK, data)
}

// Created writes a 201 Created response with the given payload.
func (rw *ResponseWriter) Created(data interface{}) {
	rw.writeJSON(http.StatusCreated, data)
}

// NoContent writes a 204 No Content response.
func (rw *ResponseWriter) NoContent() {
	rw.w.WriteHeader(http.StatusNoContent)
}

// Error renders err as the Algolia-compatible error body, deriving the
// HTTP status from its ferror.Kind when err is a *ferror.Error.
func (rw *ResponseWriter) Error(err error) {
	status := ferror.StatusCode(err)
	if fe, ok := ferror.As(err); ok {
		if d, retryable := fe.RetryAfter(); retryable {
			rw.w.Header().Set("Retry-After", formatRetrySeconds(d))
		}
	}

	body := ErrorBody{
		Message:   err.Error(),
		Status:    status,
		RequestID: logging.RequestIDFromContext(rw.r.Context()),
	}
	if status >= http.StatusInternalServerError {
		logging.Error().Err(err).Str("path", rw.r.URL.Path).Msg("request failed")
	}
	rw.writeJSON(status, body)
}

func formatRetrySeconds(d time.Duration) string {
	secs := int64(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}

// writeJSON writes JSON response with proper headers.
func (rw *ResponseWriter) writeJSON(statusCode int, data interface{}) {
	rw.w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.w.WriteHeader(statusCode)
	if err := json.NewEncoder(rw.w).Encode(data); err != nil {
		logging.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// WriteJSON is a convenience function for handlers that don't need the
// full ResponseWriter.
func WriteJSON(w http.ResponseWriter, r *http.Request, data interface{}) {
	NewResponseWriter(w, r).JSON(data)
}

// WriteError is a convenience function for error responses.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	NewResponseWriter(w, r).Error(err)
}

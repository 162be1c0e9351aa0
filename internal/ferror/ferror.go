// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package ferror defines the closed taxonomy of errors the flapjack core can
// raise. Every Kind carries a fixed HTTP status and, for the retryable
// kinds, a Retry-After duration. Handlers in internal/api render an Error
// into the JSON envelope described by the service's Algolia-compatible
// surface; nothing outside this package should construct a raw string error
// and expect it to reach a client in a structured form.
package ferror

import (
	"fmt"
	"net/http"
	"time"
)

// Kind is a closed enumeration of error categories.
type Kind string

const (
	TenantNotFound          Kind = "tenant_not_found"
	IndexAlreadyExists      Kind = "index_already_exists"
	InvalidQuery            Kind = "invalid_query"
	QueryTooComplex         Kind = "query_too_complex"
	QueryParse              Kind = "query_parse"
	InvalidSchema           Kind = "invalid_schema"
	InvalidDocument         Kind = "invalid_document"
	MissingField            Kind = "missing_field"
	TypeMismatch            Kind = "type_mismatch"
	FieldNotFound           Kind = "field_not_found"
	BufferSizeExceeded      Kind = "buffer_size_exceeded"
	DocumentTooLarge        Kind = "document_too_large"
	BatchTooLarge           Kind = "batch_too_large"
	TaskNotFound            Kind = "task_not_found"
	TooManyConcurrentWrites Kind = "too_many_concurrent_writes"
	QueueFull               Kind = "queue_full"
	MemoryPressure          Kind = "memory_pressure"
	IndexPaused             Kind = "index_paused"
	Io                      Kind = "io_error"
	Json                    Kind = "json_error"
	Config                  Kind = "config_error"
	Internal                Kind = "internal_error"
)

// statusCodes maps every Kind to its fixed HTTP status, grounded on
// original_source/engine/src/error.rs's status_code() match.
var statusCodes = map[Kind]int{
	TenantNotFound:          http.StatusNotFound,
	IndexAlreadyExists:      http.StatusConflict,
	InvalidQuery:            http.StatusBadRequest,
	QueryTooComplex:         http.StatusBadRequest,
	QueryParse:              http.StatusBadRequest,
	InvalidSchema:           http.StatusBadRequest,
	InvalidDocument:         http.StatusBadRequest,
	MissingField:            http.StatusBadRequest,
	TypeMismatch:            http.StatusBadRequest,
	FieldNotFound:           http.StatusBadRequest,
	BufferSizeExceeded:      http.StatusBadRequest,
	DocumentTooLarge:        http.StatusBadRequest,
	BatchTooLarge:           http.StatusBadRequest,
	TaskNotFound:            http.StatusNotFound,
	TooManyConcurrentWrites: http.StatusServiceUnavailable,
	QueueFull:               http.StatusTooManyRequests,
	MemoryPressure:          http.StatusServiceUnavailable,
	IndexPaused:             http.StatusServiceUnavailable,
	Io:                      http.StatusInternalServerError,
	Json:                    http.StatusBadRequest,
	Config:                  http.StatusInternalServerError,
	Internal:                http.StatusInternalServerError,
}

// retryAfter holds the Retry-After duration for the retryable kinds.
var retryAfter = map[Kind]time.Duration{
	TooManyConcurrentWrites: 5 * time.Second,
	QueueFull:               1 * time.Second,
	MemoryPressure:          5 * time.Second,
	IndexPaused:             10 * time.Second,
}

// Error is the concrete error type returned by every flapjack package.
// Fields is an optional bag of structured context (field name, expected/
// actual type, current/max counters) rendered into the API error envelope's
// Details.
type Error struct {
	Kind       Kind
	Message    string
	Suggestion string
	Fields     map[string]any
}

func (e *Error) Error() string {
	if e.Kind == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// StatusCode returns the fixed HTTP status for this error's Kind.
func (e *Error) StatusCode() int {
	if code, ok := statusCodes[e.Kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// RetryAfter returns the Retry-After duration and true if this Kind is
// retryable, matching the four kinds spec.md §7 singles out.
func (e *Error) RetryAfter() (time.Duration, bool) {
	d, ok := retryAfter[e.Kind]
	return d, ok
}

// New constructs an *Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithSuggestion attaches a user-facing remediation hint.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithField attaches one key to the error's structured detail bag.
func (e *Error) WithField(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]any, 1)
	}
	e.Fields[key] = value
	return e
}

// As reports whether err is a *Error and, if so, returns it. This mirrors
// the shape of errors.As without requiring a target pointer at call sites
// that just need a read-only view (handlers rendering the envelope).
func As(err error) (*Error, bool) {
	fe, ok := err.(*Error)
	return fe, ok
}

// StatusCode extracts the HTTP status for any error, defaulting to 500 for
// errors that are not *Error (e.g. a bug surfaced as a bare Go error).
func StatusCode(err error) int {
	if fe, ok := As(err); ok {
		return fe.StatusCode()
	}
	return http.StatusInternalServerError
}

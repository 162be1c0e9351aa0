package ferror

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestStatusCodeMapping(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{TenantNotFound, http.StatusNotFound},
		{IndexAlreadyExists, http.StatusConflict},
		{InvalidQuery, http.StatusBadRequest},
		{QueryTooComplex, http.StatusBadRequest},
		{TooManyConcurrentWrites, http.StatusServiceUnavailable},
		{BufferSizeExceeded, http.StatusBadRequest},
		{DocumentTooLarge, http.StatusBadRequest},
		{BatchTooLarge, http.StatusBadRequest},
		{TaskNotFound, http.StatusNotFound},
		{QueueFull, http.StatusTooManyRequests},
		{MemoryPressure, http.StatusServiceUnavailable},
		{IndexPaused, http.StatusServiceUnavailable},
		{Io, http.StatusInternalServerError},
		{Config, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		e := New(tc.kind, "boom")
		if got := e.StatusCode(); got != tc.want {
			t.Errorf("%s: StatusCode() = %d, want %d", tc.kind, got, tc.want)
		}
	}
}

func TestUnknownKindDefaultsTo500(t *testing.T) {
	e := New(Kind("something_new"), "mystery")
	if got := e.StatusCode(); got != http.StatusInternalServerError {
		t.Errorf("StatusCode() = %d, want 500", got)
	}
}

func TestRetryAfter(t *testing.T) {
	e := New(QueueFull, "full")
	d, ok := e.RetryAfter()
	if !ok || d != time.Second {
		t.Errorf("RetryAfter() = %v, %v; want 1s, true", d, ok)
	}

	e2 := New(InvalidQuery, "bad")
	if _, ok := e2.RetryAfter(); ok {
		t.Errorf("InvalidQuery should not be retryable")
	}
}

func TestErrorStringIncludesKind(t *testing.T) {
	e := New(MissingField, "objectID required")
	want := "missing_field: objectID required"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWithFieldAndSuggestion(t *testing.T) {
	e := Newf(TypeMismatch, "field %s", "price").
		WithSuggestion("convert to a number").
		WithField("expected", "float").
		WithField("actual", "string")

	if e.Suggestion != "convert to a number" {
		t.Errorf("Suggestion not set")
	}
	if e.Fields["expected"] != "float" || e.Fields["actual"] != "string" {
		t.Errorf("Fields not set correctly: %+v", e.Fields)
	}
}

func TestAsAndPackageStatusCode(t *testing.T) {
	var err error = New(TenantNotFound, "no such tenant")
	fe, ok := As(err)
	if !ok || fe.Kind != TenantNotFound {
		t.Fatalf("As() failed to unwrap: %v %v", fe, ok)
	}
	if StatusCode(err) != http.StatusNotFound {
		t.Errorf("StatusCode(err) = %d, want 404", StatusCode(err))
	}

	plain := errors.New("unstructured")
	if StatusCode(plain) != http.StatusInternalServerError {
		t.Errorf("StatusCode(plain) = %d, want 500", StatusCode(plain))
	}
}

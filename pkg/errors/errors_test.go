package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("opening: %w", ErrInputUnavailable), http.StatusNotFound},
		{fmt.Errorf("reading: %w", ErrInputReadFailure), http.StatusInternalServerError},
		{ErrWorkerFailure, http.StatusInternalServerError},
		{Invalid("terms are required"), http.StatusBadRequest},
		{ErrRateLimited, http.StatusTooManyRequests},
		{fmt.Errorf("scan: %w", ErrTimeout), http.StatusServiceUnavailable},
		{New(ErrInternal, http.StatusTeapot, "custom"), http.StatusTeapot},
	}
	for _, tt := range tests {
		if got := HTTPStatusCode(tt.err); got != tt.want {
			t.Errorf("HTTPStatusCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestKindAndExitCode(t *testing.T) {
	tests := []struct {
		err  error
		kind string
		code int
	}{
		{nil, "", 0},
		{fmt.Errorf("x: %w", ErrInputUnavailable), "input_unavailable", 3},
		{fmt.Errorf("x: %w", ErrInputReadFailure), "input_read_failure", 4},
		{fmt.Errorf("x: %w", ErrWorkerFailure), "worker_failure", 5},
		{Invalid("bad"), "invalid_input", 2},
		{context.Canceled, "internal", 1},
	}
	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.kind {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.kind)
		}
		if got := ExitCode(tt.err); got != tt.code {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.code)
		}
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := fmt.Errorf("handler: %w", Invalid("batch_size must be positive, got %d", -1))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatal("expected errors.Is to find ErrInvalidInput")
	}
	if err.Error() != "handler: invalid input: batch_size must be positive, got -1" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

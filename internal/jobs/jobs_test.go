package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/scanner"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/service"
	apperrors "github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/kafka"
)

type stubScanner struct {
	got service.Request
	err error
}

func (s *stubScanner) Scan(_ context.Context, req service.Request) (*scanner.Result, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return &scanner.Result{Terms: req.Terms, Matches: matcher.MatchSet{}}, nil
}

func TestHandleRunsScan(t *testing.T) {
	stub := &stubScanner{}
	h := NewHandler(stub)
	err := h.Handle(context.Background(), []byte("job-7"), []byte(`{"file_path":"logs/app.log","terms":["ERROR","WARN"],"batch_size":500}`))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if stub.got.FilePath != "logs/app.log" || stub.got.JobID != "job-7" || stub.got.BatchSize != 500 || len(stub.got.Terms) != 2 {
		t.Fatalf("scan request = %+v", stub.got)
	}
}

func TestHandleErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		scanErr   error
		permanent bool
	}{
		{"malformed json", `{"file_path":`, nil, true},
		{"missing file path", `{"terms":["a"]}`, nil, true},
		{"invalid request", `{"file_path":"a","terms":[""]}`, apperrors.Invalid("search term 0 is empty"), true},
		{"missing file", `{"file_path":"a","terms":["x"]}`, fmt.Errorf("open: %w", apperrors.ErrInputUnavailable), true},
		{"read failure", `{"file_path":"a","terms":["x"]}`, fmt.Errorf("read: %w", apperrors.ErrInputReadFailure), false},
		{"timeout", `{"file_path":"a","terms":["x"]}`, fmt.Errorf("scan: %w", apperrors.ErrTimeout), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&stubScanner{err: tt.scanErr})
			err := h.Handle(context.Background(), nil, []byte(tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, kafka.ErrPermanent); got != tt.permanent {
				t.Fatalf("permanent = %v, want %v (err %v)", got, tt.permanent, err)
			}
		})
	}
}

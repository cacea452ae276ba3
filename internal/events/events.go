// Package events publishes a ScanEvent for every finished scan so that
// downstream consumers can follow scan volume, latency and failures.
package events

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/scanner"
	apperrors "github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/errors"
)

type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// ScanEvent summarizes one scan. It carries counts, never match locations.
type ScanEvent struct {
	Status     Status         `json:"status"`
	ErrorKind  string         `json:"error_kind,omitempty"`
	Source     string         `json:"source"`
	Terms      []string       `json:"terms"`
	TermCounts map[string]int `json:"term_counts,omitempty"`
	Lines      int            `json:"lines"`
	Batches    int            `json:"batches"`
	Matches    int            `json:"matches"`
	LatencyMs  int64          `json:"latency_ms"`
	RequestID  string         `json:"request_id,omitempty"`
	JobID      string         `json:"job_id,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NewScanEvent builds the event for a scan of source that returned res or
// err after latency.
func NewScanEvent(source string, terms []string, res *scanner.Result, err error, latency time.Duration) ScanEvent {
	ev := ScanEvent{
		Status:    StatusOK,
		Source:    source,
		Terms:     terms,
		LatencyMs: latency.Milliseconds(),
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		ev.Status = StatusFailed
		ev.ErrorKind = apperrors.Kind(err)
		return ev
	}
	ev.Terms = res.Terms
	ev.Lines = res.Stats.Lines
	ev.Batches = res.Stats.Batches
	ev.Matches = res.Stats.Matches
	ev.TermCounts = make(map[string]int, len(res.Terms))
	for _, term := range res.Terms {
		ev.TermCounts[term] = len(res.Matches[term])
	}
	return ev
}

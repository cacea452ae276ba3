package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/scanner"
	apperrors "github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/metrics"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.Event
	block  chan struct{}
}

func (p *recordingPublisher) Publish(_ context.Context, events ...kafka.Event) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func TestCollectorPublishesAndDrains(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 10, nil)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)

	for i := 0; i < 3; i++ {
		c.Track(ScanEvent{Source: "sample.txt", Status: StatusOK})
	}
	cancel()
	c.Close()

	if pub.count() != 3 {
		t.Fatalf("published %d events, want 3", pub.count())
	}
	if ev, ok := pub.events[0].Value.(ScanEvent); !ok || ev.Source != "sample.txt" || pub.events[0].Key != "sample.txt" {
		t.Fatalf("unexpected event %+v", pub.events[0])
	}
}

func TestCollectorDropsWhenFull(t *testing.T) {
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	pub := &recordingPublisher{block: make(chan struct{})}
	c := NewCollector(pub, 1, m)
	c.Start(context.Background())

	c.Track(ScanEvent{Source: "a"})
	// Wait until the loop has taken the first event and is blocked publishing it.
	deadline := time.Now().Add(time.Second)
	for len(c.eventCh) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	c.Track(ScanEvent{Source: "b"})
	c.Track(ScanEvent{Source: "c"})

	if got := testutil.ToFloat64(m.EventsDroppedTotal); got != 1 {
		t.Fatalf("dropped = %v, want 1", got)
	}
	close(pub.block)
	c.Close()
	if pub.count() != 2 {
		t.Fatalf("published %d, want 2", pub.count())
	}
}

func TestNewScanEvent(t *testing.T) {
	res := &scanner.Result{
		Terms:   []string{"a", "b"},
		Matches: matcher.MatchSet{"a": {{Line: 1, Offset: 0}, {Line: 2, Offset: 4}}},
		Stats:   scanner.Stats{Lines: 2, Batches: 1, Matches: 2},
	}
	ev := NewScanEvent("f.txt", []string{"a", "b", "a"}, res, nil, 12*time.Millisecond)
	if ev.Status != StatusOK || ev.TermCounts["a"] != 2 || ev.TermCounts["b"] != 0 || ev.LatencyMs != 12 {
		t.Fatalf("event = %+v", ev)
	}
	if len(ev.Terms) != 2 {
		t.Fatalf("terms should be normalized, got %v", ev.Terms)
	}

	failed := NewScanEvent("f.txt", []string{"a"}, nil, errors.Join(apperrors.ErrInputReadFailure), time.Second)
	if failed.Status != StatusFailed || failed.ErrorKind != "input_read_failure" || failed.Matches != 0 {
		t.Fatalf("failed event = %+v", failed)
	}
}

func TestCollectorTrackAfterClose(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 4, nil)
	c.Start(context.Background())
	c.Close()
	c.Track(ScanEvent{Source: "late"})
	c.Close()
	if pub.count() != 0 {
		t.Fatalf("published %d events after close", pub.count())
	}
}

func TestCollectorPublishesEventsTrackedAfterCancel(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 4, nil)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)

	cancel()
	// A scan still running during shutdown reports after the signal.
	c.Track(ScanEvent{Source: "in-flight"})
	c.Close()

	if pub.count() != 1 {
		t.Fatalf("published %d events, want 1", pub.count())
	}
	if ev := pub.events[0].Value.(ScanEvent); ev.Source != "in-flight" {
		t.Fatalf("published %+v", ev)
	}
}

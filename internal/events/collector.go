package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/metrics"
)

// Publisher sends events to the event stream.
type Publisher interface {
	Publish(ctx context.Context, events ...kafka.Event) error
}

// Collector buffers scan events and publishes them from a single goroutine,
// so a slow broker never holds up a scan.
type Collector struct {
	publisher Publisher
	eventCh   chan ScanEvent
	metrics   *metrics.Metrics
	logger    *slog.Logger
	done      chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewCollector creates a Collector holding up to bufferSize pending events.
// m may be nil.
func NewCollector(publisher Publisher, bufferSize int, m *metrics.Metrics) *Collector {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	return &Collector{
		publisher: publisher,
		eventCh:   make(chan ScanEvent, bufferSize),
		metrics:   m,
		logger:    slog.Default().With("component", "scan-events"),
		done:      make(chan struct{}),
	}
}

// Start launches the publish loop. Cancelling ctx does not stop it, since
// scans still in flight during shutdown go on tracking events; Close is the
// only stop path and publishes everything queued before it returns.
func (c *Collector) Start(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer close(c.done)
		for event := range c.eventCh {
			c.publish(ctx, event)
		}
	}()
	c.logger.Info("scan event collector started", "buffer_size", cap(c.eventCh))
}

// Track queues event without blocking. It is dropped when the buffer is
// full or the collector is closed.
func (c *Collector) Track(event ScanEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.logger.Warn("scan event dropped (collector closed)", "source", event.Source)
		if c.metrics != nil {
			c.metrics.EventsDroppedTotal.Inc()
		}
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("scan event dropped (buffer full)", "source", event.Source)
		if c.metrics != nil {
			c.metrics.EventsDroppedTotal.Inc()
		}
	}
}

// Close stops accepting events and waits for the publish loop to exit.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
	c.mu.Unlock()
	<-c.done
}

func (c *Collector) publish(ctx context.Context, event ScanEvent) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.publisher.Publish(ctx, kafka.Event{Key: event.Source, Value: event}); err != nil {
		c.logger.Error("failed to publish scan event", "source", event.Source, "error", err)
	}
}

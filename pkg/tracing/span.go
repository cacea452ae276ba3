// Package tracing records timed spans through a context and logs finished
// span trees with slog. It is enough to see where a scan spent its time
// (opening the input, scanning, recording) without an external collector.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type contextKey struct{}

// Span is one timed step. Children are the steps started under it.
type Span struct {
	Name     string
	TraceID  string
	Start    time.Time
	Duration time.Duration

	mu       sync.Mutex
	ended    bool
	children []*Span
	attrs    []any
}

// Start begins a span under the span in ctx, if any. A span with no parent
// takes traceID; children inherit their parent's.
func Start(ctx context.Context, name, traceID string) (context.Context, *Span) {
	span := &Span{Name: name, TraceID: traceID, Start: time.Now()}
	if parent := FromContext(ctx); parent != nil {
		span.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.children = append(parent.children, span)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, contextKey{}, span), span
}

// FromContext returns the current span, or nil.
func FromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

// End fixes the span's duration. Later calls have no effect.
func (s *Span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.ended = true
		s.Duration = time.Since(s.Start)
	}
}

// SetAttr attaches a key-value pair that is logged with the span.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, key, value)
	s.mu.Unlock()
}

// Children returns the spans started under s.
func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Span(nil), s.children...)
}

// Log writes s and its descendants to logger at debug level, parents first.
func (s *Span) Log(ctx context.Context, logger *slog.Logger) {
	s.log(ctx, logger, 0)
}

func (s *Span) log(ctx context.Context, logger *slog.Logger, depth int) {
	s.mu.Lock()
	attrs := append([]any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"duration_ms", s.Duration.Milliseconds(),
		"depth", depth,
	}, s.attrs...)
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()

	logger.DebugContext(ctx, "span", attrs...)
	for _, child := range children {
		child.log(ctx, logger, depth+1)
	}
}

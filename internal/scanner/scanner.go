// Package scanner runs the batch-parallel scan: it reads lines from a
// LineSource, cuts them into batches with precomputed line and offset
// headers, matches batches on a bounded worker pool, and merges the
// per-batch results in submission order.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/metrics"
)

// LineSource yields input lines in order and returns io.EOF when exhausted.
type LineSource interface {
	ReadLine() (string, error)
}

// MatchFunc matches one batch. It must not retain or mutate the batch.
type MatchFunc func(b matcher.Batch, terms []string) matcher.MatchSet

// Stats describes a completed scan.
type Stats struct {
	Lines    int           `json:"lines"`
	Batches  int           `json:"batches"`
	Chars    int           `json:"chars"`
	Matches  int           `json:"matches"`
	Workers  int           `json:"workers"`
	Duration time.Duration `json:"-"`
}

// Result is the outcome of a successful scan. Terms is the normalized term
// list; Matches has no key for terms that never occurred.
type Result struct {
	Terms   []string
	Matches matcher.MatchSet
	Stats   Stats
}

// Scanner runs scans. It holds no per-scan state and may be shared.
type Scanner struct {
	batchSize int
	workers   int
	match     MatchFunc
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Option customizes a Scanner.
type Option func(*Scanner)

// WithMetrics records scan and batch metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scanner) { s.metrics = m }
}

// WithMatchFunc replaces matcher.FindMatches.
func WithMatchFunc(fn MatchFunc) Option {
	return func(s *Scanner) { s.match = fn }
}

// New creates a Scanner from the batch size and worker count in cfg. Zero
// values fall back to config defaults.
func New(cfg config.ScanConfig, opts ...Option) *Scanner {
	cfg = cfg.WithDefaults()
	s := &Scanner{
		batchSize: max(cfg.BatchSize, 1),
		workers:   max(cfg.Workers, 1),
		match:     matcher.FindMatches,
		logger:    slog.Default().With("component", "scanner"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan reads src to the end and returns every location of every term.
//
// A read error stops batch formation; batches already dispatched are waited
// for and the error, wrapping ErrInputReadFailure, is returned. A panicking
// batch cancels the remaining work and yields ErrWorkerFailure. Cancelling
// ctx stops the scan the same way. On any failure no partial result is
// returned, and Scan never returns while a worker is still running.
func (s *Scanner) Scan(ctx context.Context, src LineSource, terms []string) (*Result, error) {
	start := time.Now()
	terms = matcher.NormalizeTerms(terms)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	var slots []*matcher.MatchSet
	dispatch := func(b matcher.Batch) {
		slot := new(matcher.MatchSet)
		idx := len(slots)
		slots = append(slots, slot)
		g.Go(func() error {
			return s.runBatch(gctx, idx, b, terms, slot)
		})
	}

	batcher := NewBatcher(s.batchSize)
	readErr := s.feed(gctx, src, batcher, dispatch)
	waitErr := g.Wait()

	if err := s.failure(ctx, readErr, waitErr); err != nil {
		s.logger.Error("scan failed",
			"error", err,
			"kind", apperrors.Kind(err),
			"lines_read", batcher.Lines(),
			"batches_dispatched", len(slots),
		)
		s.observeScan(apperrors.Kind(err), time.Since(start))
		return nil, err
	}

	sets := make([]matcher.MatchSet, len(slots))
	for i, slot := range slots {
		sets[i] = *slot
	}
	merged := Merge(sets)

	res := &Result{
		Terms:   terms,
		Matches: merged,
		Stats: Stats{
			Lines:    batcher.Lines(),
			Batches:  batcher.Batches(),
			Chars:    batcher.Offset(),
			Matches:  merged.Count(),
			Workers:  s.workers,
			Duration: time.Since(start),
		},
	}
	s.observeScan("ok", res.Stats.Duration)
	if s.metrics != nil {
		s.metrics.LinesScannedTotal.Add(float64(res.Stats.Lines))
		s.metrics.MatchesTotal.Add(float64(res.Stats.Matches))
	}
	s.logger.Debug("scan completed",
		"terms", len(terms),
		"lines", res.Stats.Lines,
		"batches", res.Stats.Batches,
		"matches", res.Stats.Matches,
		"duration", res.Stats.Duration,
	)
	return res, nil
}

// errStopped reports that batch formation ended early because the group
// context was cancelled.
var errStopped = errors.New("scan stopped")

// feed is the only reader of src. It returns nil at end of input.
func (s *Scanner) feed(ctx context.Context, src LineSource, b *Batcher, dispatch func(matcher.Batch)) error {
	for {
		line, err := src.ReadLine()
		if errors.Is(err, io.EOF) {
			if batch, ok := b.Flush(); ok {
				if ctx.Err() != nil {
					return errStopped
				}
				dispatch(batch)
			}
			return nil
		}
		if err != nil {
			if !errors.Is(err, apperrors.ErrInputReadFailure) {
				err = fmt.Errorf("%w: %w", apperrors.ErrInputReadFailure, err)
			}
			return fmt.Errorf("reading line %d: %w", b.Lines()+1, err)
		}
		if batch, ok := b.Add(line); ok {
			if ctx.Err() != nil {
				return errStopped
			}
			dispatch(batch)
		}
	}
}

func (s *Scanner) runBatch(ctx context.Context, idx int, b matcher.Batch, terms []string, out *matcher.MatchSet) (err error) {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: batch %d (lines %d-%d): %v",
				apperrors.ErrWorkerFailure, idx, b.StartLine, b.StartLine+len(b.Lines)-1, r)
		}
	}()

	start := time.Now()
	if s.metrics != nil {
		s.metrics.WorkersBusy.Inc()
		defer s.metrics.WorkersBusy.Dec()
	}
	*out = s.match(b, terms)
	if s.metrics != nil {
		s.metrics.BatchesTotal.Inc()
		s.metrics.BatchLatency.Observe(time.Since(start).Seconds())
	}
	return nil
}

// failure picks the single error a scan reports, or nil on success.
func (s *Scanner) failure(ctx context.Context, readErr, waitErr error) error {
	if readErr != nil && !errors.Is(readErr, errStopped) {
		return readErr
	}
	if waitErr != nil && !isContextErr(waitErr) {
		return waitErr
	}
	if waitErr != nil || readErr != nil {
		if err := ctx.Err(); err != nil {
			return contextFailure(err)
		}
		if waitErr != nil {
			return contextFailure(waitErr)
		}
		return contextFailure(context.Canceled)
	}
	return nil
}

func (s *Scanner) observeScan(status string, d time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ScansTotal.WithLabelValues(status).Inc()
	s.metrics.ScanLatency.Observe(d.Seconds())
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func contextFailure(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("scan: %w: %w", apperrors.ErrTimeout, err)
	}
	return fmt.Errorf("scan cancelled: %w", err)
}

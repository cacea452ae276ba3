// Package service runs scans on behalf of the HTTP API and the job consumer.
// It resolves inputs, applies per-request limits, collapses identical
// concurrent file scans, and records every finished scan in the history
// store and on the event stream.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/events"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/history"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/scanner"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/source"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/tracing"
)

// InlineSource is the source name recorded for scans of request text.
const InlineSource = "inline"

// Recorder stores scan runs.
type Recorder interface {
	Record(ctx context.Context, run history.Run) (int64, error)
}

// Tracker receives scan events.
type Tracker interface {
	Track(event events.ScanEvent)
}

// Request describes one scan. Exactly one of FilePath and Text is set.
// Zero BatchSize and Workers use the configured defaults.
type Request struct {
	FilePath  string
	Text      string
	Terms     []string
	BatchSize int
	Workers   int
	RequestID string
	JobID     string
}

// Service runs scans. Recorder and Tracker are optional.
type Service struct {
	base         config.ScanConfig
	scanRoot     string
	maxTextBytes int64
	recorder     Recorder
	tracker      Tracker
	metrics      *metrics.Metrics
	group        singleflight.Group
	logger       *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

func WithRecorder(r Recorder) Option { return func(s *Service) { s.recorder = r } }

func WithTracker(t Tracker) Option { return func(s *Service) { s.tracker = t } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// New creates a Service that scans files under server.ScanRoot with the
// defaults in scan.
func New(scan config.ScanConfig, server config.ServerConfig, opts ...Option) *Service {
	s := &Service{
		base:         scan.WithDefaults(),
		scanRoot:     server.ScanRoot,
		maxTextBytes: server.MaxTextBytes,
		logger:       slog.Default().With("component", "scan-service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan validates req and runs it. Identical concurrent file scans share a
// single pass over the file; the returned Result must not be modified.
func (s *Service) Scan(ctx context.Context, req Request) (*scanner.Result, error) {
	cfg, err := s.configFor(req)
	if err != nil {
		return nil, err
	}
	if req.Text != "" {
		return s.run(ctx, cfg, InlineSource, req, func() (scanner.LineSource, func(), error) {
			return source.NewReader(strings.NewReader(req.Text), InlineSource), func() {}, nil
		})
	}

	key := flightKey(req.FilePath, cfg)
	// The shared scan must not die with the first caller's request.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		return s.run(flightCtx, cfg, req.FilePath, req, func() (scanner.LineSource, func(), error) {
			f, err := source.OpenInRoot(s.scanRoot, req.FilePath)
			if err != nil {
				return nil, nil, err
			}
			return f, func() { f.Close() }, nil
		})
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug("file scan shared", "file", req.FilePath)
		}
		return res.Val.(*scanner.Result), nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("waiting for scan of %s: %w: %w", req.FilePath, apperrors.ErrTimeout, ctx.Err())
		}
		return nil, fmt.Errorf("waiting for scan of %s: %w", req.FilePath, ctx.Err())
	}
}

func (s *Service) configFor(req Request) (config.ScanConfig, error) {
	hasFile := strings.TrimSpace(req.FilePath) != ""
	if hasFile == (req.Text != "") {
		return config.ScanConfig{}, apperrors.Invalid("exactly one of file_path and text is required")
	}
	if s.maxTextBytes > 0 && int64(len(req.Text)) > s.maxTextBytes {
		return config.ScanConfig{}, apperrors.Invalid("text is %d bytes, limit is %d", len(req.Text), s.maxTextBytes)
	}
	if req.BatchSize < 0 || req.Workers < 0 {
		return config.ScanConfig{}, apperrors.Invalid("batch_size and workers must not be negative")
	}
	cfg := s.base
	cfg.FilePath = req.FilePath
	cfg.Terms = req.Terms
	if req.BatchSize > 0 {
		cfg.BatchSize = req.BatchSize
	}
	if req.Workers > 0 {
		cfg.Workers = req.Workers
	}
	if err := cfg.Validate(false); err != nil {
		return config.ScanConfig{}, err
	}
	return cfg, nil
}

func (s *Service) run(
	ctx context.Context,
	cfg config.ScanConfig,
	name string,
	req Request,
	open func() (scanner.LineSource, func(), error),
) (*scanner.Result, error) {
	started := time.Now()
	ctx, span := tracing.Start(ctx, "scan", traceID(req))
	span.SetAttr("source", name)
	defer func() {
		span.End()
		span.Log(ctx, s.logger)
	}()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	var res *scanner.Result
	_, openSpan := tracing.Start(ctx, "open", "")
	src, closeSrc, err := open()
	openSpan.End()
	if err == nil {
		_, matchSpan := tracing.Start(ctx, "match", "")
		res, err = scanner.New(cfg, scanner.WithMetrics(s.metrics)).Scan(ctx, src, cfg.Terms)
		closeSrc()
		if res != nil {
			matchSpan.SetAttr("lines", res.Stats.Lines)
			matchSpan.SetAttr("batches", res.Stats.Batches)
		}
		matchSpan.End()
	}
	recordCtx, recordSpan := tracing.Start(ctx, "record", "")
	s.observe(recordCtx, name, req, cfg.Terms, res, err, started)
	recordSpan.End()
	if err != nil {
		return nil, err
	}
	return res, nil
}

// observe records a finished scan. Failures to record are logged only.
func (s *Service) observe(ctx context.Context, name string, req Request, terms []string, res *scanner.Result, scanErr error, started time.Time) {
	logger := s.logger.With("source", name, "request_id", req.RequestID, "job_id", req.JobID)
	if scanErr != nil {
		logger.Warn("scan failed", "kind", apperrors.Kind(scanErr), "error", scanErr)
	} else {
		logger.Info("scan completed",
			"lines", res.Stats.Lines,
			"batches", res.Stats.Batches,
			"matches", res.Stats.Matches,
			"duration", res.Stats.Duration,
		)
	}

	if s.recorder != nil {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if _, err := s.recorder.Record(rctx, history.NewRun(name, terms, res, scanErr, started)); err != nil {
			logger.Error("failed to record scan run", "error", err)
		}
	}
	if s.tracker != nil {
		ev := events.NewScanEvent(name, terms, res, scanErr, time.Since(started))
		ev.RequestID = req.RequestID
		ev.JobID = req.JobID
		s.tracker.Track(ev)
	}
}

func traceID(req Request) string {
	if req.RequestID != "" {
		return req.RequestID
	}
	return req.JobID
}

func flightKey(path string, cfg config.ScanConfig) string {
	var sb strings.Builder
	sb.WriteString(path)
	sb.WriteByte(0)
	sb.WriteString(strconv.Itoa(cfg.BatchSize))
	sb.WriteByte(0)
	sb.WriteString(strconv.Itoa(cfg.Workers))
	for _, t := range cfg.Terms {
		sb.WriteByte(0)
		sb.WriteString(strconv.Quote(t))
	}
	return sb.String()
}

// Package jobs runs scans requested over Kafka. Each message names a file
// under the scan root and the terms to look for; results go to the scan
// history and the event stream, not back to the requester.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/scanner"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/service"
	apperrors "github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/kafka"
)

// Request is the JSON body of a scan-request message.
type Request struct {
	JobID     string   `json:"job_id"`
	FilePath  string   `json:"file_path"`
	Terms     []string `json:"terms"`
	BatchSize int      `json:"batch_size,omitempty"`
	Workers   int      `json:"workers,omitempty"`
}

// Scanner runs one scan.
type Scanner interface {
	Scan(ctx context.Context, req service.Request) (*scanner.Result, error)
}

// Handler turns scan-request messages into scans.
type Handler struct {
	scanner Scanner
	logger  *slog.Logger
}

func NewHandler(s Scanner) *Handler {
	return &Handler{
		scanner: s,
		logger:  slog.Default().With("component", "scan-jobs"),
	}
}

// Handle is a kafka.MessageHandler. Requests that can never succeed, such
// as malformed bodies or missing files, fail with kafka.ErrPermanent so the
// consumer commits past them; other failures are redelivered.
func (h *Handler) Handle(ctx context.Context, key, value []byte) error {
	req, err := kafka.DecodeJSON[Request](value)
	if err != nil {
		return err
	}
	if req.JobID == "" {
		req.JobID = string(key)
	}
	if req.FilePath == "" {
		return fmt.Errorf("%w: job %s: file_path is required", kafka.ErrPermanent, req.JobID)
	}

	res, err := h.scanner.Scan(ctx, service.Request{
		FilePath:  req.FilePath,
		Terms:     req.Terms,
		BatchSize: req.BatchSize,
		Workers:   req.Workers,
		JobID:     req.JobID,
	})
	if err != nil {
		if permanent(err) {
			return fmt.Errorf("%w: job %s: %w", kafka.ErrPermanent, req.JobID, err)
		}
		return fmt.Errorf("job %s: %w", req.JobID, err)
	}
	h.logger.Info("scan job completed",
		"job_id", req.JobID,
		"file", req.FilePath,
		"matches", res.Stats.Matches,
	)
	return nil
}

// permanent reports whether retrying the same request cannot help.
func permanent(err error) bool {
	return errors.Is(err, apperrors.ErrInvalidInput) ||
		errors.Is(err, apperrors.ErrInputUnavailable) ||
		errors.Is(err, apperrors.ErrWorkerFailure)
}

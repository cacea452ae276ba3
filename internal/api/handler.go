// Package api exposes scans over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/history"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/report"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/scanner"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/service"
	apperrors "github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/middleware"
)

// ScanRequest is the body of POST /api/v1/scans.
type ScanRequest struct {
	FilePath  string   `json:"file_path,omitempty"`
	Text      string   `json:"text,omitempty"`
	Terms     []string `json:"terms"`
	BatchSize int      `json:"batch_size,omitempty"`
	Workers   int      `json:"workers,omitempty"`
}

type Scanner interface {
	Scan(ctx context.Context, req service.Request) (*scanner.Result, error)
}

type HistoryLister interface {
	Recent(ctx context.Context, limit int) ([]history.Run, error)
}

type Handler struct {
	scanner      Scanner
	history      HistoryLister
	maxBodyBytes int64
	logger       *slog.Logger
}

// New creates a Handler. history may be nil when scan history is disabled.
// Request bodies larger than maxBodyBytes are rejected.
func New(s Scanner, history HistoryLister, maxBodyBytes int64) *Handler {
	return &Handler{
		scanner:      s,
		history:      history,
		maxBodyBytes: maxBodyBytes,
		logger:       slog.Default().With("component", "scan-handler"),
	}
}

func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req ScanRequest
	body := io.Reader(r.Body)
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	res, err := h.scanner.Scan(ctx, service.Request{
		FilePath:  req.FilePath,
		Text:      req.Text,
		Terms:     req.Terms,
		BatchSize: req.BatchSize,
		Workers:   req.Workers,
		RequestID: middleware.GetRequestID(ctx),
	})
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if status >= http.StatusInternalServerError {
			log.Error("scan request failed", "kind", apperrors.Kind(err), "error", err)
		}
		h.writeError(w, status, publicMessage(err, status))
		return
	}
	h.writeJSON(w, http.StatusOK, report.NewDocument(res))
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, http.StatusServiceUnavailable, "scan history is disabled")
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := h.history.Recent(r.Context(), history.ClampLimit(limit))
	if err != nil {
		logger.FromContext(r.Context()).Error("listing scan history failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "listing scan history failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

// publicMessage hides internal failure detail such as file system paths
// from clients.
func publicMessage(err error, status int) string {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr.Message
	case status == http.StatusNotFound:
		return "input file not found"
	case errors.Is(err, apperrors.ErrTimeout):
		return "scan timed out"
	case errors.Is(err, apperrors.ErrInputReadFailure):
		return "failed reading input"
	case errors.Is(err, apperrors.ErrWorkerFailure):
		return "scan worker failed"
	default:
		return "scan failed"
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

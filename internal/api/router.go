package api

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/middleware"
)

// RouterConfig carries the optional pieces of the middleware chain.
type RouterConfig struct {
	Limiter middleware.Limiter
	// Clients derives the rate-limit key; nil keys on the direct peer.
	Clients *middleware.ClientResolver
	// RateWindow is reported to limited clients in Retry-After.
	RateWindow time.Duration
	Metrics    *metrics.Metrics
	Health     *health.Checker
	Timeout    time.Duration
}

// NewRouter builds the service handler.
//
// Route table:
//
//	POST /api/v1/scans          run a scan
//	GET  /api/v1/scans/history  recent scan runs
//	GET  /health/live           liveness
//	GET  /health/ready          readiness
//
// Middleware chain (outermost first):
//
//	RequestID → Metrics → RateLimit → Timeout → mux
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/scans", h.Scan)
	mux.HandleFunc("GET /api/v1/scans/history", h.History)
	if cfg.Health != nil {
		mux.HandleFunc("GET /health/live", cfg.Health.LiveHandler())
		mux.HandleFunc("GET /health/ready", cfg.Health.ReadyHandler())
	}

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Timeout)(chain)
	if cfg.Limiter != nil {
		chain = middleware.RateLimit(cfg.Limiter, cfg.Clients, cfg.RateWindow, cfg.Metrics)(chain)
	}
	if cfg.Metrics != nil {
		chain = middleware.Metrics(cfg.Metrics)(chain)
	}
	return middleware.RequestID(chain)
}

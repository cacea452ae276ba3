// Package health runs dependency checks for the scan service. Optional
// dependencies report degraded rather than down, so the service stays ready
// to scan when only its side channels (history, events, shared rate limits)
// are impaired.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status represents the health state of a component or the service overall.
type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

// ComponentHealth holds the result of a single component check.
type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Report is the aggregated result of all component checks.
type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

type registered struct {
	check    Check
	critical bool
}

// Checker manages registered checks and runs them concurrently.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]registered
}

func NewChecker() *Checker {
	return &Checker{checks: make(map[string]registered)}
}

// Register adds a check whose failure marks the service down.
func (c *Checker) Register(name string, check Check) {
	c.add(name, check, true)
}

// RegisterOptional adds a check whose failure only degrades the service.
func (c *Checker) RegisterOptional(name string, check Check) {
	c.add(name, check, false)
}

// Disabled records a component that is switched off in configuration.
func (c *Checker) Disabled(name string) {
	c.add(name, nil, false)
}

func (c *Checker) add(name string, check Check, critical bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = registered{check: check, critical: critical}
}

// Run executes all checks concurrently. The overall status is the worst
// component status.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]registered, len(c.checks))
	for name, r := range c.checks {
		checks[name] = r
	}
	c.mu.RUnlock()

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(checks)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	for name, r := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := probe(ctx, r)
			mu.Lock()
			report.Components[name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()

	for _, comp := range report.Components {
		switch comp.Status {
		case StatusDown:
			report.Status = StatusDown
			return report
		case StatusDegraded:
			report.Status = StatusDegraded
		}
	}
	return report
}

func probe(ctx context.Context, r registered) ComponentHealth {
	if r.check == nil {
		return ComponentHealth{Status: StatusUp, Message: "disabled"}
	}
	start := time.Now()
	err := r.check(ctx)
	result := ComponentHealth{
		Status:  StatusUp,
		Latency: time.Since(start).Round(time.Millisecond).String(),
	}
	if err != nil {
		result.Message = err.Error()
		result.Status = StatusDegraded
		if r.critical {
			result.Status = StatusDown
		}
	}
	return result
}

// LiveHandler answers liveness probes.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	}
}

// ReadyHandler answers readiness probes; only a down component fails them.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		report := c.Run(ctx)
		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusDown {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(report)
	}
}

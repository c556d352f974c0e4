// Package health reports whether the indexer's dependencies answer. A
// critical dependency that fails makes the service not ready; an optional
// one only degrades it.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	gojson "github.com/goccy/go-json"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Pinger is implemented by clients that can probe their backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Component is the outcome of probing one dependency.
type Component struct {
	Status   Status `json:"status"`
	Error    string `json:"error,omitempty"`
	Critical bool   `json:"critical"`
	Took     string `json:"took"`
}

// Report is the outcome of probing every registered dependency.
type Report struct {
	Status     Status               `json:"status"`
	Components map[string]Component `json:"components"`
	CheckedAt  time.Time            `json:"checked_at"`
}

type probe struct {
	pinger   Pinger
	critical bool
}

// Checker probes registered dependencies in parallel.
type Checker struct {
	mu      sync.RWMutex
	probes  map[string]probe
	timeout time.Duration
	logger  *slog.Logger
}

// NewChecker returns a Checker whose readiness probe gives every dependency
// timeout to answer.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{
		probes:  make(map[string]probe),
		timeout: timeout,
		logger:  slog.Default().With("component", "health"),
	}
}

// Critical registers a dependency the service cannot run without.
func (c *Checker) Critical(name string, p Pinger) { c.add(name, probe{pinger: p, critical: true}) }

// Optional registers a dependency whose failure only degrades the service.
func (c *Checker) Optional(name string, p Pinger) { c.add(name, probe{pinger: p}) }

func (c *Checker) add(name string, p probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[name] = p
}

// Check pings every dependency and folds the results: down if a critical one
// failed, degraded if only optional ones did.
func (c *Checker) Check(ctx context.Context) Report {
	c.mu.RLock()
	probes := make(map[string]probe, len(c.probes))
	for name, p := range c.probes {
		probes[name] = p
	}
	c.mu.RUnlock()

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]Component, len(probes)),
		CheckedAt:  time.Now().UTC(),
	}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, p := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			err := p.pinger.Ping(ctx)
			comp := Component{Status: StatusUp, Critical: p.critical, Took: time.Since(start).Round(time.Millisecond).String()}
			if err != nil {
				comp.Status, comp.Error = StatusDegraded, err.Error()
				if p.critical {
					comp.Status = StatusDown
				}
			}
			mu.Lock()
			report.Components[name] = comp
			mu.Unlock()
		}()
	}
	wg.Wait()

	for name, comp := range report.Components {
		switch {
		case comp.Status == StatusDown:
			report.Status = StatusDown
		case comp.Status == StatusDegraded && report.Status == StatusUp:
			report.Status = StatusDegraded
		}
		if comp.Status != StatusUp {
			c.logger.Warn("dependency unhealthy", "dependency", name, "critical", comp.Critical, "error", comp.Error)
		}
	}
	return report
}

// LiveHandler answers 200 while the process is serving.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

// ReadyHandler answers 200 unless a critical dependency is down. A degraded
// service stays ready.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
		defer cancel()
		report := c.Check(ctx)
		code := http.StatusOK
		if report.Status == StatusDown {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, report)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	gojson.NewEncoder(w).Encode(v)
}

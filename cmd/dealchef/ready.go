package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

type Readyable interface {
	Ready(context.Context) error
}

type namedCheck struct {
	name  string
	check Readyable
}

// readiness gates /ready on the catalog and the recipe store. After every
// check has passed once it stays ready; later outages show up as 502s on the
// request paths instead of pulling the pod out of rotation.
type readiness struct {
	passed  atomic.Bool
	timeout time.Duration
	checks  []namedCheck
}

func newReadiness(timeout time.Duration) *readiness {
	return &readiness{timeout: timeout}
}

func (r *readiness) Add(name string, check Readyable) {
	r.checks = append(r.checks, namedCheck{name: name, check: check})
}

// failing runs every check and returns the error of each one that failed.
func (r *readiness) failing(ctx context.Context) map[string]error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	failed := map[string]error{}
	for _, c := range r.checks {
		if err := c.check.Ready(ctx); err != nil {
			failed[c.name] = err
		}
	}
	return failed
}

func (r *readiness) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if r.passed.Load() {
		r.ok(w, req)
		return
	}
	failed := r.failing(req.Context())
	if len(failed) == 0 {
		r.passed.Store(true)
		r.ok(w, req)
		return
	}

	body := map[string]string{}
	for name, err := range failed {
		body[name] = err.Error()
	}
	slog.WarnContext(req.Context(), "not ready", "failing", body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	if err := json.NewEncoder(w).Encode(map[string]any{"ready": false, "failing": body}); err != nil {
		slog.ErrorContext(req.Context(), "failed to write readiness response", "error", err)
	}
}

func (r *readiness) ok(w http.ResponseWriter, req *http.Request) {
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.ErrorContext(req.Context(), "failed to write readiness response", "error", err)
	}
}

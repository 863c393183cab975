package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const healthTimeout = 5 * time.Second

// CheckFunc reports whether a dependency is reachable.
type CheckFunc func(ctx context.Context) error

// Checks is a map of named health checks.
type Checks map[string]CheckFunc

// Liveness always responds OK.
func Liveness(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Readiness runs every check in parallel and answers 503 when any fails.
func Readiness(checks Checks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		var (
			mu      sync.Mutex
			results = make(map[string]string, len(checks))
		)
		g, gctx := errgroup.WithContext(ctx)
		for name, check := range checks {
			g.Go(func() error {
				status := "healthy"
				err := check(gctx)
				if err != nil {
					status = err.Error()
				}
				mu.Lock()
				results[name] = status
				mu.Unlock()
				return err
			})
		}

		status, code := "healthy", http.StatusOK
		if err := g.Wait(); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		WriteJSON(w, code, map[string]any{"status": status, "checks": results})
	}
}

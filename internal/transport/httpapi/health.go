package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const healthCheckTimeout = 2 * time.Second

// HealthProbe checks one dependency, such as the projection store.
type HealthProbe interface {
	Name() string
	Check(ctx context.Context) error
}

type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components,omitempty"`
}

// HandleHealth runs every probe concurrently under a shared deadline and
// answers 200 when all pass, 503 otherwise.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	var (
		mu         sync.Mutex
		components = make(map[string]componentStatus, len(s.HealthProbes))
		healthy    = true
	)

	var g errgroup.Group
	for _, probe := range s.HealthProbes {
		g.Go(func() error {
			err := checkProbe(ctx, probe)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				healthy = false
				components[probe.Name()] = componentStatus{Status: "unhealthy", Message: err.Error()}
				return nil
			}
			components[probe.Name()] = componentStatus{Status: "healthy"}
			return nil
		})
	}
	_ = g.Wait()

	resp := healthResponse{Status: "healthy", Components: components}
	status := http.StatusOK
	if !healthy {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// checkProbe runs a probe, converting a panic or a missed deadline into an
// error.
func checkProbe(ctx context.Context, probe HealthProbe) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("probe panicked: %v", r)
			}
		}()
		done <- probe.Check(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("health check timed out")
	}
}

package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/forumpulse/internal/platform/version"
)

const (
	startupProbeTimeout   = 2 * time.Second
	readinessProbeTimeout = 5 * time.Second
)

// HealthCheck probes one dependency of the selected store backend.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// ReconcileStatus exposes when the counter reconciler last finished a pass.
type ReconcileStatus interface {
	LastSuccess() time.Time
}

// Health is what the probes report on. Reconciler may be nil.
type Health struct {
	Checks     []HealthCheck
	Reconciler ReconcileStatus
}

type probeResponse struct {
	Status     string            `json:"status"`
	Backend    string            `json:"backend"`
	Checks     map[string]string `json:"checks"`
	Reconciler *reconcilerState  `json:"reconciler,omitempty"`
}

type reconcilerState struct {
	LastSuccess *time.Time `json:"last_success"`
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/startup", s.probe(startupProbeTimeout, false))
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.probe(readinessProbeTimeout, true))
	s.echo.GET("/version", s.handleVersion)
}

// probe runs every dependency check and answers 503 if any of them failed.
func (s *Server) probe(timeout time.Duration, withReconciler bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		resp := probeResponse{
			Status:  "ready",
			Backend: s.config.StoreBackend,
			Checks:  make(map[string]string, len(s.health.Checks)),
		}
		for _, hc := range s.health.Checks {
			if err := hc.Check(ctx); err != nil {
				resp.Status = "unhealthy"
				resp.Checks[hc.Name] = err.Error()
				continue
			}
			resp.Checks[hc.Name] = "ok"
		}

		if withReconciler && s.health.Reconciler != nil {
			resp.Reconciler = &reconcilerState{}
			if last := s.health.Reconciler.LastSuccess(); !last.IsZero() {
				resp.Reconciler.LastSuccess = &last
			}
		}

		status := http.StatusOK
		if resp.Status != "ready" {
			status = http.StatusServiceUnavailable
		}
		if err := c.JSON(status, resp); err != nil {
			return fmt.Errorf("failed to write probe response: %w", err)
		}
		return nil
	}
}

func (s *Server) handleLiveness(c echo.Context) error {
	resp := map[string]any{
		"status":         "ok",
		"uptime_seconds": time.Since(s.startTime).Seconds(),
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to write liveness response: %w", err)
	}
	return nil
}

func (s *Server) handleVersion(c echo.Context) error {
	if err := c.JSON(http.StatusOK, version.Get()); err != nil {
		return fmt.Errorf("failed to write version response: %w", err)
	}
	return nil
}

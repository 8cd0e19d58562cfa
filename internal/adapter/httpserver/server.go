package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/forumpulse/internal/adapter/metrics"
	"github.com/pscheid92/forumpulse/internal/app"
	"github.com/pscheid92/forumpulse/internal/domain"
	"github.com/pscheid92/forumpulse/internal/platform/config"
)

type reactionService interface {
	SubmitReaction(ctx context.Context, req app.SubmitReactionRequest) (domain.State, error)
	GetSummary(ctx context.Context, postID uuid.UUID, userID string) (domain.ReactionSummary, error)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	reactions reactionService
	auth      *tokenVerifier

	httpMetrics    *metrics.HTTPMetrics
	metricsHandler http.Handler

	health    Health
	startTime time.Time
}

// NewServer builds the HTTP surface. httpMetrics and metricsHandler may be nil.
func NewServer(cfg *config.Config, reactions reactionService, httpMetrics *metrics.HTTPMetrics, metricsHandler http.Handler, health Health) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()

	srv := &Server{
		echo:           e,
		config:         cfg,
		reactions:      reactions,
		auth:           newTokenVerifier(cfg.JWTSecret, cfg.JWTIssuer),
		httpMetrics:    httpMetrics,
		metricsHandler: metricsHandler,
		health:         health,
		startTime:      time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP lets tests drive the full middleware chain.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pscheid92/forumpulse/internal/app"
	"github.com/pscheid92/forumpulse/internal/domain"
	"github.com/pscheid92/forumpulse/internal/platform/config"
	"github.com/stretchr/testify/require"
)

const (
	testJWTSecret = "test-secret-key-32-bytes-long!!!"
	testIssuer    = "forumpulse-test"
)

// --- Mock implementations ---

type mockReactionService struct {
	submitFn  func(ctx context.Context, req app.SubmitReactionRequest) (domain.State, error)
	summaryFn func(ctx context.Context, postID uuid.UUID, userID string) (domain.ReactionSummary, error)

	lastSubmit *app.SubmitReactionRequest
}

func (m *mockReactionService) SubmitReaction(ctx context.Context, req app.SubmitReactionRequest) (domain.State, error) {
	m.lastSubmit = &req
	if m.submitFn != nil {
		return m.submitFn(ctx, req)
	}
	return domain.StateOf(req.Action), nil
}

func (m *mockReactionService) GetSummary(ctx context.Context, postID uuid.UUID, userID string) (domain.ReactionSummary, error) {
	if m.summaryFn != nil {
		return m.summaryFn(ctx, postID, userID)
	}
	return domain.ReactionSummary{PostCounters: domain.PostCounters{PostID: postID}}, nil
}

// --- Test helpers ---

func testConfig() *config.Config {
	return &config.Config{
		Port:                  "0",
		StoreBackend:          config.BackendPostgres,
		JWTSecret:             testJWTSecret,
		JWTIssuer:             testIssuer,
		ReactionRatePerSecond: 1000,
		ReactionRateBurst:     1000,
	}
}

func newTestServer(t *testing.T, reactions reactionService, opts ...func(*config.Config)) *Server {
	t.Helper()

	cfg := testConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return NewServer(cfg, reactions, nil, nil, Health{})
}

func withHealth(srv *Server, health Health) *Server {
	srv.health = health
	return srv
}

func bearerFor(t *testing.T, subject string) string {
	t.Helper()
	token, err := SignToken(testJWTSecret, testIssuer, subject, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

// do sends a request through the full middleware chain.
func do(srv *Server, method, path, authorization, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

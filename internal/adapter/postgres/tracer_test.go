package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/forumpulse/internal/adapter/metrics"
	"github.com/stretchr/testify/assert"
)

func TestExtractQueryName(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{"sqlc query", "-- name: ApplyCounterDelta :one\nUPDATE posts SET like_count = $1", "ApplyCounterDelta"},
		{"sqlc execrows", "-- name: DeleteReaction :execrows\nDELETE FROM post_reactions", "DeleteReaction"},
		{"plain select", "select 1", "SELECT"},
		{"leading whitespace", "\n  DELETE FROM posts", "DELETE"},
		{"single word", "BEGIN", "BEGIN"},
		{"empty", "", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractQueryName(tt.sql))
		})
	}
}

func TestMetricsTracer_RecordsDurationAndErrors(t *testing.T) {
	m := metrics.NewDBMetrics(prometheus.NewRegistry())
	clock := clockwork.NewFakeClock()
	tracer := NewMetricsTracer(m, clock)

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "-- name: GetReaction :one\nSELECT 1"})
	clock.Advance(5 * time.Millisecond)
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: pgx.ErrNoRows})

	ctx = tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "-- name: InsertReaction :execrows\nINSERT INTO post_reactions"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: errors.New("connection reset")})

	assert.Equal(t, 2, testutil.CollectAndCount(m.QueryDuration), "one series per query name")
	assert.InDelta(t, 0, testutil.ToFloat64(m.QueryErrors.WithLabelValues("GetReaction")), 0, "no rows is not an error")
	assert.InDelta(t, 1, testutil.ToFloat64(m.QueryErrors.WithLabelValues("InsertReaction")), 0)
}

func TestMetricsTracer_IgnoresUntracedContext(t *testing.T) {
	m := metrics.NewDBMetrics(prometheus.NewRegistry())
	tracer := NewMetricsTracer(m, clockwork.NewFakeClock())

	tracer.TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{Err: errors.New("boom")})

	assert.Equal(t, 0, testutil.CollectAndCount(m.QueryErrors))
}

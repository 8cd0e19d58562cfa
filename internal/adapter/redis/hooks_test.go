package redis

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/forumpulse/internal/adapter/metrics"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker() (*CircuitBreakerHook, *metrics.RedisMetrics) {
	m := metrics.NewRedisMetrics(prometheus.NewRegistry())
	return NewCircuitBreakerHook(m, DefaultBreakerSettings()), m
}

func failingProcess(context.Context, goredis.Cmder) error {
	return errors.New("connection timeout")
}

func TestCircuitBreakerHook_StartsClosed(t *testing.T) {
	hook, _ := newTestBreaker()
	ctx := context.Background()

	process := hook.ProcessHook(func(context.Context, goredis.Cmder) error { return nil })
	for range 10 {
		require.NoError(t, process(ctx, goredis.NewStringCmd(ctx, "get", "key")))
	}

	assert.Equal(t, circuitbreaker.ClosedState, hook.State())
}

func TestCircuitBreakerHook_MissIsNotAFailure(t *testing.T) {
	hook, _ := newTestBreaker()
	ctx := context.Background()

	process := hook.ProcessHook(func(context.Context, goredis.Cmder) error { return goredis.Nil })
	for range 10 {
		assert.ErrorIs(t, process(ctx, goredis.NewStringCmd(ctx, "get", "key")), goredis.Nil)
	}

	assert.Equal(t, circuitbreaker.ClosedState, hook.State())
}

func TestCircuitBreakerHook_TransientFailuresKeepItClosed(t *testing.T) {
	hook, _ := newTestBreaker()
	ctx := context.Background()

	process := hook.ProcessHook(failingProcess)
	for range 2 {
		err := process(ctx, goredis.NewStringCmd(ctx, "get", "key"))
		assert.Error(t, err)
		assert.NotErrorIs(t, err, circuitbreaker.ErrOpen)
	}

	assert.Equal(t, circuitbreaker.ClosedState, hook.State())
}

func TestCircuitBreakerHook_OpensAndFailsFast(t *testing.T) {
	hook, m := newTestBreaker()
	ctx := context.Background()

	process := hook.ProcessHook(failingProcess)
	for range 5 {
		assert.Error(t, process(ctx, goredis.NewStringCmd(ctx, "get", "key")))
	}
	require.Equal(t, circuitbreaker.OpenState, hook.State())
	assert.InDelta(t, 2, testutil.ToFloat64(m.BreakerState), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.BreakerTransitions.WithLabelValues(circuitbreaker.OpenState.String())), 0)

	called := false
	guarded := hook.ProcessHook(func(context.Context, goredis.Cmder) error {
		called = true
		return nil
	})
	cmd := goredis.NewStringCmd(ctx, "get", "key")
	err := guarded(ctx, cmd)

	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.ErrorIs(t, cmd.Err(), circuitbreaker.ErrOpen, "command carries the rejection")
	assert.False(t, called, "open breaker must not reach Redis")
}

func TestCircuitBreakerHook_PipelineRejectedWhenOpen(t *testing.T) {
	hook, _ := newTestBreaker()
	ctx := context.Background()

	process := hook.ProcessHook(failingProcess)
	for range 5 {
		_ = process(ctx, goredis.NewStringCmd(ctx, "get", "key"))
	}

	cmds := []goredis.Cmder{goredis.NewStringCmd(ctx, "get", "a"), goredis.NewIntCmd(ctx, "del", "b")}
	pipeline := hook.ProcessPipelineHook(func(context.Context, []goredis.Cmder) error { return nil })

	assert.ErrorIs(t, pipeline(ctx, cmds), circuitbreaker.ErrOpen)
	for _, cmd := range cmds {
		assert.ErrorIs(t, cmd.Err(), circuitbreaker.ErrOpen)
	}
}

func TestCircuitBreakerHook_DialFailuresCount(t *testing.T) {
	hook, _ := newTestBreaker()
	ctx := context.Background()

	dial := hook.DialHook(func(context.Context, string, string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	})
	for range 5 {
		_, err := dial(ctx, "tcp", "localhost:6379")
		assert.Error(t, err)
	}

	assert.Equal(t, circuitbreaker.OpenState, hook.State())
}

func TestMetricsHook_CountsOperations(t *testing.T) {
	m := metrics.NewRedisMetrics(prometheus.NewRegistry())
	clock := clockwork.NewFakeClock()
	hook := NewMetricsHook(m, clock)
	ctx := context.Background()

	ok := hook.ProcessHook(func(context.Context, goredis.Cmder) error {
		clock.Advance(time.Millisecond)
		return nil
	})
	miss := hook.ProcessHook(func(context.Context, goredis.Cmder) error { return goredis.Nil })
	fail := hook.ProcessHook(failingProcess)

	require.NoError(t, ok(ctx, goredis.NewStatusCmd(ctx, "set", "k", "v")))
	_ = miss(ctx, goredis.NewStringCmd(ctx, "get", "k"))
	_ = fail(ctx, goredis.NewStringCmd(ctx, "get", "k"))

	assert.InDelta(t, 1, testutil.ToFloat64(m.OpsTotal.WithLabelValues("set", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.OpsTotal.WithLabelValues("get", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.OpsTotal.WithLabelValues("get", "error")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.OpDuration))
}

func TestMetricsHook_PipelineAndDial(t *testing.T) {
	m := metrics.NewRedisMetrics(prometheus.NewRegistry())
	hook := NewMetricsHook(m, clockwork.NewFakeClock())
	ctx := context.Background()

	pipeline := hook.ProcessPipelineHook(func(context.Context, []goredis.Cmder) error { return nil })
	require.NoError(t, pipeline(ctx, nil))

	dial := hook.DialHook(func(context.Context, string, string) (net.Conn, error) {
		return nil, errors.New("refused")
	})
	_, err := dial(ctx, "tcp", "localhost:6379")
	require.Error(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(m.OpsTotal.WithLabelValues("pipeline", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ConnectionErrors), 0)
}

package kv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *RedisClient {
	t.Helper()
	ctx := context.Background()
	r, err := NewRedisClient(ctx, Config{})
	if err != nil {
		t.Skipf("redis not reachable, skipping: %v", err)
	}
	return r
}

func TestNewRedis(t *testing.T) {
	r := newTestClient(t)
	defer func(r *RedisClient) {
		assert.NoError(t, r.Close())
	}(r)

	_, err := r.Native().Ping(r.Context()).Result()
	assert.NoError(t, err)
}

func TestSetGetAndHash(t *testing.T) {
	r := newTestClient(t)
	defer r.Close()

	require.NoError(t, r.Set("queueline:test:current_number", "12", time.Minute))
	got, err := r.Get("queueline:test:current_number")
	require.NoError(t, err)
	assert.Equal(t, "12", got)

	hash := map[string]interface{}{
		"id":      int64(1),
		"service": "register",
		"status":  "waiting",
	}
	require.NoError(t, r.HSet("queueline:test:ticket", hash))
	defer r.Del("queueline:test:current_number", "queueline:test:ticket")

	status, err := r.HGet("queueline:test:ticket", "status")
	require.NoError(t, err)
	assert.Equal(t, "waiting", status)

	all, err := r.HGetAll("queueline:test:ticket")
	require.NoError(t, err)
	assert.Equal(t, "register", all["service"])
}

func TestIncrIsMonotonic(t *testing.T) {
	r := newTestClient(t)
	defer r.Close()
	defer r.Del("queueline:test:global_id")

	a, err := r.Incr("queueline:test:global_id")
	require.NoError(t, err)
	b, err := r.Incr("queueline:test:global_id")
	require.NoError(t, err)
	assert.Equal(t, a+1, b)
}

func TestSetNXOnlyFirstWins(t *testing.T) {
	r := newTestClient(t)
	defer r.Close()
	defer r.Del("queueline:test:lease")

	first, err := r.SetNX("queueline:test:lease", "1", time.Minute)
	require.NoError(t, err)
	second, err := r.SetNX("queueline:test:lease", "1", time.Minute)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
}

func TestHIncrBy(t *testing.T) {
	r := newTestClient(t)
	defer r.Close()
	defer r.Del("queueline:test:stats")

	n, err := r.HIncrBy("queueline:test:stats", "count", 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = r.HIncrBy("queueline:test:stats", "count", 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

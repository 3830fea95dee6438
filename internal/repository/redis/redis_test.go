package redis

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/orihero/aish-sub002/internal/config"
	"github.com/orihero/aish-sub002/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	allowed, remaining, reset, err := decide(3, 5, 2, start)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 4, remaining)
	assert.Equal(t, start.Add(time.Minute), reset)

	allowed, remaining, _, _ = decide(7, 5, 2, start)
	assert.True(t, allowed)
	assert.Equal(t, 0, remaining)

	allowed, remaining, _, _ = decide(8, 5, 2, start)
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
}

// newTestClient connects to REDIS_TEST_HOST or skips
func newTestClient(t *testing.T) *Client {
	t.Helper()
	host := os.Getenv("REDIS_TEST_HOST")
	if host == "" {
		t.Skip("REDIS_TEST_HOST not set")
	}
	port, _ := strconv.Atoi(os.Getenv("REDIS_TEST_PORT"))
	if port == 0 {
		port = 6379
	}

	c, err := NewClient(context.Background(), config.RedisConfig{Host: host, Port: port})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocker(newTestClient(t))
	key := "test:" + strconv.FormatInt(time.Now().UnixNano(), 10)

	unlock, err := l.Lock(ctx, key, time.Minute)
	require.NoError(t, err)

	_, err = l.Lock(ctx, key, time.Minute)
	assert.ErrorIs(t, err, domain.ErrLocked)

	unlock()

	again, err := l.Lock(ctx, key, time.Minute)
	require.NoError(t, err)
	again()
}

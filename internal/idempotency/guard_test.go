package idempotency

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGuard_ClaimOnce(t *testing.T) {
	g := NewMemoryGuard(DefaultTTL)
	ctx := context.Background()

	ok, err := g.Claim(ctx, "req-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Claim(ctx, "req-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, g.Release(ctx, "req-1"))
	ok, err = g.Claim(ctx, "req-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryGuard_ConcurrentClaims(t *testing.T) {
	g := NewMemoryGuard(DefaultTTL)
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := g.Claim(context.Background(), "same"); ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemoryGuard_ExpiredKeyCanBeClaimedAgain(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
	g := NewMemoryGuard(time.Hour)
	g.now = clock.now
	ctx := context.Background()

	ok, err := g.Claim(ctx, "req-1")
	require.NoError(t, err)
	require.True(t, ok)

	clock.advance(59 * time.Minute)
	ok, err = g.Claim(ctx, "req-1")
	require.NoError(t, err)
	assert.False(t, ok, "still inside ttl")

	clock.advance(time.Minute)
	ok, err = g.Claim(ctx, "req-1")
	require.NoError(t, err)
	assert.True(t, ok, "ttl elapsed")
}

func TestMemoryGuard_SweepDropsExpiredKeys(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
	g := NewMemoryGuard(time.Hour)
	g.now = clock.now
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		ok, err := g.Claim(ctx, k)
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Equal(t, 3, g.Len())

	clock.advance(2 * time.Hour)
	ok, err := g.Claim(ctx, "d")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, g.Len())
}

func TestRedisGuard_ClaimOnce(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}

	g := NewRedisGuard(client, time.Minute)
	key := "test-" + time.Now().Format("150405.000000000")
	t.Cleanup(func() { _ = g.Release(ctx, key) })

	ok, err := g.Claim(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Claim(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

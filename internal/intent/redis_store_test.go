package intent

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-reservation/internal/logger"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func setupStore(t *testing.T) (*RedisStore, *miniredis.Miniredis, *manualClock) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	clk := &manualClock{now: time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)}
	return NewRedisStore(client, DefaultTTL, clk, logger.NewWithWriter(io.Discard)), mr, clk
}

func TestSaveAndConsume(t *testing.T) {
	store, mr, clk := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sess-1", New("salsa-night", "/events/salsa-night?modal=door", clk.Now())))
	assert.True(t, mr.Exists("pending_intent:sess-1"))
	assert.Equal(t, DefaultTTL, mr.TTL("pending_intent:sess-1"))

	got, err := store.Consume(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "salsa-night", got.Slug)
	assert.Equal(t, "/events/salsa-night?modal=door", got.ReturnTo)
	assert.Equal(t, clk.Now().UnixMilli(), got.Timestamp)
	assert.False(t, mr.Exists("pending_intent:sess-1"))
}

func TestConsumeIsSingleUse(t *testing.T) {
	store, _, clk := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "sess-1", New("salsa-night", "/", clk.Now())))

	_, err := store.Consume(ctx, "sess-1")
	require.NoError(t, err)

	_, err = store.Consume(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentConsumeSucceedsOnce(t *testing.T) {
	store, _, clk := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "sess-1", New("salsa-night", "/", clk.Now())))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Consume(ctx, "sess-1"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestConsumeExpiredIntentDeletesIt(t *testing.T) {
	store, mr, clk := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "sess-1", New("salsa-night", "/", clk.Now())))

	clk.Advance(16 * time.Minute)

	_, err := store.Consume(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrExpired)
	assert.False(t, mr.Exists("pending_intent:sess-1"))

	_, err = store.Consume(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisExpiryRemovesIntent(t *testing.T) {
	store, mr, clk := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "sess-1", New("salsa-night", "/", clk.Now())))

	mr.FastForward(DefaultTTL + time.Second)

	_, err := store.Consume(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRequiresSessionKey(t *testing.T) {
	store, _, clk := setupStore(t)

	err := store.Save(context.Background(), "", New("x", "/", clk.Now()))
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestMalformedIntentIsDiscarded(t *testing.T) {
	store, mr, _ := setupStore(t)
	require.NoError(t, mr.Set("pending_intent:sess-1", "{not json"))

	_, err := store.Consume(context.Background(), "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, mr.Exists("pending_intent:sess-1"))
}

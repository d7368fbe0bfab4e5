package business

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*WidgetCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewWidgetCache(client, ttl), mr
}

func TestWidgetCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	miss, err := cache.Get(ctx, "biz-1")
	require.NoError(t, err)
	assert.Nil(t, miss, "cold cache must miss")

	info := &WidgetInfo{
		BusinessID:     "biz-1",
		Name:           "Salon Belle",
		Language:       "fr",
		WelcomeMessage: "Bonjour!",
		IsOnline:       true,
		WidgetSettings: DefaultWidgetSettings,
	}
	require.NoError(t, cache.Set(ctx, info))

	got, err := cache.Get(ctx, "biz-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, info, got)
}

func TestWidgetCacheExpires(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &WidgetInfo{BusinessID: "biz-1", Name: "Salon Belle"}))

	mr.FastForward(2 * time.Minute)

	got, err := cache.Get(ctx, "biz-1")
	require.NoError(t, err)
	assert.Nil(t, got, "entry must expire after the TTL")
}

func TestWidgetCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &WidgetInfo{BusinessID: "biz-1", Name: "Salon Belle"}))
	require.NoError(t, cache.Invalidate(ctx, "biz-1"))

	got, err := cache.Get(ctx, "biz-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

package cogs

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewCache(client, time.Minute)
}

func TestCacheBuildKeyCarriesVersion(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "cogs", "report", "a")
	require.NoError(t, err)
	require.Equal(t, "cogs:report:a:1", key)

	require.NoError(t, cache.Bump(ctx))

	key, err = cache.BuildKey(ctx, "cogs", "report", "a")
	require.NoError(t, err)
	require.Equal(t, "cogs:report:a:2", key)
}

func TestCacheFetchJSONPopulatesOnce(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) (any, error) {
		loads++
		return map[string]int{"value": 42}, nil
	}

	var out map[string]int
	require.NoError(t, cache.FetchJSON(ctx, "k", &out, loader))
	require.Equal(t, 42, out["value"])

	out = nil
	require.NoError(t, cache.FetchJSON(ctx, "k", &out, loader))
	require.Equal(t, 42, out["value"])
	require.Equal(t, 1, loads)
}

func TestCacheNilDegradesToPassThrough(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "cogs", "report")
	require.NoError(t, err)
	require.Equal(t, "cogs:report", key)

	loads := 0
	var out int
	for i := 0; i < 2; i++ {
		require.NoError(t, cache.FetchJSON(ctx, key, &out, func(context.Context) (any, error) {
			loads++
			return 7, nil
		}))
	}
	require.Equal(t, 7, out)
	require.Equal(t, 2, loads)

	require.NoError(t, cache.Bump(ctx))
	require.NoError(t, cache.StoreJSON(ctx, key, 7))
}

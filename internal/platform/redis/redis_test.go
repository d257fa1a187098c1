package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	svc, err := New(context.Background(), Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, mr
}

func TestCacheRoundTrip(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	type entry struct {
		URL   string   `json:"url"`
		Links []string `json:"links"`
	}
	require.NoError(t, svc.CacheSet(ctx, "scrape:k", entry{URL: "https://a", Links: []string{"https://b"}}, time.Minute))

	var got entry
	require.NoError(t, svc.CacheGet(ctx, "scrape:k", &got))
	assert.Equal(t, entry{URL: "https://a", Links: []string{"https://b"}}, got)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, svc.CacheGet(ctx, "scrape:k", &got), ErrCacheMiss)
}

func TestCacheGet_Miss(t *testing.T) {
	svc, _ := newTestService(t)
	var v map[string]any
	assert.ErrorIs(t, svc.CacheGet(context.Background(), "missing", &v), ErrCacheMiss)
}

func TestHealthCheck(t *testing.T) {
	svc, mr := newTestService(t)
	assert.NoError(t, svc.HealthCheck(context.Background()))
	assert.Empty(t, mr.Keys())
}

func TestNew_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), Options{Addr: addr})
	assert.ErrorContains(t, err, "redis ping")
}

func TestAsynqRedisOpt(t *testing.T) {
	svc, mr := newTestService(t)
	assert.Equal(t, mr.Addr(), svc.AsynqRedisOpt().Addr)
}

package job

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DingDong039/sentinel-search/internal/core/models"
	rds "github.com/DingDong039/sentinel-search/internal/platform/redis"
)

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r, err := rds.New(context.Background(), rds.Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return NewService(r), mr
}

func TestLifecycle(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.InitPending(ctx, "j1", "https://example.com"))
	j, err := svc.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, j.Status)
	assert.Equal(t, TypeCrawl, j.Type)
	assert.Equal(t, "https://example.com", j.URL)
	assert.Equal(t, activeTTL, mr.TTL("job:j1"))

	require.NoError(t, svc.SetProcessing(ctx, "j1"))
	j, err = svc.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, j.Status)

	res := &models.CrawlResult{Success: true, Status: "completed", Total: 1, Completed: 1}
	require.NoError(t, svc.Complete(ctx, "j1", res))
	j, err = svc.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, j.Status)
	assert.Equal(t, res, j.Result)
	assert.Equal(t, "https://example.com", j.URL)
	assert.Equal(t, finishedTTL, mr.TTL("job:j1"))
}

func TestFail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.InitPending(ctx, "j2", "https://example.com"))
	require.NoError(t, svc.Fail(ctx, "j2", "crawl failed"))

	j, err := svc.Get(ctx, "j2")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, j.Status)
	assert.Equal(t, "crawl failed", j.Error)
	assert.True(t, j.Status.Done())
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_RecreatesExpiredJob(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.InitPending(ctx, "j3", "https://example.com"))
	mr.FastForward(activeTTL + time.Second)

	require.NoError(t, svc.Fail(ctx, "j3", "timeout"))
	j, err := svc.Get(ctx, "j3")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, j.Status)
}

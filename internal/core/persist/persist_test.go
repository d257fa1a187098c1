package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DingDong039/sentinel-search/internal/core/models"
)

type upsertCall struct {
	table       string
	rows        []map[string]any
	conflictKey string
}

type fakeStore struct {
	mu    sync.Mutex
	calls []upsertCall
	err   error
}

func (f *fakeStore) Upsert(_ context.Context, table string, rows []map[string]any, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, upsertCall{table: table, rows: rows, conflictKey: key})
	return f.err
}

func (f *fakeStore) Insert(context.Context, string, map[string]any) error { return f.err }
func (f *fakeStore) HealthCheck(context.Context) error                    { return nil }

func TestRecords_DuplicateURLsInOneBatchKeepOneRow(t *testing.T) {
	fs := &fakeStore{}
	sink := NewSink(fs)

	jobs := []models.Job{
		{ID: "a", Title: "first", URL: "https://x.com/a", PostedAt: time.Now()},
		{ID: "b", Title: "second", URL: "https://x.com/a", PostedAt: time.Now()},
		{ID: "c", Title: "third", URL: "https://x.com/c", PostedAt: time.Now()},
	}
	Records(context.Background(), sink, jobs)

	require.Len(t, fs.calls, 1)
	call := fs.calls[0]
	assert.Equal(t, models.TableJobs, call.table)
	assert.Equal(t, models.ConflictKey, call.conflictKey)
	require.Len(t, call.rows, 2)
	assert.Equal(t, "a", call.rows[0]["id"])
	assert.Equal(t, "https://x.com/c", call.rows[1]["url"])
}

func TestRecords_EmptyBatchSkipsStore(t *testing.T) {
	fs := &fakeStore{}
	Records[models.News](context.Background(), NewSink(fs), nil)
	assert.Empty(t, fs.calls)
}

func TestPersist_StoreFailureIsSwallowed(t *testing.T) {
	fs := &fakeStore{err: errors.New("duplicate key value violates unique constraint")}
	sink := NewSink(fs)

	assert.NotPanics(t, func() {
		Records(context.Background(), sink, []models.Product{{ID: "1", URL: "https://shop/1", Currency: "THB"}})
	})
	assert.Len(t, fs.calls, 1)
}

type panickingStore struct{ fakeStore }

func (p *panickingStore) Upsert(context.Context, string, []map[string]any, string) error {
	panic("driver blew up")
}

func TestPersist_StorePanicIsContained(t *testing.T) {
	sink := NewSink(&panickingStore{})
	assert.NotPanics(t, func() {
		sink.Persist(context.Background(), models.TableNews, []map[string]any{{"url": "https://n/1"}})
	})
}

func TestRows_UseStorageColumnNames(t *testing.T) {
	salary := "50k"
	row := models.Job{ID: "1", Salary: &salary, URL: "u", PostedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}.Row()
	assert.Equal(t, &salary, row["salary_range"])
	assert.Equal(t, "2026-01-02T03:04:05Z", row["posted_at"])

	img := "https://img"
	prow := models.Product{CurrentPrice: 12.5, ImageURL: &img}.Row()
	assert.Equal(t, 12.5, prow["price"])
	assert.Equal(t, &img, prow["image_url"])

	nrow := models.News{Summary: "s"}.Row()
	assert.Equal(t, "s", nrow["summary"])
	assert.Contains(t, nrow, "thumbnail_url")
}

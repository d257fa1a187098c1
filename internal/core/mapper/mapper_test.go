package mapper

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DingDong039/sentinel-search/internal/platform/firecrawl"
)

func freezeClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

func TestToJob_MissingMetadata(t *testing.T) {
	at := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	freezeClock(t, at)

	job := ToJob(firecrawl.Document{})

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, UntitledPlaceholder, job.Title)
	assert.Equal(t, "", job.URL)
	assert.Equal(t, UnknownCompany, job.Company)
	assert.Equal(t, DefaultJobLocation, job.Location)
	assert.Nil(t, job.Salary)
	assert.Equal(t, SearchSourceFallback, job.Source)
	assert.Equal(t, "", job.Description)
	assert.Equal(t, at, job.PostedAt)
}

func TestToJob_SourceURLFallback(t *testing.T) {
	job := ToJob(firecrawl.Document{Metadata: firecrawl.Metadata{
		"title":     "Bitcoin ETF",
		"sourceURL": "https://x.com/a",
	}})

	assert.Equal(t, "Bitcoin ETF", job.Title)
	assert.Equal(t, "https://x.com/a", job.URL)
	assert.Equal(t, "https://x.com/a", job.Source)
}

func TestToJob_URLWinsOverSourceURL(t *testing.T) {
	job := ToJob(firecrawl.Document{Metadata: firecrawl.Metadata{
		"url":       "https://canonical.example/job",
		"sourceURL": "https://x.com/a",
	}})
	assert.Equal(t, "https://canonical.example/job", job.URL)
}

func TestIDsAreNotContentDerived(t *testing.T) {
	doc := firecrawl.Document{Markdown: "same", Metadata: firecrawl.Metadata{"url": "https://same"}}

	a, b := ToJob(doc), ToJob(doc)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.URL, b.URL)

	assert.NotEqual(t, ToProduct(doc, "THB").ID, ToProduct(doc, "THB").ID)
	assert.NotEqual(t, ToNews(doc).ID, ToNews(doc).ID)
}

func TestDescriptionFallbackChain(t *testing.T) {
	long := strings.Repeat("ก", 200)

	withDesc := ToJob(firecrawl.Document{Markdown: long, Metadata: firecrawl.Metadata{"description": "meta desc"}})
	assert.Equal(t, "meta desc", withDesc.Description)

	fromBody := ToJob(firecrawl.Document{Markdown: long})
	assert.Equal(t, 150, len([]rune(fromBody.Description)))

	short := ToNews(firecrawl.Document{Markdown: "short body"})
	assert.Equal(t, "short body", short.Summary)
}

func TestToProduct_Defaults(t *testing.T) {
	p := ToProduct(firecrawl.Document{Metadata: firecrawl.Metadata{"image": "https://img/2.png"}}, "THB")

	assert.Equal(t, UnknownProductPlaceholder, p.Title)
	assert.Equal(t, float64(0), p.CurrentPrice)
	assert.Equal(t, "THB", p.Currency)
	require.NotNil(t, p.ImageURL)
	assert.Equal(t, "https://img/2.png", *p.ImageURL)
	assert.Nil(t, p.Rating)
	assert.Nil(t, p.OriginalPrice)
	assert.Equal(t, SearchSourceFallback, p.Source)
}

func TestToNews_ThumbnailAndDate(t *testing.T) {
	at := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	freezeClock(t, at)

	n := ToNews(firecrawl.Document{Metadata: firecrawl.Metadata{
		"ogImage": "https://img/og.png",
		"image":   "https://img/plain.png",
		"date":    "2025-03-04T10:00:00Z",
	}})
	require.NotNil(t, n.ThumbnailURL)
	assert.Equal(t, "https://img/og.png", *n.ThumbnailURL)
	assert.Equal(t, time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC), n.PublishedAt)
	assert.Equal(t, NewsSourceFallback, n.Source)

	noDate := ToNews(firecrawl.Document{Metadata: firecrawl.Metadata{"date": "sometime"}})
	assert.Equal(t, at, noDate.PublishedAt)
	assert.Nil(t, noDate.ThumbnailURL)
}

func TestBatchMappersKeepOrder(t *testing.T) {
	docs := []firecrawl.Document{
		{Metadata: firecrawl.Metadata{"title": "a"}},
		{Metadata: firecrawl.Metadata{"title": "b"}},
	}
	jobs := Jobs(docs)
	require.Len(t, jobs, 2)
	assert.Equal(t, "a", jobs[0].Title)
	assert.Equal(t, "b", jobs[1].Title)

	assert.Empty(t, News(nil))
	assert.Len(t, Products(docs, "USD"), 2)
}

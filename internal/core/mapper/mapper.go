// Package mapper turns provider documents into domain records. Missing fields
// fall back to placeholders instead of failing, and every record gets a fresh
// random id: only the URL identifies a page across searches.
package mapper

import (
	"time"

	"github.com/google/uuid"

	"github.com/DingDong039/sentinel-search/internal/core/models"
	"github.com/DingDong039/sentinel-search/internal/platform/firecrawl"
)

const (
	UntitledPlaceholder       = "Untitled"
	UnknownProductPlaceholder = "Unknown Product"
	SearchSourceFallback      = "Firecrawl Search"
	NewsSourceFallback        = "Firecrawl News"
	UnknownCompany            = "Unknown"
	DefaultJobLocation        = "Remote"

	// SnippetLength caps descriptions derived from the markdown body.
	SnippetLength = 150
)

// now is swapped in tests.
var now = time.Now

var dateLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"January 2, 2006",
	"Jan 2, 2006",
}

func ToJob(doc firecrawl.Document) models.Job {
	m := doc.Metadata
	return models.Job{
		ID:          uuid.NewString(),
		Title:       title(m, UntitledPlaceholder),
		Company:     UnknownCompany,
		Location:    DefaultJobLocation,
		URL:         pageURL(m),
		PostedAt:    now().UTC(),
		Source:      source(m, SearchSourceFallback),
		Description: description(doc),
	}
}

func ToProduct(doc firecrawl.Document, currency string) models.Product {
	m := doc.Metadata
	return models.Product{
		ID:           uuid.NewString(),
		Title:        title(m, UnknownProductPlaceholder),
		CurrentPrice: 0,
		Currency:     currency,
		ImageURL:     thumbnail(m),
		Source:       source(m, SearchSourceFallback),
		URL:          pageURL(m),
		Description:  description(doc),
	}
}

func ToNews(doc firecrawl.Document) models.News {
	m := doc.Metadata
	return models.News{
		ID:           uuid.NewString(),
		Title:        title(m, UntitledPlaceholder),
		Source:       source(m, NewsSourceFallback),
		URL:          pageURL(m),
		PublishedAt:  publishedAt(m),
		Summary:      description(doc),
		ThumbnailURL: thumbnail(m),
	}
}

// Jobs, Products and News map a whole result page.

func Jobs(docs []firecrawl.Document) []models.Job {
	out := make([]models.Job, 0, len(docs))
	for _, d := range docs {
		out = append(out, ToJob(d))
	}
	return out
}

func Products(docs []firecrawl.Document, currency string) []models.Product {
	out := make([]models.Product, 0, len(docs))
	for _, d := range docs {
		out = append(out, ToProduct(d, currency))
	}
	return out
}

func News(docs []firecrawl.Document) []models.News {
	out := make([]models.News, 0, len(docs))
	for _, d := range docs {
		out = append(out, ToNews(d))
	}
	return out
}

func title(m firecrawl.Metadata, placeholder string) string {
	if t, ok := m.String("title"); ok {
		return t
	}
	return placeholder
}

func pageURL(m firecrawl.Metadata) string {
	return m.FirstString("url", "sourceURL")
}

func source(m firecrawl.Metadata, fallback string) string {
	if s, ok := m.String("sourceURL"); ok {
		return s
	}
	return fallback
}

func description(doc firecrawl.Document) string {
	if d, ok := doc.Metadata.String("description"); ok {
		return d
	}
	return snippet(doc.Markdown, SnippetLength)
}

func thumbnail(m firecrawl.Metadata) *string {
	if img := m.FirstString("ogImage", "image"); img != "" {
		return &img
	}
	return nil
}

func publishedAt(m firecrawl.Metadata) time.Time {
	raw := m.FirstString("date", "publishedTime", "article:published_time")
	if raw != "" {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC()
			}
		}
	}
	return now().UTC()
}

// snippet returns the first n runes of s.
func snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

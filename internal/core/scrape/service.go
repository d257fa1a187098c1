package scrape

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/DingDong039/sentinel-search/internal/logger"
	"github.com/DingDong039/sentinel-search/internal/platform/firecrawl"
	rds "github.com/DingDong039/sentinel-search/internal/platform/redis"
	"github.com/DingDong039/sentinel-search/internal/utils/markdown"
)

type Provider interface {
	Scrape(ctx context.Context, req firecrawl.ScrapeRequest) (*firecrawl.Document, error)
}

// Cache is satisfied by *redis.Service.
type Cache interface {
	CacheGet(ctx context.Context, key string, dest any) error
	CacheSet(ctx context.Context, key string, val any, ttl time.Duration) error
}

const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatRawHTML  = "rawHtml"
	FormatLinks    = "links"
)

type Options struct {
	Formats         []string `json:"formats,omitempty"`
	IncludeTags     []string `json:"includeTags,omitempty"`
	ExcludeTags     []string `json:"excludeTags,omitempty"`
	OnlyMainContent *bool    `json:"onlyMainContent,omitempty"`
	// Fresh skips the cache read; the new result is still cached.
	Fresh bool `json:"fresh,omitempty"`
}

// withDefaults fills formats (markdown) and onlyMainContent (true).
func (o Options) withDefaults() Options {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatMarkdown}
	}
	if o.OnlyMainContent == nil {
		t := true
		o.OnlyMainContent = &t
	}
	return o
}

type Service struct {
	provider Provider
	cache    Cache
	ttl      time.Duration
	log      *logger.Logger
}

// NewService builds the scrape service. cache may be nil, which disables
// caching.
func NewService(provider Provider, cache Cache, ttl time.Duration) *Service {
	return &Service{provider: provider, cache: cache, ttl: ttl, log: logger.New("ScrapeService")}
}

// ScrapeURL scrapes one page. It never returns an error: any failure is
// logged and reported as nil.
func (s *Service) ScrapeURL(ctx context.Context, url string, opts Options) *firecrawl.Document {
	opts = opts.withDefaults()
	key := cacheKey(url, opts)

	if s.cache != nil && !opts.Fresh {
		var cached firecrawl.Document
		err := s.cache.CacheGet(ctx, key, &cached)
		switch {
		case err == nil:
			s.log.Debug().Str("url", url).Msg("cache hit")
			return &cached
		case !errors.Is(err, rds.ErrCacheMiss):
			s.log.LogWarnf("scrape cache read failed for %s: %v", url, err)
		}
	}

	s.log.Info().Str("url", url).Strs("formats", opts.Formats).Msg("scrape start")
	doc, err := s.provider.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:             url,
		Formats:         opts.Formats,
		IncludeTags:     opts.IncludeTags,
		ExcludeTags:     opts.ExcludeTags,
		OnlyMainContent: opts.OnlyMainContent,
	})
	if err != nil {
		s.log.LogErrorf("Scrape failed for %s: %v", url, err)
		return nil
	}
	if doc == nil {
		s.log.LogWarnf("Scrape of %s returned no document", url)
		return nil
	}

	Normalize(doc, url, opts.Formats, *opts.OnlyMainContent)

	// error pages are returned but not cached; the next request retries them
	if code := doc.Metadata.StatusCode(); code >= 400 {
		s.log.LogWarnf("Scrape of %s got status %d from the site", url, code)
	} else if s.cache != nil && s.ttl > 0 {
		if err := s.cache.CacheSet(ctx, key, doc, s.ttl); err != nil {
			s.log.LogWarnf("scrape cache write failed for %s: %v", url, err)
		}
	}
	return doc
}

// Normalize fills what the caller asked for but the provider left out:
// markdown derived from the page HTML, links extracted from it, and a title
// from <title>. Pages without HTML are left as they are.
func Normalize(doc *firecrawl.Document, pageURL string, formats []string, onlyMain bool) {
	html := doc.HTML
	if html == "" {
		return
	}
	if doc.Markdown == "" && wants(formats, FormatMarkdown) {
		doc.Markdown = markdown.FromHTML(html, onlyMain)
	}
	if len(doc.Links) == 0 && wants(formats, FormatLinks) {
		base := doc.Metadata.FirstString("url", "sourceURL")
		if base == "" {
			base = pageURL
		}
		doc.Links = markdown.Links(html, base)
	}
	if doc.Metadata == nil {
		doc.Metadata = firecrawl.Metadata{}
	}
	if _, ok := doc.Metadata.String("title"); !ok {
		if title := markdown.Title(html); title != "" {
			doc.Metadata["title"] = title
		}
	}
}

func wants(formats []string, f string) bool { return slices.Contains(formats, f) }

// cacheKey identifies a scrape by URL and every option that changes the
// result.
func cacheKey(url string, opts Options) string {
	b, _ := json.Marshal(struct {
		URL      string   `json:"u"`
		Formats  []string `json:"f"`
		Include  []string `json:"i,omitempty"`
		Exclude  []string `json:"e,omitempty"`
		OnlyMain bool     `json:"m"`
	}{url, opts.Formats, opts.IncludeTags, opts.ExcludeTags, *opts.OnlyMainContent})
	sum := sha256.Sum256(b)
	return "scrape:" + hex.EncodeToString(sum[:])
}

package crawl

import (
	"context"

	"github.com/DingDong039/sentinel-search/internal/core/models"
	"github.com/DingDong039/sentinel-search/internal/core/scrape"
	"github.com/DingDong039/sentinel-search/internal/logger"
	"github.com/DingDong039/sentinel-search/internal/platform/firecrawl"
)

type Provider interface {
	Crawl(ctx context.Context, req firecrawl.CrawlRequest) (*firecrawl.CrawlResponse, error)
}

type Options struct {
	Limit        int      `json:"limit,omitempty"`
	IncludePaths []string `json:"includePaths,omitempty"`
	ExcludePaths []string `json:"excludePaths,omitempty"`
	Formats      []string `json:"formats,omitempty"`
}

type Service struct {
	provider     Provider
	defaultLimit int
	log          *logger.Logger
}

func NewService(provider Provider, defaultLimit int) *Service {
	if defaultLimit < 1 {
		defaultLimit = 10
	}
	return &Service{provider: provider, defaultLimit: defaultLimit, log: logger.New("CrawlService")}
}

// CrawlWebsite crawls from url and waits for the provider to finish. Pages
// get the same normalization as single scrapes. It returns nil on failure.
func (s *Service) CrawlWebsite(ctx context.Context, url string, opts Options) *models.CrawlResult {
	if opts.Limit < 1 {
		opts.Limit = s.defaultLimit
	}
	if len(opts.Formats) == 0 {
		opts.Formats = []string{scrape.FormatMarkdown}
	}

	s.log.LogInfof("crawl start %s (limit %d)", url, opts.Limit)
	res, err := s.provider.Crawl(ctx, firecrawl.CrawlRequest{
		URL:           url,
		Limit:         opts.Limit,
		IncludePaths:  opts.IncludePaths,
		ExcludePaths:  opts.ExcludePaths,
		ScrapeOptions: &firecrawl.ScrapeOptions{Formats: opts.Formats},
	})
	if err != nil {
		s.log.LogErrorf("Crawl failed for %s: %v", url, err)
		return nil
	}
	if res == nil || res.Status != firecrawl.CrawlCompleted {
		s.log.LogWarnf("Crawl of %s did not complete", url)
		return nil
	}

	pages := make([]firecrawl.Document, 0, len(res.Data))
	for _, doc := range res.Data {
		pageURL := doc.Metadata.FirstString("url", "sourceURL")
		if pageURL == "" {
			pageURL = url
		}
		scrape.Normalize(&doc, pageURL, opts.Formats, true)
		pages = append(pages, doc)
	}

	s.log.Success().Str("url", url).Int("pages", len(pages)).Msg("crawl completed")
	return &models.CrawlResult{
		Success:   true,
		Status:    firecrawl.CrawlCompleted,
		Total:     len(pages),
		Completed: len(pages),
		Data:      pages,
	}
}

package search

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/DingDong039/sentinel-search/internal/config"
	"github.com/DingDong039/sentinel-search/internal/core/classify"
	"github.com/DingDong039/sentinel-search/internal/core/mapper"
	"github.com/DingDong039/sentinel-search/internal/core/models"
	"github.com/DingDong039/sentinel-search/internal/core/persist"
	"github.com/DingDong039/sentinel-search/internal/core/querylog"
	"github.com/DingDong039/sentinel-search/internal/logger"
	"github.com/DingDong039/sentinel-search/internal/metrics"
	"github.com/DingDong039/sentinel-search/internal/platform/firecrawl"
)

// Provider is the slice of the scraping API search needs.
type Provider interface {
	Search(ctx context.Context, req firecrawl.SearchRequest) (*firecrawl.SearchResponse, error)
	Scrape(ctx context.Context, req firecrawl.ScrapeRequest) (*firecrawl.Document, error)
}

type Service struct {
	provider Provider
	sink     *persist.Sink
	queries  querylog.Recorder
	profile  config.SearchProfile
	log      *logger.Logger
}

func NewService(provider Provider, sink *persist.Sink, queries querylog.Recorder, profile config.SearchProfile) *Service {
	return &Service{
		provider: provider,
		sink:     sink,
		queries:  queries,
		profile:  profile,
		log:      logger.New("SearchService"),
	}
}

// Outcome is the result of one dashboard search across all three domains.
type Outcome struct {
	Query    string           `json:"query"`
	Jobs     []models.Job     `json:"jobs"`
	Products []models.Product `json:"products"`
	News     []models.News    `json:"news"`
	Error    *classify.Result `json:"error,omitempty"`
}

// Search runs the job, product and news searches one after another. The
// provider allows two concurrent requests per key, so the three are never
// issued in parallel. The first failure stops the chain and is returned
// classified; results gathered before it are dropped like the dashboard
// does.
func (s *Service) Search(ctx context.Context, query string) Outcome {
	query = strings.TrimSpace(query)
	out := Outcome{Query: query, Jobs: []models.Job{}, Products: []models.Product{}, News: []models.News{}}
	if query == "" {
		return out
	}

	fail := func(kind querylog.Kind, err error) Outcome {
		res := classify.Classify(err)
		metrics.SearchErrorsTotal.WithLabelValues(string(kind), string(res.Type)).Inc()
		s.log.Error().Err(err).Str("kind", string(kind)).Str("type", string(res.Type)).Msg("search failed")
		return Outcome{Query: query, Jobs: []models.Job{}, Products: []models.Product{}, News: []models.News{}, Error: &res}
	}

	s.logQuery(ctx, query, querylog.KindJob)
	jobs, err := s.SearchJobs(ctx, query)
	if err != nil {
		return fail(querylog.KindJob, err)
	}
	s.logQuery(ctx, query, querylog.KindProduct)
	products, err := s.SearchProducts(ctx, query)
	if err != nil {
		return fail(querylog.KindProduct, err)
	}
	s.logQuery(ctx, query, querylog.KindNews)
	news, err := s.SearchNews(ctx, query)
	if err != nil {
		return fail(querylog.KindNews, err)
	}

	out.Jobs, out.Products, out.News = jobs, products, news
	return out
}

func (s *Service) SearchJobs(ctx context.Context, query string) ([]models.Job, error) {
	docs, err := s.search(ctx, "job", query, s.profile.JobLimit)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return []models.Job{}, nil
	}
	jobs := mapper.Jobs(docs)
	persist.Records(ctx, s.sink, jobs)
	s.log.LogInfof("job search %q returned %d items", query, len(jobs))
	return jobs, nil
}

// SearchProducts appends the deployment's price qualifier to the query
// before it reaches the provider.
func (s *Service) SearchProducts(ctx context.Context, query string) ([]models.Product, error) {
	docs, err := s.search(ctx, "product", s.ProductQuery(query), s.profile.ProductLimit)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return []models.Product{}, nil
	}
	products := mapper.Products(docs, s.profile.Currency)
	persist.Records(ctx, s.sink, products)
	s.log.LogInfof("product search %q returned %d items", query, len(products))
	return products, nil
}

func (s *Service) SearchNews(ctx context.Context, query string) ([]models.News, error) {
	docs, err := s.search(ctx, "news", query, s.profile.NewsLimit)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return []models.News{}, nil
	}
	news := mapper.News(docs)
	persist.Records(ctx, s.sink, news)
	s.log.LogInfof("news search %q returned %d items", query, len(news))
	return news, nil
}

// ProductQuery is the query text actually sent for a product search.
func (s *Service) ProductQuery(query string) string {
	return query + s.profile.ProductQualifier
}

// search returns the provider's documents; an unsuccessful or empty reply
// is no results, not an error. Provider errors come back untouched so the
// caller can classify them.
func (s *Service) search(ctx context.Context, kind, query string, limit int) ([]firecrawl.Document, error) {
	res, err := s.provider.Search(ctx, firecrawl.SearchRequest{
		Query:         query,
		Limit:         limit,
		ScrapeOptions: &firecrawl.ScrapeOptions{Formats: []string{"markdown"}},
	})
	if err != nil {
		s.log.LogErrorf("%s search failed: %v", kind, err)
		return nil, err
	}
	if res == nil || !res.Success || len(res.Data) == 0 {
		s.log.LogDebugf("%s search %q: no data", kind, query)
		return nil, nil
	}
	return res.Data, nil
}

// ScrapeProductDetails asks the provider for structured product fields. It
// returns nil on any failure.
func (s *Service) ScrapeProductDetails(ctx context.Context, url string) *models.ProductDetails {
	doc, err := s.provider.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:         url,
		Formats:     []string{"json"},
		JSONOptions: &firecrawl.JSONOptions{Prompt: s.profile.ExtractionPrompt},
	})
	if err != nil {
		s.log.LogErrorf("Product scrape failed for %s: %v", url, err)
		return nil
	}
	if doc == nil {
		return nil
	}

	// Without an extraction payload only page metadata is consulted, so the
	// page <title> stands in for the product name.
	fields := map[string]any(doc.Metadata)
	if len(doc.JSON) > 0 {
		var extracted map[string]any
		if err := json.Unmarshal(doc.JSON, &extracted); err != nil {
			s.log.LogWarnf("product extraction for %s is not an object: %v", url, err)
		} else {
			fields = extracted
		}
	}

	details := &models.ProductDetails{
		CurrentPrice: toNumber(fields["currentPrice"]),
		Currency:     s.profile.Currency,
		Rating:       toNumber(fields["rating"]),
	}
	if t, ok := fields["title"].(string); ok {
		details.Title = t
	}
	if c, ok := fields["currency"].(string); ok && strings.TrimSpace(c) != "" {
		details.Currency = strings.TrimSpace(c)
	}
	return details
}

// toNumber coerces an extracted value to a number, 0 when it is missing or
// not numeric.
func toNumber(v any) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case json.Number:
		f, _ = n.Float64()
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func (s *Service) logQuery(ctx context.Context, query string, kind querylog.Kind) {
	if s.queries != nil {
		s.queries.Log(ctx, query, kind)
	}
}

package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/DingDong039/sentinel-search/internal/logger"
	"github.com/DingDong039/sentinel-search/internal/metrics"
)

type Options struct {
	BaseURL        string
	APIKey         string
	MaxConcurrency int
	Timeout        time.Duration
	PollInterval   time.Duration
	// HTTPClient overrides the default client, mostly for tests.
	HTTPClient *http.Client
}

// Client talks to a Firecrawl-compatible REST API. Every HTTP round trip,
// poll requests included, holds one slot of a weighted semaphore so the
// service never has more than MaxConcurrency requests in flight to the
// provider.
type Client struct {
	baseURL      string
	apiKey       string
	http         *http.Client
	gate         *semaphore.Weighted
	pollInterval time.Duration
	log          *logger.Logger
}

func New(opts Options) *Client {
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 2
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 90 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		apiKey:       opts.APIKey,
		http:         hc,
		gate:         semaphore.NewWeighted(int64(opts.MaxConcurrency)),
		pollInterval: opts.PollInterval,
		log:          logger.New("Firecrawl"),
	}
}

// Search runs a web search and returns the raw envelope.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	body, err := c.do(ctx, "search", http.MethodPost, c.baseURL+"/v1/search", req)
	if err != nil {
		return nil, err
	}
	return decodeSearchResponse(body)
}

// Scrape fetches one URL and returns the document itself.
func (c *Client) Scrape(ctx context.Context, req ScrapeRequest) (*Document, error) {
	body, err := c.do(ctx, "scrape", http.MethodPost, c.baseURL+"/v1/scrape", req)
	if err != nil {
		return nil, err
	}
	return decodeDocument(body)
}

// Crawl starts a crawl and polls it until the provider reports completion,
// following pagination of the result set. No partial results are returned.
func (c *Client) Crawl(ctx context.Context, req CrawlRequest) (*CrawlResponse, error) {
	body, err := c.do(ctx, "crawl", http.MethodPost, c.baseURL+"/v1/crawl", req)
	if err != nil {
		return nil, err
	}
	var started crawlStarted
	if err := json.Unmarshal(body, &started); err != nil {
		return nil, fmt.Errorf("decode crawl start: %w", err)
	}
	if started.ID == "" {
		return nil, fmt.Errorf("crawl was not started for %s", req.URL)
	}
	c.log.LogDebugf("crawl %s started for %s", started.ID, req.URL)

	statusURL := c.baseURL + "/v1/crawl/" + started.ID
	for {
		status, err := c.crawlStatus(ctx, statusURL)
		if err != nil {
			return nil, err
		}
		switch status.Status {
		case CrawlCompleted:
			return c.collectPages(ctx, status)
		case CrawlScraping, CrawlProcessing:
		default:
			return nil, fmt.Errorf("crawl %s ended with status %q", started.ID, status.Status)
		}
		c.log.LogDebugf("crawl %s: %d/%d pages", started.ID, status.Completed, status.Total)
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
	}
}

func (c *Client) crawlStatus(ctx context.Context, url string) (*CrawlResponse, error) {
	body, err := c.do(ctx, "crawl_status", http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	var status CrawlResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("decode crawl status: %w", err)
	}
	return &status, nil
}

func (c *Client) collectPages(ctx context.Context, first *CrawlResponse) (*CrawlResponse, error) {
	out := *first
	next := first.Next
	for next != "" {
		page, err := c.crawlStatus(ctx, next)
		if err != nil {
			return nil, err
		}
		out.Data = append(out.Data, page.Data...)
		next = page.Next
	}
	out.Next = ""
	return &out, nil
}

// Agent runs the provider's autonomous agent. Providers without the agent
// endpoint answer 404/405, which surfaces as ErrAgentUnsupported.
func (c *Client) Agent(ctx context.Context, req AgentRequest) (*AgentResponse, error) {
	body, err := c.do(ctx, "agent", http.MethodPost, c.baseURL+"/v2/agent", req)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusNotFound || apiErr.StatusCode == http.StatusMethodNotAllowed) {
			return nil, ErrAgentUnsupported
		}
		return nil, err
	}
	var res AgentResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode agent response: %w", err)
	}
	if !res.Success || res.ID == "" || res.Status == CrawlCompleted || len(res.Data) > 0 {
		return &res, nil
	}

	statusURL := c.baseURL + "/v2/agent/" + res.ID
	for {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		body, err := c.do(ctx, "agent_status", http.MethodGet, statusURL, nil)
		if err != nil {
			return nil, err
		}
		var status AgentResponse
		if err := json.Unmarshal(body, &status); err != nil {
			return nil, fmt.Errorf("decode agent status: %w", err)
		}
		switch status.Status {
		case CrawlProcessing:
		case CrawlCompleted:
			status.Success = true
			return &status, nil
		default:
			status.Success = false
			if status.Error == "" {
				status.Error = fmt.Sprintf("agent %s ended with status %q", res.ID, status.Status)
			}
			return &status, nil
		}
	}
}

func (c *Client) wait(ctx context.Context) error {
	t := time.NewTimer(c.pollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// do performs one gated round trip and returns the body of a 2xx reply.
func (c *Client) do(ctx context.Context, op, method, url string, payload interface{}) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			return nil, fmt.Errorf("encode %s request: %w", op, err)
		}
		reader = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	if err := c.gate.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.gate.Release(1)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ProviderRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(op, "transport_error").Inc()
		return nil, fmt.Errorf("%s request: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(op, "transport_error").Inc()
		return nil, fmt.Errorf("read %s response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ProviderRequestsTotal.WithLabelValues(op, fmt.Sprintf("%d", resp.StatusCode)).Inc()
		return nil, newAPIError(resp.StatusCode, body)
	}
	metrics.ProviderRequestsTotal.WithLabelValues(op, "ok").Inc()
	return body, nil
}

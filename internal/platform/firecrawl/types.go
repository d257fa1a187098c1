package firecrawl

import "encoding/json"

// Document is one page returned by the provider: a search hit, a scrape
// result or a crawled page.
type Document struct {
	Markdown   string          `json:"markdown,omitempty"`
	HTML       string          `json:"html,omitempty"`
	Links      []string        `json:"links,omitempty"`
	Screenshot string          `json:"screenshot,omitempty"`
	JSON       json.RawMessage `json:"json,omitempty"`
	Metadata   Metadata        `json:"metadata,omitempty"`
}

// SearchResponse is the envelope search results arrive in. Scrape results do
// not use it; see decodeDocument.
type SearchResponse struct {
	Success bool       `json:"success"`
	Data    []Document `json:"data"`
	Warning string     `json:"warning,omitempty"`
}

type ScrapeOptions struct {
	Formats []string `json:"formats,omitempty"`
}

type SearchRequest struct {
	Query         string         `json:"query"`
	Limit         int            `json:"limit,omitempty"`
	ScrapeOptions *ScrapeOptions `json:"scrapeOptions,omitempty"`
}

type JSONOptions struct {
	Prompt string         `json:"prompt,omitempty"`
	Schema map[string]any `json:"schema,omitempty"`
}

type ScrapeRequest struct {
	URL             string       `json:"url"`
	Formats         []string     `json:"formats,omitempty"`
	IncludeTags     []string     `json:"includeTags,omitempty"`
	ExcludeTags     []string     `json:"excludeTags,omitempty"`
	OnlyMainContent *bool        `json:"onlyMainContent,omitempty"`
	JSONOptions     *JSONOptions `json:"jsonOptions,omitempty"`
}

type CrawlRequest struct {
	URL           string         `json:"url"`
	Limit         int            `json:"limit,omitempty"`
	IncludePaths  []string       `json:"includePaths,omitempty"`
	ExcludePaths  []string       `json:"excludePaths,omitempty"`
	ScrapeOptions *ScrapeOptions `json:"scrapeOptions,omitempty"`
}

type crawlStarted struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	URL     string `json:"url"`
}

// Status values reported while polling a crawl or an agent run. Anything
// other than scraping or processing is terminal.
const (
	CrawlScraping   = "scraping"
	CrawlProcessing = "processing"
	CrawlCompleted  = "completed"
	CrawlFailed     = "failed"
	CrawlCancelled  = "cancelled"
)

// CrawlResponse is the final state of a crawl once polling has finished.
type CrawlResponse struct {
	Status      string     `json:"status"`
	Total       int        `json:"total"`
	Completed   int        `json:"completed"`
	CreditsUsed int        `json:"creditsUsed"`
	Data        []Document `json:"data"`
	Next        string     `json:"next,omitempty"`
}

type AgentRequest struct {
	Prompt string         `json:"prompt"`
	URLs   []string       `json:"urls,omitempty"`
	Schema map[string]any `json:"schema,omitempty"`
}

type AgentResponse struct {
	Success     bool            `json:"success"`
	ID          string          `json:"id,omitempty"`
	Status      string          `json:"status,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	CreditsUsed *int            `json:"creditsUsed,omitempty"`
	Error       string          `json:"error,omitempty"`
}

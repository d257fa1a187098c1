// Package models holds the normalized records the dashboard works with.
// Records are built by the mapper and are not modified afterwards.
package models

import (
	"time"

	"github.com/DingDong039/sentinel-search/internal/platform/firecrawl"
)

const (
	TableJobs       = "jobs"
	TableProducts   = "products"
	TableNews       = "news_articles"
	TableSearchLogs = "search_logs"

	// ConflictKey is the natural key the store deduplicates on.
	ConflictKey = "url"
)

type Job struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	Salary      *string   `json:"salary,omitempty"`
	URL         string    `json:"url"`
	PostedAt    time.Time `json:"postedAt"`
	Source      string    `json:"source"`
	Description string    `json:"description,omitempty"`
}

func (j Job) Table() string { return TableJobs }

func (j Job) Row() map[string]any {
	return map[string]any{
		"id":           j.ID,
		"title":        j.Title,
		"company":      j.Company,
		"location":     j.Location,
		"salary_range": j.Salary,
		"url":          j.URL,
		"source":       j.Source,
		"posted_at":    j.PostedAt.UTC().Format(time.RFC3339),
	}
}

type Product struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	CurrentPrice  float64  `json:"currentPrice"`
	OriginalPrice *float64 `json:"originalPrice,omitempty"`
	Currency      string   `json:"currency"`
	ImageURL      *string  `json:"imageUrl,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
	ReviewCount   *int     `json:"reviewCount,omitempty"`
	Source        string   `json:"source"`
	URL           string   `json:"url"`
	Description   string   `json:"description,omitempty"`
}

func (p Product) Table() string { return TableProducts }

func (p Product) Row() map[string]any {
	return map[string]any{
		"id":        p.ID,
		"title":     p.Title,
		"price":     p.CurrentPrice,
		"currency":  p.Currency,
		"url":       p.URL,
		"source":    p.Source,
		"image_url": p.ImageURL,
	}
}

type News struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Source       string    `json:"source"`
	URL          string    `json:"url"`
	PublishedAt  time.Time `json:"publishedAt"`
	Summary      string    `json:"summary,omitempty"`
	ThumbnailURL *string   `json:"thumbnailUrl,omitempty"`
}

func (n News) Table() string { return TableNews }

func (n News) Row() map[string]any {
	return map[string]any{
		"id":            n.ID,
		"title":         n.Title,
		"source":        n.Source,
		"url":           n.URL,
		"published_at":  n.PublishedAt.UTC().Format(time.RFC3339),
		"summary":       n.Summary,
		"thumbnail_url": n.ThumbnailURL,
	}
}

// ProductDetails is the partial product returned by detail scraping.
type ProductDetails struct {
	Title        string  `json:"title"`
	CurrentPrice float64 `json:"currentPrice"`
	Currency     string  `json:"currency"`
	Rating       float64 `json:"rating"`
}

// StockData backs the dashboard ticker.
type StockData struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Timestamp     int64   `json:"timestamp"`
}

// CrawlResult is a finished crawl. Total and Completed both equal the number
// of pages returned.
type CrawlResult struct {
	Success   bool                 `json:"success"`
	Status    string               `json:"status"`
	Total     int                  `json:"total"`
	Completed int                  `json:"completed"`
	Data      []firecrawl.Document `json:"data"`
}

package job

import (
	"time"

	"github.com/DingDong039/sentinel-search/internal/core/models"
)

// Job is the Redis record behind an async crawl.
type Job struct {
	JobID     string              `json:"jobId"`
	Type      Type                `json:"type"`
	Status    Status              `json:"status"`
	URL       string              `json:"url"`
	Result    *models.CrawlResult `json:"result,omitempty"`
	Error     string              `json:"error,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

type Type string

const TypeCrawl Type = "crawl"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Done reports whether the job reached a final state.
func (s Status) Done() bool { return s == StatusCompleted || s == StatusFailed }

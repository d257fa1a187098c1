// Package querylog records what users asked for in the search_logs table.
// Logging never fails the operation it describes.
package querylog

import (
	"context"
	"time"

	"github.com/DingDong039/sentinel-search/internal/core/models"
	"github.com/DingDong039/sentinel-search/internal/logger"
	"github.com/DingDong039/sentinel-search/internal/platform/store"
)

type Kind string

const (
	KindJob     Kind = "job"
	KindProduct Kind = "product"
	KindNews    Kind = "news"
	KindScrape  Kind = "scrape"
	KindCrawl   Kind = "crawl"
	KindAgent   Kind = "agent"
)

// Recorder is what handlers depend on; *Logger is the only implementation
// outside tests.
type Recorder interface {
	Log(ctx context.Context, query string, kind Kind)
}

type Logger struct {
	store store.Store
	log   *logger.Logger
	now   func() time.Time
}

func New(s store.Store) *Logger {
	return &Logger{store: s, log: logger.New("QueryLog"), now: time.Now}
}

// Log writes one search_logs row. Errors are logged here and dropped.
func (l *Logger) Log(ctx context.Context, query string, kind Kind) {
	row := map[string]any{
		"query": query,
		"type":  string(kind),
		"metadata": map[string]any{
			"timestamp": l.now().UTC().Format(time.RFC3339),
		},
	}
	if err := l.store.Insert(ctx, models.TableSearchLogs, row); err != nil {
		l.log.LogError("Failed to log search", err)
	}
}

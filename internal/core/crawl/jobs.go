package crawl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/DingDong039/sentinel-search/internal/core/job"
	"github.com/DingDong039/sentinel-search/internal/logger"
	"github.com/DingDong039/sentinel-search/internal/platform/tasks"
)

var errCrawlFailed = errors.New("crawl returned no result")

// Queue is satisfied by *tasks.Client.
type Queue interface {
	Enqueue(ctx context.Context, taskType string, payload any, queue string, maxRetries int) (string, error)
}

type TaskPayload struct {
	JobID   string  `json:"jobId"`
	URL     string  `json:"url"`
	Options Options `json:"options"`
}

// Jobs runs crawls in the background worker and tracks them in Redis.
type Jobs struct {
	crawl      *Service
	jobs       *job.Service
	queue      Queue
	maxRetries int
	log        *logger.Logger
}

func NewJobs(crawl *Service, jobs *job.Service, queue Queue, maxRetries int) *Jobs {
	return &Jobs{crawl: crawl, jobs: jobs, queue: queue, maxRetries: maxRetries, log: logger.New("CrawlJobs")}
}

// Enqueue records a pending job and hands it to the worker queue.
func (j *Jobs) Enqueue(ctx context.Context, url string, opts Options) (string, error) {
	id := uuid.NewString()
	if err := j.jobs.InitPending(ctx, id, url); err != nil {
		return "", err
	}
	if _, err := j.queue.Enqueue(ctx, tasks.TaskTypeCrawl, TaskPayload{JobID: id, URL: url, Options: opts}, tasks.QueueDefault, j.maxRetries); err != nil {
		_ = j.jobs.Fail(ctx, id, "could not enqueue crawl")
		return "", err
	}
	j.log.LogInfof("enqueued crawl job %s for %s", id, url)
	return id, nil
}

func (j *Jobs) Get(ctx context.Context, id string) (*job.Job, error) {
	return j.jobs.Get(ctx, id)
}

// HandleCrawlTask is the worker side of Enqueue. A failed crawl is retried
// by asynq until its last attempt, which marks the job failed.
func (j *Jobs) HandleCrawlTask(ctx context.Context, task *asynq.Task) error {
	var p TaskPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("decode crawl task: %v: %w", err, asynq.SkipRetry)
	}
	j.log.LogInfof("processing crawl job %s for %s", p.JobID, p.URL)
	if err := j.jobs.SetProcessing(ctx, p.JobID); err != nil {
		return err
	}

	result := j.crawl.CrawlWebsite(ctx, p.URL, p.Options)
	if result == nil {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		if retried < maxRetry {
			return fmt.Errorf("job %s: %w", p.JobID, errCrawlFailed)
		}
		if err := j.jobs.Fail(ctx, p.JobID, "crawl failed"); err != nil {
			return err
		}
		return fmt.Errorf("job %s: %w: %w", p.JobID, errCrawlFailed, asynq.SkipRetry)
	}

	j.log.LogInfof("completing crawl job %s with %d pages", p.JobID, result.Completed)
	return j.jobs.Complete(ctx, p.JobID, result)
}

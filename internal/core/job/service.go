package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DingDong039/sentinel-search/internal/core/models"
	"github.com/DingDong039/sentinel-search/internal/logger"
	rds "github.com/DingDong039/sentinel-search/internal/platform/redis"
)

var ErrNotFound = errors.New("job not found")

const (
	activeTTL   = 10 * time.Minute
	finishedTTL = time.Hour
)

type Service struct {
	redis *rds.Service
	log   *logger.Logger
	now   func() time.Time
}

func NewService(redis *rds.Service) *Service {
	return &Service{redis: redis, log: logger.New("JobService"), now: time.Now}
}

func (s *Service) Get(ctx context.Context, jobID string) (*Job, error) {
	var j Job
	if err := s.redis.CacheGet(ctx, key(jobID), &j); err != nil {
		if errors.Is(err, rds.ErrCacheMiss) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
		}
		return nil, err
	}
	return &j, nil
}

func (s *Service) InitPending(ctx context.Context, jobID, url string) error {
	now := s.now().UTC()
	return s.save(ctx, &Job{JobID: jobID, Type: TypeCrawl, Status: StatusPending, URL: url, CreatedAt: now, UpdatedAt: now})
}

func (s *Service) SetProcessing(ctx context.Context, jobID string) error {
	return s.update(ctx, jobID, func(j *Job) { j.Status = StatusProcessing })
}

func (s *Service) Complete(ctx context.Context, jobID string, result *models.CrawlResult) error {
	return s.update(ctx, jobID, func(j *Job) {
		j.Status = StatusCompleted
		j.Result = result
		j.Error = ""
	})
}

func (s *Service) Fail(ctx context.Context, jobID, reason string) error {
	return s.update(ctx, jobID, func(j *Job) {
		j.Status = StatusFailed
		j.Error = reason
	})
}

// update applies fn to the stored job. A job that expired in the meantime
// is recreated so the final state is never lost.
func (s *Service) update(ctx context.Context, jobID string, fn func(*Job)) error {
	j, err := s.Get(ctx, jobID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		s.log.LogWarnf("job %s missing on update, recreating", jobID)
		j = &Job{JobID: jobID, Type: TypeCrawl, CreatedAt: s.now().UTC()}
	}
	fn(j)
	j.UpdatedAt = s.now().UTC()
	return s.save(ctx, j)
}

func (s *Service) save(ctx context.Context, j *Job) error {
	ttl := activeTTL
	if j.Status.Done() {
		ttl = finishedTTL
	}
	if err := s.redis.CacheSet(ctx, key(j.JobID), j, ttl); err != nil {
		return fmt.Errorf("save job %s: %w", j.JobID, err)
	}
	return nil
}

func key(id string) string { return "job:" + id }

package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeCrawl = "crawl:task"

	QueueDefault = "default"
)

type Client struct{ c *asynq.Client }

func New(opt asynq.RedisClientOpt) *Client { return &Client{c: asynq.NewClient(opt)} }

func (t *Client) Close() error { return t.c.Close() }

// Enqueue JSON-encodes payload into a task of taskType and returns the task
// id asynq assigned.
func (t *Client) Enqueue(ctx context.Context, taskType string, payload any, queue string, maxRetries int) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", taskType, err)
	}
	info, err := t.c.EnqueueContext(ctx, asynq.NewTask(taskType, b), asynq.Queue(queue), asynq.MaxRetry(maxRetries))
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return info.ID, nil
}

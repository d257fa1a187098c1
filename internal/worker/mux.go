package worker

import (
	"context"
	"time"

	"github.com/hibiken/asynq"

	"github.com/DingDong039/sentinel-search/internal/logger"
)

// Mux routes background tasks to their handlers and logs every run.
type Mux struct {
	mux *asynq.ServeMux
	log *logger.Logger
}

func NewMux() *Mux {
	m := &Mux{mux: asynq.NewServeMux(), log: logger.New("Worker")}
	m.mux.Use(m.logging)
	return m
}

func (m *Mux) HandleFunc(taskType string, h func(ctx context.Context, task *asynq.Task) error) {
	m.mux.HandleFunc(taskType, h)
}

func (m *Mux) Mux() *asynq.ServeMux { return m.mux }

func (m *Mux) logging(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		start := time.Now()
		id, _ := asynq.GetTaskID(ctx)
		err := next.ProcessTask(ctx, t)
		ev := m.log.Info()
		if err != nil {
			ev = m.log.Error().Err(err)
		}
		ev.Str("task", t.Type()).Str("id", id).Dur("took", time.Since(start)).Msg("task finished")
		return err
	})
}

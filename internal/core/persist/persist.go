// Package persist is the best-effort sink between mapped records and the
// store. Writes are awaited so they finish before the caller returns, but a
// failed write is only logged: search results never depend on it.
package persist

import (
	"context"

	"github.com/DingDong039/sentinel-search/internal/core/models"
	"github.com/DingDong039/sentinel-search/internal/logger"
	"github.com/DingDong039/sentinel-search/internal/metrics"
	"github.com/DingDong039/sentinel-search/internal/platform/store"
)

// Record is anything the sink can store as one row.
type Record interface {
	Table() string
	Row() map[string]any
}

type Sink struct {
	store store.Store
	log   *logger.Logger
}

func NewSink(s store.Store) *Sink {
	return &Sink{store: s, log: logger.New("Persist")}
}

// Records stores a batch of records of one table.
func Records[T Record](ctx context.Context, sink *Sink, records []T) {
	if len(records) == 0 {
		return
	}
	rows := make([]map[string]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.Row())
	}
	sink.Persist(ctx, records[0].Table(), rows)
}

// Persist upserts rows keyed on url. Rows repeating a url already seen in
// the batch are dropped before the write so one batch never conflicts with
// itself.
func (s *Sink) Persist(ctx context.Context, table string, rows []map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			s.log.LogErrorf("persist %s panicked: %v", table, r)
			metrics.RecordsPersisted.WithLabelValues(table, "error").Add(float64(len(rows)))
		}
	}()

	rows = dedupe(rows, models.ConflictKey)
	if len(rows) == 0 {
		return
	}
	if err := s.store.Upsert(ctx, table, rows, models.ConflictKey); err != nil {
		s.log.ErrorWithFields(map[string]interface{}{"table": table, "rows": len(rows)}).Err(err).Msg("Failed to persist rows")
		metrics.RecordsPersisted.WithLabelValues(table, "error").Add(float64(len(rows)))
		return
	}
	metrics.RecordsPersisted.WithLabelValues(table, "ok").Add(float64(len(rows)))
}

func dedupe(rows []map[string]any, key string) []map[string]any {
	seen := make(map[any]struct{}, len(rows))
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		k := r[key]
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

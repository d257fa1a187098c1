// Package store is the relational sink for normalized search results and the
// search log. Backends: Supabase (PostgREST) and plain Postgres.
package store

import (
	"context"
	"sort"

	"github.com/DingDong039/sentinel-search/internal/logger"
)

// Store writes rows keyed by column name. Upsert ignores rows whose conflict
// key already exists; it never updates them.
type Store interface {
	Upsert(ctx context.Context, table string, rows []map[string]any, conflictKey string) error
	Insert(ctx context.Context, table string, row map[string]any) error
	HealthCheck(ctx context.Context) error
}

// Nop discards every write. Used when no backend is configured.
type Nop struct{ log *logger.Logger }

func NewNop() *Nop { return &Nop{log: logger.New("Store")} }

func (n *Nop) Upsert(_ context.Context, table string, rows []map[string]any, _ string) error {
	n.log.LogDebugf("store disabled, dropping %d rows for %s", len(rows), table)
	return nil
}

func (n *Nop) Insert(_ context.Context, table string, _ map[string]any) error {
	n.log.LogDebugf("store disabled, dropping row for %s", table)
	return nil
}

func (n *Nop) HealthCheck(context.Context) error { return nil }

// columns returns the union of row keys in a stable order.
func columns(rows []map[string]any) []string {
	seen := make(map[string]struct{})
	var cols []string
	for _, r := range rows {
		for k := range r {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			cols = append(cols, k)
		}
	}
	sort.Strings(cols)
	return cols
}

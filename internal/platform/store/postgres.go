package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/DingDong039/sentinel-search/internal/logger"
)

// Postgres writes straight to a Postgres database through the pgx stdlib
// driver.
type Postgres struct {
	db  *sqlx.DB
	log *logger.Logger
}

func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewPostgres(db), nil
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db, log: logger.New("PostgresStore")}
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) Upsert(ctx context.Context, table string, rows []map[string]any, conflictKey string) error {
	if len(rows) == 0 {
		return nil
	}
	query, args, err := p.buildInsert(table, rows)
	if err != nil {
		return err
	}
	if conflictKey != "" {
		query += " ON CONFLICT (" + pgx.Identifier{conflictKey}.Sanitize() + ") DO NOTHING"
	}
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	if n, err := res.RowsAffected(); err == nil {
		p.log.LogDebugf("upsert %s: %d new of %d rows", table, n, len(rows))
	}
	return nil
}

func (p *Postgres) Insert(ctx context.Context, table string, row map[string]any) error {
	query, args, err := p.buildInsert(table, []map[string]any{row})
	if err != nil {
		return err
	}
	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

func (p *Postgres) HealthCheck(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// buildInsert renders a multi-row INSERT with bind variables for the
// driver's placeholder style.
func (p *Postgres) buildInsert(table string, rows []map[string]any) (string, []any, error) {
	cols := columns(rows)
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(pgx.Identifier{table}.Sanitize())
	b.WriteString(" (")
	b.WriteString(strings.Join(quoted, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(cols))
	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	for i, r := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(placeholders)
		for _, c := range cols {
			v, err := sqlValue(r[c])
			if err != nil {
				return "", nil, fmt.Errorf("column %s.%s: %w", table, c, err)
			}
			args = append(args, v)
		}
	}
	return p.db.Rebind(b.String()), args, nil
}

// sqlValue flattens nested maps and slices to JSON for jsonb columns.
func sqlValue(v any) (any, error) {
	switch v.(type) {
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	default:
		return v, nil
	}
}

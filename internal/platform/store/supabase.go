package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/antoineross/supabase-go"

	"github.com/DingDong039/sentinel-search/internal/logger"
)

// Supabase writes through the project's PostgREST endpoint.
type Supabase struct {
	baseURL    string
	serviceKey string
	client     *supabase.Client
	http       *http.Client
	log        *logger.Logger
}

func NewSupabase(baseURL, serviceKey string) (*Supabase, error) {
	if baseURL == "" || serviceKey == "" {
		return nil, fmt.Errorf("supabase URL and service key are required")
	}
	client, err := supabase.NewClient(baseURL, serviceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("init supabase client: %w", err)
	}
	return &Supabase{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		client:     client,
		http:       &http.Client{Timeout: 15 * time.Second},
		log:        logger.New("SupabaseStore"),
	}, nil
}

func (s *Supabase) Insert(_ context.Context, table string, row map[string]any) error {
	if _, _, err := s.client.From(table).Insert(row, false, "", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

// Upsert posts the batch directly to PostgREST. The client library's upsert
// only emits resolution=merge-duplicates, which would overwrite rows already
// stored; ignore-duplicates leaves them as they are.
func (s *Supabase) Upsert(ctx context.Context, table string, rows []map[string]any, conflictKey string) error {
	if len(rows) == 0 {
		return nil
	}
	endpoint := fmt.Sprintf("%s/rest/v1/%s", s.baseURL, url.PathEscape(table))
	if conflictKey != "" {
		endpoint += "?on_conflict=" + url.QueryEscape(conflictKey)
	}

	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(rows); err != nil {
		return fmt.Errorf("encode %s rows: %w", table, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, buf)
	if err != nil {
		return fmt.Errorf("build upsert request: %w", err)
	}
	s.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=ignore-duplicates,return=minimal")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("upsert %s: status %d: %s", table, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func (s *Supabase) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/rest/v1/", nil)
	if err != nil {
		return err
	}
	s.authorize(req)
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("supabase ping failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("supabase ping failed: status %d", resp.StatusCode)
	}
	return nil
}

func (s *Supabase) authorize(req *http.Request) {
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
}

package firecrawl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL, APIKey: "fc-test", PollInterval: time.Millisecond})
}

func TestDecodeSearchResponse_Envelope(t *testing.T) {
	body := []byte(`{"success":true,"data":[{"markdown":"# hi","metadata":{"title":"Bitcoin ETF","sourceURL":"https://x.com/a"}}]}`)

	res, err := decodeSearchResponse(body)
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "# hi", res.Data[0].Markdown)
	assert.Equal(t, "Bitcoin ETF", res.Data[0].Metadata.FirstString("title"))
}

func TestDecodeSearchResponse_MissingData(t *testing.T) {
	res, err := decodeSearchResponse([]byte(`{"success":false}`))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Empty(t, res.Data)
}

func TestDecodeSearchResponse_DataNotArray(t *testing.T) {
	_, err := decodeSearchResponse([]byte(`{"success":true,"data":{"markdown":"x"}}`))
	assert.Error(t, err)
}

func TestDecodeDocument_BothShapes(t *testing.T) {
	wrapped := []byte(`{"success":true,"data":{"markdown":"body","links":["https://a"],"metadata":{"title":"T","statusCode":200}}}`)
	bare := []byte(`{"markdown":"body","links":["https://a"],"metadata":{"title":"T","statusCode":200}}`)

	for name, body := range map[string][]byte{"wrapped": wrapped, "bare": bare} {
		t.Run(name, func(t *testing.T) {
			doc, err := decodeDocument(body)
			require.NoError(t, err)
			assert.Equal(t, "body", doc.Markdown)
			assert.Equal(t, []string{"https://a"}, doc.Links)
			assert.Equal(t, "T", doc.Metadata.FirstString("title"))
			assert.Equal(t, 200, doc.Metadata.StatusCode())
		})
	}
}

func TestDecodeDocument_ProviderFailure(t *testing.T) {
	_, err := decodeDocument([]byte(`{"success":false,"error":"blocked"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
}

func TestClient_Search(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/search", r.URL.Path)
		assert.Equal(t, "Bearer fc-test", r.Header.Get("Authorization"))

		var req SearchRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "golang", req.Query)
		assert.Equal(t, 10, req.Limit)
		if assert.NotNil(t, req.ScrapeOptions) {
			assert.Equal(t, []string{"markdown"}, req.ScrapeOptions.Formats)
		}

		_, _ = w.Write([]byte(`{"success":true,"data":[{"metadata":{"title":"Go"}}]}`))
	})

	res, err := c.Search(context.Background(), SearchRequest{Query: "golang", Limit: 10, ScrapeOptions: &ScrapeOptions{Formats: []string{"markdown"}}})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
}

func TestClient_Search_APIErrorKeepsStatusInMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"success":false,"error":"Insufficient credits to perform this request."}`))
	})

	_, err := c.Search(context.Background(), SearchRequest{Query: "q"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusPaymentRequired, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "402")
	assert.Contains(t, err.Error(), "Insufficient credits")
}

func TestClient_Scrape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/scrape", r.URL.Path)
		var req ScrapeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if assert.NotNil(t, req.OnlyMainContent) {
			assert.True(t, *req.OnlyMainContent)
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"markdown":"page","metadata":{"sourceURL":"https://example.com"}}}`))
	})

	main := true
	doc, err := c.Scrape(context.Background(), ScrapeRequest{URL: "https://example.com", Formats: []string{"markdown"}, OnlyMainContent: &main})
	require.NoError(t, err)
	assert.Equal(t, "page", doc.Markdown)
}

func TestClient_Crawl_PollsUntilCompletedAndFollowsNext(t *testing.T) {
	var polls atomic.Int32
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/crawl":
			_, _ = w.Write([]byte(`{"success":true,"id":"abc"}`))
		case r.URL.Path == "/v1/crawl/abc" && r.URL.Query().Get("skip") == "":
			if polls.Add(1) < 2 {
				_, _ = w.Write([]byte(`{"status":"scraping","total":2,"completed":1}`))
				return
			}
			_, _ = w.Write([]byte(`{"status":"completed","total":2,"completed":2,"data":[{"markdown":"one"}],"next":"` + srvURL + `/v1/crawl/abc?skip=1"}`))
		case r.URL.Path == "/v1/crawl/abc":
			_, _ = w.Write([]byte(`{"status":"completed","total":2,"completed":2,"data":[{"markdown":"two"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	srvURL = srv.URL

	c := New(Options{BaseURL: srv.URL, PollInterval: time.Millisecond})
	res, err := c.Crawl(context.Background(), CrawlRequest{URL: "https://example.com", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, CrawlCompleted, res.Status)
	require.Len(t, res.Data, 2)
	assert.Equal(t, "one", res.Data[0].Markdown)
	assert.Equal(t, "two", res.Data[1].Markdown)
	assert.Empty(t, res.Next)
}

func TestClient_Crawl_Failed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"success":true,"id":"x"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"failed"}`))
	})

	_, err := c.Crawl(context.Background(), CrawlRequest{URL: "https://example.com"})
	assert.Error(t, err)
}

func TestClient_Crawl_StopsOnTerminalStatus(t *testing.T) {
	for _, status := range []string{CrawlCancelled, "unknown"} {
		t.Run(status, func(t *testing.T) {
			var polls atomic.Int32
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodPost {
					_, _ = w.Write([]byte(`{"success":true,"id":"c1"}`))
					return
				}
				polls.Add(1)
				_, _ = w.Write([]byte(`{"status":"` + status + `","total":3,"completed":1}`))
			})

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_, err := c.Crawl(ctx, CrawlRequest{URL: "https://example.com"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), status)
			assert.NoError(t, ctx.Err())
			assert.Equal(t, int32(1), polls.Load())
		})
	}
}

func TestClient_Crawl_KeepsPollingWhileProcessing(t *testing.T) {
	var polls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"success":true,"id":"c1"}`))
			return
		}
		if polls.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"status":"processing"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"completed","data":[{"markdown":"done"}]}`))
	})

	res, err := c.Crawl(context.Background(), CrawlRequest{URL: "https://example.com"})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, int32(2), polls.Load())
}

func TestClient_Agent_StopsOnTerminalStatus(t *testing.T) {
	var polls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"success":true,"id":"job-1","status":"processing"}`))
			return
		}
		if polls.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"success":true,"status":"processing"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"status":"cancelled"}`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := c.Agent(ctx, AgentRequest{Prompt: "find"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "cancelled")
	assert.NoError(t, ctx.Err())
	assert.Equal(t, int32(2), polls.Load())
}

func TestClient_Agent_Unsupported(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.Agent(context.Background(), AgentRequest{Prompt: "find"})
	assert.ErrorIs(t, err, ErrAgentUnsupported)
}

func TestClient_Agent_PollsJob(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"success":true,"id":"job-1"}`))
			return
		}
		assert.Equal(t, "/v2/agent/job-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"status":"completed","data":{"answer":42},"creditsUsed":7}`))
	})

	res, err := c.Agent(context.Background(), AgentRequest{Prompt: "find"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.JSONEq(t, `{"answer":42}`, string(res.Data))
	require.NotNil(t, res.CreditsUsed)
	assert.Equal(t, 7, *res.CreditsUsed)
}

func TestClient_NeverExceedsConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		_, _ = w.Write([]byte(`{"success":true,"data":[]}`))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, MaxConcurrency: 2})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Search(context.Background(), SearchRequest{Query: "q"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, int32(0), inFlight.Load())
}

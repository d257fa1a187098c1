package crawl

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/DingDong039/sentinel-search/internal/core/job"
	"github.com/DingDong039/sentinel-search/internal/core/models"
	"github.com/DingDong039/sentinel-search/internal/core/querylog"
	"github.com/DingDong039/sentinel-search/internal/core/scrape"
)

type Handler struct {
	crawl      *Service
	jobs       *Jobs
	queries    querylog.Recorder
	runTimeout time.Duration
}

// NewHandler builds the crawl handlers. jobs is nil when Redis is not
// configured; the async endpoints then answer 503. A positive runTimeout
// bounds the blocking crawl.
func NewHandler(crawl *Service, jobs *Jobs, queries querylog.Recorder, runTimeout time.Duration) *Handler {
	return &Handler{crawl: crawl, jobs: jobs, queries: queries, runTimeout: runTimeout}
}

func (h *Handler) runContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	if h.runTimeout <= 0 {
		return context.WithCancel(c.UserContext())
	}
	return context.WithTimeout(c.UserContext(), h.runTimeout)
}

type Request struct {
	URL string `json:"url"`
	Options
}

func (h *Handler) parse(c *fiber.Ctx) (Request, string) {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return req, "invalid request body"
	}
	req.URL = strings.TrimSpace(req.URL)
	switch {
	case req.URL == "":
		return req, "url is required"
	case !scrape.ValidURL(req.URL):
		return req, "invalid URL: " + req.URL
	case req.Limit < 0:
		return req, "limit must not be negative"
	}
	return req, ""
}

func (h *Handler) logQuery(c *fiber.Ctx, url string) {
	if h.queries != nil {
		h.queries.Log(c.UserContext(), url, querylog.KindCrawl)
	}
}

// HandleCrawl crawls synchronously and answers with every page.
func (h *Handler) HandleCrawl(c *fiber.Ctx) error {
	req, msg := h.parse(c)
	if msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.Fail(msg))
	}
	h.logQuery(c, req.URL)

	ctx, cancel := h.runContext(c)
	defer cancel()
	res := h.crawl.CrawlWebsite(ctx, req.URL, req.Options)
	if res == nil {
		return c.Status(fiber.StatusBadGateway).JSON(models.Fail("failed to crawl " + req.URL))
	}
	return c.JSON(res)
}

func (h *Handler) HandleCreateJob(c *fiber.Ctx) error {
	if h.jobs == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.Fail("async crawl requires redis"))
	}
	req, msg := h.parse(c)
	if msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.Fail(msg))
	}
	h.logQuery(c, req.URL)

	id, err := h.jobs.Enqueue(c.UserContext(), req.URL, req.Options)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.Fail(err.Error()))
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"success": true, "jobId": id, "status": job.StatusPending})
}

func (h *Handler) HandleGetJob(c *fiber.Ctx) error {
	if h.jobs == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.Fail("async crawl requires redis"))
	}
	j, err := h.jobs.Get(c.UserContext(), c.Params("jobId"))
	if errors.Is(err, job.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(models.Fail("not_found"))
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.Fail(err.Error()))
	}
	return c.JSON(fiber.Map{"success": true, "job": j})
}

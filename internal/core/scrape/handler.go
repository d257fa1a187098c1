package scrape

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/DingDong039/sentinel-search/internal/core/models"
	"github.com/DingDong039/sentinel-search/internal/core/querylog"
	"github.com/DingDong039/sentinel-search/internal/utils/parser"
)

type Handler struct {
	service *Service
	queries querylog.Recorder
}

func NewHandler(service *Service, queries querylog.Recorder) *Handler {
	return &Handler{service: service, queries: queries}
}

type Request struct {
	URL string `json:"url"`
	Options
}

type getParams struct {
	URL             string   `form:"url"`
	Formats         []string `form:"formats"`
	OnlyMainContent *bool    `form:"onlyMainContent"`
	Fresh           bool     `form:"fresh"`
}

// ValidURL reports whether raw is an absolute http(s) URL.
func ValidURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (h *Handler) HandleScrape(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.Fail("invalid request body"))
	}
	return h.scrape(c, strings.TrimSpace(req.URL), req.Options)
}

// HandleGetScrape is the query string form of HandleScrape, handy for
// curl and the browser.
func (h *Handler) HandleGetScrape(c *fiber.Ctx) error {
	p, err := parser.Query[getParams](c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.Fail("invalid query"))
	}
	return h.scrape(c, p.URL, Options{Formats: p.Formats, OnlyMainContent: p.OnlyMainContent, Fresh: p.Fresh})
}

func (h *Handler) scrape(c *fiber.Ctx, target string, opts Options) error {
	if target == "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.Fail("url is required"))
	}
	if !ValidURL(target) {
		return c.Status(fiber.StatusBadRequest).JSON(models.Fail("invalid URL: " + target))
	}

	ctx := c.UserContext()
	if h.queries != nil {
		h.queries.Log(ctx, target, querylog.KindScrape)
	}
	doc := h.service.ScrapeURL(ctx, target, opts)
	if doc == nil {
		return c.Status(fiber.StatusBadGateway).JSON(models.Fail("failed to scrape " + target))
	}
	return c.JSON(fiber.Map{"success": true, "data": doc})
}

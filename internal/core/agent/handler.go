package agent

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/DingDong039/sentinel-search/internal/core/models"
	"github.com/DingDong039/sentinel-search/internal/core/querylog"
	"github.com/DingDong039/sentinel-search/internal/core/scrape"
)

type Handler struct {
	service    *Service
	queries    querylog.Recorder
	runTimeout time.Duration
}

// NewHandler builds the agent handler; a positive runTimeout bounds each run.
func NewHandler(service *Service, queries querylog.Recorder, runTimeout time.Duration) *Handler {
	return &Handler{service: service, queries: queries, runTimeout: runTimeout}
}

type Request struct {
	Prompt string `json:"prompt"`
	Options
}

func (h *Handler) HandleAgent(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.Fail("invalid request body"))
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.Fail("prompt is required"))
	}
	for _, u := range req.URLs {
		if !scrape.ValidURL(u) {
			return c.Status(fiber.StatusBadRequest).JSON(models.Fail("invalid URL: " + u))
		}
	}

	if h.queries != nil {
		h.queries.Log(c.UserContext(), req.Prompt, querylog.KindAgent)
	}
	ctx := c.UserContext()
	if h.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.runTimeout)
		defer cancel()
	}
	res := h.service.RunAgent(ctx, req.Prompt, req.Options)
	if res == nil {
		return c.Status(fiber.StatusBadGateway).JSON(models.Fail("agent run failed"))
	}
	return c.JSON(res)
}

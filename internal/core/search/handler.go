package search

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/DingDong039/sentinel-search/internal/core/classify"
	"github.com/DingDong039/sentinel-search/internal/core/models"
	"github.com/DingDong039/sentinel-search/internal/core/querylog"
	"github.com/DingDong039/sentinel-search/internal/logger"
	"github.com/DingDong039/sentinel-search/internal/metrics"
	"github.com/DingDong039/sentinel-search/internal/utils/parser"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type queryParams struct {
	Q string `form:"q"`
}

type detailsRequest struct {
	URL string `json:"url"`
}

// HandleSearch runs the aggregate search. A blank query is an empty outcome,
// not an error.
func (h *Handler) HandleSearch(c *fiber.Ctx) error {
	p, err := parser.Query[queryParams](c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.Fail("invalid query"))
	}
	return c.JSON(h.service.Search(c.UserContext(), p.Q))
}

func (h *Handler) HandleJobs(c *fiber.Ctx) error {
	return handleList(h, c, querylog.KindJob, h.service.SearchJobs)
}

func (h *Handler) HandleProducts(c *fiber.Ctx) error {
	return handleList(h, c, querylog.KindProduct, h.service.SearchProducts)
}

func (h *Handler) HandleNews(c *fiber.Ctx) error {
	return handleList(h, c, querylog.KindNews, h.service.SearchNews)
}

func handleList[T any](h *Handler, c *fiber.Ctx, kind querylog.Kind, search func(context.Context, string) ([]T, error)) error {
	p, err := parser.Query[queryParams](c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.Fail("invalid query"))
	}
	q := strings.TrimSpace(p.Q)
	if q == "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.Fail("q is required"))
	}
	ctx := c.UserContext()
	h.service.logQuery(ctx, q, kind)

	items, err := search(ctx, q)
	if err != nil {
		res := classify.Classify(err)
		metrics.SearchErrorsTotal.WithLabelValues(string(kind), string(res.Type)).Inc()
		return c.Status(res.HTTPStatus()).JSON(models.ErrorResponse{
			Success: false,
			Error:   logger.StripANSI(res.Message),
			Type:    string(res.Type),
		})
	}
	return c.JSON(models.List(items))
}

func (h *Handler) HandleProductDetails(c *fiber.Ctx) error {
	var req detailsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.Fail("invalid request body"))
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.Fail("url is required"))
	}

	details := h.service.ScrapeProductDetails(c.UserContext(), req.URL)
	if details == nil {
		return c.Status(fiber.StatusBadGateway).JSON(models.Fail("failed to scrape product details"))
	}
	return c.JSON(fiber.Map{"success": true, "data": details})
}

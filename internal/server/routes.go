package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DingDong039/sentinel-search/internal/core/agent"
	"github.com/DingDong039/sentinel-search/internal/core/crawl"
	"github.com/DingDong039/sentinel-search/internal/core/querylog"
	"github.com/DingDong039/sentinel-search/internal/core/scrape"
	"github.com/DingDong039/sentinel-search/internal/core/search"
	"github.com/DingDong039/sentinel-search/internal/health"
)

type Dependencies struct {
	Search *search.Service
	Scrape *scrape.Service
	Crawl  *crawl.Service
	// CrawlJobs is nil without Redis.
	CrawlJobs *crawl.Jobs
	Agent     *agent.Service
	Queries   querylog.Recorder
	Checks    map[string]health.Checker

	// RunTimeout bounds blocking crawl and agent requests; zero means none.
	RunTimeout time.Duration
}

func RegisterRoutes(app *fiber.App, d Dependencies) *health.HealthHandler {
	app.Use(recover.New())
	app.Use(cors.New())

	healthHandler := health.NewHealthHandler(d.Checks)
	app.Get("/v1/health", health.HealthLimiter(), healthHandler.HandleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/v1")

	searchHandler := search.NewHandler(d.Search)
	api.Get("/search", searchHandler.HandleSearch)
	api.Get("/jobs", searchHandler.HandleJobs)
	api.Get("/products", searchHandler.HandleProducts)
	api.Get("/news", searchHandler.HandleNews)
	api.Post("/products/details", searchHandler.HandleProductDetails)

	scrapeHandler := scrape.NewHandler(d.Scrape, d.Queries)
	api.Get("/scrape", scrapeHandler.HandleGetScrape)
	api.Post("/scrape", scrapeHandler.HandleScrape)

	crawlHandler := crawl.NewHandler(d.Crawl, d.CrawlJobs, d.Queries, d.RunTimeout)
	api.Post("/crawl", crawlHandler.HandleCrawl)
	api.Post("/crawl/jobs", crawlHandler.HandleCreateJob)
	api.Get("/crawl/jobs/:jobId", crawlHandler.HandleGetJob)

	agentHandler := agent.NewHandler(d.Agent, d.Queries, d.RunTimeout)
	api.Post("/agent", agentHandler.HandleAgent)

	return healthHandler
}

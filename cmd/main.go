package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"github.com/DingDong039/sentinel-search/internal/config"
	"github.com/DingDong039/sentinel-search/internal/core/agent"
	"github.com/DingDong039/sentinel-search/internal/core/crawl"
	"github.com/DingDong039/sentinel-search/internal/core/job"
	"github.com/DingDong039/sentinel-search/internal/core/persist"
	"github.com/DingDong039/sentinel-search/internal/core/querylog"
	"github.com/DingDong039/sentinel-search/internal/core/scrape"
	"github.com/DingDong039/sentinel-search/internal/core/search"
	"github.com/DingDong039/sentinel-search/internal/health"
	"github.com/DingDong039/sentinel-search/internal/logger"
	"github.com/DingDong039/sentinel-search/internal/platform/firecrawl"
	rds "github.com/DingDong039/sentinel-search/internal/platform/redis"
	"github.com/DingDong039/sentinel-search/internal/platform/store"
	"github.com/DingDong039/sentinel-search/internal/platform/tasks"
	"github.com/DingDong039/sentinel-search/internal/server"
	"github.com/DingDong039/sentinel-search/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logr := logger.New("main")
	logr.LogInfof("starting at %s (env=%s, store=%s)", cfg.HTTPAddr, cfg.AppEnv, cfg.StoreBackend)

	ctx := context.Background()

	st, closeStore, err := openStore(ctx, cfg, logr)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer closeStore()

	provider := firecrawl.New(firecrawl.Options{
		BaseURL:        cfg.ProviderURL,
		APIKey:         cfg.ProviderAPIKey,
		MaxConcurrency: cfg.ProviderMaxConcurrency,
		Timeout:        cfg.ProviderTimeout,
		PollInterval:   cfg.CrawlPollInterval,
	})

	checks := map[string]health.Checker{"store": st}

	// Redis is optional: without it there is no scrape cache and no async crawl.
	var (
		redisSvc    *rds.Service
		cache       scrape.Cache
		taskClient  *tasks.Client
		asynqServer *asynq.Server
	)
	if cfg.CacheEnabled() {
		redisSvc, err = rds.New(ctx, rds.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err != nil {
			log.Fatal(err)
		}
		defer redisSvc.Close()
		cache = redisSvc
		checks["redis"] = redisSvc

		taskClient = tasks.New(redisSvc.AsynqRedisOpt())
		defer taskClient.Close()
		asynqServer = asynq.NewServer(redisSvc.AsynqRedisOpt(), asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues:      map[string]int{tasks.QueueDefault: 1},
		})
	} else {
		logr.LogWarn("REDIS_ADDR not set: scrape cache and async crawl jobs disabled")
	}

	// Core services
	queries := querylog.New(st)
	searchSvc := search.NewService(provider, persist.NewSink(st), queries, cfg.Profile)
	scrapeSvc := scrape.NewService(provider, cache, time.Duration(cfg.ScrapeCacheTTL)*time.Second)
	crawlSvc := crawl.NewService(provider, cfg.Profile.CrawlLimit)
	agentSvc := agent.NewService(provider)

	var crawlJobs *crawl.Jobs
	if redisSvc != nil {
		crawlJobs = crawl.NewJobs(crawlSvc, job.NewService(redisSvc), taskClient, cfg.TaskMaxRetries)

		mux := worker.NewMux()
		mux.HandleFunc(tasks.TaskTypeCrawl, crawlJobs.HandleCrawlTask)
		if err := asynqServer.Start(mux.Mux()); err != nil {
			log.Fatalf("worker: %v", err)
		}
	}

	// HTTP server
	app := fiber.New(fiber.Config{
		AppName: "Sentinel Search",
		// blocking crawl and agent runs give up at RunTimeout; answer before the write deadline
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RunTimeout + 30*time.Second,
		JSONEncoder: func(v interface{}) ([]byte, error) {
			var buf bytes.Buffer
			encoder := json.NewEncoder(&buf)
			encoder.SetEscapeHTML(false)
			if err := encoder.Encode(v); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
	})

	healthHandler := server.RegisterRoutes(app, server.Dependencies{
		Search:    searchSvc,
		Scrape:    scrapeSvc,
		Crawl:     crawlSvc,
		CrawlJobs: crawlJobs,
		Agent:     agentSvc,
		Queries:   queries,
		Checks:    checks,

		RunTimeout: cfg.RunTimeout,
	})

	go func() {
		time.Sleep(5 * time.Second)
		healthHandler.SetReady()
	}()

	// Graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logr.LogInfo("Shutting down...")
		if asynqServer != nil {
			asynqServer.Shutdown()
		}
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	if err := app.Listen(cfg.HTTPAddr); err != nil {
		log.Fatalf("server listen: %v", err)
	}
}

// openStore picks the persistence backend. Outside production a missing
// Supabase configuration falls back to the no-op store so the API still
// serves searches.
func openStore(ctx context.Context, cfg config.Config, logr *logger.Logger) (store.Store, func(), error) {
	noop := func() {}
	switch cfg.StoreBackend {
	case "postgres":
		pg, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		return pg, func() { _ = pg.Close() }, nil
	case "supabase":
		if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
			logr.LogWarn("Supabase credentials missing: results will not be persisted")
			return store.NewNop(), noop, nil
		}
		sb, err := store.NewSupabase(cfg.SupabaseURL, cfg.SupabaseServiceKey)
		if err != nil {
			return nil, noop, err
		}
		return sb, noop, nil
	default:
		return store.NewNop(), noop, nil
	}
}

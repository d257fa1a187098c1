package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv   string
	HTTPAddr string

	RedisAddr     string
	RedisPassword string

	ProviderURL            string
	ProviderAPIKey         string
	ProviderMaxConcurrency int
	ProviderTimeout        time.Duration
	CrawlPollInterval      time.Duration
	// RunTimeout bounds a blocking crawl or agent request, polls included.
	RunTimeout time.Duration

	// StoreBackend is "supabase", "postgres" or "none".
	StoreBackend       string
	SupabaseURL        string
	SupabaseServiceKey string
	DatabaseURL        string

	ScrapeCacheTTL    int
	TaskMaxRetries    int
	WorkerConcurrency int

	Profile SearchProfile
}

// SearchProfile holds the per-deployment search knobs. Defaults match the
// Thai deployment; SEARCH_PROFILE_PATH points at a YAML file overriding them.
type SearchProfile struct {
	JobLimit         int    `yaml:"job_limit"`
	ProductLimit     int    `yaml:"product_limit"`
	NewsLimit        int    `yaml:"news_limit"`
	ProductQualifier string `yaml:"product_qualifier"`
	Currency         string `yaml:"currency"`
	ExtractionPrompt string `yaml:"extraction_prompt"`
	CrawlLimit       int    `yaml:"crawl_limit"`
}

const defaultExtractionPrompt = "Extract product name as 'title', price as 'currentPrice' (number only), currency, and average rating as 'rating' from this page."

func DefaultProfile() SearchProfile {
	return SearchProfile{
		JobLimit:         10,
		ProductLimit:     5,
		NewsLimit:        10,
		ProductQualifier: " price Thailand",
		Currency:         "THB",
		ExtractionPrompt: defaultExtractionPrompt,
		CrawlLimit:       10,
	}
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// loadEnvFiles loads ENV_FILE when set, otherwise .env.local then .env.
// Variables already in the environment win; missing files are fine.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func Load() (Config, error) {
	if err := loadEnvFiles(); err != nil {
		return Config{}, err
	}
	cfg := Config{
		AppEnv:   getenv("APP_ENV", "development"),
		HTTPAddr: getenv("HTTP_ADDR", ":8081"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		ProviderURL:            getenv("FIRECRAWL_API_URL", "https://api.firecrawl.dev"),
		ProviderAPIKey:         os.Getenv("FIRECRAWL_API_KEY"),
		ProviderMaxConcurrency: getenvInt("PROVIDER_MAX_CONCURRENCY", 2),
		ProviderTimeout:        getenvDuration("PROVIDER_TIMEOUT", 90*time.Second),
		CrawlPollInterval:      getenvDuration("CRAWL_POLL_INTERVAL", 2*time.Second),
		RunTimeout:             getenvDuration("RUN_TIMEOUT", 5*time.Minute),

		StoreBackend:       strings.ToLower(getenv("STORE_BACKEND", "supabase")),
		SupabaseURL:        os.Getenv("NEXT_PUBLIC_SUPABASE_URL"),
		SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),

		ScrapeCacheTTL:    getenvInt("SCRAPE_CACHE_TTL", 3600),
		TaskMaxRetries:    getenvInt("TASK_MAX_RETRIES", 3),
		WorkerConcurrency: getenvInt("WORKER_CONCURRENCY", 2),

		Profile: DefaultProfile(),
	}

	if path := os.Getenv("SEARCH_PROFILE_PATH"); path != "" {
		profile, err := LoadProfile(path)
		if err != nil {
			return Config{}, err
		}
		cfg.Profile = profile
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadProfile reads a YAML search profile on top of the defaults, so a file
// only needs the keys it changes.
func LoadProfile(path string) (SearchProfile, error) {
	profile := DefaultProfile()
	b, err := os.ReadFile(path)
	if err != nil {
		return profile, fmt.Errorf("read search profile %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &profile); err != nil {
		return profile, fmt.Errorf("parse search profile %s: %w", path, err)
	}
	return profile, nil
}

func (c Config) Validate() error {
	if c.ProviderAPIKey == "" && c.AppEnv == "production" {
		return fmt.Errorf("FIRECRAWL_API_KEY is required in production")
	}
	if c.ProviderMaxConcurrency < 1 {
		return fmt.Errorf("PROVIDER_MAX_CONCURRENCY must be at least 1, got %d", c.ProviderMaxConcurrency)
	}
	switch c.StoreBackend {
	case "supabase":
		if c.SupabaseURL == "" || c.SupabaseServiceKey == "" {
			if c.AppEnv == "production" {
				return fmt.Errorf("supabase store requires NEXT_PUBLIC_SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY")
			}
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("postgres store requires DATABASE_URL")
		}
	case "none":
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.Profile.JobLimit < 1 || c.Profile.ProductLimit < 1 || c.Profile.NewsLimit < 1 {
		return fmt.Errorf("search profile limits must be positive")
	}
	if c.Profile.Currency == "" {
		return fmt.Errorf("search profile currency is required")
	}
	return nil
}

// CacheEnabled reports whether Redis-backed features (scrape cache, async
// crawl jobs) are available.
func (c Config) CacheEnabled() bool { return c.RedisAddr != "" }

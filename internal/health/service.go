package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/DingDong039/sentinel-search/internal/logger"
)

// Checker is a dependency that can report its own health. Redis and every
// store backend implement it.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	log        *logger.Logger
	components map[string]Checker
	startTime  time.Time
	ready      atomic.Bool
	timeout    time.Duration
}

// NewHealthHandler creates a handler checking the given components by name.
// Nil checkers are skipped, so optional dependencies can be passed as is.
func NewHealthHandler(components map[string]Checker) *HealthHandler {
	live := make(map[string]Checker, len(components))
	for name, c := range components {
		if c != nil {
			live[name] = c
		}
	}
	return &HealthHandler{
		log:        logger.New("HealthCheck"),
		components: live,
		startTime:  time.Now(),
		timeout:    8 * time.Second,
	}
}

// SetReady marks the application as ready to receive traffic
func (h *HealthHandler) SetReady() {
	h.ready.Store(true)
	h.log.LogSuccessf("Application marked as ready for traffic after %v", time.Since(h.startTime))
}

// ComponentStatus holds the status of a dependent component
type ComponentStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// OverallHealth represents the overall health status including components
type OverallHealth struct {
	OverallStatus string                     `json:"overall_status"`
	Timestamp     string                     `json:"timestamp"`
	Ready         bool                       `json:"ready"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Components    map[string]ComponentStatus `json:"components"`
}

// HandleHealth responds with the system's health status, including dependencies
func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		allOk    = true
		statuses = make(map[string]ComponentStatus, len(h.components))
	)
	for name, checker := range h.components {
		wg.Add(1)
		go func(name string, checker Checker) {
			defer wg.Done()
			componentStart := time.Now()
			status := ComponentStatus{Status: "ok"}
			if err := checker.HealthCheck(ctx); err != nil {
				status = ComponentStatus{Status: "error", Error: err.Error()}
				h.log.LogErrorf("Health check failed for %s after %v: %v", name, time.Since(componentStart), err)
			} else {
				h.log.LogDebugf("Health check passed for %s in %v", name, time.Since(componentStart))
			}
			mu.Lock()
			defer mu.Unlock()
			statuses[name] = status
			allOk = allOk && status.Status == "ok"
		}(name, checker)
	}
	wg.Wait()

	ready := h.ready.Load()
	response := OverallHealth{
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		Ready:         ready,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Components:    statuses,
	}

	switch {
	case allOk && ready:
		response.OverallStatus = "ok"
		h.log.LogDebugf("Health check completed successfully in %v", time.Since(start))
		return c.Status(http.StatusOK).JSON(response)
	case !ready:
		response.OverallStatus = "starting"
		return c.Status(http.StatusServiceUnavailable).JSON(response)
	default:
		response.OverallStatus = "error"
		h.log.LogWarnf("Health check failed after %v. Statuses: %+v", time.Since(start), statuses)
		return c.Status(http.StatusServiceUnavailable).JSON(response)
	}
}

func HealthLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"success": false, "error": "Rate limit exceeded"})
		},
	})
}

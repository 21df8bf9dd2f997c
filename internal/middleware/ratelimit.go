package middleware

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	// Global limits (per IP)
	GlobalAPIMax        int           // Max requests per minute for all API endpoints
	GlobalAPIExpiration time.Duration // Expiration window

	// Research session creation limits (per IP). Each session fans out to
	// several external APIs, so this is kept much tighter than reads.
	ResearchCreateMax        int
	ResearchCreateExpiration time.Duration

	// Read endpoint limits (per IP) - polling and listing
	ResearchReadMax        int
	ResearchReadExpiration time.Duration
}

// DefaultRateLimitConfig returns production-safe defaults
// These are designed to prevent abuse while avoiding false positives
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		// Global: 200/min = ~3.3 req/sec - very generous for normal use
		GlobalAPIMax:        200,
		GlobalAPIExpiration: 1 * time.Minute,

		// Session creation: 10/min, each one costs external API quota
		ResearchCreateMax:        10,
		ResearchCreateExpiration: 1 * time.Minute,

		// Polling: clients poll every few seconds, 120/min = 2 req/sec
		ResearchReadMax:        120,
		ResearchReadExpiration: 1 * time.Minute,
	}
}

// LoadRateLimitConfig loads config from environment variables with defaults
func LoadRateLimitConfig() *RateLimitConfig {
	config := DefaultRateLimitConfig()

	// Allow environment overrides for tuning
	if v := os.Getenv("RATE_LIMIT_GLOBAL_API"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.GlobalAPIMax = n
		}
	}

	if v := os.Getenv("RATE_LIMIT_RESEARCH_CREATE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.ResearchCreateMax = n
		}
	}

	if v := os.Getenv("RATE_LIMIT_RESEARCH_READ"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.ResearchReadMax = n
		}
	}

	// Development mode: more lenient limits
	if os.Getenv("ENVIRONMENT") == "development" {
		config.GlobalAPIMax = 1000
		config.ResearchCreateMax = 100
		config.ResearchReadMax = 600
		log.Println("⚠️  [RATE-LIMIT] Development mode: using relaxed rate limits")
	}

	return config
}

// GlobalAPIRateLimiter creates a rate limiter for all API requests
// This is the first line of defense against DDoS
func GlobalAPIRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.GlobalAPIMax,
		Expiration: config.GlobalAPIExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "global:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("🚫 [RATE-LIMIT] Global limit reached for IP: %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error": fiber.Map{
					"message":     "Too many requests. Please slow down.",
					"retry_after": int(config.GlobalAPIExpiration.Seconds()),
				},
			})
		},
		SkipFailedRequests:     false,
		SkipSuccessfulRequests: false,
	})
}

// ResearchCreateRateLimiter throttles new research sessions per IP
func ResearchCreateRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.ResearchCreateMax,
		Expiration: config.ResearchCreateExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "research-create:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("⚠️  [RATE-LIMIT] Research creation limit reached for IP: %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error": fiber.Map{
					"message":     "Too many research sessions started. Please wait before starting another.",
					"retry_after": int(config.ResearchCreateExpiration.Seconds()),
				},
			})
		},
	})
}

// ResearchReadRateLimiter for session polling and listing
func ResearchReadRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.ResearchReadMax,
		Expiration: config.ResearchReadExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "research-read:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("⚠️  [RATE-LIMIT] Read limit reached for IP: %s on %s", c.IP(), c.Path())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error": fiber.Map{
					"message":     "Too many requests to this endpoint.",
					"retry_after": int(config.ResearchReadExpiration.Seconds()),
				},
			})
		},
	})
}

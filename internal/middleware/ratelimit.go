package middleware

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimitConfig holds the API rate limit settings
type RateLimitConfig struct {
	GlobalAPIMax        int
	GlobalAPIExpiration time.Duration
	WriteMax            int
	WriteExpiration     time.Duration
}

// DefaultRateLimitConfig returns the rate limit configuration for the given
// environment. Development gets relaxed limits.
func DefaultRateLimitConfig(environment string, globalMax int) *RateLimitConfig {
	config := &RateLimitConfig{
		GlobalAPIMax:        globalMax,
		GlobalAPIExpiration: 1 * time.Minute,
		WriteMax:            60,
		WriteExpiration:     1 * time.Minute,
	}
	if config.GlobalAPIMax <= 0 {
		config.GlobalAPIMax = 300
	}

	if environment == "development" {
		config.GlobalAPIMax = 1000
		config.WriteMax = 500
		log.Println("⚠️  [RATE-LIMIT] Development mode: using relaxed rate limits")
	}

	return config
}

// GlobalAPIRateLimiter creates a per-IP rate limiter for all API requests
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
				"error":       "Too many requests. Please slow down.",
				"retry_after": int(config.GlobalAPIExpiration.Seconds()),
			})
		},
	})
}

// WriteRateLimiter creates a tighter per-IP limiter for mutating endpoints
func WriteRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.WriteMax,
		Expiration: config.WriteExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "write:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("⚠️  [RATE-LIMIT] Write limit reached for IP: %s on %s", c.IP(), c.Path())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too many write requests to this endpoint.",
				"retry_after": int(config.WriteExpiration.Seconds()),
			})
		},
	})
}

package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/azcoigreach/news-aggregator/internal/database"
	"github.com/azcoigreach/news-aggregator/internal/services"
)

const serviceVersion = "1.0.0"

// HealthHandler exposes liveness and dependency health checks
type HealthHandler struct {
	db            *database.DB
	redisService  *services.RedisService
	configService *services.ConfigurationService
}

// NewHealthHandler creates a new health handler. redisService may be nil.
func NewHealthHandler(db *database.DB, redisService *services.RedisService,
	configService *services.ConfigurationService) *HealthHandler {
	return &HealthHandler{
		db:            db,
		redisService:  redisService,
		configService: configService,
	}
}

// Basic is the liveness check
func (h *HealthHandler) Basic(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "news-aggregator",
		"version": serviceVersion,
	})
}

// Database verifies the database connection
func (h *HealthHandler) Database(c *fiber.Ctx) error {
	var one int
	if err := h.db.QueryRowContext(c.Context(), "SELECT 1").Scan(&one); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  "Database connection failed",
		})
	}

	return c.JSON(fiber.Map{
		"status":     "healthy",
		"database":   h.db.Driver(),
		"connection": "established",
	})
}

// Redis verifies the Redis connection
func (h *HealthHandler) Redis(c *fiber.Ctx) error {
	if h.redisService == nil {
		return c.JSON(fiber.Map{
			"status": "not_configured",
			"redis":  "disabled",
		})
	}

	if err := h.redisService.Ping(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  "Redis connection failed",
		})
	}

	return c.JSON(fiber.Map{
		"status": "healthy",
		"redis":  "connected",
	})
}

// AIModels reports AI provider configuration state from the config store
func (h *HealthHandler) AIModels(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"models": h.aiModelChecks(c),
	})
}

// Full runs every dependency check and aggregates the result
func (h *HealthHandler) Full(c *fiber.Ctx) error {
	checks := fiber.Map{
		"application": fiber.Map{"status": "healthy"},
	}
	overall := "healthy"

	var one int
	if err := h.db.QueryRowContext(c.Context(), "SELECT 1").Scan(&one); err != nil {
		checks["database"] = fiber.Map{"status": "unhealthy"}
		overall = "degraded"
	} else {
		checks["database"] = fiber.Map{"status": "healthy", "database": h.db.Driver()}
	}

	if h.redisService == nil {
		checks["redis"] = fiber.Map{"status": "not_configured"}
	} else if err := h.redisService.Ping(c.Context()); err != nil {
		checks["redis"] = fiber.Map{"status": "unhealthy"}
		overall = "degraded"
	} else {
		checks["redis"] = fiber.Map{"status": "healthy"}
	}

	checks["ai_models"] = h.aiModelChecks(c)

	return c.JSON(fiber.Map{
		"status":    overall,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (h *HealthHandler) aiModelChecks(c *fiber.Ctx) fiber.Map {
	models := fiber.Map{}

	openaiKey, _ := h.configService.Get(c.Context(), "openai_api_key", "ai_models", "")
	if isNonEmptyString(openaiKey) {
		model, _ := h.configService.Get(c.Context(), "openai_model", "ai_models", "gpt-4")
		models["openai"] = fiber.Map{"status": "configured", "model": model}
	} else {
		models["openai"] = fiber.Map{"status": "not_configured"}
	}

	claudeKey, _ := h.configService.Get(c.Context(), "claude_api_key", "ai_models", "")
	if isNonEmptyString(claudeKey) {
		model, _ := h.configService.Get(c.Context(), "claude_model", "ai_models", "claude-3-sonnet-20240229")
		models["claude"] = fiber.Map{"status": "configured", "model": model}
	} else {
		models["claude"] = fiber.Map{"status": "not_configured"}
	}

	return models
}

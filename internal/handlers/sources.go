package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/azcoigreach/news-aggregator/internal/models"
	"github.com/azcoigreach/news-aggregator/internal/services"
)

// SourceHandler handles news source management requests
type SourceHandler struct {
	sourceService  *services.SourceService
	crawlerService *services.CrawlerService
}

// NewSourceHandler creates a new source handler
func NewSourceHandler(sourceService *services.SourceService, crawlerService *services.CrawlerService) *SourceHandler {
	return &SourceHandler{
		sourceService:  sourceService,
		crawlerService: crawlerService,
	}
}

// List returns sources with pagination
func (h *SourceHandler) List(c *fiber.Ctx) error {
	skip := c.QueryInt("skip", 0)
	limit := c.QueryInt("limit", 100)
	activeOnly := c.QueryBool("active_only", true)

	sources, err := h.sourceService.List(skip, limit, activeOnly)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch sources",
		})
	}
	if sources == nil {
		sources = []models.Source{}
	}

	return c.JSON(fiber.Map{
		"sources": sources,
		"count":   len(sources),
	})
}

// Get returns a single source by ID
func (h *SourceHandler) Get(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid source ID",
		})
	}

	source, err := h.sourceService.GetByID(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch source",
		})
	}
	if source == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Source not found",
		})
	}

	return c.JSON(source)
}

// Create creates a new source
func (h *SourceHandler) Create(c *fiber.Ctx) error {
	var config models.SourceConfig
	if err := c.BodyParser(&config); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if config.Name == "" || config.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Source name and url are required",
		})
	}

	source, err := h.sourceService.Create(config)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create source",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(source)
}

// Update updates an existing source
func (h *SourceHandler) Update(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid source ID",
		})
	}

	var config models.SourceConfig
	if err := c.BodyParser(&config); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	existing, err := h.sourceService.GetByID(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch source",
		})
	}
	if existing == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Source not found",
		})
	}

	if err := h.sourceService.Update(id, config); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update source",
		})
	}

	updated, err := h.sourceService.GetByID(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch updated source",
		})
	}
	return c.JSON(updated)
}

// Delete removes a source
func (h *SourceHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid source ID",
		})
	}

	deleted, err := h.sourceService.Delete(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete source",
		})
	}
	if !deleted {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Source not found",
		})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Source deleted",
	})
}

// Test probes a source URL for reachability
func (h *SourceHandler) Test(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid source ID",
		})
	}

	source, err := h.sourceService.GetByID(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch source",
		})
	}
	if source == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Source not found",
		})
	}

	statusCode, err := h.crawlerService.TestSource(c.Context(), source.URL)
	if err != nil {
		return c.JSON(fiber.Map{
			"source_id": source.ID,
			"url":       source.URL,
			"reachable": false,
			"error":     err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"source_id":   source.ID,
		"url":         source.URL,
		"reachable":   statusCode >= 200 && statusCode < 400,
		"status_code": statusCode,
	})
}

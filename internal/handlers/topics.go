package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/azcoigreach/news-aggregator/internal/models"
	"github.com/azcoigreach/news-aggregator/internal/services"
)

// TopicHandler handles topic management requests
type TopicHandler struct {
	topicService *services.TopicService
}

// NewTopicHandler creates a new topic handler
func NewTopicHandler(topicService *services.TopicService) *TopicHandler {
	return &TopicHandler{topicService: topicService}
}

// List returns topics with pagination
func (h *TopicHandler) List(c *fiber.Ctx) error {
	skip := c.QueryInt("skip", 0)
	limit := c.QueryInt("limit", 100)

	topics, err := h.topicService.List(skip, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch topics",
		})
	}
	if topics == nil {
		topics = []models.Topic{}
	}

	return c.JSON(fiber.Map{
		"topics": topics,
		"count":  len(topics),
	})
}

// Get returns a single topic by ID
func (h *TopicHandler) Get(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid topic ID",
		})
	}

	topic, err := h.topicService.GetByID(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch topic",
		})
	}
	if topic == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Topic not found",
		})
	}

	return c.JSON(topic)
}

// Create creates a new topic
func (h *TopicHandler) Create(c *fiber.Ctx) error {
	var config models.TopicConfig
	if err := c.BodyParser(&config); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if config.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Topic name is required",
		})
	}

	existing, err := h.topicService.GetByName(config.Name)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check existing topics",
		})
	}
	if existing != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Topic with this name already exists",
		})
	}

	topic, err := h.topicService.Create(config)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create topic",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(topic)
}

// Update updates an existing topic
func (h *TopicHandler) Update(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid topic ID",
		})
	}

	var config models.TopicConfig
	if err := c.BodyParser(&config); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	existing, err := h.topicService.GetByID(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch topic",
		})
	}
	if existing == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Topic not found",
		})
	}

	if err := h.topicService.Update(id, config); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update topic",
		})
	}

	updated, err := h.topicService.GetByID(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch updated topic",
		})
	}
	return c.JSON(updated)
}

// Delete removes a topic
func (h *TopicHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid topic ID",
		})
	}

	deleted, err := h.topicService.Delete(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete topic",
		})
	}
	if !deleted {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Topic not found",
		})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Topic deleted",
	})
}

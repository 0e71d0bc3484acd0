package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/azcoigreach/news-aggregator/internal/services"
)

// MonitoringHandler exposes aggregate system metrics.
// Prometheus scrape metrics live at /metrics; this is the JSON view.
type MonitoringHandler struct {
	articleService *services.ArticleService
	sourceService  *services.SourceService
	taskQueue      *services.TaskQueueService
	startedAt      time.Time
}

// NewMonitoringHandler creates a new monitoring handler
func NewMonitoringHandler(articleService *services.ArticleService,
	sourceService *services.SourceService,
	taskQueue *services.TaskQueueService) *MonitoringHandler {
	return &MonitoringHandler{
		articleService: articleService,
		sourceService:  sourceService,
		taskQueue:      taskQueue,
		startedAt:      time.Now().UTC(),
	}
}

// Metrics returns article, source and queue counters
func (h *MonitoringHandler) Metrics(c *fiber.Ctx) error {
	totalArticles, processedToday, pendingFactCheck, err := h.articleService.Counts()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to collect article metrics",
		})
	}

	totalSources, activeSources, erroredSources, err := h.sourceService.CountByStatus()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to collect source metrics",
		})
	}

	depth, err := h.taskQueue.QueueDepth(c.Context())
	if err != nil {
		depth = -1
	}

	return c.JSON(fiber.Map{
		"articles": fiber.Map{
			"total":              totalArticles,
			"processed_today":    processedToday,
			"pending_fact_check": pendingFactCheck,
		},
		"sources": fiber.Map{
			"total":       totalSources,
			"active":      activeSources,
			"error_count": erroredSources,
		},
		"queue": fiber.Map{
			"pending_tasks": depth,
		},
		"system": fiber.Map{
			"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
		},
	})
}

// QueueStatus reports the task queue backlog
func (h *MonitoringHandler) QueueStatus(c *fiber.Ctx) error {
	depth, err := h.taskQueue.QueueDepth(c.Context())
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Task queue unavailable",
		})
	}

	return c.JSON(fiber.Map{
		"queued_tasks": depth,
	})
}

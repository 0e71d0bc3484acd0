package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/azcoigreach/news-aggregator/internal/models"
	"github.com/azcoigreach/news-aggregator/internal/services"
)

// CrawlingHandler controls the crawler and exposes crawl history
type CrawlingHandler struct {
	crawlerService *services.CrawlerService
	sourceService  *services.SourceService
	taskQueue      *services.TaskQueueService
}

// NewCrawlingHandler creates a new crawling handler
func NewCrawlingHandler(crawlerService *services.CrawlerService,
	sourceService *services.SourceService,
	taskQueue *services.TaskQueueService) *CrawlingHandler {
	return &CrawlingHandler{
		crawlerService: crawlerService,
		sourceService:  sourceService,
		taskQueue:      taskQueue,
	}
}

// StartRequest optionally narrows a crawl start to specific sources
type StartRequest struct {
	SourceIDs []int `json:"source_ids,omitempty"`
}

// Start enables the crawler and enqueues crawl tasks. With source_ids the
// listed sources are crawled immediately; otherwise every active source is.
func (h *CrawlingHandler) Start(c *fiber.Ctx) error {
	var req StartRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}

	h.crawlerService.Start()

	var sources []models.Source
	if len(req.SourceIDs) > 0 {
		for _, id := range req.SourceIDs {
			source, err := h.sourceService.GetByID(id)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Failed to fetch sources",
				})
			}
			if source == nil {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Source " + strconv.Itoa(id) + " not found",
				})
			}
			sources = append(sources, *source)
		}
	} else {
		all, err := h.sourceService.List(0, 1000, true)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to fetch sources",
			})
		}
		sources = all
	}

	taskIDs := make([]string, 0, len(sources))
	for _, source := range sources {
		taskID, err := h.taskQueue.Enqueue(c.Context(), models.Task{
			Type:     models.TaskCrawlSource,
			SourceID: source.ID,
		})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to enqueue crawl tasks",
			})
		}
		taskIDs = append(taskIDs, taskID)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":   "started",
		"task_ids": taskIDs,
		"count":    len(taskIDs),
	})
}

// Stop disables crawl dispatch
func (h *CrawlingHandler) Stop(c *fiber.Ctx) error {
	h.crawlerService.Stop()
	return c.JSON(fiber.Map{
		"status":  "stopped",
		"message": "Crawling stopped; in-flight crawls will finish",
	})
}

// Status reports crawler state, queue depth and source health
func (h *CrawlingHandler) Status(c *fiber.Ctx) error {
	depth, err := h.taskQueue.QueueDepth(c.Context())
	if err != nil {
		depth = -1
	}

	total, active, errored, err := h.sourceService.CountByStatus()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch source counts",
		})
	}

	status := "stopped"
	if h.crawlerService.IsRunning() {
		status = "running"
	}

	return c.JSON(fiber.Map{
		"status":       status,
		"queued_tasks": depth,
		"sources": fiber.Map{
			"total":   total,
			"active":  active,
			"errored": errored,
		},
	})
}

// Logs returns recent crawl logs
func (h *CrawlingHandler) Logs(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)

	var sourceID *int
	if raw := c.Query("source_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid source_id",
			})
		}
		sourceID = &id
	}

	logs, err := h.crawlerService.ListCrawlLogs(sourceID, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch crawl logs",
		})
	}
	if logs == nil {
		logs = []models.CrawlLog{}
	}

	return c.JSON(fiber.Map{
		"logs":  logs,
		"count": len(logs),
	})
}

package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/azcoigreach/news-aggregator/internal/models"
	"github.com/azcoigreach/news-aggregator/internal/services"
)

// ArticleHandler handles article requests and enrichment triggers
type ArticleHandler struct {
	articleService    *services.ArticleService
	enrichmentService *services.EnrichmentService
	taskQueue         *services.TaskQueueService
}

// NewArticleHandler creates a new article handler
func NewArticleHandler(articleService *services.ArticleService,
	enrichmentService *services.EnrichmentService,
	taskQueue *services.TaskQueueService) *ArticleHandler {
	return &ArticleHandler{
		articleService:    articleService,
		enrichmentService: enrichmentService,
		taskQueue:         taskQueue,
	}
}

// List returns articles with optional topic filtering
func (h *ArticleHandler) List(c *fiber.Ctx) error {
	skip := c.QueryInt("skip", 0)
	limit := c.QueryInt("limit", 100)

	var topicID *int
	if raw := c.Query("topic_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid topic_id",
			})
		}
		topicID = &id
	}

	articles, err := h.articleService.List(skip, limit, topicID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch articles",
		})
	}
	if articles == nil {
		articles = []models.Article{}
	}

	return c.JSON(fiber.Map{
		"articles": articles,
		"count":    len(articles),
	})
}

// Get returns a single article by ID
func (h *ArticleHandler) Get(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid article ID",
		})
	}

	article, err := h.articleService.GetByID(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch article",
		})
	}
	if article == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Article not found",
		})
	}

	return c.JSON(article)
}

// Delete removes an article
func (h *ArticleHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid article ID",
		})
	}

	deleted, err := h.articleService.Delete(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete article",
		})
	}
	if !deleted {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Article not found",
		})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Article deleted",
	})
}

// TriggerFactCheck enqueues a fact-check task for an article
func (h *ArticleHandler) TriggerFactCheck(c *fiber.Ctx) error {
	return h.triggerTask(c, models.TaskFactCheckArticle)
}

// TriggerSummarize enqueues a summarization task for an article
func (h *ArticleHandler) TriggerSummarize(c *fiber.Ctx) error {
	return h.triggerTask(c, models.TaskSummarizeArticle)
}

// TriggerCorrelate enqueues a correlation task for an article
func (h *ArticleHandler) TriggerCorrelate(c *fiber.Ctx) error {
	return h.triggerTask(c, models.TaskCorrelateArticle)
}

func (h *ArticleHandler) triggerTask(c *fiber.Ctx, taskType models.TaskType) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid article ID",
		})
	}

	article, err := h.articleService.GetByID(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch article",
		})
	}
	if article == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Article not found",
		})
	}

	taskID, err := h.taskQueue.Enqueue(c.Context(), models.Task{
		Type:      taskType,
		ArticleID: id,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to enqueue task",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":     "queued",
		"task_id":    taskID,
		"task_type":  string(taskType),
		"article_id": id,
	})
}

// FactCheckResults returns fact-check records for an article
func (h *ArticleHandler) FactCheckResults(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid article ID",
		})
	}

	checks, err := h.enrichmentService.ListFactChecks(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch fact-check results",
		})
	}
	if checks == nil {
		checks = []models.FactCheck{}
	}

	return c.JSON(fiber.Map{
		"article_id": id,
		"results":    checks,
		"count":      len(checks),
	})
}

// Correlations returns stored correlations for an article
func (h *ArticleHandler) Correlations(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid article ID",
		})
	}

	correlations, err := h.enrichmentService.ListCorrelations(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch correlations",
		})
	}
	if correlations == nil {
		correlations = []models.Correlation{}
	}

	return c.JSON(fiber.Map{
		"article_id":   id,
		"correlations": correlations,
		"count":        len(correlations),
	})
}

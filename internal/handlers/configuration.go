package handlers

import (
	"bytes"
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/azcoigreach/news-aggregator/internal/models"
	"github.com/azcoigreach/news-aggregator/internal/services"
)

// ConfigurationHandler exposes the runtime configuration store.
// Bootstrap settings (database, Redis connections) are environment-only and
// never pass through here; the reserved categories guard the rest.
type ConfigurationHandler struct {
	configService *services.ConfigurationService
}

// NewConfigurationHandler creates a new configuration handler
func NewConfigurationHandler(configService *services.ConfigurationService) *ConfigurationHandler {
	return &ConfigurationHandler{configService: configService}
}

// ConfigurationRequest is the create/update request body
type ConfigurationRequest struct {
	Key         string      `json:"key"`
	Value       interface{} `json:"value"`
	Category    string      `json:"category"`
	Description string      `json:"description,omitempty"`
	IsSensitive bool        `json:"is_sensitive,omitempty"`
}

// decodeRequest parses the body preserving integer/float distinction.
// A plain Unmarshal would collapse every number to float64.
func decodeRequest(body []byte, req *ConfigurationRequest) error {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	return decoder.Decode(req)
}

// List returns all user-configurable settings grouped by category
func (h *ConfigurationHandler) List(c *fiber.Ctx) error {
	includeSensitive := c.QueryBool("include_sensitive", false)

	categories, err := h.configService.ListCategories(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve configurations",
		})
	}

	result := make(map[string][]map[string]interface{})
	for _, category := range categories {
		if models.IsReservedCategory(category) {
			continue
		}
		configs, err := h.configService.GetCategoryConfigurations(c.Context(), category)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to retrieve configurations",
			})
		}
		entries := make([]map[string]interface{}, len(configs))
		for i, cfg := range configs {
			entries[i] = cfg.ToResponse(includeSensitive)
		}
		result[category] = entries
	}

	return c.JSON(fiber.Map{
		"status":         "success",
		"configurations": result,
	})
}

// ListCategories returns all non-reserved category names
func (h *ConfigurationHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.configService.ListCategories(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve categories",
		})
	}

	userCategories := make([]string, 0, len(categories))
	for _, category := range categories {
		if !models.IsReservedCategory(category) {
			userCategories = append(userCategories, category)
		}
	}

	return c.JSON(fiber.Map{
		"categories": userCategories,
		"count":      len(userCategories),
	})
}

// GetCategory returns all settings within one category
func (h *ConfigurationHandler) GetCategory(c *fiber.Ctx) error {
	category := c.Params("category")
	if models.IsReservedCategory(category) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Access to system configurations is forbidden",
		})
	}

	includeSensitive := c.QueryBool("include_sensitive", false)

	configs, err := h.configService.GetCategoryConfigurations(c.Context(), category)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve category configurations",
		})
	}

	entries := make([]map[string]interface{}, len(configs))
	for i, cfg := range configs {
		entries[i] = cfg.ToResponse(includeSensitive)
	}

	return c.JSON(fiber.Map{
		"category":       category,
		"configurations": entries,
		"count":          len(entries),
	})
}

// Get returns a single setting by key, with optional category disambiguation
func (h *ConfigurationHandler) Get(c *fiber.Ctx) error {
	key := c.Params("key")
	category := c.Query("category")
	includeSensitive := c.QueryBool("include_sensitive", false)

	config, err := h.configService.GetConfiguration(c.Context(), key, category)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve configuration",
		})
	}
	if config == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Configuration '" + key + "' not found",
		})
	}

	return c.JSON(config.ToResponse(includeSensitive))
}

// Create creates or updates a setting
func (h *ConfigurationHandler) Create(c *fiber.Ctx) error {
	var req ConfigurationRequest
	if err := decodeRequest(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Key == "" || req.Category == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Both key and category are required",
		})
	}
	if models.IsReservedCategory(req.Category) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Cannot modify system or bootstrap configurations via API",
		})
	}

	err := h.configService.Set(c.Context(), req.Key, req.Value, req.Category, services.SetOptions{
		Description: req.Description,
		ChangedBy:   "api_user",
		IsSensitive: req.IsSensitive,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to set configuration",
		})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Configuration '" + req.Key + "' updated successfully",
	})
}

// Update updates an existing setting. The path key must match the body key.
func (h *ConfigurationHandler) Update(c *fiber.Ctx) error {
	key := c.Params("key")

	var req ConfigurationRequest
	if err := decodeRequest(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if models.IsReservedCategory(req.Category) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Cannot modify system or bootstrap configurations via API",
		})
	}
	if key != req.Key {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Key in URL must match key in request body",
		})
	}

	existing, err := h.configService.GetConfiguration(c.Context(), key, req.Category)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve configuration",
		})
	}
	if existing == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Configuration '" + key + "' not found",
		})
	}

	err = h.configService.Set(c.Context(), req.Key, req.Value, req.Category, services.SetOptions{
		Description: req.Description,
		ChangedBy:   "api_user",
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update configuration",
		})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Configuration '" + key + "' updated successfully",
	})
}

// Delete soft-deletes a setting
func (h *ConfigurationHandler) Delete(c *fiber.Ctx) error {
	key := c.Params("key")
	category := c.Query("category")

	existing, err := h.configService.GetConfiguration(c.Context(), key, category)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve configuration",
		})
	}
	if existing == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Configuration '" + key + "' not found",
		})
	}
	if models.IsReservedCategory(existing.Category) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Cannot modify system or bootstrap configurations via API",
		})
	}

	deleted, err := h.configService.Delete(c.Context(), key)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete configuration",
		})
	}
	if !deleted {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Configuration '" + key + "' not found",
		})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Configuration '" + key + "' deleted successfully",
	})
}

// Initialize seeds the default configuration catalog
func (h *ConfigurationHandler) Initialize(c *fiber.Ctx) error {
	if err := h.configService.InitializeDefaults(c.Context()); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to initialize configurations",
		})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Default configurations initialized successfully",
	})
}

// AIModelsStatus reports which AI providers have keys configured. Read-only
// projection over the store, no persisted state of its own.
func (h *ConfigurationHandler) AIModelsStatus(c *fiber.Ctx) error {
	openaiKey, err := h.configService.Get(c.Context(), "openai_api_key", "ai_models", "")
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get AI models status",
		})
	}
	claudeKey, err := h.configService.Get(c.Context(), "claude_api_key", "ai_models", "")
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get AI models status",
		})
	}

	openaiModel, _ := h.configService.Get(c.Context(), "openai_model", "ai_models", "gpt-4")
	claudeModel, _ := h.configService.Get(c.Context(), "claude_model", "ai_models", "claude-3-sonnet-20240229")

	openaiConfigured := isNonEmptyString(openaiKey)
	claudeConfigured := isNonEmptyString(claudeKey)

	status := "needs_configuration"
	if openaiConfigured || claudeConfigured {
		status = "ready"
	}

	return c.JSON(fiber.Map{
		"openai": fiber.Map{
			"configured": openaiConfigured,
			"model":      openaiModel,
		},
		"claude": fiber.Map{
			"configured": claudeConfigured,
			"model":      claudeModel,
		},
		"status": status,
	})
}

func isNonEmptyString(v interface{}) bool {
	s, ok := v.(string)
	return ok && s != ""
}

package services

import "github.com/azcoigreach/news-aggregator/internal/models"

// defaultConfiguration describes one entry in the seed catalog.
type defaultConfiguration struct {
	key         string
	category    string
	value       interface{}
	valueType   models.ValueType
	description string
	isSensitive bool
}

// defaultConfigurations is the catalog seeded by InitializeDefaults.
// Bootstrap settings (database, Redis, bind address) are intentionally
// absent; those live in the environment, not in this store.
var defaultConfigurations = []defaultConfiguration{
	// AI model configuration
	{
		key:         "openai_api_key",
		category:    "ai_models",
		value:       "",
		valueType:   models.ValueTypeString,
		description: "OpenAI API key for fact checking",
		isSensitive: true,
	},
	{
		key:         "openai_model",
		category:    "ai_models",
		value:       "gpt-4",
		valueType:   models.ValueTypeString,
		description: "OpenAI model to use",
	},
	{
		key:         "claude_api_key",
		category:    "ai_models",
		value:       "",
		valueType:   models.ValueTypeString,
		description: "Claude API key for fact checking",
		isSensitive: true,
	},
	{
		key:         "claude_model",
		category:    "ai_models",
		value:       "claude-3-sonnet-20240229",
		valueType:   models.ValueTypeString,
		description: "Claude model to use",
	},

	// Crawler configuration
	{
		key:         "crawler_user_agent",
		category:    "crawler",
		value:       "NewsAggregator/1.0",
		valueType:   models.ValueTypeString,
		description: "User agent for web crawling",
	},
	{
		key:         "crawler_delay",
		category:    "crawler",
		value:       1.0,
		valueType:   models.ValueTypeFloat,
		description: "Delay between requests in seconds",
	},
	{
		key:         "max_concurrent_requests",
		category:    "crawler",
		value:       16,
		valueType:   models.ValueTypeInteger,
		description: "Maximum concurrent crawling requests",
	},

	// Fact checker configuration
	{
		key:         "fact_check_confidence_threshold",
		category:    "fact_checker",
		value:       0.8,
		valueType:   models.ValueTypeFloat,
		description: "Minimum confidence threshold for fact checking",
	},
	{
		key:         "max_verification_attempts",
		category:    "fact_checker",
		value:       3,
		valueType:   models.ValueTypeInteger,
		description: "Maximum verification attempts per article",
	},

	// System configuration
	{
		key:         "system_initialized",
		category:    "system",
		value:       true,
		valueType:   models.ValueTypeBoolean,
		description: "Whether system has been initialized",
	},
}

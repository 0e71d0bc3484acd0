package models

import "time"

// Topic groups articles under a named subject with its own crawl and
// processing configuration.
type Topic struct {
	ID                  int        `json:"id" db:"id"`
	Name                string     `json:"name" db:"name"`
	Description         string     `json:"description,omitempty" db:"description"`
	Keywords            []string   `json:"keywords" db:"keywords"`
	Active              bool       `json:"active" db:"active"`
	Priority            int        `json:"priority" db:"priority"` // 1-10 priority scale
	CrawlFrequency      int        `json:"crawl_frequency" db:"crawl_frequency"` // seconds
	MaxArticlesPerCrawl int        `json:"max_articles_per_crawl" db:"max_articles_per_crawl"`
	EnableFactChecking  bool       `json:"enable_fact_checking" db:"enable_fact_checking"`
	EnableSummarization bool       `json:"enable_summarization" db:"enable_summarization"`
	EnableCorrelation   bool       `json:"enable_correlation" db:"enable_correlation"`
	LastCrawledAt       *time.Time `json:"last_crawled_at,omitempty" db:"last_crawled_at"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// TopicConfig is the request payload for creating or updating a topic.
type TopicConfig struct {
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	Keywords            []string `json:"keywords"`
	Active              *bool    `json:"active,omitempty"`
	Priority            int      `json:"priority"`
	CrawlFrequency      int      `json:"crawl_frequency"`
	MaxArticlesPerCrawl int      `json:"max_articles_per_crawl"`
	EnableFactChecking  *bool    `json:"enable_fact_checking,omitempty"`
	EnableSummarization *bool    `json:"enable_summarization,omitempty"`
	EnableCorrelation   *bool    `json:"enable_correlation,omitempty"`
}

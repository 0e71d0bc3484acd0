package models

import "time"

// Source is a news outlet or feed registered for crawling.
type Source struct {
	ID                   int        `json:"id" db:"id"`
	Name                 string     `json:"name" db:"name"`
	URL                  string     `json:"url" db:"url"`
	RSSURL               string     `json:"rss_url,omitempty" db:"rss_url"`
	Description          string     `json:"description,omitempty" db:"description"`
	SourceType           string     `json:"source_type" db:"source_type"` // website, rss, api
	Active               bool       `json:"active" db:"active"`
	Priority             int        `json:"priority" db:"priority"`
	CrawlFrequency       int        `json:"crawl_frequency" db:"crawl_frequency"` // seconds
	CrawlDelay           float64    `json:"crawl_delay" db:"crawl_delay"`         // seconds
	MaxArticlesPerCrawl  int        `json:"max_articles_per_crawl" db:"max_articles_per_crawl"`
	RespectRobotsTxt     bool       `json:"respect_robots_txt" db:"respect_robots_txt"`
	UserAgent            string     `json:"user_agent,omitempty" db:"user_agent"`
	Language             string     `json:"language" db:"language"`
	Country              string     `json:"country,omitempty" db:"country"`
	Category             string     `json:"category,omitempty" db:"category"`
	LastCrawledAt        *time.Time `json:"last_crawled_at,omitempty" db:"last_crawled_at"`
	LastSuccessAt        *time.Time `json:"last_success_at,omitempty" db:"last_success_at"`
	LastErrorAt          *time.Time `json:"last_error_at,omitempty" db:"last_error_at"`
	LastErrorMessage     string     `json:"last_error_message,omitempty" db:"last_error_message"`
	ConsecutiveErrors    int        `json:"consecutive_errors" db:"consecutive_errors"`
	TotalArticlesCrawled int        `json:"total_articles_crawled" db:"total_articles_crawled"`
	ArticlesCrawledToday int        `json:"articles_crawled_today" db:"articles_crawled_today"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
}

// SourceConfig is the request payload for creating or updating a source.
type SourceConfig struct {
	Name                string  `json:"name"`
	URL                 string  `json:"url"`
	RSSURL              string  `json:"rss_url"`
	Description         string  `json:"description"`
	SourceType          string  `json:"source_type"`
	Active              *bool   `json:"active,omitempty"`
	Priority            int     `json:"priority"`
	CrawlFrequency      int     `json:"crawl_frequency"`
	CrawlDelay          float64 `json:"crawl_delay"`
	MaxArticlesPerCrawl int     `json:"max_articles_per_crawl"`
	RespectRobotsTxt    *bool   `json:"respect_robots_txt,omitempty"`
	UserAgent           string  `json:"user_agent"`
	Language            string  `json:"language"`
	Country             string  `json:"country"`
	Category            string  `json:"category"`
}

package models

import "time"

// TaskType identifies a background task kind on the queue.
type TaskType string

const (
	TaskCrawlSource      TaskType = "crawl_source"
	TaskFactCheckArticle TaskType = "fact_check_article"
	TaskSummarizeArticle TaskType = "summarize_article"
	TaskCorrelateArticle TaskType = "correlate_article"
)

// Task is a unit of background work dispatched through the Redis queue.
type Task struct {
	ID         string    `json:"id"`
	Type       TaskType  `json:"type"`
	SourceID   int       `json:"source_id,omitempty"`
	ArticleID  int       `json:"article_id,omitempty"`
	TopicID    int       `json:"topic_id,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

package models

import "time"

// Article is a crawled news article and its processing state.
type Article struct {
	ID            int        `json:"id" db:"id"`
	Title         string     `json:"title" db:"title"`
	Content       string     `json:"content" db:"content"`
	URL           string     `json:"url" db:"url"`
	SourceURL     string     `json:"source_url" db:"source_url"`
	Author        string     `json:"author,omitempty" db:"author"`
	PublishedAt   *time.Time `json:"published_at,omitempty" db:"published_at"`
	Summary       string     `json:"summary,omitempty" db:"summary"`
	Keywords      []string   `json:"keywords,omitempty" db:"keywords"`
	Language      string     `json:"language" db:"language"`
	WordCount     int        `json:"word_count" db:"word_count"`
	ReadingTime   int        `json:"reading_time" db:"reading_time"` // minutes
	IsProcessed   bool       `json:"is_processed" db:"is_processed"`
	IsFactChecked bool       `json:"is_fact_checked" db:"is_fact_checked"`
	IsSummarized  bool       `json:"is_summarized" db:"is_summarized"`
	IsCorrelated  bool       `json:"is_correlated" db:"is_correlated"`
	TopicID       *int       `json:"topic_id,omitempty" db:"topic_id"`
	SourceID      *int       `json:"source_id,omitempty" db:"source_id"`
	CrawledAt     time.Time  `json:"crawled_at" db:"crawled_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// FactCheck records the outcome of a fact-checking pass over an article.
type FactCheck struct {
	ID         int       `json:"id" db:"id"`
	ArticleID  int       `json:"article_id" db:"article_id"`
	Status     string    `json:"status" db:"status"` // pending, completed, failed
	Verdict    string    `json:"verdict,omitempty" db:"verdict"`
	Confidence float64   `json:"confidence" db:"confidence"`
	Model      string    `json:"model,omitempty" db:"model"`
	Notes      string    `json:"notes,omitempty" db:"notes"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Summary is a generated condensation of an article's content.
type Summary struct {
	ID        int       `json:"id" db:"id"`
	ArticleID int       `json:"article_id" db:"article_id"`
	Content   string    `json:"content" db:"content"`
	Method    string    `json:"method" db:"method"` // lead_sentences, ai
	WordCount int       `json:"word_count" db:"word_count"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Correlation links two articles that cover related stories.
type Correlation struct {
	ID               int       `json:"id" db:"id"`
	ArticleID        int       `json:"article_id" db:"article_id"`
	RelatedArticleID int       `json:"related_article_id" db:"related_article_id"`
	Score            float64   `json:"score" db:"score"`
	SharedKeywords   []string  `json:"shared_keywords,omitempty" db:"shared_keywords"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// CrawlLog records one crawl attempt against a source.
type CrawlLog struct {
	ID             int        `json:"id" db:"id"`
	SourceID       int        `json:"source_id" db:"source_id"`
	Status         string     `json:"status" db:"status"` // running, completed, failed
	ArticlesFound  int        `json:"articles_found" db:"articles_found"`
	ArticlesStored int        `json:"articles_stored" db:"articles_stored"`
	Error          string     `json:"error,omitempty" db:"error"`
	StartedAt      time.Time  `json:"started_at" db:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}

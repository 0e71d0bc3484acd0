package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/azcoigreach/news-aggregator/internal/database"
	"github.com/azcoigreach/news-aggregator/internal/models"
)

// ArticleService handles article storage and processing state
type ArticleService struct {
	db *database.DB
}

// NewArticleService creates a new article service
func NewArticleService(db *database.DB) *ArticleService {
	return &ArticleService{db: db}
}

const articleColumns = `id, title, content, url, source_url, author, published_at, summary,
	keywords, language, word_count, reading_time, is_processed, is_fact_checked,
	is_summarized, is_correlated, topic_id, source_id, crawled_at, created_at, updated_at`

// List returns articles with optional topic filtering and pagination
func (s *ArticleService) List(skip, limit int, topicID *int) ([]models.Article, error) {
	if limit <= 0 {
		limit = 100
	}
	query := "SELECT " + articleColumns + " FROM articles"
	args := []interface{}{}
	if topicID != nil {
		query += " WHERE topic_id = ?"
		args = append(args, *topicID)
	}
	query += " ORDER BY crawled_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, skip)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var articles []models.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *article)
	}
	return articles, rows.Err()
}

// GetByID returns an article by ID, or nil if not found
func (s *ArticleService) GetByID(id int) (*models.Article, error) {
	row := s.db.QueryRow("SELECT "+articleColumns+" FROM articles WHERE id = ?", id)

	article, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query article: %w", err)
	}
	return article, nil
}

// GetByURL returns an article by its canonical URL, or nil if not found.
// Used by the crawler to skip already-stored pages.
func (s *ArticleService) GetByURL(url string) (*models.Article, error) {
	row := s.db.QueryRow("SELECT "+articleColumns+" FROM articles WHERE url = ?", url)

	article, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query article: %w", err)
	}
	return article, nil
}

// Create stores a new article and returns it with its assigned ID
func (s *ArticleService) Create(a *models.Article) (*models.Article, error) {
	keywords, err := json.Marshal(a.Keywords)
	if err != nil {
		return nil, fmt.Errorf("failed to encode keywords: %w", err)
	}
	if a.Language == "" {
		a.Language = "en"
	}
	if a.WordCount == 0 {
		a.WordCount = len(strings.Fields(a.Content))
	}
	if a.ReadingTime == 0 {
		// ~200 words per minute, rounded up
		a.ReadingTime = (a.WordCount + 199) / 200
	}

	now := time.Now().UTC()
	if a.CrawledAt.IsZero() {
		a.CrawledAt = now
	}

	result, err := s.db.Exec(`
		INSERT INTO articles
			(title, content, url, source_url, author, published_at, summary,
			 keywords, language, word_count, reading_time, is_processed,
			 is_fact_checked, is_summarized, is_correlated, topic_id, source_id,
			 crawled_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Title, a.Content, a.URL, a.SourceURL, a.Author, a.PublishedAt,
		a.Summary, string(keywords), a.Language, a.WordCount, a.ReadingTime,
		a.IsProcessed, a.IsFactChecked, a.IsSummarized, a.IsCorrelated,
		a.TopicID, a.SourceID, a.CrawledAt, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create article: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get inserted ID: %w", err)
	}
	return s.GetByID(int(id))
}

// Delete removes an article. Returns false if no article matched.
func (s *ArticleService) Delete(id int) (bool, error) {
	result, err := s.db.Exec("DELETE FROM articles WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete article: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// SetSummary stores a generated summary and marks the article summarized
func (s *ArticleService) SetSummary(id int, summary string) error {
	_, err := s.db.Exec(
		"UPDATE articles SET summary = ?, is_summarized = 1, updated_at = ? WHERE id = ?",
		summary, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set summary: %w", err)
	}
	return nil
}

// SetKeywords stores extracted keywords for an article
func (s *ArticleService) SetKeywords(id int, keywords []string) error {
	encoded, err := json.Marshal(keywords)
	if err != nil {
		return fmt.Errorf("failed to encode keywords: %w", err)
	}
	_, err = s.db.Exec(
		"UPDATE articles SET keywords = ?, updated_at = ? WHERE id = ?",
		string(encoded), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set keywords: %w", err)
	}
	return nil
}

// MarkFactChecked flags an article as fact-checked
func (s *ArticleService) MarkFactChecked(id int) error {
	return s.setFlag(id, "is_fact_checked")
}

// MarkCorrelated flags an article as correlated
func (s *ArticleService) MarkCorrelated(id int) error {
	return s.setFlag(id, "is_correlated")
}

// MarkProcessed flags an article as fully processed
func (s *ArticleService) MarkProcessed(id int) error {
	return s.setFlag(id, "is_processed")
}

func (s *ArticleService) setFlag(id int, column string) error {
	_, err := s.db.Exec(
		"UPDATE articles SET "+column+" = 1, updated_at = ? WHERE id = ?",
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", column, err)
	}
	return nil
}

// ListCorrelationCandidates returns articles other than the given one that
// already have extracted keywords, newest first, bounded by limit.
func (s *ArticleService) ListCorrelationCandidates(excludeID, limit int) ([]models.Article, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.Query(`
		SELECT `+articleColumns+`
		FROM articles
		WHERE id != ? AND keywords IS NOT NULL AND keywords != '[]' AND keywords != 'null'
		ORDER BY crawled_at DESC
		LIMIT ?`, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query correlation candidates: %w", err)
	}
	defer rows.Close()

	var articles []models.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *article)
	}
	return articles, rows.Err()
}

// Counts returns totals for the monitoring endpoint
func (s *ArticleService) Counts() (total, processedToday, pendingFactCheck int, err error) {
	startOfDay := time.Now().UTC().Truncate(24 * time.Hour)
	err = s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN is_processed = 1 AND updated_at >= ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN is_fact_checked = 0 THEN 1 ELSE 0 END), 0)
		FROM articles`, startOfDay).Scan(&total, &processedToday, &pendingFactCheck)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return total, processedToday, pendingFactCheck, nil
}

func scanArticle(row rowScanner) (*models.Article, error) {
	var a models.Article
	var author, summary, keywords sql.NullString
	var publishedAt sql.NullTime
	var topicID, sourceID sql.NullInt64

	err := row.Scan(
		&a.ID, &a.Title, &a.Content, &a.URL, &a.SourceURL, &author,
		&publishedAt, &summary, &keywords, &a.Language, &a.WordCount,
		&a.ReadingTime, &a.IsProcessed, &a.IsFactChecked, &a.IsSummarized,
		&a.IsCorrelated, &topicID, &sourceID, &a.CrawledAt, &a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Author = author.String
	a.Summary = summary.String
	if publishedAt.Valid {
		a.PublishedAt = &publishedAt.Time
	}
	if topicID.Valid {
		id := int(topicID.Int64)
		a.TopicID = &id
	}
	if sourceID.Valid {
		id := int(sourceID.Int64)
		a.SourceID = &id
	}
	if keywords.Valid && keywords.String != "" {
		if err := json.Unmarshal([]byte(keywords.String), &a.Keywords); err != nil {
			return nil, fmt.Errorf("failed to decode keywords: %w", err)
		}
	}
	return &a, nil
}

package services

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/azcoigreach/news-aggregator/internal/database"
	"github.com/azcoigreach/news-aggregator/internal/models"
)

// SourceService handles news source operations
type SourceService struct {
	db *database.DB
}

// NewSourceService creates a new source service
func NewSourceService(db *database.DB) *SourceService {
	return &SourceService{db: db}
}

const sourceColumns = `id, name, url, rss_url, description, source_type, active, priority,
	crawl_frequency, crawl_delay, max_articles_per_crawl, respect_robots_txt,
	user_agent, language, country, category, last_crawled_at, last_success_at,
	last_error_at, last_error_message, consecutive_errors,
	total_articles_crawled, articles_crawled_today, created_at, updated_at`

// List returns sources with pagination
func (s *SourceService) List(skip, limit int, activeOnly bool) ([]models.Source, error) {
	if limit <= 0 {
		limit = 100
	}
	query := "SELECT " + sourceColumns + " FROM sources"
	if activeOnly {
		query += " WHERE active = 1"
	}
	query += " ORDER BY priority DESC, name LIMIT ? OFFSET ?"

	rows, err := s.db.Query(query, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var sources []models.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *src)
	}
	return sources, rows.Err()
}

// ListDue returns active sources whose crawl_frequency has elapsed since
// their last crawl. Sources never crawled are always due.
func (s *SourceService) ListDue(now time.Time) ([]models.Source, error) {
	rows, err := s.db.Query("SELECT " + sourceColumns + " FROM sources WHERE active = 1")
	if err != nil {
		return nil, fmt.Errorf("failed to query due sources: %w", err)
	}
	defer rows.Close()

	var due []models.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		if src.LastCrawledAt == nil ||
			now.Sub(*src.LastCrawledAt) >= time.Duration(src.CrawlFrequency)*time.Second {
			due = append(due, *src)
		}
	}
	return due, rows.Err()
}

// GetByID returns a source by ID, or nil if not found
func (s *SourceService) GetByID(id int) (*models.Source, error) {
	row := s.db.QueryRow("SELECT "+sourceColumns+" FROM sources WHERE id = ?", id)

	src, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query source: %w", err)
	}
	return src, nil
}

// Create creates a new source
func (s *SourceService) Create(config models.SourceConfig) (*models.Source, error) {
	if config.SourceType == "" {
		config.SourceType = "website"
	}
	if config.Priority == 0 {
		config.Priority = 1
	}
	if config.CrawlFrequency == 0 {
		config.CrawlFrequency = 300
	}
	if config.CrawlDelay == 0 {
		config.CrawlDelay = 1.0
	}
	if config.MaxArticlesPerCrawl == 0 {
		config.MaxArticlesPerCrawl = 50
	}
	if config.Language == "" {
		config.Language = "en"
	}

	now := time.Now().UTC()
	result, err := s.db.Exec(`
		INSERT INTO sources
			(name, url, rss_url, description, source_type, active, priority,
			 crawl_frequency, crawl_delay, max_articles_per_crawl,
			 respect_robots_txt, user_agent, language, country, category,
			 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		config.Name, config.URL, config.RSSURL, config.Description,
		config.SourceType, boolOrDefault(config.Active, true), config.Priority,
		config.CrawlFrequency, config.CrawlDelay, config.MaxArticlesPerCrawl,
		boolOrDefault(config.RespectRobotsTxt, true), config.UserAgent,
		config.Language, config.Country, config.Category, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create source: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get inserted ID: %w", err)
	}

	log.Printf("   ✅ Created source %s with ID %d", config.Name, id)
	return s.GetByID(int(id))
}

// Update updates an existing source
func (s *SourceService) Update(id int, config models.SourceConfig) error {
	existing, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("source not found")
	}

	if config.URL == "" {
		config.URL = existing.URL
	}
	if config.SourceType == "" {
		config.SourceType = existing.SourceType
	}
	if config.Priority == 0 {
		config.Priority = existing.Priority
	}
	if config.CrawlFrequency == 0 {
		config.CrawlFrequency = existing.CrawlFrequency
	}
	if config.CrawlDelay == 0 {
		config.CrawlDelay = existing.CrawlDelay
	}
	if config.MaxArticlesPerCrawl == 0 {
		config.MaxArticlesPerCrawl = existing.MaxArticlesPerCrawl
	}
	if config.Language == "" {
		config.Language = existing.Language
	}

	_, err = s.db.Exec(`
		UPDATE sources
		SET url = ?, rss_url = ?, description = ?, source_type = ?, active = ?,
		    priority = ?, crawl_frequency = ?, crawl_delay = ?,
		    max_articles_per_crawl = ?, respect_robots_txt = ?, user_agent = ?,
		    language = ?, country = ?, category = ?, updated_at = ?
		WHERE id = ?`,
		config.URL, config.RSSURL, config.Description, config.SourceType,
		boolOrDefault(config.Active, existing.Active), config.Priority,
		config.CrawlFrequency, config.CrawlDelay, config.MaxArticlesPerCrawl,
		boolOrDefault(config.RespectRobotsTxt, existing.RespectRobotsTxt),
		config.UserAgent, config.Language, config.Country, config.Category,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update source: %w", err)
	}
	return nil
}

// Delete removes a source. Returns false if no source matched.
func (s *SourceService) Delete(id int) (bool, error) {
	result, err := s.db.Exec("DELETE FROM sources WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete source: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// RecordCrawlSuccess updates source statistics after a successful crawl
func (s *SourceService) RecordCrawlSuccess(id, articlesStored int) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		UPDATE sources
		SET last_crawled_at = ?, last_success_at = ?, consecutive_errors = 0,
		    last_error_message = NULL,
		    total_articles_crawled = total_articles_crawled + ?,
		    articles_crawled_today = articles_crawled_today + ?,
		    updated_at = ?
		WHERE id = ?`,
		now, now, articlesStored, articlesStored, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to record crawl success: %w", err)
	}
	return nil
}

// RecordCrawlError updates source statistics after a failed crawl
func (s *SourceService) RecordCrawlError(id int, message string) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		UPDATE sources
		SET last_crawled_at = ?, last_error_at = ?, last_error_message = ?,
		    consecutive_errors = consecutive_errors + 1, updated_at = ?
		WHERE id = ?`,
		now, now, message, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to record crawl error: %w", err)
	}
	return nil
}

// ResetDailyCounters zeroes articles_crawled_today across all sources.
// Run once a day by the scheduler.
func (s *SourceService) ResetDailyCounters() error {
	_, err := s.db.Exec("UPDATE sources SET articles_crawled_today = 0")
	if err != nil {
		return fmt.Errorf("failed to reset daily counters: %w", err)
	}
	return nil
}

// CountByStatus returns total and active source counts plus the number of
// sources currently in an error state.
func (s *SourceService) CountByStatus() (total, active, errored int, err error) {
	err = s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN active = 1 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN consecutive_errors > 0 THEN 1 ELSE 0 END), 0)
		FROM sources`).Scan(&total, &active, &errored)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count sources: %w", err)
	}
	return total, active, errored, nil
}

func scanSource(row rowScanner) (*models.Source, error) {
	var src models.Source
	var rssURL, description, userAgent, country, category, lastErrorMessage sql.NullString
	var lastCrawledAt, lastSuccessAt, lastErrorAt sql.NullTime

	err := row.Scan(
		&src.ID, &src.Name, &src.URL, &rssURL, &description, &src.SourceType,
		&src.Active, &src.Priority, &src.CrawlFrequency, &src.CrawlDelay,
		&src.MaxArticlesPerCrawl, &src.RespectRobotsTxt, &userAgent,
		&src.Language, &country, &category, &lastCrawledAt, &lastSuccessAt,
		&lastErrorAt, &lastErrorMessage, &src.ConsecutiveErrors,
		&src.TotalArticlesCrawled, &src.ArticlesCrawledToday,
		&src.CreatedAt, &src.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	src.RSSURL = rssURL.String
	src.Description = description.String
	src.UserAgent = userAgent.String
	src.Country = country.String
	src.Category = category.String
	src.LastErrorMessage = lastErrorMessage.String
	if lastCrawledAt.Valid {
		src.LastCrawledAt = &lastCrawledAt.Time
	}
	if lastSuccessAt.Valid {
		src.LastSuccessAt = &lastSuccessAt.Time
	}
	if lastErrorAt.Valid {
		src.LastErrorAt = &lastErrorAt.Time
	}
	return &src, nil
}

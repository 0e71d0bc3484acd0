package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/azcoigreach/news-aggregator/internal/database"
	"github.com/azcoigreach/news-aggregator/internal/models"
)

// TopicService handles topic operations
type TopicService struct {
	db *database.DB
}

// NewTopicService creates a new topic service
func NewTopicService(db *database.DB) *TopicService {
	return &TopicService{db: db}
}

const topicColumns = `id, name, description, keywords, active, priority, crawl_frequency,
	max_articles_per_crawl, enable_fact_checking, enable_summarization,
	enable_correlation, last_crawled_at, created_at, updated_at`

// List returns topics with pagination
func (s *TopicService) List(skip, limit int) ([]models.Topic, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT `+topicColumns+`
		FROM topics
		ORDER BY priority DESC, name
		LIMIT ? OFFSET ?`, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to query topics: %w", err)
	}
	defer rows.Close()

	var topics []models.Topic
	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		topics = append(topics, *topic)
	}
	return topics, rows.Err()
}

// ListActive returns all active topics, highest priority first
func (s *TopicService) ListActive() ([]models.Topic, error) {
	rows, err := s.db.Query(`
		SELECT ` + topicColumns + `
		FROM topics
		WHERE active = 1
		ORDER BY priority DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active topics: %w", err)
	}
	defer rows.Close()

	var topics []models.Topic
	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		topics = append(topics, *topic)
	}
	return topics, rows.Err()
}

// GetByID returns a topic by ID, or nil if not found
func (s *TopicService) GetByID(id int) (*models.Topic, error) {
	row := s.db.QueryRow(`
		SELECT `+topicColumns+`
		FROM topics
		WHERE id = ?`, id)

	topic, err := scanTopic(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query topic: %w", err)
	}
	return topic, nil
}

// GetByName returns a topic by name, or nil if not found
func (s *TopicService) GetByName(name string) (*models.Topic, error) {
	row := s.db.QueryRow(`
		SELECT `+topicColumns+`
		FROM topics
		WHERE name = ?`, name)

	topic, err := scanTopic(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query topic: %w", err)
	}
	return topic, nil
}

// Create creates a new topic
func (s *TopicService) Create(config models.TopicConfig) (*models.Topic, error) {
	keywords, err := json.Marshal(config.Keywords)
	if err != nil {
		return nil, fmt.Errorf("failed to encode keywords: %w", err)
	}

	if config.Priority == 0 {
		config.Priority = 1
	}
	if config.CrawlFrequency == 0 {
		config.CrawlFrequency = 300
	}
	if config.MaxArticlesPerCrawl == 0 {
		config.MaxArticlesPerCrawl = 100
	}

	now := time.Now().UTC()
	result, err := s.db.Exec(`
		INSERT INTO topics
			(name, description, keywords, active, priority, crawl_frequency,
			 max_articles_per_crawl, enable_fact_checking, enable_summarization,
			 enable_correlation, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		config.Name, config.Description, string(keywords),
		boolOrDefault(config.Active, true), config.Priority, config.CrawlFrequency,
		config.MaxArticlesPerCrawl,
		boolOrDefault(config.EnableFactChecking, true),
		boolOrDefault(config.EnableSummarization, true),
		boolOrDefault(config.EnableCorrelation, true),
		now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create topic: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get inserted ID: %w", err)
	}

	log.Printf("   ✅ Created topic %s with ID %d", config.Name, id)
	return s.GetByID(int(id))
}

// Update updates an existing topic
func (s *TopicService) Update(id int, config models.TopicConfig) error {
	existing, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("topic not found")
	}

	if config.Keywords == nil {
		config.Keywords = existing.Keywords
	}
	keywords, err := json.Marshal(config.Keywords)
	if err != nil {
		return fmt.Errorf("failed to encode keywords: %w", err)
	}
	if config.Priority == 0 {
		config.Priority = existing.Priority
	}
	if config.CrawlFrequency == 0 {
		config.CrawlFrequency = existing.CrawlFrequency
	}
	if config.MaxArticlesPerCrawl == 0 {
		config.MaxArticlesPerCrawl = existing.MaxArticlesPerCrawl
	}

	_, err = s.db.Exec(`
		UPDATE topics
		SET description = ?, keywords = ?, active = ?, priority = ?,
		    crawl_frequency = ?, max_articles_per_crawl = ?,
		    enable_fact_checking = ?, enable_summarization = ?,
		    enable_correlation = ?, updated_at = ?
		WHERE id = ?`,
		config.Description, string(keywords),
		boolOrDefault(config.Active, existing.Active),
		config.Priority, config.CrawlFrequency, config.MaxArticlesPerCrawl,
		boolOrDefault(config.EnableFactChecking, existing.EnableFactChecking),
		boolOrDefault(config.EnableSummarization, existing.EnableSummarization),
		boolOrDefault(config.EnableCorrelation, existing.EnableCorrelation),
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update topic: %w", err)
	}
	return nil
}

// Delete removes a topic. Returns false if no topic matched.
func (s *TopicService) Delete(id int) (bool, error) {
	result, err := s.db.Exec("DELETE FROM topics WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete topic: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MarkCrawled stamps the topic's last crawl time
func (s *TopicService) MarkCrawled(id int) error {
	_, err := s.db.Exec(
		"UPDATE topics SET last_crawled_at = ?, updated_at = ? WHERE id = ?",
		time.Now().UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark topic crawled: %w", err)
	}
	return nil
}

func scanTopic(row rowScanner) (*models.Topic, error) {
	var t models.Topic
	var description sql.NullString
	var keywords string
	var lastCrawledAt sql.NullTime

	err := row.Scan(
		&t.ID, &t.Name, &description, &keywords, &t.Active, &t.Priority,
		&t.CrawlFrequency, &t.MaxArticlesPerCrawl, &t.EnableFactChecking,
		&t.EnableSummarization, &t.EnableCorrelation, &lastCrawledAt,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Description = description.String
	if lastCrawledAt.Valid {
		t.LastCrawledAt = &lastCrawledAt.Time
	}
	if err := json.Unmarshal([]byte(keywords), &t.Keywords); err != nil {
		return nil, fmt.Errorf("failed to decode keywords: %w", err)
	}
	return &t, nil
}

func boolOrDefault(v *bool, def bool) bool {
	if v != nil {
		return *v
	}
	return def
}

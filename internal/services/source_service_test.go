package services

import (
	"testing"
	"time"

	"github.com/azcoigreach/news-aggregator/internal/models"
)

func TestSourceService_CreateWithDefaults(t *testing.T) {
	db, cleanup := setupTestDB(t, "test_source_service.db")
	defer cleanup()

	service := NewSourceService(db)

	source, err := service.Create(models.SourceConfig{
		Name: "Example News",
		URL:  "https://news.example.com",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if source.SourceType != "website" {
		t.Errorf("default source_type = %s, want website", source.SourceType)
	}
	if source.CrawlFrequency != 300 {
		t.Errorf("default crawl_frequency = %d, want 300", source.CrawlFrequency)
	}
	if source.CrawlDelay != 1.0 {
		t.Errorf("default crawl_delay = %v, want 1.0", source.CrawlDelay)
	}
	if source.MaxArticlesPerCrawl != 50 {
		t.Errorf("default max_articles_per_crawl = %d, want 50", source.MaxArticlesPerCrawl)
	}
	if source.Language != "en" {
		t.Errorf("default language = %s, want en", source.Language)
	}
	if !source.Active || !source.RespectRobotsTxt {
		t.Error("active and respect_robots_txt should default to true")
	}
}

func TestSourceService_ListDue(t *testing.T) {
	db, cleanup := setupTestDB(t, "test_source_due.db")
	defer cleanup()

	service := NewSourceService(db)

	never, err := service.Create(models.SourceConfig{
		Name: "never crawled", URL: "https://a.example.com", CrawlFrequency: 300,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	stale, err := service.Create(models.SourceConfig{
		Name: "stale", URL: "https://b.example.com", CrawlFrequency: 300,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	fresh, err := service.Create(models.SourceConfig{
		Name: "fresh", URL: "https://c.example.com", CrawlFrequency: 300,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	now := time.Now().UTC()
	if _, err := db.Exec("UPDATE sources SET last_crawled_at = ? WHERE id = ?",
		now.Add(-10*time.Minute), stale.ID); err != nil {
		t.Fatalf("failed to backdate source: %v", err)
	}
	if _, err := db.Exec("UPDATE sources SET last_crawled_at = ? WHERE id = ?",
		now.Add(-1*time.Minute), fresh.ID); err != nil {
		t.Fatalf("failed to stamp source: %v", err)
	}

	due, err := service.ListDue(now)
	if err != nil {
		t.Fatalf("ListDue failed: %v", err)
	}

	dueIDs := map[int]bool{}
	for _, src := range due {
		dueIDs[src.ID] = true
	}
	if !dueIDs[never.ID] {
		t.Error("never-crawled source should be due")
	}
	if !dueIDs[stale.ID] {
		t.Error("stale source should be due")
	}
	if dueIDs[fresh.ID] {
		t.Error("recently crawled source should not be due")
	}
}

func TestSourceService_CrawlStats(t *testing.T) {
	db, cleanup := setupTestDB(t, "test_source_stats.db")
	defer cleanup()

	service := NewSourceService(db)

	source, err := service.Create(models.SourceConfig{
		Name: "stats", URL: "https://stats.example.com",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := service.RecordCrawlError(source.ID, "connection refused"); err != nil {
		t.Fatalf("RecordCrawlError failed: %v", err)
	}
	if err := service.RecordCrawlError(source.ID, "timeout"); err != nil {
		t.Fatalf("RecordCrawlError failed: %v", err)
	}

	errored, err := service.GetByID(source.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if errored.ConsecutiveErrors != 2 {
		t.Errorf("consecutive_errors = %d, want 2", errored.ConsecutiveErrors)
	}
	if errored.LastErrorMessage != "timeout" {
		t.Errorf("last_error_message = %s, want timeout", errored.LastErrorMessage)
	}
	if errored.LastErrorAt == nil {
		t.Error("last_error_at should be set")
	}

	// Success clears the error streak and accumulates article counters
	if err := service.RecordCrawlSuccess(source.ID, 7); err != nil {
		t.Fatalf("RecordCrawlSuccess failed: %v", err)
	}

	recovered, err := service.GetByID(source.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if recovered.ConsecutiveErrors != 0 {
		t.Errorf("consecutive_errors = %d, want 0 after success", recovered.ConsecutiveErrors)
	}
	if recovered.LastErrorMessage != "" {
		t.Errorf("last_error_message = %s, want cleared", recovered.LastErrorMessage)
	}
	if recovered.TotalArticlesCrawled != 7 || recovered.ArticlesCrawledToday != 7 {
		t.Errorf("article counters = %d/%d, want 7/7",
			recovered.TotalArticlesCrawled, recovered.ArticlesCrawledToday)
	}
	if recovered.LastSuccessAt == nil {
		t.Error("last_success_at should be set")
	}
}

func TestSourceService_ResetDailyCounters(t *testing.T) {
	db, cleanup := setupTestDB(t, "test_source_reset.db")
	defer cleanup()

	service := NewSourceService(db)

	source, err := service.Create(models.SourceConfig{
		Name: "daily", URL: "https://daily.example.com",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := service.RecordCrawlSuccess(source.ID, 12); err != nil {
		t.Fatalf("RecordCrawlSuccess failed: %v", err)
	}

	if err := service.ResetDailyCounters(); err != nil {
		t.Fatalf("ResetDailyCounters failed: %v", err)
	}

	reset, err := service.GetByID(source.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if reset.ArticlesCrawledToday != 0 {
		t.Errorf("articles_crawled_today = %d, want 0", reset.ArticlesCrawledToday)
	}
	if reset.TotalArticlesCrawled != 12 {
		t.Errorf("total_articles_crawled = %d, want 12 (reset must not touch totals)", reset.TotalArticlesCrawled)
	}
}

func TestSourceService_CountByStatus(t *testing.T) {
	db, cleanup := setupTestDB(t, "test_source_counts.db")
	defer cleanup()

	service := NewSourceService(db)

	inactive := false
	a, err := service.Create(models.SourceConfig{Name: "a", URL: "https://a.example.com"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := service.Create(models.SourceConfig{Name: "b", URL: "https://b.example.com"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := service.Create(models.SourceConfig{
		Name: "c", URL: "https://c.example.com", Active: &inactive,
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := service.RecordCrawlError(a.ID, "boom"); err != nil {
		t.Fatalf("RecordCrawlError failed: %v", err)
	}

	total, active, errored, err := service.CountByStatus()
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}
	if total != 3 || active != 2 || errored != 1 {
		t.Errorf("CountByStatus = %d/%d/%d, want 3/2/1", total, active, errored)
	}
}

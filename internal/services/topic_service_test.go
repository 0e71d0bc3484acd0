package services

import (
	"testing"

	"github.com/azcoigreach/news-aggregator/internal/models"
)

func TestTopicService_CreateWithDefaults(t *testing.T) {
	db, cleanup := setupTestDB(t, "test_topic_service.db")
	defer cleanup()

	service := NewTopicService(db)

	topic, err := service.Create(models.TopicConfig{
		Name:     "climate",
		Keywords: []string{"climate", "emissions"},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if topic.Priority != 1 {
		t.Errorf("default priority = %d, want 1", topic.Priority)
	}
	if topic.CrawlFrequency != 300 {
		t.Errorf("default crawl_frequency = %d, want 300", topic.CrawlFrequency)
	}
	if topic.MaxArticlesPerCrawl != 100 {
		t.Errorf("default max_articles_per_crawl = %d, want 100", topic.MaxArticlesPerCrawl)
	}
	if !topic.Active || !topic.EnableFactChecking || !topic.EnableSummarization || !topic.EnableCorrelation {
		t.Error("boolean defaults should all be true")
	}
	if len(topic.Keywords) != 2 {
		t.Errorf("keywords = %v, want 2 entries", topic.Keywords)
	}
}

func TestTopicService_GetByName(t *testing.T) {
	db, cleanup := setupTestDB(t, "test_topic_byname.db")
	defer cleanup()

	service := NewTopicService(db)

	if _, err := service.Create(models.TopicConfig{Name: "tech", Keywords: []string{"ai"}}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	topic, err := service.GetByName("tech")
	if err != nil {
		t.Fatalf("GetByName failed: %v", err)
	}
	if topic == nil {
		t.Fatal("GetByName returned nil for existing topic")
	}

	missing, err := service.GetByName("nope")
	if err != nil {
		t.Fatalf("GetByName failed: %v", err)
	}
	if missing != nil {
		t.Error("GetByName should return nil for missing topic")
	}
}

func TestTopicService_UpdatePreservesUnsetFields(t *testing.T) {
	db, cleanup := setupTestDB(t, "test_topic_update.db")
	defer cleanup()

	service := NewTopicService(db)

	created, err := service.Create(models.TopicConfig{
		Name:           "finance",
		Keywords:       []string{"markets"},
		Priority:       5,
		CrawlFrequency: 600,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	inactive := false
	if err := service.Update(created.ID, models.TopicConfig{
		Description: "financial news",
		Active:      &inactive,
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	updated, err := service.GetByID(created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Description != "financial news" {
		t.Errorf("description = %s, want financial news", updated.Description)
	}
	if updated.Active {
		t.Error("topic should be inactive after update")
	}
	if updated.Priority != 5 || updated.CrawlFrequency != 600 {
		t.Errorf("unset fields changed: priority=%d frequency=%d", updated.Priority, updated.CrawlFrequency)
	}
	if len(updated.Keywords) != 1 || updated.Keywords[0] != "markets" {
		t.Errorf("keywords changed unexpectedly: %v", updated.Keywords)
	}
}

func TestTopicService_Delete(t *testing.T) {
	db, cleanup := setupTestDB(t, "test_topic_delete.db")
	defer cleanup()

	service := NewTopicService(db)

	created, err := service.Create(models.TopicConfig{Name: "sports", Keywords: []string{}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	deleted, err := service.Delete(created.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !deleted {
		t.Error("Delete returned false for existing topic")
	}

	deleted, err = service.Delete(created.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if deleted {
		t.Error("Delete returned true for missing topic")
	}
}

func TestTopicService_ListActiveOrdering(t *testing.T) {
	db, cleanup := setupTestDB(t, "test_topic_listactive.db")
	defer cleanup()

	service := NewTopicService(db)

	inactive := false
	for _, cfg := range []models.TopicConfig{
		{Name: "low", Keywords: []string{}, Priority: 1},
		{Name: "high", Keywords: []string{}, Priority: 9},
		{Name: "off", Keywords: []string{}, Priority: 10, Active: &inactive},
	} {
		if _, err := service.Create(cfg); err != nil {
			t.Fatalf("Create(%s) failed: %v", cfg.Name, err)
		}
	}

	topics, err := service.ListActive()
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(topics) != 2 {
		t.Fatalf("ListActive returned %d topics, want 2", len(topics))
	}
	if topics[0].Name != "high" || topics[1].Name != "low" {
		t.Errorf("ordering = [%s, %s], want [high, low]", topics[0].Name, topics[1].Name)
	}
}

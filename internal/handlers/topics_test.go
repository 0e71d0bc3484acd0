package handlers

import (
	"bytes"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/azcoigreach/news-aggregator/internal/database"
	"github.com/azcoigreach/news-aggregator/internal/services"
)

func setupTopicApp(t *testing.T, dbFile string) (*fiber.App, func()) {
	db, err := database.New(dbFile)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	handler := NewTopicHandler(services.NewTopicService(db))

	app := fiber.New()
	group := app.Group("/api/v1/topics")
	group.Get("/", handler.List)
	group.Post("/", handler.Create)
	group.Get("/:id", handler.Get)
	group.Put("/:id", handler.Update)
	group.Delete("/:id", handler.Delete)

	cleanup := func() {
		db.Close()
		os.Remove(dbFile)
	}
	return app, cleanup
}

func TestTopicHandler_Lifecycle(t *testing.T) {
	app, cleanup := setupTopicApp(t, "test_topic_handler.db")
	defer cleanup()

	payload := `{"name":"climate","keywords":["climate","emissions"],"priority":3}`
	req := httptest.NewRequest("POST", "/api/v1/topics/", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("POST status = %d, want 201", resp.StatusCode)
	}
	created := decodeBody(t, resp.Body)
	if created["name"] != "climate" {
		t.Errorf("name = %v, want climate", created["name"])
	}

	// Duplicate names conflict
	req = httptest.NewRequest("POST", "/api/v1/topics/", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 409 {
		t.Errorf("duplicate POST status = %d, want 409", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/api/v1/topics/1", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("GET status = %d, want 200", resp.StatusCode)
	}

	req = httptest.NewRequest("DELETE", "/api/v1/topics/1", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("DELETE status = %d, want 200", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/api/v1/topics/1", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Errorf("GET after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestTopicHandler_Validation(t *testing.T) {
	app, cleanup := setupTopicApp(t, "test_topic_handler_validate.db")
	defer cleanup()

	req := httptest.NewRequest("POST", "/api/v1/topics/", bytes.NewBufferString(`{"keywords":[]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Errorf("nameless POST status = %d, want 400", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/api/v1/topics/not-a-number", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Errorf("bad ID status = %d, want 400", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/api/v1/topics/", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("empty list status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody(t, resp.Body)
	if body["count"] != float64(0) {
		t.Errorf("count = %v, want 0", body["count"])
	}
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/azcoigreach/news-aggregator/internal/database"
	"github.com/azcoigreach/news-aggregator/internal/models"
	"github.com/azcoigreach/news-aggregator/internal/services"
)

func setupConfigApp(t *testing.T, dbFile string) (*fiber.App, *services.ConfigurationService, func()) {
	db, err := database.New(dbFile)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	configService := services.NewConfigurationService(db)
	handler := NewConfigurationHandler(configService)

	app := fiber.New()
	group := app.Group("/api/v1/config")
	group.Get("/", handler.List)
	group.Get("/categories", handler.ListCategories)
	group.Get("/category/:category", handler.GetCategory)
	group.Get("/ai-models/status", handler.AIModelsStatus)
	group.Post("/initialize", handler.Initialize)
	group.Post("/", handler.Create)
	group.Get("/:key", handler.Get)
	group.Put("/:key", handler.Update)
	group.Delete("/:key", handler.Delete)

	cleanup := func() {
		db.Close()
		os.Remove(dbFile)
	}
	return app, configService, cleanup
}

func decodeBody(t *testing.T, body io.Reader) map[string]interface{} {
	var result map[string]interface{}
	if err := json.NewDecoder(body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}
	return result
}

func TestConfigurationHandler_CreateAndGet(t *testing.T) {
	app, _, cleanup := setupConfigApp(t, "test_config_handler_crud.db")
	defer cleanup()

	payload := `{"key":"max_retries","value":5,"category":"crawler"}`
	req := httptest.NewRequest("POST", "/api/v1/config/", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("POST status = %d, want 200", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/api/v1/config/max_retries", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("GET status = %d, want 200", resp.StatusCode)
	}

	body := decodeBody(t, resp.Body)
	// The UseNumber decode path keeps 5 an integer, not 5.0
	if body["value_type"] != "integer" {
		t.Errorf("value_type = %v, want integer", body["value_type"])
	}
	if body["category"] != "crawler" {
		t.Errorf("category = %v, want crawler", body["category"])
	}
}

func TestConfigurationHandler_GetMissing(t *testing.T) {
	app, _, cleanup := setupConfigApp(t, "test_config_handler_missing.db")
	defer cleanup()

	req := httptest.NewRequest("GET", "/api/v1/config/no_such_key", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestConfigurationHandler_ReservedCategoryForbidden(t *testing.T) {
	app, _, cleanup := setupConfigApp(t, "test_config_handler_reserved.db")
	defer cleanup()

	for _, category := range []string{"system", "bootstrap"} {
		payload := `{"key":"intruder","value":1,"category":"` + category + `"}`
		req := httptest.NewRequest("POST", "/api/v1/config/", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		if resp.StatusCode != 403 {
			t.Errorf("POST to %s category: status = %d, want 403", category, resp.StatusCode)
		}

		req = httptest.NewRequest("GET", "/api/v1/config/category/"+category, nil)
		resp, err = app.Test(req)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		if resp.StatusCode != 403 {
			t.Errorf("GET %s category: status = %d, want 403", category, resp.StatusCode)
		}
	}

	// The reserved check outranks the key-mismatch check on updates
	payload := `{"key":"different","value":1,"category":"system"}`
	req := httptest.NewRequest("PUT", "/api/v1/config/intruder", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 403 {
		t.Errorf("PUT with reserved category: status = %d, want 403", resp.StatusCode)
	}
}

func TestConfigurationHandler_UpdateKeyMismatch(t *testing.T) {
	app, _, cleanup := setupConfigApp(t, "test_config_handler_mismatch.db")
	defer cleanup()

	payload := `{"key":"other_key","value":1,"category":"crawler"}`
	req := httptest.NewRequest("PUT", "/api/v1/config/this_key", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestConfigurationHandler_UpdateMissing(t *testing.T) {
	app, _, cleanup := setupConfigApp(t, "test_config_handler_upmissing.db")
	defer cleanup()

	payload := `{"key":"ghost","value":1,"category":"crawler"}`
	req := httptest.NewRequest("PUT", "/api/v1/config/ghost", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestConfigurationHandler_SensitiveRedaction(t *testing.T) {
	app, _, cleanup := setupConfigApp(t, "test_config_handler_sensitive.db")
	defer cleanup()

	payload := `{"key":"openai_api_key","value":"sk-real-key","category":"ai_models","is_sensitive":true}`
	req := httptest.NewRequest("POST", "/api/v1/config/", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	if _, err := app.Test(req); err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	req = httptest.NewRequest("GET", "/api/v1/config/openai_api_key", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	body := decodeBody(t, resp.Body)
	if body["value"] != models.SensitivePlaceholder {
		t.Errorf("redacted value = %v, want %s", body["value"], models.SensitivePlaceholder)
	}

	req = httptest.NewRequest("GET", "/api/v1/config/openai_api_key?include_sensitive=true", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	body = decodeBody(t, resp.Body)
	if body["value"] != "sk-real-key" {
		t.Errorf("revealed value = %v, want sk-real-key", body["value"])
	}
}

func TestConfigurationHandler_ListExcludesReserved(t *testing.T) {
	app, configService, cleanup := setupConfigApp(t, "test_config_handler_list.db")
	defer cleanup()

	if err := configService.InitializeDefaults(context.Background()); err != nil {
		t.Fatalf("InitializeDefaults failed: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/v1/config/", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body := decodeBody(t, resp.Body)
	configurations, ok := body["configurations"].(map[string]interface{})
	if !ok {
		t.Fatalf("configurations missing from response: %v", body)
	}
	if _, present := configurations["system"]; present {
		t.Error("grouped listing must not expose the system category")
	}
	if _, present := configurations["crawler"]; !present {
		t.Error("grouped listing should include the crawler category")
	}

	req = httptest.NewRequest("GET", "/api/v1/config/categories", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	body = decodeBody(t, resp.Body)
	for _, category := range body["categories"].([]interface{}) {
		if category == "system" || category == "bootstrap" {
			t.Errorf("reserved category %v leaked into the category list", category)
		}
	}
}

func TestConfigurationHandler_Delete(t *testing.T) {
	app, _, cleanup := setupConfigApp(t, "test_config_handler_delete.db")
	defer cleanup()

	payload := `{"key":"temp_setting","value":"x","category":"general"}`
	req := httptest.NewRequest("POST", "/api/v1/config/", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	if _, err := app.Test(req); err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	req = httptest.NewRequest("DELETE", "/api/v1/config/temp_setting", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("DELETE status = %d, want 200", resp.StatusCode)
	}

	// Second delete finds nothing
	req = httptest.NewRequest("DELETE", "/api/v1/config/temp_setting", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Errorf("repeat DELETE status = %d, want 404", resp.StatusCode)
	}
}

func TestConfigurationHandler_AIModelsStatus(t *testing.T) {
	app, configService, cleanup := setupConfigApp(t, "test_config_handler_aimodels.db")
	defer cleanup()

	req := httptest.NewRequest("GET", "/api/v1/config/ai-models/status", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	body := decodeBody(t, resp.Body)
	if body["status"] != "needs_configuration" {
		t.Errorf("status without keys = %v, want needs_configuration", body["status"])
	}

	if err := configService.Set(context.Background(), "openai_api_key", "sk-key", "ai_models",
		services.SetOptions{ChangedBy: "test", IsSensitive: true}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	req = httptest.NewRequest("GET", "/api/v1/config/ai-models/status", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	body = decodeBody(t, resp.Body)
	if body["status"] != "ready" {
		t.Errorf("status with key = %v, want ready", body["status"])
	}
	openai := body["openai"].(map[string]interface{})
	if openai["configured"] != true {
		t.Errorf("openai.configured = %v, want true", openai["configured"])
	}
}

func TestConfigurationHandler_CreateValidation(t *testing.T) {
	app, _, cleanup := setupConfigApp(t, "test_config_handler_validate.db")
	defer cleanup()

	cases := []string{
		`{"value":1,"category":"crawler"}`,
		`{"key":"k","value":1}`,
		`not json`,
	}
	for _, payload := range cases {
		req := httptest.NewRequest("POST", "/api/v1/config/", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		if resp.StatusCode != 400 {
			t.Errorf("payload %q: status = %d, want 400", payload, resp.StatusCode)
		}
	}
}

package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithCrawl returns a logger with crawl context fields attached.
// Use this for all logging within a single source crawl.
func WithCrawl(taskID string, sourceID int, sourceURL string) *slog.Logger {
	return slog.With(
		"task_id", taskID,
		"source_id", sourceID,
		"source_url", sourceURL,
	)
}

// WithArticle returns a logger scoped to a specific article within a crawl.
func WithArticle(logger *slog.Logger, articleID int, articleURL string) *slog.Logger {
	return logger.With(
		"article_id", articleID,
		"article_url", articleURL,
	)
}

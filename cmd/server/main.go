package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/azcoigreach/news-aggregator/internal/config"
	"github.com/azcoigreach/news-aggregator/internal/database"
	"github.com/azcoigreach/news-aggregator/internal/handlers"
	"github.com/azcoigreach/news-aggregator/internal/logging"
	"github.com/azcoigreach/news-aggregator/internal/middleware"
	"github.com/azcoigreach/news-aggregator/internal/models"
	"github.com/azcoigreach/news-aggregator/internal/services"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Structured logging: JSON in production, text in dev
	logging.Init()

	log.Println("🚀 Starting News Aggregator Server...")

	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Env: %s)", cfg.Port, cfg.Environment)

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	// Redis is optional. Without it the task queue runs inline and the
	// scheduler skips distributed locking.
	var redisService *services.RedisService
	if cfg.RedisURL != "" {
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Failed to connect to Redis: %v (running without task queue broker)", err)
			redisService = nil
		}
	} else {
		log.Println("⚠️  REDIS_URL not set - task queue will run inline")
	}

	services.InitMetrics()

	// Core services
	configService := services.NewConfigurationService(db)
	topicService := services.NewTopicService(db)
	sourceService := services.NewSourceService(db)
	articleService := services.NewArticleService(db)
	crawlerService := services.NewCrawlerService(db, configService, sourceService, articleService)
	enrichmentService := services.NewEnrichmentService(db, configService, articleService)
	taskQueue := services.NewTaskQueueService(redisService, cfg.CrawlWorkers)

	// Seed runtime defaults so dependent components always find their keys
	ctx := context.Background()
	if err := configService.InitializeDefaults(ctx); err != nil {
		log.Printf("⚠️  Failed to initialize default configurations: %v", err)
	}

	// Task handlers: crawl plus the enrichment pipeline
	taskQueue.RegisterHandler(models.TaskCrawlSource, func(ctx context.Context, task *models.Task) error {
		return crawlerService.CrawlSource(ctx, task.SourceID, task.ID)
	})
	taskQueue.RegisterHandler(models.TaskSummarizeArticle, func(ctx context.Context, task *models.Task) error {
		return enrichmentService.SummarizeArticle(ctx, task.ArticleID)
	})
	taskQueue.RegisterHandler(models.TaskFactCheckArticle, func(ctx context.Context, task *models.Task) error {
		return enrichmentService.FactCheckArticle(ctx, task.ArticleID)
	})
	taskQueue.RegisterHandler(models.TaskCorrelateArticle, func(ctx context.Context, task *models.Task) error {
		return enrichmentService.CorrelateArticle(ctx, task.ArticleID)
	})
	taskQueue.Start(ctx)

	schedulerService, err := services.NewSchedulerService(redisService, sourceService, crawlerService, taskQueue)
	if err != nil {
		log.Fatalf("❌ Failed to create scheduler: %v", err)
	}
	if err := schedulerService.Start(ctx, cfg.DailyResetCron); err != nil {
		log.Fatalf("❌ Failed to start scheduler: %v", err)
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "News Aggregator v1.0",
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    5 * 1024 * 1024, // 5MB
	})

	app.Use(recover.New())
	app.Use(logger.New())

	prometheus := fiberprometheus.New("news_aggregator")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	allowCredentials := cfg.AllowedOrigins != "*"
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: allowCredentials,
	}))
	log.Printf("🔒 [SECURITY] CORS allowed origins: %s", cfg.AllowedOrigins)

	rateLimitConfig := middleware.DefaultRateLimitConfig(cfg.Environment, cfg.GlobalAPIMax)
	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))
	log.Println("🛡️  [RATE-LIMIT] Global API rate limiter enabled")

	// Handlers
	healthHandler := handlers.NewHealthHandler(db, redisService, configService)
	configHandler := handlers.NewConfigurationHandler(configService)
	topicHandler := handlers.NewTopicHandler(topicService)
	sourceHandler := handlers.NewSourceHandler(sourceService, crawlerService)
	articleHandler := handlers.NewArticleHandler(articleService, enrichmentService, taskQueue)
	crawlingHandler := handlers.NewCrawlingHandler(crawlerService, sourceService, taskQueue)
	monitoringHandler := handlers.NewMonitoringHandler(articleService, sourceService, taskQueue)

	// Health checks (unthrottled)
	health := app.Group("/health")
	health.Get("/", healthHandler.Basic)
	health.Get("/db", healthHandler.Database)
	health.Get("/redis", healthHandler.Redis)
	health.Get("/ai-models", healthHandler.AIModels)
	health.Get("/full", healthHandler.Full)

	api := app.Group("/api")
	v1 := api.Group("/v1")

	// Configuration store. Fixed paths before the :key catch-all.
	configGroup := v1.Group("/config")
	configGroup.Get("/", configHandler.List)
	configGroup.Get("/categories", configHandler.ListCategories)
	configGroup.Get("/category/:category", configHandler.GetCategory)
	configGroup.Get("/ai-models/status", configHandler.AIModelsStatus)
	configGroup.Post("/initialize", configHandler.Initialize)
	configGroup.Post("/", configHandler.Create)
	configGroup.Get("/:key", configHandler.Get)
	configGroup.Put("/:key", configHandler.Update)
	configGroup.Delete("/:key", configHandler.Delete)

	topics := v1.Group("/topics")
	topics.Get("/", topicHandler.List)
	topics.Post("/", topicHandler.Create)
	topics.Get("/:id", topicHandler.Get)
	topics.Put("/:id", topicHandler.Update)
	topics.Delete("/:id", topicHandler.Delete)

	sources := v1.Group("/sources")
	sources.Get("/", sourceHandler.List)
	sources.Post("/", sourceHandler.Create)
	sources.Get("/:id", sourceHandler.Get)
	sources.Put("/:id", sourceHandler.Update)
	sources.Delete("/:id", sourceHandler.Delete)
	sources.Post("/:id/test", sourceHandler.Test)

	articles := v1.Group("/articles")
	articles.Get("/", articleHandler.List)
	articles.Get("/:id", articleHandler.Get)
	articles.Delete("/:id", articleHandler.Delete)
	articles.Post("/:id/fact-check", articleHandler.TriggerFactCheck)
	articles.Get("/:id/fact-checks", articleHandler.FactCheckResults)
	articles.Post("/:id/summarize", articleHandler.TriggerSummarize)
	articles.Post("/:id/correlate", articleHandler.TriggerCorrelate)
	articles.Get("/:id/correlations", articleHandler.Correlations)

	crawling := v1.Group("/crawling")
	crawling.Post("/start", crawlingHandler.Start)
	crawling.Post("/stop", crawlingHandler.Stop)
	crawling.Get("/status", crawlingHandler.Status)
	crawling.Get("/logs", crawlingHandler.Logs)

	monitoring := v1.Group("/monitoring")
	monitoring.Get("/metrics", monitoringHandler.Metrics)
	monitoring.Get("/queue", monitoringHandler.QueueStatus)

	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("📦 API root: http://localhost:%s/api/v1", cfg.Port)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if err := schedulerService.Stop(); err != nil {
			log.Printf("⚠️ Error stopping scheduler: %v", err)
		}

		crawlerService.Stop()
		taskQueue.Stop()

		if redisService != nil {
			if err := redisService.Close(); err != nil {
				log.Printf("⚠️ Error closing Redis: %v", err)
			}
		}

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/azcoigreach/news-aggregator/internal/models"
)

const (
	crawlDispatchInterval = 60 * time.Second
	defaultDailyResetCron = "0 0 * * *"
)

// SchedulerService drives the periodic work: dispatching crawl tasks for due
// sources and resetting per-day source counters. When Redis is available a
// distributed lock keeps multiple instances from double-dispatching.
type SchedulerService struct {
	scheduler      gocron.Scheduler
	redisService   *RedisService
	sourceService  *SourceService
	crawlerService *CrawlerService
	taskQueue      *TaskQueueService
	instanceID     string
}

// NewSchedulerService creates a new scheduler service
func NewSchedulerService(
	redisService *RedisService,
	sourceService *SourceService,
	crawlerService *CrawlerService,
	taskQueue *TaskQueueService,
) (*SchedulerService, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &SchedulerService{
		scheduler:      scheduler,
		redisService:   redisService,
		sourceService:  sourceService,
		crawlerService: crawlerService,
		taskQueue:      taskQueue,
		instanceID:     uuid.New().String(),
	}, nil
}

// Start registers the periodic jobs and starts the scheduler.
// dailyResetCron overrides when daily counters reset; empty or invalid
// expressions fall back to midnight UTC.
func (s *SchedulerService) Start(ctx context.Context, dailyResetCron string) error {
	log.Println("⏰ Starting scheduler service...")

	_, err := s.scheduler.NewJob(
		gocron.DurationJob(crawlDispatchInterval),
		gocron.NewTask(func() {
			s.dispatchDueCrawls(ctx)
		}),
		gocron.WithName("crawl-dispatch"),
	)
	if err != nil {
		return fmt.Errorf("failed to register crawl dispatch job: %w", err)
	}

	resetCron := validateCronExpression(dailyResetCron)
	_, err = s.scheduler.NewJob(
		gocron.CronJob(resetCron, false),
		gocron.NewTask(func() {
			if err := s.sourceService.ResetDailyCounters(); err != nil {
				log.Printf("❌ Failed to reset daily counters: %v", err)
			} else {
				log.Println("✅ Daily source counters reset")
			}
		}),
		gocron.WithName("daily-counter-reset"),
	)
	if err != nil {
		return fmt.Errorf("failed to register daily reset job: %w", err)
	}

	s.scheduler.Start()
	log.Println("✅ Scheduler service started")
	return nil
}

// Stop shuts down the scheduler
func (s *SchedulerService) Stop() error {
	log.Println("⏹️ Stopping scheduler service...")
	return s.scheduler.Shutdown()
}

// dispatchDueCrawls enqueues a crawl task for every active source whose
// crawl frequency has elapsed. Skipped entirely while the crawler is stopped.
func (s *SchedulerService) dispatchDueCrawls(ctx context.Context) {
	if !s.crawlerService.IsRunning() {
		return
	}

	due, err := s.sourceService.ListDue(time.Now().UTC())
	if err != nil {
		log.Printf("❌ Failed to list due sources: %v", err)
		return
	}

	for _, source := range due {
		if !s.acquireDispatchLock(ctx, source.ID) {
			continue
		}

		taskID, err := s.taskQueue.Enqueue(ctx, models.Task{
			Type:     models.TaskCrawlSource,
			SourceID: source.ID,
		})
		if err != nil {
			log.Printf("❌ Failed to enqueue crawl for source %d: %v", source.ID, err)
			continue
		}
		log.Printf("📦 Dispatched crawl task %s for source %s", taskID, source.Name)
	}
}

// acquireDispatchLock prevents duplicate dispatch across instances. Minute
// granularity matches the dispatch interval. Without Redis there is a single
// instance, so dispatch is always allowed.
func (s *SchedulerService) acquireDispatchLock(ctx context.Context, sourceID int) bool {
	if s.redisService == nil {
		return true
	}

	lockKey := fmt.Sprintf("crawl-dispatch-lock:%d:%d", sourceID, time.Now().Unix()/60)
	acquired, err := s.redisService.AcquireLock(ctx, lockKey, s.instanceID, 5*time.Minute)
	if err != nil {
		log.Printf("⚠️  Failed to acquire dispatch lock for source %d: %v", sourceID, err)
		return false
	}
	return acquired
}

// validateCronExpression returns expr if it parses as a standard 5-field
// cron expression, otherwise the midnight-UTC default.
func validateCronExpression(expr string) string {
	if expr == "" {
		return defaultDailyResetCron
	}
	if _, err := cron.ParseStandard(expr); err != nil {
		log.Printf("⚠️  Invalid cron expression %q, using default: %v", expr, err)
		return defaultDailyResetCron
	}
	return expr
}

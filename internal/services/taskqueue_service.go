package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/azcoigreach/news-aggregator/internal/models"
)

const taskQueueKey = "news_aggregator:tasks"

// TaskHandler processes a single dequeued task
type TaskHandler func(ctx context.Context, task *models.Task) error

// TaskQueueService distributes background work (crawls, enrichment) over a
// Redis list. When Redis is not configured the queue degrades to inline
// execution so a single-node deployment still works.
type TaskQueueService struct {
	redis    *RedisService
	workers  int
	handlers map[models.TaskType]TaskHandler
	mu       sync.RWMutex

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTaskQueueService creates a task queue. redisService may be nil, in which
// case tasks run inline at enqueue time.
func NewTaskQueueService(redisService *RedisService, workers int) *TaskQueueService {
	if workers <= 0 {
		workers = 4
	}
	return &TaskQueueService{
		redis:    redisService,
		workers:  workers,
		handlers: make(map[models.TaskType]TaskHandler),
	}
}

// RegisterHandler binds a handler to a task type. Must be called before Start.
func (s *TaskQueueService) RegisterHandler(taskType models.TaskType, handler TaskHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[taskType] = handler
}

// Enqueue submits a task for background execution and returns its ID
func (s *TaskQueueService) Enqueue(ctx context.Context, task models.Task) (string, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	task.EnqueuedAt = time.Now().UTC()

	if m := GetMetrics(); m != nil {
		m.TasksEnqueued.WithLabelValues(string(task.Type)).Inc()
	}

	if s.redis == nil {
		// No broker configured. Run the task inline so functionality is
		// preserved on single-node deployments.
		go func() {
			runCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			s.process(runCtx, &task)
		}()
		return task.ID, nil
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("failed to encode task: %w", err)
	}

	if err := s.redis.Client().LPush(ctx, taskQueueKey, payload).Err(); err != nil {
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}
	return task.ID, nil
}

// Start launches the worker pool. No-op when running without Redis.
func (s *TaskQueueService) Start(ctx context.Context) {
	if s.redis == nil {
		log.Println("⚠️  Task queue running in inline mode (no Redis configured)")
		return
	}

	workerCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(workerCtx, i)
	}

	log.Printf("🚀 Task queue started with %d workers", s.workers)
}

// Stop signals workers to drain and waits for them to exit
func (s *TaskQueueService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	log.Println("✅ Task queue stopped")
}

// QueueDepth returns the number of pending tasks
func (s *TaskQueueService) QueueDepth(ctx context.Context) (int64, error) {
	if s.redis == nil {
		return 0, nil
	}
	depth, err := s.redis.Client().LLen(ctx, taskQueueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue depth: %w", err)
	}
	return depth, nil
}

func (s *TaskQueueService) worker(ctx context.Context, id int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Short timeout so shutdown is picked up promptly
		result, err := s.redis.Client().BRPop(ctx, 2*time.Second, taskQueueKey).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("⚠️  Worker %d: queue read failed: %v", id, err)
			time.Sleep(time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var task models.Task
		if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
			log.Printf("❌ Worker %d: dropping malformed task: %v", id, err)
			continue
		}

		s.process(ctx, &task)
	}
}

func (s *TaskQueueService) process(ctx context.Context, task *models.Task) {
	s.mu.RLock()
	handler, ok := s.handlers[task.Type]
	s.mu.RUnlock()

	if !ok {
		log.Printf("⚠️  No handler registered for task type %s (task %s)", task.Type, task.ID)
		return
	}

	if err := handler(ctx, task); err != nil {
		if m := GetMetrics(); m != nil {
			m.TasksFailed.WithLabelValues(string(task.Type)).Inc()
		}
		log.Printf("❌ Task %s (%s) failed: %v", task.ID, task.Type, err)
	}
}

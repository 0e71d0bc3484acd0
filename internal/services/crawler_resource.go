package services

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// ResourceManager bounds concurrent fetches and response body sizes
type ResourceManager struct {
	mu          sync.Mutex
	semaphore   chan struct{}
	maxBodySize int64
}

// NewResourceManager creates a new resource manager
func NewResourceManager(maxConcurrent int, maxBodySize int64) *ResourceManager {
	return &ResourceManager{
		semaphore:   make(chan struct{}, maxConcurrent),
		maxBodySize: maxBodySize,
	}
}

// Acquire takes a fetch slot and returns the release function for it. The
// release is bound to the semaphore the slot came from, so a concurrent
// Resize cannot unbalance the count.
func (rm *ResourceManager) Acquire(ctx context.Context) (func(), error) {
	rm.mu.Lock()
	sem := rm.semaphore
	rm.mu.Unlock()

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled while waiting for fetch slot: %w", ctx.Err())
	}
}

// Resize replaces the semaphore with a new capacity. In-flight fetches keep
// their slot in the old semaphore until released.
func (rm *ResourceManager) Resize(maxConcurrent int) {
	if maxConcurrent <= 0 {
		return
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if cap(rm.semaphore) != maxConcurrent {
		rm.semaphore = make(chan struct{}, maxConcurrent)
	}
}

// ReadBody reads a response body with a size cap
func (rm *ResourceManager) ReadBody(body io.Reader) ([]byte, error) {
	limitedReader := io.LimitReader(body, rm.maxBodySize)
	data, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) >= rm.maxBodySize {
		return nil, fmt.Errorf("response body too large (max %d bytes)", rm.maxBodySize)
	}
	return data, nil
}

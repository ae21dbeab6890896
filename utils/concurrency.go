package utils

import (
	"sync"
	"time"
)

// WorkerPool runs jobs on a bounded number of goroutines, spacing job starts
// by at least the configured interval.
type WorkerPool struct {
	interval  time.Duration
	semaphore chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	lastStart time.Time
}

// NewWorkerPool creates a WorkerPool with the given concurrency and minimum
// interval between job starts.
func NewWorkerPool(maxWorkers int, interval time.Duration) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		interval:  interval,
		semaphore: make(chan struct{}, maxWorkers),
	}
}

// Submit blocks until a worker slot is free, then runs job asynchronously.
func (wp *WorkerPool) Submit(job func()) {
	wp.wg.Add(1)
	wp.semaphore <- struct{}{}

	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.semaphore }()

		wp.throttle()
		job()
	}()
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) throttle() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wait := wp.interval - time.Since(wp.lastStart); wait > 0 {
		time.Sleep(wait)
	}
	wp.lastStart = time.Now()
}

// Set is a thread-safe set.
type Set[K comparable] struct {
	mu   sync.RWMutex
	seen map[K]struct{}
}

// NewSet creates an empty Set.
func NewSet[K comparable]() *Set[K] {
	return &Set[K]{seen: make(map[K]struct{})}
}

// Add returns true if k was newly added, false if already present.
func (s *Set[K]) Add(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[k]; exists {
		return false
	}
	s.seen[k] = struct{}{}
	return true
}

// Contains reports whether k is in the set.
func (s *Set[K]) Contains(k K) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[k]
	return exists
}

// Size returns the number of elements.
func (s *Set[K]) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}

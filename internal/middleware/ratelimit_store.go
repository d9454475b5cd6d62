package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/eacouncil/membership/internal/cache"
)

// RateStore coordinates rate limiting counters for a specific key.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
}

// MemoryRateStore provides process-local rate limiting. It is concurrency-safe
// but does not survive restarts or span instances.
type MemoryRateStore struct {
	mu    sync.Mutex
	data  map[string]*memoryCounter
	tick  *time.Ticker
	done  chan struct{}
	stop  sync.Once
	clock func() time.Time
}

type memoryCounter struct {
	count     int
	windowEnd time.Time
}

// NewMemoryRateStore constructs an in-memory rate store. Call Close to stop
// its sweeper when the store is no longer needed.
func NewMemoryRateStore() *MemoryRateStore {
	store := &MemoryRateStore{
		data:  make(map[string]*memoryCounter),
		tick:  time.NewTicker(time.Minute),
		done:  make(chan struct{}),
		clock: time.Now,
	}

	go store.cleanupLoop()
	return store
}

func (s *MemoryRateStore) cleanupLoop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.tick.C:
		}

		now := s.clock()
		s.mu.Lock()
		for key, counter := range s.data {
			if now.After(counter.windowEnd) {
				delete(s.data, key)
			}
		}
		s.mu.Unlock()
	}
}

// Close stops the expired-window sweeper. Safe to call more than once.
func (s *MemoryRateStore) Close() error {
	s.stop.Do(func() {
		s.tick.Stop()
		close(s.done)
	})
	return nil
}

func (s *MemoryRateStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}

	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	counter, ok := s.data[key]
	if !ok || now.After(counter.windowEnd) {
		counter = &memoryCounter{windowEnd: now.Add(window)}
		s.data[key] = counter
	}

	counter.count++

	return counter.count, time.Until(counter.windowEnd), nil
}

// storeRateStore adapts a cache.Store (Redis or database) to RateStore.
type storeRateStore struct {
	store cache.Store
}

// NewStoreRateStore wraps a shared cache store in a RateStore implementation,
// allowing counters to survive restarts and span instances.
func NewStoreRateStore(store cache.Store) RateStore {
	if store == nil {
		return nil
	}
	return &storeRateStore{store: store}
}

func (s *storeRateStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	count, ttl, err := s.store.IncrementWithTTL(ctx, key, window)
	if err != nil {
		return 0, 0, err
	}
	return int(count), ttl, nil
}

package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps per-officer token buckets in memory. A background janitor
// drops buckets that have refilled to near capacity so idle officers do not
// accumulate forever.
type MemoryStore struct {
	buckets map[int64]*TokenBucket
	mu      sync.RWMutex

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
}

// NewMemoryStore creates an in-memory store with a 5 minute cleanup interval.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithCleanup(5 * time.Minute)
}

// NewMemoryStoreWithCleanup creates an in-memory store with a custom cleanup interval.
func NewMemoryStoreWithCleanup(cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		buckets:         make(map[int64]*TokenBucket),
		cleanupInterval: cleanupInterval,
		stopCleanup:     make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

// AllowOfficer checks whether a lookup from the officer should proceed.
func (s *MemoryStore) AllowOfficer(ctx context.Context, officerID int64, capacity, refillRate float64) (bool, float64, error) {
	bucket := s.getBucket(officerID, capacity, refillRate)
	allowed := bucket.Allow()
	return allowed, bucket.Remaining(), nil
}

// ResetOfficer restores the officer's bucket to full capacity.
func (s *MemoryStore) ResetOfficer(ctx context.Context, officerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bucket, ok := s.buckets[officerID]; ok {
		bucket.Reset()
	}
	return nil
}

// OfficerRemaining returns remaining tokens for an officer.
func (s *MemoryStore) OfficerRemaining(ctx context.Context, officerID int64, capacity, refillRate float64) (float64, error) {
	bucket := s.getBucket(officerID, capacity, refillRate)
	return bucket.Remaining(), nil
}

// Close stops the janitor.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.stopCleanup) })
	return nil
}

func (s *MemoryStore) getBucket(officerID int64, capacity, refillRate float64) *TokenBucket {
	s.mu.RLock()
	bucket, ok := s.buckets[officerID]
	s.mu.RUnlock()
	if ok {
		return bucket
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if bucket, ok = s.buckets[officerID]; ok {
		return bucket
	}
	bucket = NewTokenBucket(capacity, refillRate)
	s.buckets[officerID] = bucket
	return bucket
}

func (s *MemoryStore) cleanupLoop() {
	if s.cleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	// A bucket back above 95% of capacity has been idle long enough to drop.
	for officerID, bucket := range s.buckets {
		if bucket.Remaining() >= bucket.capacity*0.95 {
			delete(s.buckets, officerID)
		}
	}
}

// ActiveBuckets reports how many officers currently hold a bucket.
func (s *MemoryStore) ActiveBuckets() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buckets)
}

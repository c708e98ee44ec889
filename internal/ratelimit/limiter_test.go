package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTokenBucketBurstThenThrottle(t *testing.T) {
	tb := NewTokenBucket(3, 0.001)
	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Fatalf("expected allow %d within burst", i)
		}
	}
	if tb.Allow() {
		t.Fatal("expected throttle after burst exhausted")
	}
	tb.Reset()
	if !tb.Allow() {
		t.Fatal("expected allow after reset")
	}
}

func TestTokenBucketRefills(t *testing.T) {
	tb := NewTokenBucket(1, 100) // 100 tokens/sec refill
	if !tb.Allow() {
		t.Fatal("expected first token")
	}
	if tb.Allow() {
		t.Fatal("bucket should be empty")
	}
	time.Sleep(50 * time.Millisecond)
	if !tb.Allow() {
		t.Fatal("expected refill after waiting")
	}
}

func TestLimiterPerOfficerIsolation(t *testing.T) {
	l := NewLimiter(Config{LookupsPerMinute: 0.0001, Burst: 2})
	defer l.Close()
	ctx := context.Background()

	if !l.AllowOfficer(ctx, 1) || !l.AllowOfficer(ctx, 1) {
		t.Fatal("officer 1 should get the full burst")
	}
	if l.AllowOfficer(ctx, 1) {
		t.Fatal("officer 1 should now be throttled")
	}
	// Officer 2 has an independent bucket.
	if !l.AllowOfficer(ctx, 2) {
		t.Fatal("officer 2 should not be affected")
	}
}

func TestLimiterResetOfficer(t *testing.T) {
	l := NewLimiter(Config{LookupsPerMinute: 0.0001, Burst: 1})
	defer l.Close()
	ctx := context.Background()

	if !l.AllowOfficer(ctx, 9) {
		t.Fatal("expected first allow")
	}
	if l.AllowOfficer(ctx, 9) {
		t.Fatal("expected throttle")
	}
	if err := l.ResetOfficer(9); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !l.AllowOfficer(ctx, 9) {
		t.Fatal("expected allow after reset")
	}
}

type failingStore struct{}

func (failingStore) AllowOfficer(ctx context.Context, officerID int64, capacity, refillRate float64) (bool, float64, error) {
	return false, 0, errors.New("store down")
}
func (failingStore) ResetOfficer(ctx context.Context, officerID int64) error { return nil }
func (failingStore) OfficerRemaining(ctx context.Context, officerID int64, capacity, refillRate float64) (float64, error) {
	return 0, errors.New("store down")
}
func (failingStore) Close() error { return nil }

func TestLimiterFailsOpen(t *testing.T) {
	l := NewLimiter(Config{Store: failingStore{}, LookupsPerMinute: 1, Burst: 1})
	defer l.Close()
	if !l.AllowOfficer(context.Background(), 1) {
		t.Fatal("limiter must fail open on store errors")
	}
}

func TestMemoryStoreCleanup(t *testing.T) {
	s := NewMemoryStoreWithCleanup(0) // no background loop, call cleanup directly
	defer s.Close()
	ctx := context.Background()

	// High refill: the bucket is effectively full again immediately.
	if _, _, err := s.AllowOfficer(ctx, 1, 10, 1000); err != nil {
		t.Fatalf("allow: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	s.cleanup()
	if s.ActiveBuckets() != 0 {
		t.Fatalf("expected idle bucket to be dropped, %d remain", s.ActiveBuckets())
	}
}

package ratelimit

import (
	"context"
)

// Store is the backend holding per-officer buckets. The in-memory
// implementation suits a single portald instance; the interface leaves room
// for a distributed one.
type Store interface {
	// AllowOfficer checks whether a lookup from the officer should proceed.
	AllowOfficer(ctx context.Context, officerID int64, capacity, refillRate float64) (allowed bool, remaining float64, err error)

	// ResetOfficer restores the officer's bucket to full capacity.
	ResetOfficer(ctx context.Context, officerID int64) error

	// OfficerRemaining returns remaining tokens for an officer.
	OfficerRemaining(ctx context.Context, officerID int64, capacity, refillRate float64) (float64, error)

	// Close releases resources.
	Close() error
}

// Limiter throttles lookup invocations per officer.
type Limiter struct {
	store      Store
	capacity   float64
	refillRate float64 // tokens per second
}

// Config holds limiter settings. Rates are expressed per minute to match how
// operators think about lookup quotas.
type Config struct {
	Store            Store
	LookupsPerMinute float64
	Burst            float64
}

// NewLimiter creates a limiter with the given configuration, defaulting to an
// in-memory store and 30 lookups/minute with a burst of 10.
func NewLimiter(cfg Config) *Limiter {
	if cfg.LookupsPerMinute <= 0 {
		cfg.LookupsPerMinute = 30
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	return &Limiter{
		store:      store,
		capacity:   cfg.Burst,
		refillRate: cfg.LookupsPerMinute / 60,
	}
}

// AllowOfficer reports whether the officer may run another lookup now. Store
// errors fail open so a limiter outage never blocks the portal.
func (l *Limiter) AllowOfficer(ctx context.Context, officerID int64) bool {
	if officerID == 0 {
		return true
	}
	allowed, _, err := l.store.AllowOfficer(ctx, officerID, l.capacity, l.refillRate)
	if err != nil {
		return true
	}
	return allowed
}

// OfficerRemaining returns the tokens left for an officer.
func (l *Limiter) OfficerRemaining(officerID int64) float64 {
	if officerID == 0 {
		return l.capacity
	}
	remaining, err := l.store.OfficerRemaining(context.Background(), officerID, l.capacity, l.refillRate)
	if err != nil {
		return l.capacity
	}
	return remaining
}

// ResetOfficer clears the officer's throttle.
func (l *Limiter) ResetOfficer(officerID int64) error {
	return l.store.ResetOfficer(context.Background(), officerID)
}

// Close stops the limiter and releases resources.
func (l *Limiter) Close() error {
	return l.store.Close()
}

// Package health aggregates liveness checks over the portal's backing stores.
package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the health status of a component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Pinger is anything that can report reachability, typically a database store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Result holds the outcome of one component check.
type Result struct {
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	LatencyMS int64     `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker runs pings against registered components.
type Checker struct {
	mu         sync.Mutex
	components map[string]Pinger
	timeout    time.Duration
}

// NewChecker creates a Checker. Each ping gets its own timeout slice.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{
		components: make(map[string]Pinger),
		timeout:    timeout,
	}
}

// Register adds a named component. A nil pinger is ignored.
func (c *Checker) Register(name string, p Pinger) {
	if p == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components[name] = p
}

// Check pings every component and reports per-component results plus an
// overall status: unhealthy if any ping fails, healthy otherwise.
func (c *Checker) Check(ctx context.Context) (Status, []Result) {
	c.mu.Lock()
	names := make([]string, 0, len(c.components))
	pingers := make(map[string]Pinger, len(c.components))
	for name, p := range c.components {
		names = append(names, name)
		pingers[name] = p
	}
	c.mu.Unlock()

	overall := StatusHealthy
	results := make([]Result, 0, len(names))
	for _, name := range names {
		pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
		started := time.Now()
		err := pingers[name].Ping(pingCtx)
		cancel()

		res := Result{
			Name:      name,
			Status:    StatusHealthy,
			LatencyMS: time.Since(started).Milliseconds(),
			CheckedAt: time.Now().UTC(),
		}
		if err != nil {
			res.Status = StatusUnhealthy
			res.Error = err.Error()
			overall = StatusUnhealthy
		}
		results = append(results, res)
	}
	return overall, results
}

package metrics

import (
	"sync"
	"time"
)

// Collector tracks portal activity with manual counters. No external metric
// dependencies; the /metrics endpoint renders the snapshot in Prometheus text
// format.
type Collector struct {
	mu sync.RWMutex

	// HTTP metrics
	totalRequests      map[string]int64 // by endpoint
	totalRequestsDur   map[string]int64 // total duration in ms
	requestErrors      map[string]int64
	requestsInProgress map[string]int64

	// Lookup workflow metrics
	lookupsByCapability map[string]int64 // by capability key
	lookupsByStatus     map[string]int64 // success / failed / rejected
	creditsCharged      int64

	// Rate limit metrics
	rateLimitHits      int64
	rateLimitByOfficer map[string]int64

	// Vendor metrics
	vendorRequests map[string]int64 // by adapter name
	vendorErrors   map[string]int64
	vendorLatency  map[string]int64 // total latency in ms

	startTime time.Time
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		totalRequests:       make(map[string]int64),
		totalRequestsDur:    make(map[string]int64),
		requestErrors:       make(map[string]int64),
		requestsInProgress:  make(map[string]int64),
		lookupsByCapability: make(map[string]int64),
		lookupsByStatus:     make(map[string]int64),
		rateLimitByOfficer:  make(map[string]int64),
		vendorRequests:      make(map[string]int64),
		vendorErrors:        make(map[string]int64),
		vendorLatency:       make(map[string]int64),
		startTime:           time.Now(),
	}
}

// RecordRequest records a completed request to an endpoint.
func (c *Collector) RecordRequest(endpoint string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests[endpoint]++
	c.totalRequestsDur[endpoint] += duration.Milliseconds()
}

// RecordError records a failed request for an endpoint.
func (c *Collector) RecordError(endpoint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestErrors[endpoint]++
}

// RecordRequestStart increments in-progress requests.
func (c *Collector) RecordRequestStart(endpoint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestsInProgress[endpoint]++
}

// RecordRequestEnd decrements in-progress requests.
func (c *Collector) RecordRequestEnd(endpoint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestsInProgress[endpoint]--
}

// RecordLookup records one lookup attempt with its final status and the
// credits actually charged.
func (c *Collector) RecordLookup(capabilityKey, status string, credits int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookupsByCapability[capabilityKey]++
	c.lookupsByStatus[status]++
	c.creditsCharged += credits
}

// maxRateLimitOfficers bounds the per-officer breakdown so that the label
// cardinality on /metrics cannot grow without limit. Once the cap is reached
// new officers only count toward the total.
const maxRateLimitOfficers = 100

// RecordRateLimitHit records a throttled lookup.
func (c *Collector) RecordRateLimitHit(officer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rateLimitHits++
	if _, ok := c.rateLimitByOfficer[officer]; !ok && len(c.rateLimitByOfficer) >= maxRateLimitOfficers {
		return
	}
	c.rateLimitByOfficer[officer]++
}

// RecordVendorRequest records a call to a vendor adapter.
func (c *Collector) RecordVendorRequest(adapter string, duration time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vendorRequests[adapter]++
	c.vendorLatency[adapter] += duration.Milliseconds()
	if err != nil {
		c.vendorErrors[adapter]++
	}
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	Uptime              int64
	TotalRequests       map[string]int64
	TotalRequestsDur    map[string]int64
	RequestErrors       map[string]int64
	RequestsInProgress  map[string]int64
	LookupsByCapability map[string]int64
	LookupsByStatus     map[string]int64
	CreditsCharged      int64
	RateLimitHits       int64
	RateLimitByOfficer  map[string]int64
	VendorRequests      map[string]int64
	VendorErrors        map[string]int64
	VendorLatency       map[string]int64
}

// GetSnapshot returns a snapshot of current metrics.
func (c *Collector) GetSnapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Uptime:              int64(time.Since(c.startTime).Seconds()),
		TotalRequests:       copyMap(c.totalRequests),
		TotalRequestsDur:    copyMap(c.totalRequestsDur),
		RequestErrors:       copyMap(c.requestErrors),
		RequestsInProgress:  copyMap(c.requestsInProgress),
		LookupsByCapability: copyMap(c.lookupsByCapability),
		LookupsByStatus:     copyMap(c.lookupsByStatus),
		CreditsCharged:      c.creditsCharged,
		RateLimitHits:       c.rateLimitHits,
		RateLimitByOfficer:  copyMap(c.rateLimitByOfficer),
		VendorRequests:      copyMap(c.vendorRequests),
		VendorErrors:        copyMap(c.vendorErrors),
		VendorLatency:       copyMap(c.vendorLatency),
	}
}

func copyMap(m map[string]int64) map[string]int64 {
	result := make(map[string]int64, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}

package adapter

import (
	"context"
	"encoding/json"
	"fmt"
)

// Request carries one lookup to an adapter. Fields hold the capability's
// input values keyed by field name (e.g. "registration_number").
type Request struct {
	CapabilityKey string
	Fields        map[string]string
	Consent       bool
}

// Field returns the named input or the first non-empty fallback.
func (r Request) Field(names ...string) string {
	for _, n := range names {
		if v := r.Fields[n]; v != "" {
			return v
		}
	}
	return ""
}

// Result is a successful vendor response: a short human summary and the raw
// body for audit storage.
type Result struct {
	Summary string
	Payload json.RawMessage
}

// Error describes a failed vendor call. StatusCode is zero for transport
// failures and timeouts.
type Error struct {
	Vendor     string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Vendor, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Vendor, e.Message)
}

// Adapter executes one lookup against an upstream adapter. The credential
// comes from the capability row, never from adapter construction, so one
// adapter instance serves every capability routed to that adapter.
type Adapter interface {
	Name() string
	Lookup(ctx context.Context, credential string, req Request) (*Result, error)
}

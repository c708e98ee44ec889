// Package loopback provides a deterministic local adapter for development and
// tests: no network, stable output derived from the request itself.
package loopback

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/veriport/veriport/internal/adapter"
)

const vendorName = "loopback"

// Client echoes lookups back without calling any adapter.
type Client struct{}

// New creates a loopback adapter.
func New() *Client { return &Client{} }

// Name implements adapter.Adapter.
func (c *Client) Name() string { return vendorName }

// Lookup fails when the fields include fail=<anything>, which lets tests and
// development flows exercise the failure path on demand.
func (c *Client) Lookup(ctx context.Context, credential string, req adapter.Request) (*adapter.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, &adapter.Error{Vendor: vendorName, Message: err.Error()}
	}
	if v := req.Fields["fail"]; v != "" {
		return nil, &adapter.Error{Vendor: vendorName, StatusCode: 502, Message: "forced failure: " + v}
	}

	keys := make([]string, 0, len(req.Fields))
	for k := range req.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+req.Fields[k])
	}

	payload, _ := json.Marshal(map[string]any{
		"capability": req.CapabilityKey,
		"fields":     req.Fields,
		"consent":    req.Consent,
	})
	return &adapter.Result{
		Summary: fmt.Sprintf("loopback %s (%s)", req.CapabilityKey, strings.Join(parts, ", ")),
		Payload: payload,
	}, nil
}

package leakosint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/veriport/veriport/internal/adapter"
)

const (
	defaultBaseURL = "https://leakosintapi.com"
	vendorName     = "leakosint"
)

// Config captures connection settings for the LeakOSINT breach-search API.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// Client talks to LeakOSINT. The token travels inside the JSON body rather
// than a header.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New creates a LeakOSINT client with the provided configuration.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name implements adapter.Adapter.
func (c *Client) Name() string { return vendorName }

// Lookup posts {token, request} and summarizes the databases found.
func (c *Client) Lookup(ctx context.Context, credential string, req adapter.Request) (*adapter.Result, error) {
	if credential == "" {
		return nil, &adapter.Error{Vendor: vendorName, Message: "missing credential"}
	}
	term := req.Field("query", "request", "email", "phone")
	if term == "" {
		return nil, &adapter.Error{Vendor: vendorName, Message: "missing search term"}
	}

	payload, err := json.Marshal(map[string]any{
		"token":   credential,
		"request": term,
		"limit":   100,
		"lang":    "en",
	})
	if err != nil {
		return nil, &adapter.Error{Vendor: vendorName, Message: "encode request: " + err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/"), bytes.NewReader(payload))
	if err != nil {
		return nil, &adapter.Error{Vendor: vendorName, Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &adapter.Error{Vendor: vendorName, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &adapter.Error{Vendor: vendorName, Message: "read response: " + err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &adapter.Error{Vendor: vendorName, StatusCode: resp.StatusCode, Message: snippet(raw)}
	}

	var parsed struct {
		List  map[string]any `json:"List"`
		Error string         `json:"Error"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &adapter.Error{Vendor: vendorName, StatusCode: resp.StatusCode, Message: "malformed response"}
	}
	if parsed.Error != "" {
		return nil, &adapter.Error{Vendor: vendorName, StatusCode: resp.StatusCode, Message: parsed.Error}
	}
	if parsed.List == nil {
		return nil, &adapter.Error{Vendor: vendorName, StatusCode: resp.StatusCode, Message: "response missing List field"}
	}

	return &adapter.Result{
		Summary: fmt.Sprintf("found in %d breach databases", len(parsed.List)),
		Payload: json.RawMessage(raw),
	}, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

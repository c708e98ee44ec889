package signzy

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
	defaultBaseURL = "https://api.signzy.app/api/v3"
	vendorName     = "signzy"
)

// Config captures connection settings for the Signzy verification API.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// Client talks to Signzy. One instance serves every capability routed here;
// the bearer token arrives per request from the capability row.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New creates a Signzy client with the provided configuration.
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

// Lookup posts the request fields as JSON with a bearer token and requires a
// top-level "result" object in the response.
func (c *Client) Lookup(ctx context.Context, credential string, req adapter.Request) (*adapter.Result, error) {
	if credential == "" {
		return nil, &adapter.Error{Vendor: vendorName, Message: "missing credential"}
	}
	body := make(map[string]any, len(req.Fields))
	for k, v := range req.Fields {
		body[k] = v
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &adapter.Error{Vendor: vendorName, Message: "encode request: " + err.Error()}
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(req.CapabilityKey, "/")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &adapter.Error{Vendor: vendorName, Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", credential)

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
		Result map[string]any `json:"result"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.Result == nil {
		return nil, &adapter.Error{Vendor: vendorName, StatusCode: resp.StatusCode, Message: "response missing result object"}
	}

	return &adapter.Result{
		Summary: summarize(parsed.Result),
		Payload: json.RawMessage(raw),
	}, nil
}

func summarize(result map[string]any) string {
	for _, key := range []string{"ownerName", "fullName", "name", "status"} {
		if v, ok := result[key].(string); ok && v != "" {
			return v
		}
	}
	return fmt.Sprintf("verified (%d fields)", len(result))
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

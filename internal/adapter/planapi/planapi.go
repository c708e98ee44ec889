package planapi

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
	defaultBaseURL = "https://planapi.in/api"
	vendorName     = "planapi"
)

// Config captures connection settings for the PlanAPI lookup service.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// Client talks to PlanAPI. The credential is colon-delimited
// "user_id:token:operator" and is split into custom request headers.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New creates a PlanAPI client with the provided configuration.
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

// Lookup splits the credential into headers, posts the fields as JSON, and
// requires a top-level "response" value.
func (c *Client) Lookup(ctx context.Context, credential string, req adapter.Request) (*adapter.Result, error) {
	parts := strings.Split(credential, ":")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, &adapter.Error{Vendor: vendorName, Message: "credential must be user_id:token[:operator]"}
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
	httpReq.Header.Set("X-User-Id", parts[0])
	httpReq.Header.Set("X-Api-Token", parts[1])
	if len(parts) > 2 && parts[2] != "" {
		httpReq.Header.Set("X-Operator", parts[2])
	}

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
		Response any `json:"response"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.Response == nil {
		return nil, &adapter.Error{Vendor: vendorName, StatusCode: resp.StatusCode, Message: "response missing response field"}
	}

	return &adapter.Result{
		Summary: summarize(parsed.Response),
		Payload: json.RawMessage(raw),
	}, nil
}

func summarize(response any) string {
	switch v := response.(type) {
	case string:
		return v
	case map[string]any:
		for _, key := range []string{"operator", "circle", "name", "status"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s
			}
		}
		return fmt.Sprintf("matched (%d fields)", len(v))
	default:
		return "matched"
	}
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

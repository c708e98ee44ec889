package deepvue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/veriport/veriport/internal/adapter"
)

const (
	defaultBaseURL = "https://production.deepvue.tech/v1"
	vendorName     = "deepvue"
)

// Config captures connection settings for the Deepvue API.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
}

type cachedToken struct {
	value   string
	expires time.Time
}

// Client talks to Deepvue. Lookups need a session token obtained through a
// client-credentials exchange; tokens are cached per credential until close
// to expiry.
type Client struct {
	cfg        Config
	httpClient *http.Client

	mu     sync.Mutex
	tokens map[string]cachedToken
}

// New creates a Deepvue client with the provided configuration.
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
		tokens:     make(map[string]cachedToken),
	}
}

// Name implements adapter.Adapter.
func (c *Client) Name() string { return vendorName }

// Lookup exchanges the credential for a session token when needed, then
// issues a bearer GET with the request fields as query parameters. A 2xx
// response must carry a "data" value.
func (c *Client) Lookup(ctx context.Context, credential string, req adapter.Request) (*adapter.Result, error) {
	clientID, clientSecret, ok := strings.Cut(credential, ":")
	if !ok || clientID == "" || clientSecret == "" {
		return nil, &adapter.Error{Vendor: vendorName, Message: "credential must be client_id:client_secret"}
	}

	token, err := c.sessionToken(ctx, clientID, clientSecret)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	for k, v := range req.Fields {
		query.Set(k, v)
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(req.CapabilityKey, "/")
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &adapter.Error{Vendor: vendorName, Message: err.Error()}
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("x-api-key", clientSecret)

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
		Data any `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.Data == nil {
		return nil, &adapter.Error{Vendor: vendorName, StatusCode: resp.StatusCode, Message: "response missing data field"}
	}

	return &adapter.Result{
		Summary: summarize(parsed.Data),
		Payload: json.RawMessage(raw),
	}, nil
}

func (c *Client) sessionToken(ctx context.Context, clientID, clientSecret string) (string, error) {
	key := clientID + ":" + clientSecret

	c.mu.Lock()
	cached, ok := c.tokens[key]
	c.mu.Unlock()
	if ok && time.Now().Before(cached.expires) {
		return cached.value, nil
	}

	form := url.Values{}
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/authorize"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &adapter.Error{Vendor: vendorName, Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &adapter.Error{Vendor: vendorName, Message: "token exchange: " + err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &adapter.Error{Vendor: vendorName, Message: "token exchange: " + err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &adapter.Error{Vendor: vendorName, StatusCode: resp.StatusCode, Message: "token exchange: " + snippet(raw)}
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.AccessToken == "" {
		return "", &adapter.Error{Vendor: vendorName, StatusCode: resp.StatusCode, Message: "token exchange: missing access_token"}
	}

	ttl := time.Duration(parsed.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	// Refresh a minute early so in-flight lookups never race expiry.
	expires := time.Now().Add(ttl - time.Minute)
	if expires.Before(time.Now()) {
		expires = time.Now().Add(ttl / 2)
	}

	c.mu.Lock()
	c.tokens[key] = cachedToken{value: parsed.AccessToken, expires: expires}
	c.mu.Unlock()
	return parsed.AccessToken, nil
}

func summarize(data any) string {
	switch v := data.(type) {
	case string:
		return v
	case map[string]any:
		for _, key := range []string{"name", "full_name", "address", "status"} {
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

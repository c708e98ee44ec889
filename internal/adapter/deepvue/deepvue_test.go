package deepvue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/veriport/veriport/internal/adapter"
)

func newVendorServer(t *testing.T, tokenCalls *int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/authorize":
			atomic.AddInt64(tokenCalls, 1)
			if err := r.ParseForm(); err != nil || r.PostForm.Get("client_id") == "" {
				http.Error(w, "bad exchange", http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"tok-123","expires_in":600}`))
		case "/mobile-to-name":
			if r.Header.Get("Authorization") != "Bearer tok-123" {
				http.Error(w, "no token", http.StatusUnauthorized)
				return
			}
			if r.URL.Query().Get("mobile_number") != "9999900000" {
				http.Error(w, "missing param", http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(`{"data":{"name":"A. Kumar"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestLookupExchangesAndCachesToken(t *testing.T) {
	var tokenCalls int64
	srv := newVendorServer(t, &tokenCalls)
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	req := adapter.Request{
		CapabilityKey: "mobile-to-name",
		Fields:        map[string]string{"mobile_number": "9999900000"},
	}

	for i := 0; i < 3; i++ {
		res, err := c.Lookup(context.Background(), "id:secret", req)
		if err != nil {
			t.Fatalf("lookup %d: %v", i, err)
		}
		if res.Summary != "A. Kumar" {
			t.Fatalf("unexpected summary %q", res.Summary)
		}
	}
	if got := atomic.LoadInt64(&tokenCalls); got != 1 {
		t.Fatalf("expected one token exchange, got %d", got)
	}
}

func TestLookupRejectsMalformedCredential(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1"})
	if _, err := c.Lookup(context.Background(), "no-separator", adapter.Request{CapabilityKey: "mobile-to-name"}); err == nil {
		t.Fatal("expected error for malformed credential")
	}
}

func TestLookupTokenExchangeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	_, err := c.Lookup(context.Background(), "id:secret", adapter.Request{CapabilityKey: "mobile-to-name"})
	vErr, ok := err.(*adapter.Error)
	if !ok {
		t.Fatalf("expected adapter.Error, got %v", err)
	}
	if vErr.StatusCode != http.StatusForbidden {
		t.Fatalf("unexpected status %d", vErr.StatusCode)
	}
}

func TestLookupMissingDataMarker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/authorize" {
			_, _ = w.Write([]byte(`{"access_token":"tok-123","expires_in":600}`))
			return
		}
		_, _ = w.Write([]byte(`{"message":"shapeless"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	if _, err := c.Lookup(context.Background(), "id:secret", adapter.Request{CapabilityKey: "mobile-to-name"}); err == nil {
		t.Fatal("expected failure for 2xx without data field")
	}
}

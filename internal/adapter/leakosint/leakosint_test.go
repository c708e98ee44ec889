package leakosint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/veriport/veriport/internal/adapter"
)

func TestLookupSendsTokenInBody(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"List":{"BreachDB2021":{},"OtherLeak":{}}}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	res, err := c.Lookup(context.Background(), "secret-token", adapter.Request{
		CapabilityKey: "breach-search",
		Fields:        map[string]string{"query": "someone@example.com"},
	})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if body["token"] != "secret-token" {
		t.Fatalf("token not in body: %v", body)
	}
	if body["request"] != "someone@example.com" {
		t.Fatalf("search term not in body: %v", body)
	}
	if res.Summary != "found in 2 breach databases" {
		t.Fatalf("unexpected summary %q", res.Summary)
	}
}

func TestLookupVendorReportedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Error":"invalid token"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	_, err := c.Lookup(context.Background(), "bad", adapter.Request{
		CapabilityKey: "breach-search",
		Fields:        map[string]string{"query": "x"},
	})
	if err == nil {
		t.Fatal("expected error when vendor reports one")
	}
}

func TestLookupRequiresSearchTerm(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1"})
	if _, err := c.Lookup(context.Background(), "tok", adapter.Request{CapabilityKey: "breach-search"}); err == nil {
		t.Fatal("expected error for missing search term")
	}
}

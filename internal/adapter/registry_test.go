package adapter

import (
	"context"
	"testing"
)

type namedAdapter struct{ name string }

func (a namedAdapter) Name() string { return a.name }
func (a namedAdapter) Lookup(ctx context.Context, credential string, req Request) (*Result, error) {
	return &Result{Summary: a.name}, nil
}

func TestRegistryForName(t *testing.T) {
	r := NewRegistry()
	r.Register(namedAdapter{name: "signzy"})
	r.Register(namedAdapter{name: "deepvue"})

	a, err := r.ForName("signzy")
	if err != nil {
		t.Fatalf("for name: %v", err)
	}
	if a.Name() != "signzy" {
		t.Fatalf("wrong adapter %q", a.Name())
	}

	if _, err := r.ForName("unknown"); err == nil {
		t.Fatal("expected error for unregistered adapter")
	}
}

func TestRegistryFallback(t *testing.T) {
	r := NewRegistry()
	r.Register(namedAdapter{name: "signzy"})
	r.SetFallback(namedAdapter{name: "loopback"})

	a, err := r.ForName("unknown")
	if err != nil {
		t.Fatalf("for name with fallback: %v", err)
	}
	if a.Name() != "loopback" {
		t.Fatalf("expected fallback, got %q", a.Name())
	}
}

func TestRegistryNames(t *testing.T) {
	r := NewRegistry()
	r.Register(namedAdapter{name: "planapi"})
	r.Register(namedAdapter{name: "deepvue"})

	names := r.Names()
	if len(names) != 2 || names[0] != "deepvue" || names[1] != "planapi" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestRequestField(t *testing.T) {
	req := Request{Fields: map[string]string{"phone": "9999900000"}}
	if got := req.Field("mobile", "phone"); got != "9999900000" {
		t.Fatalf("unexpected field %q", got)
	}
	if got := req.Field("email"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

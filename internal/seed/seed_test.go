package seed

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/veriport/veriport/internal/directory"
	dirsqlite "github.com/veriport/veriport/internal/directory/sqlite"
)

const sample = `
capabilities:
  - key: vehicle-rc
    name: Vehicle RC
    category: vehicle
    tier: pro
    adapter: signzy
    credential: token-abc
    default_cost: 2
  - key: phone-prefill
    name: Phone Prefill
    category: phone
    adapter: deepvue
    credential: id:secret
    default_cost: 3
plans:
  - name: standard
    default_credits: 100
    topup_allowed: true
    capabilities:
      - key: vehicle-rc
        credit_cost: 2
      - key: phone-prefill
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capabilities.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestLoadValidation(t *testing.T) {
	f, err := Load(writeSeed(t, sample))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(f.Capabilities) != 2 || len(f.Plans) != 1 {
		t.Fatalf("unexpected file %+v", f)
	}

	if _, err := Load(writeSeed(t, "capabilities:\n  - name: no key\n")); err == nil {
		t.Fatal("expected error for capability without key")
	}
	if _, err := Load(writeSeed(t, "capabilities:\n  - key: x\n")); err == nil {
		t.Fatal("expected error for capability without adapter")
	}
}

func TestApplyIsIdempotentAndPreservesEdits(t *testing.T) {
	store, err := dirsqlite.New(filepath.Join(t.TempDir(), "directory.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	ctx := context.Background()
	logger := log.New(io.Discard, "", 0)

	f, err := Load(writeSeed(t, sample))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := Apply(ctx, store, f, logger); err != nil {
		t.Fatalf("apply: %v", err)
	}

	cap1, err := store.GetCapabilityByKey(ctx, "vehicle-rc")
	if err != nil {
		t.Fatalf("capability not seeded: %v", err)
	}
	plans, err := store.ListPlans(ctx)
	if err != nil || len(plans) != 1 {
		t.Fatalf("plan not seeded: %v %v", plans, err)
	}
	pcs, err := store.ListPlanCapabilities(ctx, plans[0].ID)
	if err != nil || len(pcs) != 2 {
		t.Fatalf("plan capabilities not seeded: %v %v", pcs, err)
	}

	// An admin edit survives a re-apply.
	newName := "Vehicle Registration"
	if _, err := store.UpdateCapability(ctx, cap1.ID, directory.CapabilityUpdate{Name: &newName}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := Apply(ctx, store, f, logger); err != nil {
		t.Fatalf("re-apply: %v", err)
	}
	got, err := store.GetCapabilityByKey(ctx, "vehicle-rc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != newName {
		t.Fatalf("seed overwrote admin edit: %q", got.Name)
	}
	caps, _ := store.ListCapabilities(ctx)
	if len(caps) != 2 {
		t.Fatalf("re-apply duplicated capabilities: %d", len(caps))
	}
}

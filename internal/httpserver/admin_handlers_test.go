package httpserver

import (
	"context"
	"net/http"
	"testing"

	"github.com/veriport/veriport/internal/ledger"
)

func TestAdminOfficerLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/admin/officers", env.adminTok, map[string]any{
		"name": "SI Verma", "email": "verma@example.com", "password": "pass123",
		"plan_id": env.planID, "credits": 20,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d: %v", resp.StatusCode, body)
	}
	created, _ := body["officer"].(map[string]any)
	id := int64(created["id"].(float64))
	if created["credits_remaining"] != float64(20) {
		t.Fatalf("unexpected balance %v", created["credits_remaining"])
	}

	// Duplicate email conflicts.
	resp, _ = env.do(t, http.MethodPost, "/api/v1/admin/officers", env.adminTok, map[string]any{
		"name": "Dup", "email": "verma@example.com", "password": "pass123",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate status %d", resp.StatusCode)
	}

	newName := "Inspector Verma"
	resp, body = env.do(t, http.MethodPatch, patchURL("/api/v1/admin/officers", id), env.adminTok, map[string]any{
		"name": newName,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status %d: %v", resp.StatusCode, body)
	}
	if body["officer"].(map[string]any)["name"] != newName {
		t.Fatalf("name not updated: %v", body)
	}

	resp, _ = env.do(t, http.MethodPost, patchURL("/api/v1/admin/officers", id)+"/status", env.adminTok, map[string]any{
		"status": "suspended",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("suspend status %d", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodDelete, patchURL("/api/v1/admin/officers", id), env.adminTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodGet, patchURL("/api/v1/admin/officers", id), env.adminTok, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get deleted status %d", resp.StatusCode)
	}
}

func TestAdminCreditsAdjustment(t *testing.T) {
	env := newTestEnv(t)
	base := patchURL("/api/v1/admin/officers", env.officer.ID) + "/credits"

	// Top-up raises both balance and ceiling.
	resp, body := env.do(t, http.MethodPost, base, env.adminTok, map[string]any{
		"action": "topup", "credits": 15,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("topup status %d: %v", resp.StatusCode, body)
	}
	officer, _ := body["officer"].(map[string]any)
	if officer["credits_remaining"] != float64(25) || officer["total_credits"] != float64(25) {
		t.Fatalf("topup balances %v / %v", officer["credits_remaining"], officer["total_credits"])
	}

	// Refund is capped at the ceiling.
	resp, body = env.do(t, http.MethodPost, base, env.adminTok, map[string]any{
		"action": "refund", "credits": 100,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refund status %d", resp.StatusCode)
	}
	officer, _ = body["officer"].(map[string]any)
	if officer["credits_remaining"] != float64(25) {
		t.Fatalf("refund overshot ceiling: %v", officer["credits_remaining"])
	}

	resp, _ = env.do(t, http.MethodPost, base, env.adminTok, map[string]any{
		"action": "donate", "credits": 5,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad action status %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodPost, base, env.adminTok, map[string]any{
		"action": "topup", "credits": -3,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("negative credits status %d", resp.StatusCode)
	}

	txns, err := env.ledger.ListTransactions(context.Background(), env.officer.ID, 10)
	if err != nil || len(txns) != 2 {
		t.Fatalf("expected 2 transactions: %v %v", txns, err)
	}
	if txns[0].Action != ledger.ActionRefund || txns[1].Action != ledger.ActionTopup {
		t.Fatalf("unexpected transactions %+v", txns)
	}
}

func TestRegistrationFlow(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/registrations", "", map[string]any{
		"name": "HC Gupta", "email": "gupta@example.com", "mobile": "9876500000",
		"remarks": "district cyber cell",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status %d: %v", resp.StatusCode, body)
	}
	if body["reference"] == "" || body["status"] != "pending" {
		t.Fatalf("unexpected registration response %v", body)
	}

	// Already-registered email is refused.
	resp, _ = env.do(t, http.MethodPost, "/api/v1/registrations", "", map[string]any{
		"name": "Imposter", "email": "sharma@example.com",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate email status %d", resp.StatusCode)
	}

	resp, body = env.do(t, http.MethodGet, "/api/v1/admin/registrations?status=pending", env.adminTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status %d", resp.StatusCode)
	}
	regs, _ := body["registrations"].([]any)
	if len(regs) != 1 {
		t.Fatalf("expected 1 pending registration, got %d", len(regs))
	}
	regID := int64(regs[0].(map[string]any)["id"].(float64))

	resp, body = env.do(t, http.MethodPost, patchURL("/api/v1/admin/registrations", regID)+"/approve", env.adminTok, map[string]any{
		"plan_id": env.planID, "password": "initial-pass",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve status %d: %v", resp.StatusCode, body)
	}
	officer, _ := body["officer"].(map[string]any)
	if officer["email"] != "gupta@example.com" || officer["credits_remaining"] != float64(50) {
		t.Fatalf("approved officer %v", officer)
	}

	// The grant of initial credits is journaled.
	officerID := int64(officer["id"].(float64))
	txns, err := env.ledger.ListTransactions(context.Background(), officerID, 10)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txns) != 1 || txns[0].Action != ledger.ActionRenewal || txns[0].Credits != 50 {
		t.Fatalf("expected one renewal row for 50 credits, got %+v", txns)
	}

	// The new officer can log in with the issued password.
	resp, _ = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email": "gupta@example.com", "password": "initial-pass",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("new officer login status %d", resp.StatusCode)
	}

	// Approving twice conflicts.
	resp, _ = env.do(t, http.MethodPost, patchURL("/api/v1/admin/registrations", regID)+"/approve", env.adminTok, map[string]any{
		"plan_id": env.planID, "password": "other",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("double approve status %d", resp.StatusCode)
	}
}

func TestRegistrationReject(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.do(t, http.MethodPost, "/api/v1/registrations", "", map[string]any{
		"name": "Unknown", "email": "unknown@example.com",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status %d", resp.StatusCode)
	}
	_, body := env.do(t, http.MethodGet, "/api/v1/admin/registrations?status=pending", env.adminTok, nil)
	regs, _ := body["registrations"].([]any)
	regID := int64(regs[0].(map[string]any)["id"].(float64))

	resp, _ = env.do(t, http.MethodPost, patchURL("/api/v1/admin/registrations", regID)+"/reject", env.adminTok, map[string]any{
		"reason": "could not verify service record",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reject status %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodPost, patchURL("/api/v1/admin/registrations", regID)+"/approve", env.adminTok, map[string]any{
		"plan_id": env.planID, "password": "x",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("approve after reject status %d", resp.StatusCode)
	}
}

func TestPlanAndCapabilityAdmin(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/admin/plans", env.adminTok, map[string]any{
		"name": "premium", "default_credits": 500, "monthly_fee": 999.0, "topup_allowed": true,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("plan create status %d: %v", resp.StatusCode, body)
	}
	planID := int64(body["plan"].(map[string]any)["id"].(float64))

	resp, body = env.do(t, http.MethodPost, "/api/v1/admin/capabilities", env.adminTok, map[string]any{
		"key": "phone-prefill", "name": "Phone Prefill", "category": "phone",
		"tier": "pro", "adapter": "deepvue", "credential": "id:secret", "default_cost": 4,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("capability create status %d: %v", resp.StatusCode, body)
	}
	capPayload := body["capability"].(map[string]any)
	capID := int64(capPayload["id"].(float64))
	if _, leaked := capPayload["credential"]; leaked {
		t.Fatal("credential must not be exposed to admins over the API")
	}

	resp, _ = env.do(t, http.MethodPut, patchURL("/api/v1/admin/plans", planID)+"/capabilities/"+itoa(capID), env.adminTok, map[string]any{
		"enabled": true, "credit_cost": 3,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("plan capability set status %d", resp.StatusCode)
	}
	resp, body = env.do(t, http.MethodGet, patchURL("/api/v1/admin/plans", planID)+"/capabilities", env.adminTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("plan capability list status %d", resp.StatusCode)
	}
	pcs, _ := body["capabilities"].([]any)
	if len(pcs) != 1 {
		t.Fatalf("expected 1 plan capability, got %d", len(pcs))
	}

	// Disabling the vendor key makes lookups refuse without removing the row.
	resp, _ = env.do(t, http.MethodPost, patchURL("/api/v1/admin/capabilities", capID)+"/key-status", env.adminTok, map[string]any{
		"key_status": "inactive",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("key status %d", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodPost, patchURL("/api/v1/admin/capabilities", capID)+"/key-status", env.adminTok, map[string]any{
		"key_status": "revoked",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid key status %d", resp.StatusCode)
	}
}

func TestInactiveKeyRefusesLookup(t *testing.T) {
	env := newTestEnv(t)
	_, body := env.do(t, http.MethodGet, "/api/v1/admin/capabilities", env.adminTok, nil)
	caps, _ := body["capabilities"].([]any)
	capID := int64(caps[0].(map[string]any)["id"].(float64))

	resp, _ := env.do(t, http.MethodPost, patchURL("/api/v1/admin/capabilities", capID)+"/key-status", env.adminTok, map[string]any{
		"key_status": "inactive",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("key status %d", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodPost, "/api/v1/lookups/vehicle-rc", env.officerTk, map[string]any{
		"fields":  map[string]string{"rc_number": "KA01AB1234"},
		"consent": true,
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("inactive key lookup status %d", resp.StatusCode)
	}
}

func TestAdminAuditEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/api/v1/lookups/vehicle-rc", env.officerTk, map[string]any{
		"fields":  map[string]string{"rc_number": "KA01AB1234"},
		"consent": true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("lookup status %d", resp.StatusCode)
	}

	resp, body := env.do(t, http.MethodGet, "/api/v1/admin/queries?status=success", env.adminTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin queries status %d", resp.StatusCode)
	}
	logs, _ := body["queries"].([]any)
	if len(logs) != 1 {
		t.Fatalf("expected 1 query log, got %d", len(logs))
	}

	resp, body = env.do(t, http.MethodGet, "/api/v1/admin/transactions?officer_id="+itoa(env.officer.ID), env.adminTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin transactions status %d", resp.StatusCode)
	}
	txns, _ := body["transactions"].([]any)
	if len(txns) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txns))
	}

	resp, body = env.do(t, http.MethodGet, "/api/v1/admin/summary?officer_id="+itoa(env.officer.ID), env.adminTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin summary status %d", resp.StatusCode)
	}
	summary, _ := body["summary"].(map[string]any)
	if summary["credits_deducted"] != float64(2) || summary["queries_run"] != float64(1) {
		t.Fatalf("unexpected summary %v", summary)
	}
}

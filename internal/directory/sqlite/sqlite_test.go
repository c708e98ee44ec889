package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/veriport/veriport/internal/directory"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "directory.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createPlan(t *testing.T, s *Store, name string, credits int64) *directory.RatePlan {
	t.Helper()
	plan, err := s.CreatePlan(context.Background(), directory.RatePlan{
		Name:           name,
		DefaultCredits: credits,
		TopupAllowed:   true,
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	return plan
}

func createOfficer(t *testing.T, s *Store, email string, planID *int64, credits int64) *directory.Officer {
	t.Helper()
	o, err := s.CreateOfficer(context.Background(), directory.CreateOfficerParams{
		Name:    "Test Officer",
		Email:   email,
		PlanID:  planID,
		Credits: credits,
	})
	if err != nil {
		t.Fatalf("create officer: %v", err)
	}
	return o
}

func TestEnsureRootAdminIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.EnsureRootAdmin(ctx, "root@example.com", "hash1")
	if err != nil {
		t.Fatalf("ensure root admin: %v", err)
	}
	if first.Role != directory.RoleRootAdmin {
		t.Fatalf("unexpected role %q", first.Role)
	}

	second, err := s.EnsureRootAdmin(ctx, "changed@example.com", "")
	if err != nil {
		t.Fatalf("ensure root admin again: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same account, got %d and %d", first.ID, second.ID)
	}
	if second.Email != "changed@example.com" {
		t.Fatalf("email not updated: %q", second.Email)
	}

	officers, err := s.ListOfficers(ctx)
	if err != nil {
		t.Fatalf("list officers: %v", err)
	}
	if len(officers) != 1 {
		t.Fatalf("expected a single account, got %d", len(officers))
	}
}

func TestDebitCreditsInsufficient(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	o := createOfficer(t, s, "officer@example.com", nil, 3)

	if err := s.DebitCredits(ctx, o.ID, 5); !errors.Is(err, directory.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	got, err := s.GetOfficer(ctx, o.ID)
	if err != nil {
		t.Fatalf("get officer: %v", err)
	}
	if got.CreditsRemaining != 3 {
		t.Fatalf("balance changed on failed debit: %d", got.CreditsRemaining)
	}
}

func TestDebitCreditsSuspendedOfficer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	o := createOfficer(t, s, "officer@example.com", nil, 10)

	if err := s.SetOfficerStatus(ctx, o.ID, directory.StatusSuspended); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if err := s.DebitCredits(ctx, o.ID, 1); !errors.Is(err, directory.ErrInsufficientCredits) {
		t.Fatalf("expected refusal for suspended officer, got %v", err)
	}
}

func TestDebitCreditsConcurrentNoOverdraft(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	o := createOfficer(t, s, "officer@example.com", nil, 5)

	const workers = 20
	var wg sync.WaitGroup
	successes := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.DebitCredits(ctx, o.ID, 1); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	var n int
	for range successes {
		n++
	}
	if n != 5 {
		t.Fatalf("expected exactly 5 successful debits, got %d", n)
	}
	got, err := s.GetOfficer(ctx, o.ID)
	if err != nil {
		t.Fatalf("get officer: %v", err)
	}
	if got.CreditsRemaining != 0 {
		t.Fatalf("expected balance 0, got %d", got.CreditsRemaining)
	}
}

func TestCreditCreditsCeiling(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	o := createOfficer(t, s, "officer@example.com", nil, 10)

	if err := s.DebitCredits(ctx, o.ID, 4); err != nil {
		t.Fatalf("debit: %v", err)
	}
	// Refund-style credit cannot push the balance past the ceiling.
	if err := s.CreditCredits(ctx, o.ID, 100, false); err != nil {
		t.Fatalf("credit: %v", err)
	}
	got, _ := s.GetOfficer(ctx, o.ID)
	if got.CreditsRemaining != 10 || got.TotalCredits != 10 {
		t.Fatalf("unexpected balances %d/%d", got.CreditsRemaining, got.TotalCredits)
	}

	// Top-up raises the ceiling alongside the balance.
	if err := s.CreditCredits(ctx, o.ID, 5, true); err != nil {
		t.Fatalf("topup: %v", err)
	}
	got, _ = s.GetOfficer(ctx, o.ID)
	if got.CreditsRemaining != 15 || got.TotalCredits != 15 {
		t.Fatalf("unexpected balances after topup %d/%d", got.CreditsRemaining, got.TotalCredits)
	}
}

func TestEnabledCapabilityResolution(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	plan := createPlan(t, s, "standard", 100)

	vehicle, err := s.CreateCapability(ctx, directory.Capability{
		Key:         "vehicle-rc",
		Name:        "Vehicle RC",
		Category:    "vehicle",
		Adapter:     "signzy",
		DefaultCost: 2,
	})
	if err != nil {
		t.Fatalf("create capability: %v", err)
	}
	phone, err := s.CreateCapability(ctx, directory.Capability{
		Key:         "phone-prefill",
		Name:        "Phone Prefill",
		Category:    "phone",
		Adapter:     "deepvue",
		DefaultCost: 3,
	})
	if err != nil {
		t.Fatalf("create capability: %v", err)
	}

	// vehicle enabled with an override cost, phone enabled at default cost.
	if err := s.SetPlanCapability(ctx, directory.PlanCapability{PlanID: plan.ID, CapabilityID: vehicle.ID, Enabled: true, CreditCost: 5}); err != nil {
		t.Fatalf("set plan capability: %v", err)
	}
	if err := s.SetPlanCapability(ctx, directory.PlanCapability{PlanID: plan.ID, CapabilityID: phone.ID, Enabled: true}); err != nil {
		t.Fatalf("set plan capability: %v", err)
	}

	ec, err := s.GetEnabledCapability(ctx, plan.ID, "vehicle-rc")
	if err != nil {
		t.Fatalf("get enabled capability: %v", err)
	}
	if ec.CreditCost != 5 {
		t.Fatalf("expected plan override cost 5, got %d", ec.CreditCost)
	}
	ec, err = s.GetEnabledCapability(ctx, plan.ID, "phone-prefill")
	if err != nil {
		t.Fatalf("get enabled capability: %v", err)
	}
	if ec.CreditCost != 3 {
		t.Fatalf("expected default cost 3, got %d", ec.CreditCost)
	}

	// Disabling the row hides the capability from the plan.
	if err := s.SetPlanCapability(ctx, directory.PlanCapability{PlanID: plan.ID, CapabilityID: vehicle.ID, Enabled: false, CreditCost: 5}); err != nil {
		t.Fatalf("disable plan capability: %v", err)
	}
	if _, err := s.GetEnabledCapability(ctx, plan.ID, "vehicle-rc"); !errors.Is(err, directory.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for disabled capability, got %v", err)
	}

	list, err := s.ListEnabledCapabilities(ctx, plan.ID)
	if err != nil {
		t.Fatalf("list enabled: %v", err)
	}
	if len(list) != 1 || list[0].Key != "phone-prefill" {
		t.Fatalf("unexpected enabled list %v", list)
	}
}

func TestApproveRegistration(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	plan := createPlan(t, s, "standard", 50)

	reg, err := s.CreateRegistration(ctx, directory.Registration{
		Name:   "New Officer",
		Email:  "new@example.com",
		Mobile: "9999900000",
	})
	if err != nil {
		t.Fatalf("create registration: %v", err)
	}
	if reg.Status != directory.RegistrationPending {
		t.Fatalf("expected pending, got %q", reg.Status)
	}
	if reg.Reference == "" {
		t.Fatal("expected a reference to be assigned")
	}

	officer, err := s.ApproveRegistration(ctx, reg.ID, plan.ID, "hash", "root@example.com")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if officer.CreditsRemaining != 50 || officer.TotalCredits != 50 {
		t.Fatalf("default credits not applied: %d/%d", officer.CreditsRemaining, officer.TotalCredits)
	}
	if officer.PlanID == nil || *officer.PlanID != plan.ID {
		t.Fatalf("plan not assigned: %v", officer.PlanID)
	}

	got, err := s.GetRegistration(ctx, reg.ID)
	if err != nil {
		t.Fatalf("get registration: %v", err)
	}
	if got.Status != directory.RegistrationApproved {
		t.Fatalf("expected approved, got %q", got.Status)
	}

	// Approving twice must fail: the registration is no longer pending.
	if _, err := s.ApproveRegistration(ctx, reg.ID, plan.ID, "hash", "root@example.com"); err == nil {
		t.Fatal("expected error approving a non-pending registration")
	}
}

func TestApproveRegistrationDuplicateEmailStaysPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	plan := createPlan(t, s, "standard", 50)
	createOfficer(t, s, "taken@example.com", &plan.ID, 10)

	reg, err := s.CreateRegistration(ctx, directory.Registration{
		Name:  "Applicant",
		Email: "taken@example.com",
	})
	if err != nil {
		t.Fatalf("create registration: %v", err)
	}

	if _, err := s.ApproveRegistration(ctx, reg.ID, plan.ID, "hash", "root@example.com"); err == nil {
		t.Fatal("expected duplicate email to fail approval")
	}

	got, err := s.GetRegistration(ctx, reg.ID)
	if err != nil {
		t.Fatalf("get registration: %v", err)
	}
	if got.Status != directory.RegistrationPending {
		t.Fatalf("registration should stay pending, got %q", got.Status)
	}
	officers, _ := s.ListOfficers(ctx)
	if len(officers) != 1 {
		t.Fatalf("no officer should have been created, got %d", len(officers))
	}
}

func TestRejectRegistration(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	reg, err := s.CreateRegistration(ctx, directory.Registration{Name: "A", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("create registration: %v", err)
	}
	if err := s.RejectRegistration(ctx, reg.ID, "incomplete documents", "root@example.com"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	got, _ := s.GetRegistration(ctx, reg.ID)
	if got.Status != directory.RegistrationRejected || got.Reason != "incomplete documents" {
		t.Fatalf("unexpected registration %+v", got)
	}
	// Terminal state, rejecting again fails.
	if err := s.RejectRegistration(ctx, reg.ID, "again", "root@example.com"); err == nil {
		t.Fatal("expected error rejecting a non-pending registration")
	}
}

func TestOfficerUpdateAndPassword(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	o := createOfficer(t, s, "officer@example.com", nil, 0)

	name := "Renamed"
	mobile := "8888800000"
	updated, err := s.UpdateOfficer(ctx, o.ID, directory.OfficerUpdate{Name: &name, Mobile: &mobile})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Renamed" || updated.Mobile != "8888800000" {
		t.Fatalf("update not applied: %+v", updated)
	}

	if err := s.SetOfficerPassword(ctx, o.ID, "new-hash"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	hash, err := s.PasswordHash(ctx, o.ID)
	if err != nil {
		t.Fatalf("password hash: %v", err)
	}
	if hash != "new-hash" {
		t.Fatalf("unexpected hash %q", hash)
	}

	if _, err := s.GetOfficer(ctx, 9999); !errors.Is(err, directory.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

package lookup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/veriport/veriport/internal/adapter"
	"github.com/veriport/veriport/internal/directory"
	"github.com/veriport/veriport/internal/entitlement"
	"github.com/veriport/veriport/internal/ledger"
)

type stubResolver struct {
	grant *entitlement.Grant
	err   error
}

func (s *stubResolver) Resolve(ctx context.Context, officerID int64, capabilityKey string) (*entitlement.Grant, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.grant, nil
}

type memCredits struct {
	mu        sync.Mutex
	balance   int64
	debitErr  error
	creditErr error
	credited  int64
}

func (m *memCredits) DebitCredits(ctx context.Context, officerID, amount int64) error {
	if m.debitErr != nil {
		return m.debitErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balance < amount {
		return directory.ErrInsufficientCredits
	}
	m.balance -= amount
	return nil
}

func (m *memCredits) CreditCredits(ctx context.Context, officerID, amount int64, raiseCeiling bool) error {
	if m.creditErr != nil {
		return m.creditErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balance += amount
	m.credited += amount
	return nil
}

type memLedger struct {
	mu       sync.Mutex
	txns     []ledger.Transaction
	queries  []ledger.QueryLog
	txnErr   error
	queryErr error
}

func (m *memLedger) RecordTransaction(ctx context.Context, txn ledger.Transaction) error {
	if m.txnErr != nil {
		return m.txnErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txns = append(m.txns, txn)
	return nil
}

func (m *memLedger) RecordQuery(ctx context.Context, q ledger.QueryLog) error {
	if m.queryErr != nil && q.Status == ledger.QuerySuccess {
		return m.queryErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)
	return nil
}

func (m *memLedger) ListTransactions(ctx context.Context, officerID int64, limit int) ([]ledger.Transaction, error) {
	return nil, nil
}

func (m *memLedger) ListQueries(ctx context.Context, filter ledger.QueryFilter) ([]ledger.QueryLog, error) {
	return nil, nil
}

func (m *memLedger) Summary(ctx context.Context, officerID int64) (ledger.Summary, error) {
	return ledger.Summary{}, nil
}

func (m *memLedger) Close() error { return nil }

func (m *memLedger) lastQuery(t *testing.T) ledger.QueryLog {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queries) == 0 {
		t.Fatal("no query log rows written")
	}
	return m.queries[len(m.queries)-1]
}

type stubAdapter struct {
	mu     sync.Mutex
	calls  int
	result *adapter.Result
	err    error
}

func (a *stubAdapter) Name() string { return "stub" }

func (a *stubAdapter) Lookup(ctx context.Context, credential string, req adapter.Request) (*adapter.Result, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	return a.result, nil
}

func (a *stubAdapter) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type stubAdapters struct{ adapter adapter.Adapter }

func (s stubAdapters) ForName(name string) (adapter.Adapter, error) {
	if s.adapter == nil {
		return nil, errors.New("no adapter")
	}
	return s.adapter, nil
}

type stubLimiter struct{ allow bool }

func (l stubLimiter) AllowOfficer(ctx context.Context, officerID int64) bool { return l.allow }

func testGrant(balance, cost int64) *entitlement.Grant {
	return &entitlement.Grant{
		Officer: &directory.Officer{ID: 1, Status: directory.StatusActive, CreditsRemaining: balance},
		Capability: &directory.EnabledCapability{
			Capability: directory.Capability{Key: "vehicle-rc", Category: "vehicle", Adapter: "stub", Credential: "tok"},
			CreditCost: cost,
		},
		Cost:        cost,
		Credential:  "tok",
		AdapterName: "stub",
	}
}

func newTestService(grant *entitlement.Grant, credits *memCredits, led *memLedger, stub *stubAdapter) *Service {
	return NewService(Params{
		Resolver: &stubResolver{grant: grant},
		Credits:  credits,
		Ledger:   led,
		Adapters: stubAdapters{adapter: stub},
		Limiter:  stubLimiter{allow: true},
	})
}

func TestInvokeSuccessChargesAndLogs(t *testing.T) {
	credits := &memCredits{balance: 10}
	led := &memLedger{}
	stub := &stubAdapter{result: &adapter.Result{Summary: "A. Kumar", Payload: []byte(`{"result":{}}`)}}
	svc := newTestService(testGrant(10, 2), credits, led, stub)

	out, err := svc.Invoke(context.Background(), Request{
		OfficerID:     1,
		CapabilityKey: "vehicle-rc",
		Fields:        map[string]string{"registration_number": "KA01AB1234"},
		Consent:       true,
	})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if out.CreditsUsed != 2 || out.Summary != "A. Kumar" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if out.Reference == "" {
		t.Fatal("expected a reference")
	}
	if credits.balance != 8 {
		t.Fatalf("expected balance 8, got %d", credits.balance)
	}
	if len(led.txns) != 1 || led.txns[0].Action != ledger.ActionDeduction || led.txns[0].Credits != -2 {
		t.Fatalf("unexpected transactions %+v", led.txns)
	}
	q := led.lastQuery(t)
	if q.Status != ledger.QuerySuccess || q.CreditsUsed != 2 || q.Reference != out.Reference {
		t.Fatalf("unexpected query log %+v", q)
	}
}

func TestInvokeNotEntitledWritesRejectedLog(t *testing.T) {
	credits := &memCredits{balance: 10}
	led := &memLedger{}
	stub := &stubAdapter{result: &adapter.Result{Summary: "x"}}
	svc := NewService(Params{
		Resolver: &stubResolver{err: &entitlement.NotEntitledError{CapabilityKey: "vehicle-rc", Reason: entitlement.ReasonNotEnabled}},
		Credits:  credits,
		Ledger:   led,
		Adapters: stubAdapters{adapter: stub},
		Limiter:  stubLimiter{allow: true},
	})

	_, err := svc.Invoke(context.Background(), Request{OfficerID: 1, CapabilityKey: "vehicle-rc"})
	var notEntitled *entitlement.NotEntitledError
	if !errors.As(err, &notEntitled) {
		t.Fatalf("expected NotEntitledError, got %v", err)
	}
	if stub.callCount() != 0 {
		t.Fatal("vendor must not be called")
	}
	q := led.lastQuery(t)
	if q.Status != ledger.QueryRejected || q.CreditsUsed != 0 {
		t.Fatalf("unexpected query log %+v", q)
	}
	if credits.balance != 10 {
		t.Fatalf("balance must not change, got %d", credits.balance)
	}
}

func TestInvokeInsufficientCreditsPreflight(t *testing.T) {
	credits := &memCredits{balance: 1}
	led := &memLedger{}
	stub := &stubAdapter{result: &adapter.Result{Summary: "x"}}
	svc := newTestService(testGrant(1, 5), credits, led, stub)

	_, err := svc.Invoke(context.Background(), Request{OfficerID: 1, CapabilityKey: "vehicle-rc"})
	if !errors.Is(err, directory.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if stub.callCount() != 0 {
		t.Fatal("vendor must not be called")
	}
	q := led.lastQuery(t)
	if q.Status != ledger.QueryRejected {
		t.Fatalf("expected rejected log, got %+v", q)
	}
}

func TestInvokeRateLimited(t *testing.T) {
	credits := &memCredits{balance: 10}
	led := &memLedger{}
	stub := &stubAdapter{result: &adapter.Result{Summary: "x"}}
	svc := NewService(Params{
		Resolver: &stubResolver{grant: testGrant(10, 1)},
		Credits:  credits,
		Ledger:   led,
		Adapters: stubAdapters{adapter: stub},
		Limiter:  stubLimiter{allow: false},
	})

	_, err := svc.Invoke(context.Background(), Request{OfficerID: 1, CapabilityKey: "vehicle-rc"})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if stub.callCount() != 0 {
		t.Fatal("vendor must not be called when throttled")
	}
}

func TestInvokeVendorFailureChargesNothing(t *testing.T) {
	credits := &memCredits{balance: 10}
	led := &memLedger{}
	stub := &stubAdapter{err: &adapter.Error{Vendor: "stub", StatusCode: 502, Message: "bad gateway"}}
	svc := newTestService(testGrant(10, 2), credits, led, stub)

	_, err := svc.Invoke(context.Background(), Request{OfficerID: 1, CapabilityKey: "vehicle-rc"})
	var vErr *adapter.Error
	if !errors.As(err, &vErr) {
		t.Fatalf("expected adapter.Error, got %v", err)
	}
	if credits.balance != 10 {
		t.Fatalf("vendor failure must not charge, balance %d", credits.balance)
	}
	if len(led.txns) != 0 {
		t.Fatalf("no transaction expected, got %+v", led.txns)
	}
	q := led.lastQuery(t)
	if q.Status != ledger.QueryFailed || q.CreditsUsed != 0 {
		t.Fatalf("unexpected query log %+v", q)
	}
}

// slowAdapter blocks until the delay elapses or the call context expires.
type slowAdapter struct {
	delay time.Duration
}

func (a *slowAdapter) Name() string { return "slow" }

func (a *slowAdapter) Lookup(ctx context.Context, credential string, req adapter.Request) (*adapter.Result, error) {
	select {
	case <-time.After(a.delay):
		return &adapter.Result{Summary: "late"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestInvokeVendorTimeout(t *testing.T) {
	credits := &memCredits{balance: 10}
	led := &memLedger{}
	svc := NewService(Params{
		Resolver:      &stubResolver{grant: testGrant(10, 2)},
		Credits:       credits,
		Ledger:        led,
		Adapters:      stubAdapters{adapter: &slowAdapter{delay: 5 * time.Second}},
		Limiter:       stubLimiter{allow: true},
		VendorTimeout: 50 * time.Millisecond,
	})

	_, err := svc.Invoke(context.Background(), Request{OfficerID: 1, CapabilityKey: "vehicle-rc"})
	var vErr *adapter.Error
	if !errors.As(err, &vErr) {
		t.Fatalf("expected adapter.Error, got %v", err)
	}
	if credits.balance != 10 {
		t.Fatalf("timed-out lookup must not charge, balance %d", credits.balance)
	}
	if len(led.txns) != 0 {
		t.Fatalf("no transaction expected, got %+v", led.txns)
	}
	q := led.lastQuery(t)
	if q.Status != ledger.QueryFailed || q.CreditsUsed != 0 {
		t.Fatalf("unexpected query log %+v", q)
	}
}

func TestInvokeDebitRaceFailsAttempt(t *testing.T) {
	// Pre-flight sees enough credits, but the balance shrinks before the
	// conditional debit runs.
	credits := &memCredits{balance: 1}
	led := &memLedger{}
	stub := &stubAdapter{result: &adapter.Result{Summary: "x"}}
	svc := newTestService(testGrant(10, 2), credits, led, stub)

	_, err := svc.Invoke(context.Background(), Request{OfficerID: 1, CapabilityKey: "vehicle-rc"})
	if !errors.Is(err, directory.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if stub.callCount() != 1 {
		t.Fatal("vendor should have been called before the debit race")
	}
	q := led.lastQuery(t)
	if q.Status != ledger.QueryFailed || q.CreditsUsed != 0 {
		t.Fatalf("unexpected query log %+v", q)
	}
	if credits.balance != 1 {
		t.Fatalf("balance must be untouched, got %d", credits.balance)
	}
}

func TestInvokeLedgerFailureCompensates(t *testing.T) {
	credits := &memCredits{balance: 10}
	led := &memLedger{txnErr: errors.New("disk full")}
	stub := &stubAdapter{result: &adapter.Result{Summary: "x"}}
	svc := newTestService(testGrant(10, 3), credits, led, stub)

	_, err := svc.Invoke(context.Background(), Request{OfficerID: 1, CapabilityKey: "vehicle-rc"})
	var ledgerErr *LedgerWriteError
	if !errors.As(err, &ledgerErr) {
		t.Fatalf("expected LedgerWriteError, got %v", err)
	}
	if credits.balance != 10 {
		t.Fatalf("debit must be compensated, balance %d", credits.balance)
	}
	if credits.credited != 3 {
		t.Fatalf("expected compensation of 3, got %d", credits.credited)
	}
}

func TestInvokeQueryLogFailureRefunds(t *testing.T) {
	credits := &memCredits{balance: 10}
	led := &memLedger{queryErr: errors.New("disk full")}
	stub := &stubAdapter{result: &adapter.Result{Summary: "x"}}
	svc := newTestService(testGrant(10, 3), credits, led, stub)

	_, err := svc.Invoke(context.Background(), Request{OfficerID: 1, CapabilityKey: "vehicle-rc"})
	var ledgerErr *LedgerWriteError
	if !errors.As(err, &ledgerErr) {
		t.Fatalf("expected LedgerWriteError, got %v", err)
	}
	if credits.balance != 10 {
		t.Fatalf("debit must be compensated, balance %d", credits.balance)
	}
	// Deduction plus reversal row.
	if len(led.txns) != 2 || led.txns[1].Action != ledger.ActionRefund {
		t.Fatalf("expected refund transaction, got %+v", led.txns)
	}
}

func TestInvokeConcurrentNoOverdraft(t *testing.T) {
	credits := &memCredits{balance: 5}
	led := &memLedger{}
	stub := &stubAdapter{result: &adapter.Result{Summary: "x"}}
	svc := newTestService(testGrant(100, 1), credits, led, stub)

	const workers = 30
	var wg sync.WaitGroup
	var mu sync.Mutex
	var successes int
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Invoke(context.Background(), Request{OfficerID: 1, CapabilityKey: "vehicle-rc"}); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 5 {
		t.Fatalf("expected exactly 5 successes, got %d", successes)
	}
	if credits.balance != 0 {
		t.Fatalf("expected balance 0, got %d", credits.balance)
	}
	led.mu.Lock()
	var successLogs int
	for _, q := range led.queries {
		if q.Status == ledger.QuerySuccess {
			successLogs++
		}
	}
	led.mu.Unlock()
	if successLogs != 5 {
		t.Fatalf("expected 5 success logs, got %d", successLogs)
	}
}

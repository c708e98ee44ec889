package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/veriport/veriport/internal/adapter"
	"github.com/veriport/veriport/internal/directory"
	"github.com/veriport/veriport/internal/entitlement"
	"github.com/veriport/veriport/internal/ledger"
	"github.com/veriport/veriport/internal/metrics"
)

// Resolver decides whether an officer may invoke a capability.
type Resolver interface {
	Resolve(ctx context.Context, officerID int64, capabilityKey string) (*entitlement.Grant, error)
}

// CreditStore is the balance slice of the directory the service needs.
type CreditStore interface {
	DebitCredits(ctx context.Context, officerID, amount int64) error
	CreditCredits(ctx context.Context, officerID, amount int64, raiseCeiling bool) error
}

// AdapterSource hands out vendor adapters by name.
type AdapterSource interface {
	ForName(name string) (adapter.Adapter, error)
}

// OfficerLimiter throttles lookups per officer.
type OfficerLimiter interface {
	AllowOfficer(ctx context.Context, officerID int64) bool
}

// Request is one lookup attempt from an authenticated officer.
type Request struct {
	OfficerID     int64
	CapabilityKey string
	Fields        map[string]string
	Consent       bool
}

// Outcome is the caller-facing result of a successful lookup.
type Outcome struct {
	Reference   string          `json:"reference"`
	Capability  string          `json:"capability"`
	Summary     string          `json:"summary"`
	Payload     json.RawMessage `json:"payload"`
	CreditsUsed int64           `json:"credits_used"`
}

// Params wires a Service.
type Params struct {
	Resolver      Resolver
	Credits       CreditStore
	Ledger        ledger.Store
	Adapters      AdapterSource
	Limiter       OfficerLimiter
	Metrics       *metrics.Collector
	Logger        *log.Logger
	VendorTimeout time.Duration
}

// Service runs the lookup workflow: entitlement, balance pre-flight,
// throttle, vendor call, then settlement against the ledger. Every attempt
// leaves exactly one query log row.
type Service struct {
	resolver      Resolver
	credits       CreditStore
	ledger        ledger.Store
	adapters      AdapterSource
	limiter       OfficerLimiter
	metrics       *metrics.Collector
	logger        *log.Logger
	vendorTimeout time.Duration
}

// NewService builds a Service from Params.
func NewService(p Params) *Service {
	timeout := p.VendorTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := p.Logger
	if logger == nil {
		logger = log.Default()
	}
	collector := p.Metrics
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Service{
		resolver:      p.Resolver,
		credits:       p.Credits,
		ledger:        p.Ledger,
		adapters:      p.Adapters,
		limiter:       p.Limiter,
		metrics:       collector,
		logger:        logger,
		vendorTimeout: timeout,
	}
}

// Invoke runs one lookup end to end.
func (s *Service) Invoke(ctx context.Context, req Request) (*Outcome, error) {
	reference := uuid.NewString()

	grant, err := s.resolver.Resolve(ctx, req.OfficerID, req.CapabilityKey)
	if err != nil {
		var notEntitled *entitlement.NotEntitledError
		if errors.As(err, &notEntitled) {
			s.recordRejected(ctx, reference, req, "", notEntitled.Reason)
		}
		return nil, err
	}
	category := grant.Capability.Category

	if grant.Officer.CreditsRemaining < grant.Cost {
		s.recordRejected(ctx, reference, req, category, "insufficient credits")
		return nil, directory.ErrInsufficientCredits
	}

	if s.limiter != nil && !s.limiter.AllowOfficer(ctx, req.OfficerID) {
		s.metrics.RecordRateLimitHit(officerLabel(req.OfficerID))
		s.recordRejected(ctx, reference, req, category, "rate limited")
		return nil, ErrRateLimited
	}

	client, err := s.adapters.ForName(grant.AdapterName)
	if err != nil {
		s.recordFailed(ctx, reference, req, category, err.Error())
		return nil, &adapter.Error{Vendor: grant.AdapterName, Message: "adapter unavailable"}
	}

	vendorCtx, cancel := context.WithTimeout(ctx, s.vendorTimeout)
	defer cancel()
	started := time.Now()
	result, err := client.Lookup(vendorCtx, grant.Credential, adapter.Request{
		CapabilityKey: req.CapabilityKey,
		Fields:        req.Fields,
		Consent:       req.Consent,
	})
	s.metrics.RecordVendorRequest(grant.AdapterName, time.Since(started), err)
	if err != nil {
		s.recordFailed(ctx, reference, req, category, err.Error())
		var vErr *adapter.Error
		if errors.As(err, &vErr) {
			return nil, vErr
		}
		return nil, &adapter.Error{Vendor: grant.AdapterName, Message: err.Error()}
	}

	return s.settle(ctx, reference, req, grant, category, result)
}

// settle charges the officer and appends the audit rows. The conditional
// debit is the serialization point: losing the race to a concurrent lookup
// turns a vendor success into a failed attempt with nothing charged.
func (s *Service) settle(ctx context.Context, reference string, req Request, grant *entitlement.Grant, category string, result *adapter.Result) (*Outcome, error) {
	if err := s.credits.DebitCredits(ctx, req.OfficerID, grant.Cost); err != nil {
		if errors.Is(err, directory.ErrInsufficientCredits) {
			s.recordFailed(ctx, reference, req, category, "balance changed during lookup")
			return nil, directory.ErrInsufficientCredits
		}
		s.recordFailed(ctx, reference, req, category, "debit failed: "+err.Error())
		return nil, &LedgerWriteError{Op: "debit", Err: err}
	}

	txn := ledger.Transaction{
		OfficerID: req.OfficerID,
		Action:    ledger.ActionDeduction,
		Credits:   -grant.Cost,
		Remark:    req.CapabilityKey,
	}
	if err := s.ledger.RecordTransaction(ctx, txn); err != nil {
		s.compensate(ctx, req.OfficerID, grant.Cost, "transaction append")
		s.recordFailed(ctx, reference, req, category, "ledger unavailable")
		return nil, &LedgerWriteError{Op: "transaction", Err: err}
	}

	entry := ledger.QueryLog{
		Reference:     reference,
		OfficerID:     req.OfficerID,
		CapabilityKey: req.CapabilityKey,
		Category:      category,
		Input:         flattenFields(req.Fields),
		Summary:       result.Summary,
		Payload:       result.Payload,
		CreditsUsed:   grant.Cost,
		Status:        ledger.QuerySuccess,
	}
	if err := s.ledger.RecordQuery(ctx, entry); err != nil {
		s.compensate(ctx, req.OfficerID, grant.Cost, "query log append")
		if rerr := s.ledger.RecordTransaction(ctx, ledger.Transaction{
			OfficerID: req.OfficerID,
			Action:    ledger.ActionRefund,
			Credits:   grant.Cost,
			Remark:    "reversal for " + reference,
		}); rerr != nil {
			s.logger.Printf("reconcile manually: refund row for officer %d reference %s not written: %v", req.OfficerID, reference, rerr)
		}
		return nil, &LedgerWriteError{Op: "query log", Err: err}
	}

	s.metrics.RecordLookup(req.CapabilityKey, string(ledger.QuerySuccess), grant.Cost)
	return &Outcome{
		Reference:   reference,
		Capability:  req.CapabilityKey,
		Summary:     result.Summary,
		Payload:     result.Payload,
		CreditsUsed: grant.Cost,
	}, nil
}

func (s *Service) compensate(ctx context.Context, officerID, amount int64, reason string) {
	if err := s.credits.CreditCredits(ctx, officerID, amount, false); err != nil {
		s.logger.Printf("reconcile manually: could not return %d credits to officer %d after failed %s: %v", amount, officerID, reason, err)
	}
}

func (s *Service) recordRejected(ctx context.Context, reference string, req Request, category, reason string) {
	s.metrics.RecordLookup(req.CapabilityKey, string(ledger.QueryRejected), 0)
	s.appendLog(ctx, reference, req, category, reason, ledger.QueryRejected)
}

func (s *Service) recordFailed(ctx context.Context, reference string, req Request, category, detail string) {
	s.metrics.RecordLookup(req.CapabilityKey, string(ledger.QueryFailed), 0)
	s.appendLog(ctx, reference, req, category, detail, ledger.QueryFailed)
}

func (s *Service) appendLog(ctx context.Context, reference string, req Request, category, summary string, status ledger.QueryStatus) {
	err := s.ledger.RecordQuery(ctx, ledger.QueryLog{
		Reference:     reference,
		OfficerID:     req.OfficerID,
		CapabilityKey: req.CapabilityKey,
		Category:      category,
		Input:         flattenFields(req.Fields),
		Summary:       summary,
		Status:        status,
	})
	if err != nil {
		s.logger.Printf("query log append failed for officer %d reference %s: %v", req.OfficerID, reference, err)
	}
}

func flattenFields(fields map[string]string) string {
	if len(fields) == 0 {
		return ""
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		return ""
	}
	return string(encoded)
}

func officerLabel(id int64) string {
	return strconv.FormatInt(id, 10)
}

package entitlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/veriport/veriport/internal/directory"
)

// Reasons an officer can be refused a capability.
const (
	ReasonSuspended   = "suspended"
	ReasonNoPlan      = "no_plan"
	ReasonNotEnabled  = "not_enabled"
	ReasonInactiveKey = "inactive_key"
)

// NotEntitledError reports that the officer may not invoke the capability.
type NotEntitledError struct {
	CapabilityKey string
	Reason        string
}

func (e *NotEntitledError) Error() string {
	return fmt.Sprintf("not entitled to %s: %s", e.CapabilityKey, e.Reason)
}

// ResolutionError wraps a storage failure during resolution; distinct from a
// refusal so callers do not report an outage as a permissions problem.
type ResolutionError struct {
	Err error
}

func (e *ResolutionError) Error() string { return "entitlement resolution failed: " + e.Err.Error() }
func (e *ResolutionError) Unwrap() error { return e.Err }

// Grant is a fully priced permission to invoke one capability once.
type Grant struct {
	Officer     *directory.Officer
	Capability  *directory.EnabledCapability
	Cost        int64
	Credential  string
	AdapterName string
}

// Directory is the read-only view the resolver needs.
type Directory interface {
	GetOfficer(ctx context.Context, id int64) (*directory.Officer, error)
	GetEnabledCapability(ctx context.Context, planID int64, key string) (*directory.EnabledCapability, error)
}

// Resolver decides whether an officer may invoke a capability and at what
// cost. It never mutates state.
type Resolver struct {
	dir Directory
}

// NewResolver builds a Resolver over the directory.
func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve checks officer status, plan assignment, plan enablement, and
// credential activation, and returns the priced grant.
func (r *Resolver) Resolve(ctx context.Context, officerID int64, capabilityKey string) (*Grant, error) {
	officer, err := r.dir.GetOfficer(ctx, officerID)
	if err != nil {
		return nil, &ResolutionError{Err: err}
	}
	if officer.Status != directory.StatusActive {
		return nil, &NotEntitledError{CapabilityKey: capabilityKey, Reason: ReasonSuspended}
	}
	if officer.PlanID == nil {
		return nil, &NotEntitledError{CapabilityKey: capabilityKey, Reason: ReasonNoPlan}
	}

	cap, err := r.dir.GetEnabledCapability(ctx, *officer.PlanID, capabilityKey)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, &NotEntitledError{CapabilityKey: capabilityKey, Reason: ReasonNotEnabled}
		}
		return nil, &ResolutionError{Err: err}
	}
	if cap.KeyStatus != directory.KeyActive {
		return nil, &NotEntitledError{CapabilityKey: capabilityKey, Reason: ReasonInactiveKey}
	}

	cost := cap.CreditCost
	if cost <= 0 {
		cost = cap.DefaultCost
	}
	return &Grant{
		Officer:     officer,
		Capability:  cap,
		Cost:        cost,
		Credential:  cap.Credential,
		AdapterName: cap.Adapter,
	}, nil
}

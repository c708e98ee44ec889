package directory

import (
	"context"
	"errors"
	"time"
)

// Role represents a high level capability within the portal.
type Role string

const (
	RoleRootAdmin Role = "root_admin"
	RoleAdmin     Role = "admin"
	RoleOfficer   Role = "officer"
)

// Status captures whether an officer account is active or suspended.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// Tier tags a capability as free, paid, or administratively disabled.
type Tier string

const (
	TierFree     Tier = "free"
	TierPro      Tier = "pro"
	TierDisabled Tier = "disabled"
)

// KeyStatus captures whether the vendor credential behind a capability is usable.
type KeyStatus string

const (
	KeyActive   KeyStatus = "active"
	KeyInactive KeyStatus = "inactive"
)

// RegistrationStatus models the pending -> approved/rejected state machine.
type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "pending"
	RegistrationApproved RegistrationStatus = "approved"
	RegistrationRejected RegistrationStatus = "rejected"
)

// ErrInsufficientCredits is returned by DebitCredits when the conditional
// balance update matches no row, either because the balance is too low or the
// officer is not active.
var ErrInsufficientCredits = errors.New("insufficient credits")

// ErrNotFound is returned when the referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// Officer represents an identity managed by the portal. Admin accounts share
// the table with Role admin/root_admin and no plan.
type Officer struct {
	ID               int64
	Name             string
	Email            string
	Mobile           string
	Role             Role
	Status           Status
	PlanID           *int64
	CreditsRemaining int64
	TotalCredits     int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RatePlan is a named credit bundle assignable to officers.
type RatePlan struct {
	ID              int64
	Name            string
	UserType        string
	MonthlyFee      float64
	DefaultCredits  int64
	RenewalRequired bool
	TopupAllowed    bool
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Capability is a routing table entry for one external lookup: a stable key,
// the vendor adapter that serves it, and the credential the adapter needs.
type Capability struct {
	ID          int64
	Key         string
	Name        string
	Category    string
	Tier        Tier
	Adapter     string
	Credential  string
	KeyStatus   KeyStatus
	DefaultCost int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PlanCapability is the (plan, capability) join row: enablement, the credit
// cost charged to officers on that plan, and billing price metadata.
type PlanCapability struct {
	PlanID       int64
	CapabilityID int64
	Enabled      bool
	CreditCost   int64
	BuyPrice     float64
	SellPrice    float64
}

// EnabledCapability is the resolver-facing join of a capability with its
// plan-specific cost.
type EnabledCapability struct {
	Capability
	CreditCost int64
}

// Registration is a pending officer application awaiting admin review.
type Registration struct {
	ID         int64
	Reference  string
	Name       string
	Email      string
	Mobile     string
	Remarks    string
	Status     RegistrationStatus
	Reason     string
	ReviewedBy string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CreateOfficerParams carries the fields needed to create an officer account.
type CreateOfficerParams struct {
	Name         string
	Email        string
	Mobile       string
	Role         Role
	PlanID       *int64
	Credits      int64
	PasswordHash string
}

// OfficerUpdate contains fields that can be updated on an officer.
type OfficerUpdate struct {
	Name   *string
	Mobile *string
	PlanID *int64
}

// PlanUpdate contains fields that can be updated on a rate plan.
type PlanUpdate struct {
	Name            *string
	UserType        *string
	MonthlyFee      *float64
	DefaultCredits  *int64
	RenewalRequired *bool
	TopupAllowed    *bool
	Status          *Status
}

// CapabilityUpdate contains fields that can be updated on a capability.
type CapabilityUpdate struct {
	Name        *string
	Category    *string
	Tier        *Tier
	Adapter     *string
	Credential  *string
	DefaultCost *int64
}

// Store persists portal directory data across SQLite/Postgres backends.
type Store interface {
	// Officers
	EnsureRootAdmin(ctx context.Context, email, passwordHash string) (*Officer, error)
	CreateOfficer(ctx context.Context, params CreateOfficerParams) (*Officer, error)
	GetOfficer(ctx context.Context, id int64) (*Officer, error)
	FindOfficerByEmail(ctx context.Context, email string) (*Officer, error)
	ListOfficers(ctx context.Context) ([]Officer, error)
	UpdateOfficer(ctx context.Context, id int64, updates OfficerUpdate) (*Officer, error)
	SetOfficerStatus(ctx context.Context, id int64, status Status) error
	SetOfficerPassword(ctx context.Context, id int64, passwordHash string) error
	PasswordHash(ctx context.Context, id int64) (string, error)
	DeleteOfficer(ctx context.Context, id int64) error

	// Credits. DebitCredits is the only way a balance decreases: one
	// conditional UPDATE guarded on status and sufficient balance, so
	// concurrent lookups can never overdraw. CreditCredits mirrors it for
	// top-ups, refunds, renewals, and debit compensation.
	DebitCredits(ctx context.Context, officerID, amount int64) error
	CreditCredits(ctx context.Context, officerID, amount int64, raiseCeiling bool) error

	// Rate plans
	CreatePlan(ctx context.Context, plan RatePlan) (*RatePlan, error)
	GetPlan(ctx context.Context, id int64) (*RatePlan, error)
	ListPlans(ctx context.Context) ([]RatePlan, error)
	UpdatePlan(ctx context.Context, id int64, updates PlanUpdate) (*RatePlan, error)
	DeletePlan(ctx context.Context, id int64) error

	// Capabilities
	CreateCapability(ctx context.Context, cap Capability) (*Capability, error)
	GetCapability(ctx context.Context, id int64) (*Capability, error)
	GetCapabilityByKey(ctx context.Context, key string) (*Capability, error)
	ListCapabilities(ctx context.Context) ([]Capability, error)
	UpdateCapability(ctx context.Context, id int64, updates CapabilityUpdate) (*Capability, error)
	SetCapabilityKeyStatus(ctx context.Context, id int64, status KeyStatus) error
	DeleteCapability(ctx context.Context, id int64) error

	// Plan capability pricing
	SetPlanCapability(ctx context.Context, pc PlanCapability) error
	ListPlanCapabilities(ctx context.Context, planID int64) ([]PlanCapability, error)
	ListEnabledCapabilities(ctx context.Context, planID int64) ([]EnabledCapability, error)
	GetEnabledCapability(ctx context.Context, planID int64, key string) (*EnabledCapability, error)

	// Registrations
	CreateRegistration(ctx context.Context, reg Registration) (*Registration, error)
	GetRegistration(ctx context.Context, id int64) (*Registration, error)
	ListRegistrations(ctx context.Context, status RegistrationStatus) ([]Registration, error)
	// ApproveRegistration creates the officer and flips the registration to
	// approved in one transaction; a duplicate email/mobile aborts both and
	// the registration stays pending.
	ApproveRegistration(ctx context.Context, id, planID int64, passwordHash, reviewedBy string) (*Officer, error)
	RejectRegistration(ctx context.Context, id int64, reason, reviewedBy string) error

	Close() error
}

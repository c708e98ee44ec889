package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	// register pgx stdlib driver
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/veriport/veriport/internal/directory"
)

// Store implements directory.Store backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

// New connects to PostgreSQL using the supplied DSN and prepares the schema.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS rate_plans (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	user_type TEXT NOT NULL DEFAULT '',
	monthly_fee DOUBLE PRECISION NOT NULL DEFAULT 0,
	default_credits BIGINT NOT NULL DEFAULT 0,
	renewal_required BOOLEAN NOT NULL DEFAULT FALSE,
	topup_allowed BOOLEAN NOT NULL DEFAULT TRUE,
	status TEXT NOT NULL DEFAULT 'active',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS officers (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	mobile TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'officer',
	status TEXT NOT NULL DEFAULT 'active',
	plan_id BIGINT REFERENCES rate_plans(id) ON DELETE SET NULL,
	credits_remaining BIGINT NOT NULL DEFAULT 0,
	total_credits BIGINT NOT NULL DEFAULT 0,
	password_hash TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_officers_mobile ON officers(mobile) WHERE mobile <> '';

CREATE TABLE IF NOT EXISTS capabilities (
	id BIGSERIAL PRIMARY KEY,
	key TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	tier TEXT NOT NULL DEFAULT 'pro',
	adapter TEXT NOT NULL,
	credential TEXT NOT NULL DEFAULT '',
	key_status TEXT NOT NULL DEFAULT 'active',
	default_cost BIGINT NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS plan_capabilities (
	plan_id BIGINT NOT NULL REFERENCES rate_plans(id) ON DELETE CASCADE,
	capability_id BIGINT NOT NULL REFERENCES capabilities(id) ON DELETE CASCADE,
	enabled BOOLEAN NOT NULL DEFAULT TRUE,
	credit_cost BIGINT NOT NULL DEFAULT 1,
	buy_price DOUBLE PRECISION NOT NULL DEFAULT 0,
	sell_price DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (plan_id, capability_id)
);

CREATE TABLE IF NOT EXISTS registrations (
	id BIGSERIAL PRIMARY KEY,
	reference TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	mobile TEXT NOT NULL DEFAULT '',
	remarks TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	reason TEXT NOT NULL DEFAULT '',
	reviewed_by TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_registrations_status ON registrations(status);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases underlying resources.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const officerColumns = `id, name, email, mobile, role, status, plan_id, credits_remaining, total_credits, created_at, updated_at`

func scanOfficer(row interface{ Scan(...any) error }) (*directory.Officer, error) {
	var o directory.Officer
	var planID sql.NullInt64
	if err := row.Scan(&o.ID, &o.Name, &o.Email, &o.Mobile, &o.Role, &o.Status, &planID, &o.CreditsRemaining, &o.TotalCredits, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if planID.Valid {
		o.PlanID = &planID.Int64
	}
	return &o, nil
}

// EnsureRootAdmin guarantees a root admin account exists with the provided email.
func (s *Store) EnsureRootAdmin(ctx context.Context, email, passwordHash string) (*directory.Officer, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		email = "admin@local"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()

	row := tx.QueryRowContext(ctx, `SELECT `+officerColumns+` FROM officers WHERE role = $1 LIMIT 1`, directory.RoleRootAdmin)
	existing, scanErr := scanOfficer(row)
	if scanErr == nil {
		if !strings.EqualFold(existing.Email, email) {
			if _, err = tx.ExecContext(ctx, `UPDATE officers SET email = $1, updated_at = NOW() WHERE id = $2`, email, existing.ID); err != nil {
				return nil, err
			}
			existing.Email = email
		}
		if passwordHash != "" {
			if _, err = tx.ExecContext(ctx, `UPDATE officers SET password_hash = $1, updated_at = NOW() WHERE id = $2`, passwordHash, existing.ID); err != nil {
				return nil, err
			}
		}
		return existing, nil
	}
	if !errors.Is(scanErr, sql.ErrNoRows) {
		err = scanErr
		return nil, scanErr
	}

	row = tx.QueryRowContext(ctx, `
INSERT INTO officers(name, email, role, status, password_hash)
VALUES($1, $2, $3, $4, $5)
RETURNING `+officerColumns,
		"Administrator", email, directory.RoleRootAdmin, directory.StatusActive, nullIfEmpty(passwordHash))
	created, createErr := scanOfficer(row)
	if createErr != nil {
		err = createErr
		return nil, createErr
	}
	return created, nil
}

// CreateOfficer inserts a new officer account.
func (s *Store) CreateOfficer(ctx context.Context, params directory.CreateOfficerParams) (*directory.Officer, error) {
	email := strings.TrimSpace(strings.ToLower(params.Email))
	if email == "" {
		return nil, errors.New("email required")
	}
	role := params.Role
	if role == "" {
		role = directory.RoleOfficer
	}
	var planID any
	if params.PlanID != nil {
		planID = *params.PlanID
	}
	row := s.db.QueryRowContext(ctx, `
INSERT INTO officers(name, email, mobile, role, status, plan_id, credits_remaining, total_credits, password_hash)
VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING `+officerColumns,
		strings.TrimSpace(params.Name), email, strings.TrimSpace(params.Mobile), role,
		directory.StatusActive, planID, params.Credits, params.Credits, nullIfEmpty(params.PasswordHash))
	return scanOfficer(row)
}

// GetOfficer returns the officer with the given id.
func (s *Store) GetOfficer(ctx context.Context, id int64) (*directory.Officer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+officerColumns+` FROM officers WHERE id = $1`, id)
	o, err := scanOfficer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, directory.ErrNotFound
	}
	return o, err
}

// FindOfficerByEmail returns the officer matching the email, if present.
func (s *Store) FindOfficerByEmail(ctx context.Context, email string) (*directory.Officer, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	row := s.db.QueryRowContext(ctx, `SELECT `+officerColumns+` FROM officers WHERE email = $1 LIMIT 1`, email)
	o, err := scanOfficer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

// ListOfficers returns all officer accounts ordered by creation.
func (s *Store) ListOfficers(ctx context.Context) ([]directory.Officer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+officerColumns+` FROM officers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []directory.Officer
	for rows.Next() {
		o, err := scanOfficer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// UpdateOfficer applies the non-nil fields of updates.
func (s *Store) UpdateOfficer(ctx context.Context, id int64, updates directory.OfficerUpdate) (*directory.Officer, error) {
	if updates.Name != nil {
		if _, err := s.db.ExecContext(ctx, `UPDATE officers SET name = $1, updated_at = NOW() WHERE id = $2`, strings.TrimSpace(*updates.Name), id); err != nil {
			return nil, err
		}
	}
	if updates.Mobile != nil {
		if _, err := s.db.ExecContext(ctx, `UPDATE officers SET mobile = $1, updated_at = NOW() WHERE id = $2`, strings.TrimSpace(*updates.Mobile), id); err != nil {
			return nil, err
		}
	}
	if updates.PlanID != nil {
		var planID any
		if *updates.PlanID != 0 {
			planID = *updates.PlanID
		}
		if _, err := s.db.ExecContext(ctx, `UPDATE officers SET plan_id = $1, updated_at = NOW() WHERE id = $2`, planID, id); err != nil {
			return nil, err
		}
	}
	return s.GetOfficer(ctx, id)
}

// SetOfficerStatus activates or suspends the account.
func (s *Store) SetOfficerStatus(ctx context.Context, id int64, status directory.Status) error {
	res, err := s.db.ExecContext(ctx, `UPDATE officers SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetOfficerPassword replaces the stored password hash.
func (s *Store) SetOfficerPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE officers SET password_hash = $1, updated_at = NOW() WHERE id = $2`, passwordHash, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// PasswordHash returns the stored bcrypt hash for login checks.
func (s *Store) PasswordHash(ctx context.Context, id int64) (string, error) {
	var hash sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT password_hash FROM officers WHERE id = $1`, id).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", directory.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return hash.String, nil
}

// DeleteOfficer removes the account.
func (s *Store) DeleteOfficer(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM officers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DebitCredits decrements the balance with a single conditional update.
func (s *Store) DebitCredits(ctx context.Context, officerID, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE officers
SET credits_remaining = credits_remaining - $1, updated_at = NOW()
WHERE id = $2 AND status = $3 AND credits_remaining >= $1`,
		amount, officerID, directory.StatusActive)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return directory.ErrInsufficientCredits
	}
	return nil
}

// CreditCredits increments the balance, optionally raising the ceiling.
func (s *Store) CreditCredits(ctx context.Context, officerID, amount int64, raiseCeiling bool) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	var res sql.Result
	var err error
	if raiseCeiling {
		res, err = s.db.ExecContext(ctx, `
UPDATE officers
SET credits_remaining = credits_remaining + $1, total_credits = total_credits + $1, updated_at = NOW()
WHERE id = $2`, amount, officerID)
	} else {
		res, err = s.db.ExecContext(ctx, `
UPDATE officers
SET credits_remaining = LEAST(credits_remaining + $1, total_credits), updated_at = NOW()
WHERE id = $2`, amount, officerID)
	}
	if err != nil {
		return err
	}
	return requireRow(res)
}

const planColumns = `id, name, user_type, monthly_fee, default_credits, renewal_required, topup_allowed, status, created_at, updated_at`

func scanPlan(row interface{ Scan(...any) error }) (*directory.RatePlan, error) {
	var p directory.RatePlan
	if err := row.Scan(&p.ID, &p.Name, &p.UserType, &p.MonthlyFee, &p.DefaultCredits, &p.RenewalRequired, &p.TopupAllowed, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePlan inserts a new rate plan.
func (s *Store) CreatePlan(ctx context.Context, plan directory.RatePlan) (*directory.RatePlan, error) {
	if strings.TrimSpace(plan.Name) == "" {
		return nil, errors.New("plan name required")
	}
	status := plan.Status
	if status == "" {
		status = directory.StatusActive
	}
	row := s.db.QueryRowContext(ctx, `
INSERT INTO rate_plans(name, user_type, monthly_fee, default_credits, renewal_required, topup_allowed, status)
VALUES($1, $2, $3, $4, $5, $6, $7)
RETURNING `+planColumns,
		strings.TrimSpace(plan.Name), plan.UserType, plan.MonthlyFee, plan.DefaultCredits,
		plan.RenewalRequired, plan.TopupAllowed, status)
	return scanPlan(row)
}

// GetPlan returns the plan with the given id.
func (s *Store) GetPlan(ctx context.Context, id int64) (*directory.RatePlan, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM rate_plans WHERE id = $1`, id)
	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, directory.ErrNotFound
	}
	return p, err
}

// ListPlans returns all rate plans.
func (s *Store) ListPlans(ctx context.Context) ([]directory.RatePlan, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+planColumns+` FROM rate_plans ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []directory.RatePlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// UpdatePlan applies the non-nil fields of updates.
func (s *Store) UpdatePlan(ctx context.Context, id int64, updates directory.PlanUpdate) (*directory.RatePlan, error) {
	set := func(query string, arg any) error {
		_, err := s.db.ExecContext(ctx, query, arg, id)
		return err
	}
	if updates.Name != nil {
		if err := set(`UPDATE rate_plans SET name = $1, updated_at = NOW() WHERE id = $2`, strings.TrimSpace(*updates.Name)); err != nil {
			return nil, err
		}
	}
	if updates.UserType != nil {
		if err := set(`UPDATE rate_plans SET user_type = $1, updated_at = NOW() WHERE id = $2`, *updates.UserType); err != nil {
			return nil, err
		}
	}
	if updates.MonthlyFee != nil {
		if err := set(`UPDATE rate_plans SET monthly_fee = $1, updated_at = NOW() WHERE id = $2`, *updates.MonthlyFee); err != nil {
			return nil, err
		}
	}
	if updates.DefaultCredits != nil {
		if err := set(`UPDATE rate_plans SET default_credits = $1, updated_at = NOW() WHERE id = $2`, *updates.DefaultCredits); err != nil {
			return nil, err
		}
	}
	if updates.RenewalRequired != nil {
		if err := set(`UPDATE rate_plans SET renewal_required = $1, updated_at = NOW() WHERE id = $2`, *updates.RenewalRequired); err != nil {
			return nil, err
		}
	}
	if updates.TopupAllowed != nil {
		if err := set(`UPDATE rate_plans SET topup_allowed = $1, updated_at = NOW() WHERE id = $2`, *updates.TopupAllowed); err != nil {
			return nil, err
		}
	}
	if updates.Status != nil {
		if err := set(`UPDATE rate_plans SET status = $1, updated_at = NOW() WHERE id = $2`, *updates.Status); err != nil {
			return nil, err
		}
	}
	return s.GetPlan(ctx, id)
}

// DeletePlan removes the plan; plan_capabilities rows cascade.
func (s *Store) DeletePlan(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rate_plans WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

const capabilityColumns = `id, key, name, category, tier, adapter, credential, key_status, default_cost, created_at, updated_at`

func scanCapability(row interface{ Scan(...any) error }) (*directory.Capability, error) {
	var c directory.Capability
	if err := row.Scan(&c.ID, &c.Key, &c.Name, &c.Category, &c.Tier, &c.Adapter, &c.Credential, &c.KeyStatus, &c.DefaultCost, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCapability inserts a new capability routing entry.
func (s *Store) CreateCapability(ctx context.Context, cap directory.Capability) (*directory.Capability, error) {
	key := strings.TrimSpace(strings.ToLower(cap.Key))
	if key == "" {
		return nil, errors.New("capability key required")
	}
	if strings.TrimSpace(cap.Adapter) == "" {
		return nil, errors.New("capability adapter required")
	}
	tier := cap.Tier
	if tier == "" {
		tier = directory.TierPro
	}
	keyStatus := cap.KeyStatus
	if keyStatus == "" {
		keyStatus = directory.KeyActive
	}
	cost := cap.DefaultCost
	if cost <= 0 {
		cost = 1
	}
	row := s.db.QueryRowContext(ctx, `
INSERT INTO capabilities(key, name, category, tier, adapter, credential, key_status, default_cost)
VALUES($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+capabilityColumns,
		key, strings.TrimSpace(cap.Name), cap.Category, tier, strings.TrimSpace(cap.Adapter), cap.Credential, keyStatus, cost)
	return scanCapability(row)
}

// GetCapability returns the capability with the given id.
func (s *Store) GetCapability(ctx context.Context, id int64) (*directory.Capability, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+capabilityColumns+` FROM capabilities WHERE id = $1`, id)
	c, err := scanCapability(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, directory.ErrNotFound
	}
	return c, err
}

// GetCapabilityByKey returns the capability with the given slug key.
func (s *Store) GetCapabilityByKey(ctx context.Context, key string) (*directory.Capability, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+capabilityColumns+` FROM capabilities WHERE key = $1`, strings.TrimSpace(strings.ToLower(key)))
	c, err := scanCapability(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, directory.ErrNotFound
	}
	return c, err
}

// ListCapabilities returns all capability entries.
func (s *Store) ListCapabilities(ctx context.Context) ([]directory.Capability, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+capabilityColumns+` FROM capabilities ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []directory.Capability
	for rows.Next() {
		c, err := scanCapability(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// UpdateCapability applies the non-nil fields of updates.
func (s *Store) UpdateCapability(ctx context.Context, id int64, updates directory.CapabilityUpdate) (*directory.Capability, error) {
	set := func(query string, arg any) error {
		_, err := s.db.ExecContext(ctx, query, arg, id)
		return err
	}
	if updates.Name != nil {
		if err := set(`UPDATE capabilities SET name = $1, updated_at = NOW() WHERE id = $2`, strings.TrimSpace(*updates.Name)); err != nil {
			return nil, err
		}
	}
	if updates.Category != nil {
		if err := set(`UPDATE capabilities SET category = $1, updated_at = NOW() WHERE id = $2`, *updates.Category); err != nil {
			return nil, err
		}
	}
	if updates.Tier != nil {
		if err := set(`UPDATE capabilities SET tier = $1, updated_at = NOW() WHERE id = $2`, *updates.Tier); err != nil {
			return nil, err
		}
	}
	if updates.Adapter != nil {
		if err := set(`UPDATE capabilities SET adapter = $1, updated_at = NOW() WHERE id = $2`, strings.TrimSpace(*updates.Adapter)); err != nil {
			return nil, err
		}
	}
	if updates.Credential != nil {
		if err := set(`UPDATE capabilities SET credential = $1, updated_at = NOW() WHERE id = $2`, *updates.Credential); err != nil {
			return nil, err
		}
	}
	if updates.DefaultCost != nil {
		if err := set(`UPDATE capabilities SET default_cost = $1, updated_at = NOW() WHERE id = $2`, *updates.DefaultCost); err != nil {
			return nil, err
		}
	}
	return s.GetCapability(ctx, id)
}

// SetCapabilityKeyStatus toggles the vendor credential activation flag.
func (s *Store) SetCapabilityKeyStatus(ctx context.Context, id int64, status directory.KeyStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE capabilities SET key_status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteCapability removes the capability; plan rows cascade.
func (s *Store) DeleteCapability(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM capabilities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetPlanCapability upserts the pricing row for a (plan, capability) pair.
func (s *Store) SetPlanCapability(ctx context.Context, pc directory.PlanCapability) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO plan_capabilities(plan_id, capability_id, enabled, credit_cost, buy_price, sell_price)
VALUES($1, $2, $3, $4, $5, $6)
ON CONFLICT(plan_id, capability_id) DO UPDATE SET
	enabled = EXCLUDED.enabled,
	credit_cost = EXCLUDED.credit_cost,
	buy_price = EXCLUDED.buy_price,
	sell_price = EXCLUDED.sell_price`,
		pc.PlanID, pc.CapabilityID, pc.Enabled, pc.CreditCost, pc.BuyPrice, pc.SellPrice)
	return err
}

// ListPlanCapabilities returns the pricing rows for a plan.
func (s *Store) ListPlanCapabilities(ctx context.Context, planID int64) ([]directory.PlanCapability, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT plan_id, capability_id, enabled, credit_cost, buy_price, sell_price
FROM plan_capabilities WHERE plan_id = $1 ORDER BY capability_id`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []directory.PlanCapability
	for rows.Next() {
		var pc directory.PlanCapability
		if err := rows.Scan(&pc.PlanID, &pc.CapabilityID, &pc.Enabled, &pc.CreditCost, &pc.BuyPrice, &pc.SellPrice); err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}

const enabledCapabilityQuery = `
SELECT c.id, c.key, c.name, c.category, c.tier, c.adapter, c.credential, c.key_status, c.default_cost,
	c.created_at, c.updated_at, pc.credit_cost
FROM plan_capabilities pc
JOIN capabilities c ON c.id = pc.capability_id
WHERE pc.plan_id = $1 AND pc.enabled AND c.tier <> 'disabled'`

func scanEnabledCapability(row interface{ Scan(...any) error }) (*directory.EnabledCapability, error) {
	var ec directory.EnabledCapability
	if err := row.Scan(&ec.ID, &ec.Key, &ec.Name, &ec.Category, &ec.Tier, &ec.Adapter, &ec.Credential,
		&ec.KeyStatus, &ec.DefaultCost, &ec.CreatedAt, &ec.UpdatedAt, &ec.CreditCost); err != nil {
		return nil, err
	}
	if ec.CreditCost <= 0 {
		ec.CreditCost = ec.DefaultCost
	}
	return &ec, nil
}

// ListEnabledCapabilities returns the capabilities a plan can invoke.
func (s *Store) ListEnabledCapabilities(ctx context.Context, planID int64) ([]directory.EnabledCapability, error) {
	rows, err := s.db.QueryContext(ctx, enabledCapabilityQuery+` ORDER BY c.key`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []directory.EnabledCapability
	for rows.Next() {
		ec, err := scanEnabledCapability(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ec)
	}
	return out, rows.Err()
}

// GetEnabledCapability returns the plan's entry for one capability key.
func (s *Store) GetEnabledCapability(ctx context.Context, planID int64, key string) (*directory.EnabledCapability, error) {
	row := s.db.QueryRowContext(ctx, enabledCapabilityQuery+` AND c.key = $2`, planID, strings.TrimSpace(strings.ToLower(key)))
	ec, err := scanEnabledCapability(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, directory.ErrNotFound
	}
	return ec, err
}

const registrationColumns = `id, reference, name, email, mobile, remarks, status, reason, reviewed_by, created_at, updated_at`

func scanRegistration(row interface{ Scan(...any) error }) (*directory.Registration, error) {
	var r directory.Registration
	if err := row.Scan(&r.ID, &r.Reference, &r.Name, &r.Email, &r.Mobile, &r.Remarks, &r.Status, &r.Reason, &r.ReviewedBy, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRegistration files a pending officer application.
func (s *Store) CreateRegistration(ctx context.Context, reg directory.Registration) (*directory.Registration, error) {
	email := strings.TrimSpace(strings.ToLower(reg.Email))
	if email == "" {
		return nil, errors.New("email required")
	}
	reference := reg.Reference
	if reference == "" {
		reference = uuid.NewString()
	}
	row := s.db.QueryRowContext(ctx, `
INSERT INTO registrations(reference, name, email, mobile, remarks, status)
VALUES($1, $2, $3, $4, $5, $6)
RETURNING `+registrationColumns,
		reference, strings.TrimSpace(reg.Name), email, strings.TrimSpace(reg.Mobile), reg.Remarks, directory.RegistrationPending)
	return scanRegistration(row)
}

// GetRegistration returns the registration with the given id.
func (s *Store) GetRegistration(ctx context.Context, id int64) (*directory.Registration, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id)
	r, err := scanRegistration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, directory.ErrNotFound
	}
	return r, err
}

// ListRegistrations returns applications, optionally filtered by status.
func (s *Store) ListRegistrations(ctx context.Context, status directory.RegistrationStatus) ([]directory.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []directory.Registration
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// ApproveRegistration creates an officer from a pending application inside a
// single transaction.
func (s *Store) ApproveRegistration(ctx context.Context, id, planID int64, passwordHash, reviewedBy string) (*directory.Officer, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	row := tx.QueryRowContext(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1 FOR UPDATE`, id)
	reg, scanErr := scanRegistration(row)
	if scanErr != nil {
		if errors.Is(scanErr, sql.ErrNoRows) {
			scanErr = directory.ErrNotFound
		}
		err = scanErr
		return nil, scanErr
	}
	if reg.Status != directory.RegistrationPending {
		err = fmt.Errorf("registration %d is %s, not pending", id, reg.Status)
		return nil, err
	}

	var defaultCredits int64
	if err = tx.QueryRowContext(ctx, `SELECT default_credits FROM rate_plans WHERE id = $1`, planID).Scan(&defaultCredits); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = fmt.Errorf("plan %d: %w", planID, directory.ErrNotFound)
		}
		return nil, err
	}

	row = tx.QueryRowContext(ctx, `
INSERT INTO officers(name, email, mobile, role, status, plan_id, credits_remaining, total_credits, password_hash)
VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING `+officerColumns,
		reg.Name, reg.Email, reg.Mobile, directory.RoleOfficer, directory.StatusActive,
		planID, defaultCredits, defaultCredits, nullIfEmpty(passwordHash))
	officer, createErr := scanOfficer(row)
	if createErr != nil {
		err = createErr
		return nil, createErr
	}

	if _, err = tx.ExecContext(ctx, `
UPDATE registrations SET status = $1, reviewed_by = $2, updated_at = NOW() WHERE id = $3`,
		directory.RegistrationApproved, reviewedBy, id); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return officer, nil
}

// RejectRegistration marks a pending application rejected with a reason.
func (s *Store) RejectRegistration(ctx context.Context, id int64, reason, reviewedBy string) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE registrations SET status = $1, reason = $2, reviewed_by = $3, updated_at = NOW()
WHERE id = $4 AND status = $5`,
		directory.RegistrationRejected, reason, reviewedBy, id, directory.RegistrationPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("registration %d: not pending or %w", id, directory.ErrNotFound)
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return directory.ErrNotFound
	}
	return nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	// register sqlite driver
	_ "modernc.org/sqlite"

	"github.com/veriport/veriport/internal/ledger"
)

// Store implements ledger.Store backed by SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite ledger at the given path.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
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
CREATE TABLE IF NOT EXISTS transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	officer_id INTEGER NOT NULL,
	action TEXT NOT NULL CHECK(action IN ('renewal','deduction','topup','refund')),
	credits INTEGER NOT NULL,
	remark TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_transactions_officer_created ON transactions(officer_id, created_at DESC);

CREATE TABLE IF NOT EXISTS query_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	reference TEXT NOT NULL UNIQUE,
	officer_id INTEGER NOT NULL,
	capability_key TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	input TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	payload BLOB,
	credits_used INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL CHECK(status IN ('success','failed','rejected')),
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_query_logs_officer_created ON query_logs(officer_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_query_logs_capability ON query_logs(capability_key);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases underlying database resources.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RecordTransaction appends a credit movement row.
func (s *Store) RecordTransaction(ctx context.Context, txn ledger.Transaction) error {
	if txn.OfficerID == 0 {
		return errors.New("transaction requires officer id")
	}
	switch txn.Action {
	case ledger.ActionRenewal, ledger.ActionDeduction, ledger.ActionTopup, ledger.ActionRefund:
	default:
		return fmt.Errorf("invalid action %q", txn.Action)
	}
	created := txn.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO transactions(officer_id, action, credits, remark, created_at)
VALUES(?, ?, ?, ?, ?)`,
		txn.OfficerID, string(txn.Action), txn.Credits, txn.Remark, created)
	return err
}

// RecordQuery appends a lookup attempt row.
func (s *Store) RecordQuery(ctx context.Context, q ledger.QueryLog) error {
	if q.OfficerID == 0 {
		return errors.New("query log requires officer id")
	}
	if q.CapabilityKey == "" {
		return errors.New("query log requires capability key")
	}
	switch q.Status {
	case ledger.QuerySuccess, ledger.QueryFailed, ledger.QueryRejected:
	default:
		return fmt.Errorf("invalid status %q", q.Status)
	}
	reference := q.Reference
	if reference == "" {
		reference = uuid.NewString()
	}
	created := q.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO query_logs(reference, officer_id, capability_key, category, input, summary, payload, credits_used, status, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reference, q.OfficerID, q.CapabilityKey, q.Category, q.Input, q.Summary, q.Payload, q.CreditsUsed, string(q.Status), created)
	return err
}

// ListTransactions returns the latest credit movements for an officer.
func (s *Store) ListTransactions(ctx context.Context, officerID int64, limit int) ([]ledger.Transaction, error) {
	if officerID == 0 {
		return nil, errors.New("officer id required")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, officer_id, action, credits, remark, created_at
FROM transactions
WHERE officer_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?`, officerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Transaction
	for rows.Next() {
		var t ledger.Transaction
		var action string
		if err := rows.Scan(&t.ID, &t.OfficerID, &action, &t.Credits, &t.Remark, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Action = ledger.Action(action)
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListQueries returns lookup attempts matching the filter, newest first.
func (s *Store) ListQueries(ctx context.Context, filter ledger.QueryFilter) ([]ledger.QueryLog, error) {
	query := `
SELECT id, reference, officer_id, capability_key, category, input, summary, payload, credits_used, status, created_at
FROM query_logs WHERE 1=1`
	args := []any{}
	if filter.OfficerID != 0 {
		query += ` AND officer_id = ?`
		args = append(args, filter.OfficerID)
	}
	if filter.CapabilityKey != "" {
		query += ` AND capability_key = ?`
		args = append(args, filter.CapabilityKey)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.QueryLog
	for rows.Next() {
		var q ledger.QueryLog
		var status string
		if err := rows.Scan(&q.ID, &q.Reference, &q.OfficerID, &q.CapabilityKey, &q.Category, &q.Input, &q.Summary, &q.Payload, &q.CreditsUsed, &status, &q.CreatedAt); err != nil {
			return nil, err
		}
		q.Status = ledger.QueryStatus(status)
		out = append(out, q)
	}
	return out, rows.Err()
}

// Summary returns aggregated ledger activity for an officer.
func (s *Store) Summary(ctx context.Context, officerID int64) (ledger.Summary, error) {
	if officerID == 0 {
		return ledger.Summary{}, errors.New("officer id required")
	}
	row := s.db.QueryRowContext(ctx, `
SELECT
	COALESCE(SUM(CASE WHEN action='deduction' THEN -credits ELSE 0 END), 0) AS deducted,
	COALESCE(SUM(CASE WHEN action IN ('topup','renewal') THEN credits ELSE 0 END), 0) AS topped_up
FROM transactions
WHERE officer_id = ?`, officerID)

	var deducted, toppedUp sql.NullInt64
	if err := row.Scan(&deducted, &toppedUp); err != nil {
		return ledger.Summary{}, err
	}

	var queries sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM query_logs WHERE officer_id = ?`, officerID).Scan(&queries); err != nil {
		return ledger.Summary{}, err
	}

	return ledger.Summary{
		CreditsDeducted: deducted.Int64,
		CreditsToppedUp: toppedUp.Int64,
		QueriesRun:      queries.Int64,
	}, nil
}

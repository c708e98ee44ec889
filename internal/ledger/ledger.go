package ledger

import (
	"context"
	"time"
)

// Action classifies a credit movement on an officer's balance.
type Action string

const (
	ActionRenewal   Action = "renewal"
	ActionDeduction Action = "deduction"
	ActionTopup     Action = "topup"
	ActionRefund    Action = "refund"
)

// QueryStatus records the outcome of a single lookup attempt.
type QueryStatus string

const (
	QuerySuccess  QueryStatus = "success"
	QueryFailed   QueryStatus = "failed"
	QueryRejected QueryStatus = "rejected"
)

// Transaction is a single append-only credit movement. Credits carries the
// signed delta: negative for deductions, positive otherwise.
type Transaction struct {
	ID        int64     `json:"id"`
	OfficerID int64     `json:"officer_id"`
	Action    Action    `json:"action"`
	Credits   int64     `json:"credits"`
	Remark    string    `json:"remark,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// QueryLog is the append-only audit row written for every lookup attempt,
// successful or not. Payload holds the raw vendor response as an opaque blob.
type QueryLog struct {
	ID            int64       `json:"id"`
	Reference     string      `json:"reference"`
	OfficerID     int64       `json:"officer_id"`
	CapabilityKey string      `json:"capability_key"`
	Category      string      `json:"category,omitempty"`
	Input         string      `json:"input"`
	Summary       string      `json:"summary,omitempty"`
	Payload       []byte      `json:"payload,omitempty"`
	CreditsUsed   int64       `json:"credits_used"`
	Status        QueryStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
}

// QueryFilter narrows ListQueries. Zero values mean no constraint.
type QueryFilter struct {
	OfficerID     int64
	CapabilityKey string
	Status        QueryStatus
	Limit         int
}

// Summary aggregates an officer's ledger activity.
type Summary struct {
	CreditsDeducted int64 `json:"credits_deducted"`
	CreditsToppedUp int64 `json:"credits_topped_up"`
	QueriesRun      int64 `json:"queries_run"`
}

// Store defines persistence behaviour for the ledger. Rows are append-only;
// there is no update or delete.
type Store interface {
	RecordTransaction(ctx context.Context, txn Transaction) error
	RecordQuery(ctx context.Context, q QueryLog) error
	ListTransactions(ctx context.Context, officerID int64, limit int) ([]Transaction, error)
	ListQueries(ctx context.Context, filter QueryFilter) ([]QueryLog, error)
	Summary(ctx context.Context, officerID int64) (Summary, error)
	Close() error
}

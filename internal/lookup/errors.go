package lookup

import (
	"errors"
	"fmt"
)

// ErrRateLimited is returned when the officer's lookup throttle is exhausted.
var ErrRateLimited = errors.New("lookup rate limit exceeded")

// LedgerWriteError reports that the audit trail could not be appended after a
// vendor call. Op names the write that failed.
type LedgerWriteError struct {
	Op  string
	Err error
}

func (e *LedgerWriteError) Error() string {
	return fmt.Sprintf("ledger write failed (%s): %v", e.Op, e.Err)
}

func (e *LedgerWriteError) Unwrap() error { return e.Err }

package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReconciliationReport is the immutable result of one reconciliation sweep:
// the sum of internal wallet balances compared against the processor's
// platform balance plus the balances of all connected sub-accounts.
type ReconciliationReport struct {
	ID                       uuid.UUID
	RunAt                    time.Time
	InternalBalance          int64
	PlatformBalance          int64
	ConnectedAccountsBalance int64
	TotalProcessorBalance    int64
	Discrepancy              int64
	IsBalanced               bool
	AccountsChecked          int
	// ErrorAccounts lists processor sub-accounts whose balance lookup failed
	// during the sweep. A non-empty list is a degraded success, not a hard
	// failure: the sweep continues past individual lookup errors.
	ErrorAccounts []string
}

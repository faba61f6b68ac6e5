package domain

import (
	"time"

	"github.com/google/uuid"
)

type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
)

func (c Currency) IsValid() bool {
	switch c {
	case CurrencyEUR, CurrencyUSD, CurrencyGBP:
		return true
	}
	return false
}

// Wallet is the mutable current-balance record for one user. Balances are
// integer minor currency units and are only ever changed inside a storage
// transaction that also appends the matching ledger entry.
type Wallet struct {
	UserID    uuid.UUID
	Balance   int64
	Currency  Currency
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

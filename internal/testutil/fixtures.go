package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/veltapay/wallet-backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

func SeedUser(t *testing.T, db *sql.DB, email, name string) *domain.User {
	t.Helper()
	return seedUser(t, db, email, name, nil)
}

// SeedConnectedUser creates a user linked to a processor sub-account, the
// shape reconciliation sweeps over.
func SeedConnectedUser(t *testing.T, db *sql.DB, email, name, processorAccountID string) *domain.User {
	t.Helper()
	return seedUser(t, db, email, name, &processorAccountID)
}

func seedUser(t *testing.T, db *sql.DB, email, name string, processorAccountID *string) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &domain.User{
		ID:                 uuid.New(),
		Email:              email,
		Name:               name,
		PasswordHash:       string(hash),
		ProcessorAccountID: processorAccountID,
		Status:             domain.UserStatusActive,
		CreatedAt:          time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO users (id, email, name, password_hash, processor_account_id, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.ProcessorAccountID, u.Status, u.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return u
}

func SeedWallet(t *testing.T, db *sql.DB, userID uuid.UUID, balance int64) *domain.Wallet {
	t.Helper()

	now := time.Now().UTC()
	w := &domain.Wallet{
		UserID:    userID,
		Balance:   balance,
		Currency:  domain.CurrencyEUR,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := db.Exec(
		`INSERT INTO wallets (user_id, balance, currency, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		w.UserID, w.Balance, w.Currency, w.Version, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed wallet for %s: %v", userID, err)
	}
	return w
}

func GetWalletBalance(t *testing.T, db *sql.DB, userID uuid.UUID) int64 {
	t.Helper()

	var balance int64
	err := db.QueryRow(`SELECT balance FROM wallets WHERE user_id = $1`, userID).Scan(&balance)
	if err != nil {
		t.Fatalf("get wallet balance %s: %v", userID, err)
	}
	return balance
}

func CountEntries(t *testing.T, db *sql.DB, userID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM transaction_entries WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		t.Fatalf("count entries for %s: %v", userID, err)
	}
	return count
}

func SumEntries(t *testing.T, db *sql.DB, userID uuid.UUID) int64 {
	t.Helper()

	var sum int64
	err := db.QueryRow(
		`SELECT COALESCE(SUM(amount), 0) FROM transaction_entries WHERE user_id = $1`, userID,
	).Scan(&sum)
	if err != nil {
		t.Fatalf("sum entries for %s: %v", userID, err)
	}
	return sum
}

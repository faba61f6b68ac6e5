package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/veltapay/wallet-backend/internal/domain"
)

const walletColumns = `user_id, balance, currency, version, created_at, updated_at`

type WalletRepository struct {
	db *sql.DB
}

func NewWalletRepository(db *sql.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// Get reads a wallet outside any transaction. Display paths only: the
// returned snapshot may be stale with respect to concurrent writers.
func (r *WalletRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID,
	)
	w, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Get: %w", domain.ErrWalletNotFound)
		}
		return nil, fmt.Errorf("Get: %w", err)
	}
	return w, nil
}

// GetForUpdate re-reads the wallet inside the transaction holding a row lock,
// so balance checks always see the committed state at lock acquisition.
func (r *WalletRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (*domain.Wallet, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 FOR UPDATE`, userID,
	)
	w, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrWalletNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return w, nil
}

// Create inserts a wallet inside the same transaction that records its first
// credit. Wallets are created lazily and never deleted.
func (r *WalletRepository) Create(ctx context.Context, tx *sql.Tx, w *domain.Wallet) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO wallets (user_id, balance, currency, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		w.UserID, w.Balance, w.Currency, w.Version, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *WalletRepository) UpdateBalance(ctx context.Context, tx *sql.Tx, userID uuid.UUID, newBalance, newVersion int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance = $1, version = $2, updated_at = now()
		WHERE user_id = $3 AND version = $4`,
		newBalance, newVersion, userID, newVersion-1,
	)
	if err != nil {
		return fmt.Errorf("UpdateBalance: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateBalance: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateBalance: %w", domain.ErrVersionConflict)
	}
	return nil
}

// SumBalances scans every wallet. Reconciliation only; not a hot path.
func (r *WalletRepository) SumBalances(ctx context.Context) (int64, error) {
	var sum int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(balance), 0) FROM wallets`,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("SumBalances: %w", err)
	}
	return sum, nil
}

func scanWallet(s scanner) (*domain.Wallet, error) {
	var w domain.Wallet
	err := s.Scan(
		&w.UserID, &w.Balance, &w.Currency, &w.Version,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

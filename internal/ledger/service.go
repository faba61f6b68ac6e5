package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/veltapay/wallet-backend/internal/domain"
	"github.com/veltapay/wallet-backend/internal/logging"
)

const defaultListLimit = 50

type walletRepo interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (*domain.Wallet, error)
	Create(ctx context.Context, tx *sql.Tx, w *domain.Wallet) error
	UpdateBalance(ctx context.Context, tx *sql.Tx, userID uuid.UUID, newBalance, newVersion int64) error
	SumBalances(ctx context.Context) (int64, error)
}

type entryRepo interface {
	Create(ctx context.Context, tx *sql.Tx, e *domain.TransactionEntry) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.TransactionEntry, error)
}

type userRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type txRunner interface {
	WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Service is the single source of truth for per-user balances. Every
// mutation runs inside one transaction that updates the wallet row and
// appends the matching ledger entry, keeping the invariant
// balance == sum(entry amounts) for every user.
type Service struct {
	wallets  walletRepo
	entries  entryRepo
	users    userRepo
	db       txRunner
	currency domain.Currency
}

func NewService(wallets walletRepo, entries entryRepo, users userRepo, db txRunner, currency domain.Currency) *Service {
	return &Service{
		wallets:  wallets,
		entries:  entries,
		users:    users,
		db:       db,
		currency: currency,
	}
}

// Credit increases the user's balance by amount, creating the wallet lazily
// on first credit. md defaults to CreditMetadata; RefundMetadata records an
// offsetting correction for an earlier entry.
func (s *Service) Credit(ctx context.Context, userID uuid.UUID, amount int64, description string, md domain.Metadata) (*domain.TransactionEntry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("Credit: %w", domain.ErrInvalidAmount)
	}
	if md == nil {
		md = domain.CreditMetadata{}
	}
	if k := md.Kind(); k != domain.EntryCredit && k != domain.EntryRefund {
		return nil, fmt.Errorf("Credit: kind %s: %w", k, domain.ErrInvalidMetadata)
	}

	entry := &domain.TransactionEntry{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      amount,
		Kind:        md.Kind(),
		Description: description,
		Metadata:    md,
		CreatedAt:   time.Now().UTC(),
	}

	err := s.db.WithinTx(ctx, func(tx *sql.Tx) error {
		w, err := s.wallets.GetForUpdate(ctx, tx, userID)
		switch {
		case errors.Is(err, domain.ErrWalletNotFound):
			w = &domain.Wallet{
				UserID:    userID,
				Balance:   amount,
				Currency:  s.currency,
				Version:   1,
				CreatedAt: entry.CreatedAt,
				UpdatedAt: entry.CreatedAt,
			}
			if err := s.wallets.Create(ctx, tx, w); err != nil {
				return fmt.Errorf("Credit: create wallet: %w", err)
			}
		case err != nil:
			return fmt.Errorf("Credit: %w", err)
		default:
			if err := s.wallets.UpdateBalance(ctx, tx, userID, w.Balance+amount, w.Version+1); err != nil {
				return fmt.Errorf("Credit: %w", err)
			}
		}

		if err := s.entries.Create(ctx, tx, entry); err != nil {
			return fmt.Errorf("Credit: append entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("wallet credited",
		"user_id", userID,
		"amount", amount,
		"kind", entry.Kind,
		"entry_id", entry.ID,
	)
	return entry, nil
}

// Debit decreases the user's balance by amount. The balance check happens
// inside the transaction against the locked row, never against a stale read.
func (s *Service) Debit(ctx context.Context, userID uuid.UUID, amount int64, description string, md domain.Metadata) (*domain.TransactionEntry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("Debit: %w", domain.ErrInvalidAmount)
	}
	if md == nil {
		md = domain.DebitMetadata{}
	}
	if k := md.Kind(); k != domain.EntryDebit && k != domain.EntryFee {
		return nil, fmt.Errorf("Debit: kind %s: %w", k, domain.ErrInvalidMetadata)
	}

	entry := &domain.TransactionEntry{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      -amount,
		Kind:        md.Kind(),
		Description: description,
		Metadata:    md,
		CreatedAt:   time.Now().UTC(),
	}

	err := s.db.WithinTx(ctx, func(tx *sql.Tx) error {
		w, err := s.wallets.GetForUpdate(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("Debit: %w", err)
		}
		if w.Balance < amount {
			return fmt.Errorf("Debit: %w", domain.ErrInsufficientFunds)
		}

		if err := s.wallets.UpdateBalance(ctx, tx, userID, w.Balance-amount, w.Version+1); err != nil {
			return fmt.Errorf("Debit: %w", err)
		}
		if err := s.entries.Create(ctx, tx, entry); err != nil {
			return fmt.Errorf("Debit: append entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("wallet debited",
		"user_id", userID,
		"amount", amount,
		"kind", entry.Kind,
		"entry_id", entry.ID,
	)
	return entry, nil
}

// GetBalance returns 0 for users without a wallet; a missing wallet is not
// an error on the read path.
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	w, err := s.wallets.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("GetBalance: %w", err)
	}
	return w.Balance, nil
}

func (s *Service) GetTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]domain.TransactionEntry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	entries, err := s.entries.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("GetTransactions: %w", err)
	}
	return entries, nil
}

// SumAllBalances totals every wallet. Reconciliation only: it scans the
// whole store and offers no pagination guarantee.
func (s *Service) SumAllBalances(ctx context.Context) (int64, error) {
	sum, err := s.wallets.SumBalances(ctx)
	if err != nil {
		return 0, fmt.Errorf("SumAllBalances: %w", err)
	}
	return sum, nil
}

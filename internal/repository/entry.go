package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/veltapay/wallet-backend/internal/domain"
)

const entryColumns = `id, user_id, amount, kind, description, metadata, created_at`

type EntryRepository struct {
	db *sql.DB
}

func NewEntryRepository(db *sql.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// Create appends one ledger entry inside the transaction that mutates the
// matching wallet balance. Entries are never updated or deleted.
func (r *EntryRepository) Create(ctx context.Context, tx *sql.Tx, e *domain.TransactionEntry) error {
	md, err := marshalMetadata(e.Metadata)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transaction_entries (
			id, user_id, amount, kind, description, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.UserID, e.Amount, e.Kind, e.Description, md, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// ListByUser returns a user's entries most-recent-first, bounded by limit.
func (r *EntryRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.TransactionEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM transaction_entries
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByUser: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows, "ListByUser")
}

// ListByTransferID returns the linked pair of entries that together
// constitute one P2P transfer.
func (r *EntryRepository) ListByTransferID(ctx context.Context, transferID uuid.UUID) ([]domain.TransactionEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM transaction_entries
		WHERE kind IN ($1, $2) AND metadata->>'transfer_id' = $3
		ORDER BY created_at, id`,
		domain.EntryP2PSent, domain.EntryP2PReceived, transferID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("ListByTransferID: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows, "ListByTransferID")
}

// SumByUser totals the signed amounts of all entries for one user. Used by
// audit checks against the wallet balance.
func (r *EntryRepository) SumByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM transaction_entries WHERE user_id = $1`,
		userID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("SumByUser: %w", err)
	}
	return sum, nil
}

func collectEntries(rows *sql.Rows, op string) ([]domain.TransactionEntry, error) {
	var entries []domain.TransactionEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return entries, nil
}

func scanEntry(s scanner) (*domain.TransactionEntry, error) {
	var (
		e  domain.TransactionEntry
		md []byte
	)
	err := s.Scan(
		&e.ID, &e.UserID, &e.Amount, &e.Kind, &e.Description, &md, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Metadata, err = domain.UnmarshalMetadata(e.Kind, md)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func marshalMetadata(m domain.Metadata) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshalMetadata: %w", err)
	}
	return b, nil
}

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/veltapay/wallet-backend/internal/domain"
	"github.com/veltapay/wallet-backend/internal/logging"
)

// SendP2P moves amount from one wallet to another as one atomic operation:
// the sender's balance check, both balance mutations, and both ledger
// entries commit together or not at all. The two entries share the returned
// transfer id and each records the counterparty.
func (s *Service) SendP2P(ctx context.Context, fromID, toID uuid.UUID, amount int64, description string) (uuid.UUID, error) {
	if amount <= 0 {
		return uuid.Nil, fmt.Errorf("SendP2P: %w", domain.ErrInvalidAmount)
	}
	if fromID == toID {
		return uuid.Nil, fmt.Errorf("SendP2P: %w", domain.ErrSelfTransfer)
	}

	if _, err := s.users.GetByID(ctx, fromID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return uuid.Nil, fmt.Errorf("SendP2P: %w", domain.ErrSenderNotFound)
		}
		return uuid.Nil, fmt.Errorf("SendP2P: %w", err)
	}
	if _, err := s.users.GetByID(ctx, toID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return uuid.Nil, fmt.Errorf("SendP2P: %w", domain.ErrReceiverNotFound)
		}
		return uuid.Nil, fmt.Errorf("SendP2P: %w", err)
	}

	transferID := uuid.New()
	now := time.Now().UTC()

	err := s.db.WithinTx(ctx, func(tx *sql.Tx) error {
		locked, err := s.lockWalletsInOrder(ctx, tx, fromID, toID)
		if err != nil {
			return fmt.Errorf("SendP2P: %w", err)
		}

		sender, receiver := locked[fromID], locked[toID]
		if sender == nil {
			return fmt.Errorf("SendP2P: sender: %w", domain.ErrWalletNotFound)
		}
		if sender.Balance < amount {
			return fmt.Errorf("SendP2P: %w", domain.ErrInsufficientFunds)
		}

		if err := s.wallets.UpdateBalance(ctx, tx, fromID, sender.Balance-amount, sender.Version+1); err != nil {
			return fmt.Errorf("SendP2P: debit sender: %w", err)
		}

		if receiver == nil {
			receiver = &domain.Wallet{
				UserID:    toID,
				Balance:   amount,
				Currency:  s.currency,
				Version:   1,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.wallets.Create(ctx, tx, receiver); err != nil {
				return fmt.Errorf("SendP2P: create receiver wallet: %w", err)
			}
		} else {
			if err := s.wallets.UpdateBalance(ctx, tx, toID, receiver.Balance+amount, receiver.Version+1); err != nil {
				return fmt.Errorf("SendP2P: credit receiver: %w", err)
			}
		}

		sent := &domain.TransactionEntry{
			ID:          uuid.New(),
			UserID:      fromID,
			Amount:      -amount,
			Kind:        domain.EntryP2PSent,
			Description: description,
			Metadata:    domain.P2PSentMetadata{TransferID: transferID, CounterpartyID: toID},
			CreatedAt:   now,
		}
		received := &domain.TransactionEntry{
			ID:          uuid.New(),
			UserID:      toID,
			Amount:      amount,
			Kind:        domain.EntryP2PReceived,
			Description: description,
			Metadata:    domain.P2PReceivedMetadata{TransferID: transferID, CounterpartyID: fromID},
			CreatedAt:   now,
		}

		if err := s.entries.Create(ctx, tx, sent); err != nil {
			return fmt.Errorf("SendP2P: sender entry: %w", err)
		}
		if err := s.entries.Create(ctx, tx, received); err != nil {
			return fmt.Errorf("SendP2P: receiver entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	logging.FromContext(ctx).Info("p2p transfer completed",
		"transfer_id", transferID,
		"from_user", fromID,
		"to_user", toID,
		"amount", amount,
	)
	return transferID, nil
}

// lockWalletsInOrder acquires row locks in a consistent order so two
// opposing transfers between the same pair cannot deadlock. A missing
// wallet maps to nil: senders must exist, receivers are created lazily
// by the caller inside the same transaction.
func (s *Service) lockWalletsInOrder(ctx context.Context, tx *sql.Tx, ids ...uuid.UUID) (map[uuid.UUID]*domain.Wallet, error) {
	sorted := make([]uuid.UUID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})

	locked := make(map[uuid.UUID]*domain.Wallet, len(ids))
	for _, id := range sorted {
		w, err := s.wallets.GetForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, domain.ErrWalletNotFound) {
				locked[id] = nil
				continue
			}
			return nil, fmt.Errorf("lockWalletsInOrder: %w", err)
		}
		locked[id] = w
	}
	return locked, nil
}

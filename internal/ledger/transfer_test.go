package ledger_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veltapay/wallet-backend/internal/domain"
	"github.com/veltapay/wallet-backend/internal/repository"
	"github.com/veltapay/wallet-backend/internal/testutil"
)

func TestSendP2P_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	sender := testutil.SeedUser(t, db, "sender@test.com", "Sender")
	receiver := testutil.SeedUser(t, db, "receiver@test.com", "Receiver")
	testutil.SeedWallet(t, db, sender.ID, 10000)
	testutil.SeedWallet(t, db, receiver.ID, 2000)

	transferID, err := svc.SendP2P(ctx, sender.ID, receiver.ID, 3000, "rent split")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, transferID)

	assert.Equal(t, int64(7000), testutil.GetWalletBalance(t, db, sender.ID))
	assert.Equal(t, int64(5000), testutil.GetWalletBalance(t, db, receiver.ID))

	entries, err := repository.NewEntryRepository(db).ListByTransferID(ctx, transferID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	sent := findEntryByKind(entries, domain.EntryP2PSent)
	received := findEntryByKind(entries, domain.EntryP2PReceived)
	require.NotNil(t, sent)
	require.NotNil(t, received)

	assert.Equal(t, sender.ID, sent.UserID)
	assert.Equal(t, int64(-3000), sent.Amount)
	sentMD, ok := sent.Metadata.(domain.P2PSentMetadata)
	require.True(t, ok)
	assert.Equal(t, transferID, sentMD.TransferID)
	assert.Equal(t, receiver.ID, sentMD.CounterpartyID)

	assert.Equal(t, receiver.ID, received.UserID)
	assert.Equal(t, int64(3000), received.Amount)
	recvMD, ok := received.Metadata.(domain.P2PReceivedMetadata)
	require.True(t, ok)
	assert.Equal(t, transferID, recvMD.TransferID)
	assert.Equal(t, sender.ID, recvMD.CounterpartyID)

	// Paired entries net to zero across the ledger.
	assert.Equal(t, int64(0), sent.Amount+received.Amount)
}

func TestSendP2P_CreatesReceiverWalletLazily(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	sender := testutil.SeedUser(t, db, "sender@test.com", "Sender")
	receiver := testutil.SeedUser(t, db, "receiver@test.com", "Receiver")
	testutil.SeedWallet(t, db, sender.ID, 5000)

	_, err := svc.SendP2P(ctx, sender.ID, receiver.ID, 1500, "first transfer")
	require.NoError(t, err)

	assert.Equal(t, int64(3500), testutil.GetWalletBalance(t, db, sender.ID))
	assert.Equal(t, int64(1500), testutil.GetWalletBalance(t, db, receiver.ID))
}

func TestSendP2P_InsufficientFunds_NoSideEffects(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	sender := testutil.SeedUser(t, db, "sender@test.com", "Sender")
	receiver := testutil.SeedUser(t, db, "receiver@test.com", "Receiver")
	testutil.SeedWallet(t, db, sender.ID, 1000)
	testutil.SeedWallet(t, db, receiver.ID, 0)

	_, err := svc.SendP2P(ctx, sender.ID, receiver.ID, 5000, "too much")
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	assert.Equal(t, int64(1000), testutil.GetWalletBalance(t, db, sender.ID))
	assert.Equal(t, int64(0), testutil.GetWalletBalance(t, db, receiver.ID))
	assert.Equal(t, 0, testutil.CountEntries(t, db, sender.ID))
	assert.Equal(t, 0, testutil.CountEntries(t, db, receiver.ID))
}

func TestSendP2P_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	sender := testutil.SeedUser(t, db, "sender@test.com", "Sender")
	receiver := testutil.SeedUser(t, db, "receiver@test.com", "Receiver")
	testutil.SeedWallet(t, db, sender.ID, 10000)

	_, err := svc.SendP2P(ctx, sender.ID, receiver.ID, 0, "zero")
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.SendP2P(ctx, sender.ID, sender.ID, 100, "self")
	require.ErrorIs(t, err, domain.ErrSelfTransfer)

	_, err = svc.SendP2P(ctx, sender.ID, uuid.New(), 100, "ghost receiver")
	require.ErrorIs(t, err, domain.ErrReceiverNotFound)

	_, err = svc.SendP2P(ctx, uuid.New(), receiver.ID, 100, "ghost sender")
	require.ErrorIs(t, err, domain.ErrSenderNotFound)
}

func TestSendP2P_SenderWithoutWallet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	sender := testutil.SeedUser(t, db, "sender@test.com", "Sender")
	receiver := testutil.SeedUser(t, db, "receiver@test.com", "Receiver")

	_, err := svc.SendP2P(ctx, sender.ID, receiver.ID, 100, "no wallet")
	require.ErrorIs(t, err, domain.ErrWalletNotFound)
}

func TestSendP2P_ConcurrentOverdraft(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	sender := testutil.SeedUser(t, db, "sender@test.com", "Sender")
	receiver := testutil.SeedUser(t, db, "receiver@test.com", "Receiver")
	testutil.SeedWallet(t, db, sender.ID, 10000)
	testutil.SeedWallet(t, db, receiver.ID, 0)

	var wg sync.WaitGroup
	results := make(chan error, 2)

	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SendP2P(ctx, sender.ID, receiver.ID, 7000, "concurrent transfer")
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	var successes, failures int
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
			failures++
		}
	}

	assert.Equal(t, 1, successes, "exactly one transfer should succeed")
	assert.Equal(t, 1, failures, "exactly one transfer should fail")
	assert.Equal(t, int64(3000), testutil.GetWalletBalance(t, db, sender.ID))
	assert.Equal(t, int64(7000), testutil.GetWalletBalance(t, db, receiver.ID))
}

// Opposing transfers between the same pair exercise the deterministic lock
// ordering; with arbitrary lock order one run would deadlock.
func TestSendP2P_OpposingTransfersNoDeadlock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedgerService(t, db)
	ctx := context.Background()

	alice := testutil.SeedUser(t, db, "alice@test.com", "Alice")
	bob := testutil.SeedUser(t, db, "bob@test.com", "Bob")
	testutil.SeedWallet(t, db, alice.ID, 5000)
	testutil.SeedWallet(t, db, bob.ID, 5000)

	var wg sync.WaitGroup
	results := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := svc.SendP2P(ctx, alice.ID, bob.ID, 1000, "a to b")
		results <- err
	}()
	go func() {
		defer wg.Done()
		_, err := svc.SendP2P(ctx, bob.ID, alice.ID, 2000, "b to a")
		results <- err
	}()

	wg.Wait()
	close(results)

	for err := range results {
		require.NoError(t, err)
	}

	assert.Equal(t, int64(6000), testutil.GetWalletBalance(t, db, alice.ID))
	assert.Equal(t, int64(4000), testutil.GetWalletBalance(t, db, bob.ID))
}

func findEntryByKind(entries []domain.TransactionEntry, kind domain.EntryKind) *domain.TransactionEntry {
	for i := range entries {
		if entries[i].Kind == kind {
			return &entries[i]
		}
	}
	return nil
}

package reconciliation_test

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veltapay/wallet-backend/internal/domain"
	"github.com/veltapay/wallet-backend/internal/ledger"
	"github.com/veltapay/wallet-backend/internal/processor"
	"github.com/veltapay/wallet-backend/internal/reconciliation"
	"github.com/veltapay/wallet-backend/internal/repository"
	"github.com/veltapay/wallet-backend/internal/testutil"
)

// fakeProcessorServer serves Stripe-style balance payloads keyed by account
// ref, the empty ref being the platform balance.
func fakeProcessorServer(t *testing.T, balances map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		amount, ok := balances[r.URL.Query().Get("account")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"available":[{"amount":%q,"currency":"EUR"}],"pending":[]}`, amount)
	}))
}

func setupJob(t *testing.T, db *sql.DB, processorURL string) (*reconciliation.Job, *repository.ReconciliationRepository) {
	t.Helper()

	ledgerSvc := ledger.NewService(
		repository.NewWalletRepository(db),
		repository.NewEntryRepository(db),
		repository.NewUserRepository(db),
		repository.NewDB(db),
		domain.CurrencyEUR,
	)
	reports := repository.NewReconciliationRepository(db)
	client := processor.NewClient(processorURL, "sk_test", domain.CurrencyEUR, 1)

	return reconciliation.NewJob(ledgerSvc, repository.NewUserRepository(db), client, reports, 100), reports
}

func TestReconciliation_EndToEnd_Balanced(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	alice := testutil.SeedConnectedUser(t, db, "alice@test.com", "Alice", "acct_alice")
	bob := testutil.SeedUser(t, db, "bob@test.com", "Bob")
	testutil.SeedWallet(t, db, alice.ID, 70_00)
	testutil.SeedWallet(t, db, bob.ID, 30_00)

	srv := fakeProcessorServer(t, map[string]string{
		"":           "75.00",
		"acct_alice": "25.00",
	})
	defer srv.Close()

	job, reports := setupJob(t, db, srv.URL)

	report, err := job.Run(ctx)
	require.NoError(t, err)

	assert.True(t, report.IsBalanced)
	assert.Equal(t, int64(100_00), report.InternalBalance)
	assert.Equal(t, int64(75_00), report.PlatformBalance)
	assert.Equal(t, int64(25_00), report.ConnectedAccountsBalance)
	assert.Equal(t, int64(0), report.Discrepancy)
	assert.Equal(t, 1, report.AccountsChecked)

	saved, err := reports.ListReports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, report.ID, saved[0].ID)
	assert.True(t, saved[0].IsBalanced)
}

func TestReconciliation_EndToEnd_Discrepancy(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	alice := testutil.SeedUser(t, db, "alice@test.com", "Alice")
	testutil.SeedWallet(t, db, alice.ID, 100_00)

	srv := fakeProcessorServer(t, map[string]string{"": "50.00"})
	defer srv.Close()

	job, reports := setupJob(t, db, srv.URL)

	report, err := job.Run(ctx)
	require.NoError(t, err)

	assert.False(t, report.IsBalanced)
	assert.Equal(t, int64(50_00), report.Discrepancy)

	saved, err := reports.ListReports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, saved, 1)

	var alertCount int
	err = db.QueryRow(`SELECT COUNT(*) FROM reconciliation_alerts WHERE report_id = $1`, report.ID).Scan(&alertCount)
	require.NoError(t, err)
	assert.Equal(t, 1, alertCount)
}

func TestReconciliation_EndToEnd_AccountFailureRecorded(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	alice := testutil.SeedConnectedUser(t, db, "alice@test.com", "Alice", "acct_alice")
	carol := testutil.SeedConnectedUser(t, db, "carol@test.com", "Carol", "acct_gone")
	testutil.SeedWallet(t, db, alice.ID, 40_00)
	testutil.SeedWallet(t, db, carol.ID, 10_00)

	srv := fakeProcessorServer(t, map[string]string{
		"":           "25.00",
		"acct_alice": "25.00",
		// acct_gone intentionally absent: the processor 404s it
	})
	defer srv.Close()

	job, reports := setupJob(t, db, srv.URL)

	report, err := job.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.AccountsChecked)
	assert.Equal(t, []string{"acct_gone"}, report.ErrorAccounts)

	saved, err := reports.ListReports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, []string{"acct_gone"}, saved[0].ErrorAccounts)
}

func TestReconciliation_EndToEnd_ProcessorDownAborts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	job, reports := setupJob(t, db, srv.URL)

	_, err := job.Run(ctx)
	require.ErrorIs(t, err, domain.ErrExternalService)

	saved, err := reports.ListReports(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, saved)

	var errCount int
	err = db.QueryRow(`SELECT COUNT(*) FROM reconciliation_errors`).Scan(&errCount)
	require.NoError(t, err)
	assert.Equal(t, 1, errCount)
}

package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/veltapay/wallet-backend/internal/domain"
	"github.com/veltapay/wallet-backend/internal/logging"
)

type balanceSummer interface {
	SumAllBalances(ctx context.Context) (int64, error)
}

type connectedUserLister interface {
	ListWithProcessorAccount(ctx context.Context) ([]domain.User, error)
}

// BalanceClient queries the external processor's authoritative balances.
// Each call is independently failable; timeouts are failures, never success.
type BalanceClient interface {
	PlatformBalance(ctx context.Context) (int64, error)
	AccountBalance(ctx context.Context, accountRef string) (int64, error)
}

type reportStore interface {
	SaveReport(ctx context.Context, report *domain.ReconciliationReport) error
	SaveAlert(ctx context.Context, report *domain.ReconciliationReport) error
	SaveError(ctx context.Context, cause error) error
}

// Job audits the internal ledger against the processor's ground truth. It
// detects discrepancies and records them; it never mutates balances to
// correct one. Each run is stateless: running twice produces two reports
// and no side effects beyond the audit trail.
type Job struct {
	ledger    balanceSummer
	users     connectedUserLister
	processor BalanceClient
	reports   reportStore
	tolerance int64
}

func NewJob(ledger balanceSummer, users connectedUserLister, processor BalanceClient, reports reportStore, tolerance int64) *Job {
	return &Job{
		ledger:    ledger,
		users:     users,
		processor: processor,
		reports:   reports,
		tolerance: tolerance,
	}
}

// Run performs one reconciliation sweep. A failure computing the internal
// sum or the platform balance aborts the run and leaves a durable error
// record; a failure on an individual connected account is recorded in the
// report and the sweep continues.
func (j *Job) Run(ctx context.Context) (*domain.ReconciliationReport, error) {
	log := logging.FromContext(ctx)
	log.Info("reconciliation run started")

	internal, err := j.ledger.SumAllBalances(ctx)
	if err != nil {
		return nil, j.abort(ctx, fmt.Errorf("Run: internal sum: %w", err))
	}

	platform, err := j.processor.PlatformBalance(ctx)
	if err != nil {
		return nil, j.abort(ctx, fmt.Errorf("Run: platform balance: %w", err))
	}

	connected, checked, errorAccounts, err := j.sumConnectedAccounts(ctx)
	if err != nil {
		return nil, j.abort(ctx, fmt.Errorf("Run: connected accounts: %w", err))
	}

	totalProcessor := platform + connected
	discrepancy := internal - totalProcessor

	report := &domain.ReconciliationReport{
		ID:                       uuid.New(),
		RunAt:                    time.Now().UTC(),
		InternalBalance:          internal,
		PlatformBalance:          platform,
		ConnectedAccountsBalance: connected,
		TotalProcessorBalance:    totalProcessor,
		Discrepancy:              discrepancy,
		IsBalanced:               abs(discrepancy) < j.tolerance,
		AccountsChecked:          checked,
		ErrorAccounts:            errorAccounts,
	}

	if !report.IsBalanced {
		log.Warn("reconciliation discrepancy detected",
			"discrepancy", discrepancy,
			"internal_balance", internal,
			"total_processor_balance", totalProcessor,
		)
		if err := j.reports.SaveAlert(ctx, report); err != nil {
			return nil, j.abort(ctx, fmt.Errorf("Run: save alert: %w", err))
		}
	}

	if err := j.reports.SaveReport(ctx, report); err != nil {
		return nil, j.abort(ctx, fmt.Errorf("Run: save report: %w", err))
	}

	log.Info("reconciliation run completed",
		"is_balanced", report.IsBalanced,
		"discrepancy", discrepancy,
		"accounts_checked", checked,
		"error_accounts", len(errorAccounts),
	)
	return report, nil
}

// sumConnectedAccounts queries every connected sub-account sequentially.
// One failing lookup must not abort the sweep: the account is recorded and
// the loop moves on.
func (j *Job) sumConnectedAccounts(ctx context.Context) (total int64, checked int, errorAccounts []string, err error) {
	users, err := j.users.ListWithProcessorAccount(ctx)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("sumConnectedAccounts: %w", err)
	}

	log := logging.FromContext(ctx)
	for _, u := range users {
		if u.ProcessorAccountID == nil {
			continue
		}
		ref := *u.ProcessorAccountID

		balance, err := j.processor.AccountBalance(ctx, ref)
		if err != nil {
			log.Error("connected account balance lookup failed",
				"account_ref", ref,
				"user_id", u.ID,
				"error", err,
			)
			errorAccounts = append(errorAccounts, ref)
			continue
		}
		total += balance
		checked++
	}
	return total, checked, errorAccounts, nil
}

// abort records the run failure durably before propagating it. The error
// store is best-effort: a failure to record must not mask the cause.
func (j *Job) abort(ctx context.Context, cause error) error {
	if err := j.reports.SaveError(ctx, cause); err != nil {
		logging.FromContext(ctx).Error("failed to record reconciliation error", "error", err)
	}
	logging.FromContext(ctx).Error("reconciliation run failed", "error", cause)
	return cause
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

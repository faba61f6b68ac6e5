package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/veltapay/wallet-backend/internal/domain"
)

const reportColumns = `id, run_at, internal_balance, platform_balance,
	connected_accounts_balance, total_processor_balance, discrepancy,
	is_balanced, accounts_checked, error_accounts`

// ReconciliationRepository persists the audit trail of reconciliation runs:
// one immutable report per run, an alert row per detected discrepancy, and a
// durable error record when a run aborts.
type ReconciliationRepository struct {
	db *sql.DB
}

func NewReconciliationRepository(db *sql.DB) *ReconciliationRepository {
	return &ReconciliationRepository{db: db}
}

func (r *ReconciliationRepository) SaveReport(ctx context.Context, report *domain.ReconciliationReport) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reconciliation_reports (
			id, run_at, internal_balance, platform_balance,
			connected_accounts_balance, total_processor_balance, discrepancy,
			is_balanced, accounts_checked, error_accounts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		report.ID, report.RunAt, report.InternalBalance, report.PlatformBalance,
		report.ConnectedAccountsBalance, report.TotalProcessorBalance, report.Discrepancy,
		report.IsBalanced, report.AccountsChecked, pq.Array(report.ErrorAccounts),
	)
	if err != nil {
		return fmt.Errorf("SaveReport: %w", err)
	}
	return nil
}

func (r *ReconciliationRepository) SaveAlert(ctx context.Context, report *domain.ReconciliationReport) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reconciliation_alerts (id, report_id, discrepancy, created_at, acknowledged)
		VALUES ($1, $2, $3, $4, false)`,
		uuid.New(), report.ID, report.Discrepancy, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("SaveAlert: %w", err)
	}
	return nil
}

// SaveError records a run that aborted before producing a report.
func (r *ReconciliationRepository) SaveError(ctx context.Context, cause error) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reconciliation_errors (id, occurred_at, message)
		VALUES ($1, $2, $3)`,
		uuid.New(), time.Now().UTC(), cause.Error(),
	)
	if err != nil {
		return fmt.Errorf("SaveError: %w", err)
	}
	return nil
}

func (r *ReconciliationRepository) ListReports(ctx context.Context, limit int) ([]domain.ReconciliationReport, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reportColumns+` FROM reconciliation_reports
		ORDER BY run_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ListReports: %w", err)
	}
	defer rows.Close()

	var reports []domain.ReconciliationReport
	for rows.Next() {
		var rep domain.ReconciliationReport
		err := rows.Scan(
			&rep.ID, &rep.RunAt, &rep.InternalBalance, &rep.PlatformBalance,
			&rep.ConnectedAccountsBalance, &rep.TotalProcessorBalance, &rep.Discrepancy,
			&rep.IsBalanced, &rep.AccountsChecked, pq.Array(&rep.ErrorAccounts),
		)
		if err != nil {
			return nil, fmt.Errorf("ListReports: scan: %w", err)
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListReports: rows: %w", err)
	}
	return reports, nil
}

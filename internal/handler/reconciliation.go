package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/veltapay/wallet-backend/internal/domain"
	"github.com/veltapay/wallet-backend/internal/logging"
)

type reconciliationRunner interface {
	Run(ctx context.Context) (*domain.ReconciliationReport, error)
}

type reportLister interface {
	ListReports(ctx context.Context, limit int) ([]domain.ReconciliationReport, error)
}

type ReconciliationHandler struct {
	job     reconciliationRunner
	reports reportLister
}

func NewReconciliationHandler(job reconciliationRunner, reports reportLister) *ReconciliationHandler {
	return &ReconciliationHandler{job: job, reports: reports}
}

type reportDTO struct {
	ID                       uuid.UUID `json:"id"`
	RunAt                    time.Time `json:"run_at"`
	InternalBalance          int64     `json:"internal_balance"`
	PlatformBalance          int64     `json:"platform_balance"`
	ConnectedAccountsBalance int64     `json:"connected_accounts_balance"`
	TotalProcessorBalance    int64     `json:"total_processor_balance"`
	Discrepancy              int64     `json:"discrepancy"`
	IsBalanced               bool      `json:"is_balanced"`
	AccountsChecked          int       `json:"accounts_checked"`
	ErrorAccounts            []string  `json:"error_accounts"`
}

func toReportDTO(rep *domain.ReconciliationReport) reportDTO {
	return reportDTO{
		ID:                       rep.ID,
		RunAt:                    rep.RunAt,
		InternalBalance:          rep.InternalBalance,
		PlatformBalance:          rep.PlatformBalance,
		ConnectedAccountsBalance: rep.ConnectedAccountsBalance,
		TotalProcessorBalance:    rep.TotalProcessorBalance,
		Discrepancy:              rep.Discrepancy,
		IsBalanced:               rep.IsBalanced,
		AccountsChecked:          rep.AccountsChecked,
		ErrorAccounts:            rep.ErrorAccounts,
	}
}

// Run triggers a reconciliation sweep outside the daily schedule.
func (h *ReconciliationHandler) Run(w http.ResponseWriter, r *http.Request) {
	report, err := h.job.Run(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("manual reconciliation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toReportDTO(report))
}

func (h *ReconciliationHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			RespondValidationError(w, []FieldError{{Field: "limit", Message: "must be a positive integer"}})
			return
		}
		limit = n
	}

	reports, err := h.reports.ListReports(r.Context(), limit)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list reconciliation reports", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]reportDTO, len(reports))
	for i := range reports {
		dtos[i] = toReportDTO(&reports[i])
	}

	RespondSuccess(w, http.StatusOK, dtos)
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/veltapay/wallet-backend/internal/domain"
	"github.com/veltapay/wallet-backend/internal/logging"
)

type ledgerService interface {
	Credit(ctx context.Context, userID uuid.UUID, amount int64, description string, md domain.Metadata) (*domain.TransactionEntry, error)
	Debit(ctx context.Context, userID uuid.UUID, amount int64, description string, md domain.Metadata) (*domain.TransactionEntry, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
	GetTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]domain.TransactionEntry, error)
}

type WalletHandler struct {
	ledger   ledgerService
	currency domain.Currency
}

func NewWalletHandler(ledger ledgerService, currency domain.Currency) *WalletHandler {
	return &WalletHandler{ledger: ledger, currency: currency}
}

type ledgerEntryRequest struct {
	Amount      int64           `json:"amount"`
	Description string          `json:"description"`
	Kind        string          `json:"kind,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

func (r ledgerEntryRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	if r.Kind != "" && !domain.EntryKind(r.Kind).IsValid() {
		errs = append(errs, FieldError{Field: "kind", Message: "unknown entry kind"})
	}
	return errs
}

// metadata resolves the request's typed metadata. A missing kind falls back
// to the default for the endpoint; kind compatibility is enforced by the
// ledger service.
func (r ledgerEntryRequest) metadata(defaultKind domain.EntryKind) (domain.Metadata, error) {
	kind := defaultKind
	if r.Kind != "" {
		kind = domain.EntryKind(r.Kind)
	}
	return domain.UnmarshalMetadata(kind, r.Metadata)
}

type entryDTO struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Amount      int64     `json:"amount"`
	Kind        string    `json:"kind"`
	Description string    `json:"description,omitempty"`
	Metadata    any       `json:"metadata"`
	CreatedAt   time.Time `json:"created_at"`
}

func toEntryDTO(e *domain.TransactionEntry) entryDTO {
	return entryDTO{
		ID:          e.ID,
		UserID:      e.UserID,
		Amount:      e.Amount,
		Kind:        string(e.Kind),
		Description: e.Description,
		Metadata:    e.Metadata,
		CreatedAt:   e.CreatedAt,
	}
}

type balanceDTO struct {
	UserID   uuid.UUID `json:"user_id"`
	Balance  int64     `json:"balance"`
	Currency string    `json:"currency"`
}

func (h *WalletHandler) Credit(w http.ResponseWriter, r *http.Request) {
	h.applyEntry(w, r, domain.EntryCredit, h.ledger.Credit)
}

func (h *WalletHandler) Debit(w http.ResponseWriter, r *http.Request) {
	h.applyEntry(w, r, domain.EntryDebit, h.ledger.Debit)
}

func (h *WalletHandler) applyEntry(
	w http.ResponseWriter,
	r *http.Request,
	defaultKind domain.EntryKind,
	apply func(ctx context.Context, userID uuid.UUID, amount int64, description string, md domain.Metadata) (*domain.TransactionEntry, error),
) {
	userID, appErr := ownerFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req ledgerEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	md, err := req.metadata(defaultKind)
	if err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	entry, err := apply(r.Context(), userID, req.Amount, req.Description, md)
	if err != nil {
		logging.FromContext(r.Context()).Warn("ledger entry rejected", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toEntryDTO(entry))
}

func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, appErr := ownerFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	balance, err := h.ledger.GetBalance(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to get balance", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, balanceDTO{
		UserID:   userID,
		Balance:  balance,
		Currency: string(h.currency),
	})
}

func (h *WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, appErr := ownerFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			RespondValidationError(w, []FieldError{{Field: "limit", Message: "must be a non-negative integer"}})
			return
		}
		limit = n
	}

	entries, err := h.ledger.GetTransactions(r.Context(), userID, limit)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list transactions", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]entryDTO, len(entries))
	for i := range entries {
		dtos[i] = toEntryDTO(&entries[i])
	}

	RespondSuccess(w, http.StatusOK, dtos)
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/veltapay/wallet-backend/internal/auth"
	"github.com/veltapay/wallet-backend/internal/logging"
)

type transferService interface {
	SendP2P(ctx context.Context, fromID, toID uuid.UUID, amount int64, description string) (uuid.UUID, error)
}

type TransferHandler struct {
	transfers transferService
}

func NewTransferHandler(transfers transferService) *TransferHandler {
	return &TransferHandler{transfers: transfers}
}

type createTransferRequest struct {
	ToUserID    string `json:"to_user_id"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

func (r createTransferRequest) Validate() []FieldError {
	var errs []FieldError
	if r.ToUserID == "" {
		errs = append(errs, FieldError{Field: "to_user_id", Message: "required"})
	} else if _, err := uuid.Parse(r.ToUserID); err != nil {
		errs = append(errs, FieldError{Field: "to_user_id", Message: "must be a valid uuid"})
	}
	if r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	return errs
}

type transferDTO struct {
	TransferID uuid.UUID `json:"transfer_id"`
	FromUserID uuid.UUID `json:"from_user_id"`
	ToUserID   uuid.UUID `json:"to_user_id"`
	Amount     int64     `json:"amount"`
}

func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	fromID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req createTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	toID, _ := uuid.Parse(req.ToUserID)

	transferID, err := h.transfers.SendP2P(r.Context(), fromID, toID, req.Amount, req.Description)
	if err != nil {
		logging.FromContext(r.Context()).Warn("transfer rejected", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, transferDTO{
		TransferID: transferID,
		FromUserID: fromID,
		ToUserID:   toID,
		Amount:     req.Amount,
	})
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veltapay/wallet-backend/internal/auth"
	"github.com/veltapay/wallet-backend/internal/domain"
)

type mockTransferService struct {
	transferID uuid.UUID
	err        error

	gotFrom   uuid.UUID
	gotTo     uuid.UUID
	gotAmount int64
}

func (m *mockTransferService) SendP2P(_ context.Context, fromID, toID uuid.UUID, amount int64, _ string) (uuid.UUID, error) {
	m.gotFrom, m.gotTo, m.gotAmount = fromID, toID, amount
	if m.err != nil {
		return uuid.Nil, m.err
	}
	return m.transferID, nil
}

func transferBody(toID string, amount int64) string {
	b, _ := json.Marshal(map[string]any{
		"to_user_id":  toID,
		"amount":      amount,
		"description": "lunch",
	})
	return string(b)
}

func TestTransferCreate(t *testing.T) {
	senderID := uuid.New()
	receiverID := uuid.New()

	tests := []struct {
		name       string
		body       string
		authed     bool
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "happy path",
			body:       transferBody(receiverID.String(), 2500),
			authed:     true,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing token",
			body:       transferBody(receiverID.String(), 2500),
			authed:     false,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "MISSING_TOKEN",
		},
		{
			name:       "invalid JSON",
			body:       "not-json",
			authed:     true,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "missing recipient",
			body:       transferBody("", 2500),
			authed:     true,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "malformed recipient id",
			body:       transferBody("not-a-uuid", 2500),
			authed:     true,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "zero amount",
			body:       transferBody(receiverID.String(), 0),
			authed:     true,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "insufficient funds",
			body:       transferBody(receiverID.String(), 2500),
			authed:     true,
			svcErr:     domain.ErrInsufficientFunds,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "INSUFFICIENT_FUNDS",
		},
		{
			name:       "self transfer",
			body:       transferBody(senderID.String(), 2500),
			authed:     true,
			svcErr:     domain.ErrSelfTransfer,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "SELF_TRANSFER_NOT_ALLOWED",
		},
		{
			name:       "receiver not found",
			body:       transferBody(receiverID.String(), 2500),
			authed:     true,
			svcErr:     domain.ErrReceiverNotFound,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "RECEIVER_NOT_FOUND",
		},
		{
			name:       "concurrent modification",
			body:       transferBody(receiverID.String(), 2500),
			authed:     true,
			svcErr:     domain.ErrVersionConflict,
			wantStatus: http.StatusConflict,
			wantCode:   "VERSION_CONFLICT",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockTransferService{transferID: uuid.New(), err: tc.svcErr}
			h := NewTransferHandler(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", strings.NewReader(tc.body))
			if tc.authed {
				req = req.WithContext(auth.ContextWithUserID(req.Context(), senderID))
			}
			rr := httptest.NewRecorder()

			h.Create(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)

			var resp APIResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

			if tc.wantCode == "" {
				assert.True(t, resp.Success)
			} else {
				assert.False(t, resp.Success)
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.wantCode, resp.Error.Code)
			}
		})
	}
}

func TestTransferCreate_PassesArguments(t *testing.T) {
	senderID := uuid.New()
	receiverID := uuid.New()
	transferID := uuid.New()

	svc := &mockTransferService{transferID: transferID}
	h := NewTransferHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", strings.NewReader(transferBody(receiverID.String(), 4200)))
	req = req.WithContext(auth.ContextWithUserID(req.Context(), senderID))
	rr := httptest.NewRecorder()

	h.Create(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, senderID, svc.gotFrom)
	assert.Equal(t, receiverID, svc.gotTo)
	assert.Equal(t, int64(4200), svc.gotAmount)

	var resp struct {
		Data transferDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, transferID, resp.Data.TransferID)
	assert.Equal(t, senderID, resp.Data.FromUserID)
}

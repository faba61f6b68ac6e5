package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInsufficientFunds = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Insufficient funds"}
	ErrWalletNotFound    = &AppError{http.StatusUnprocessableEntity, "WALLET_NOT_FOUND", "Wallet not found"}
	ErrSelfTransfer      = &AppError{http.StatusUnprocessableEntity, "SELF_TRANSFER_NOT_ALLOWED", "Cannot transfer to the same user"}
	ErrSenderNotFound    = &AppError{http.StatusUnprocessableEntity, "SENDER_NOT_FOUND", "Sender not found"}
	ErrReceiverNotFound  = &AppError{http.StatusUnprocessableEntity, "RECEIVER_NOT_FOUND", "Receiver not found"}
	ErrInvalidAmount     = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrInvalidMetadata   = &AppError{http.StatusBadRequest, "INVALID_METADATA", "Metadata kind does not match operation"}
	ErrInvalidCurrency   = &AppError{http.StatusBadRequest, "INVALID_CURRENCY", "Invalid currency"}
	ErrUserExists        = &AppError{http.StatusConflict, "USER_ALREADY_EXISTS", "A user with this email already exists"}
	ErrExternalService   = &AppError{http.StatusBadGateway, "EXTERNAL_SERVICE_ERROR", "External payment processor unavailable"}

	ErrVersionConflict       = &AppError{http.StatusConflict, "VERSION_CONFLICT", "Resource was modified concurrently, please retry"}
	ErrMissingIdempotencyKey = &AppError{http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency-Key header is required"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
)

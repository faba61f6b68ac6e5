package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSenderNotFound    = errors.New("sender not found")
	ErrReceiverNotFound  = errors.New("receiver not found")
	ErrSelfTransfer      = errors.New("cannot transfer to the same user")
	ErrExternalService   = errors.New("external payment processor error")
	ErrInvalidMetadata   = errors.New("metadata kind does not match operation")
	ErrInvalidCurrency   = errors.New("invalid currency")
	ErrVersionConflict   = errors.New("optimistic lock conflict")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrUserExists        = errors.New("user already exists")
)

package domain

import (
	"time"

	"github.com/google/uuid"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	// ProcessorAccountID references the user's sub-account at the external
	// payment processor. Nil until processor onboarding completes.
	ProcessorAccountID *string
	Status             UserStatus
	CreatedAt          time.Time
}

package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/veltapay/wallet-backend/internal/auth"
)

// ownerFromPath resolves the {id} path segment and rejects access to other
// users' wallets. A foreign id responds 404 rather than 403 to avoid
// confirming the id exists.
func ownerFromPath(r *http.Request) (uuid.UUID, *AppError) {
	authUserID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, ErrMissingToken
	}

	userID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, ErrResourceNotFound
	}

	if userID != authUserID {
		return uuid.Nil, ErrResourceNotFound
	}

	return userID, nil
}

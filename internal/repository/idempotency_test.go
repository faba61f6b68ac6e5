package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veltapay/wallet-backend/internal/repository"
	"github.com/veltapay/wallet-backend/internal/testutil"
)

func TestIdempotencyRepository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewIdempotencyRepository(db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "idem@test.com", "Idem")

	rec := &repository.IdempotencyRecord{
		Key:          "key-1",
		UserID:       user.ID,
		RequestHash:  "abc123",
		StatusCode:   201,
		ResponseBody: []byte(`{"success":true}`),
		CreatedAt:    time.Now().UTC(),
		ExpiresAt:    time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, repo.Set(ctx, rec))

	got, err := repo.Get(ctx, "key-1", user.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.RequestHash, got.RequestHash)
	assert.Equal(t, rec.StatusCode, got.StatusCode)
	assert.Equal(t, rec.ResponseBody, got.ResponseBody)

	missing, err := repo.Get(ctx, "no-such-key", user.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	// First write wins on replays of the same key.
	dupe := *rec
	dupe.StatusCode = 500
	require.NoError(t, repo.Set(ctx, &dupe))
	got, err = repo.Get(ctx, "key-1", user.ID)
	require.NoError(t, err)
	assert.Equal(t, 201, got.StatusCode)
}

func TestIdempotencyRepository_Expiry(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewIdempotencyRepository(db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "idem@test.com", "Idem")

	expired := &repository.IdempotencyRecord{
		Key:          "stale-key",
		UserID:       user.ID,
		RequestHash:  "abc",
		StatusCode:   200,
		ResponseBody: []byte(`{}`),
		CreatedAt:    time.Now().UTC().Add(-48 * time.Hour),
		ExpiresAt:    time.Now().UTC().Add(-24 * time.Hour),
	}
	require.NoError(t, repo.Set(ctx, expired))

	got, err := repo.Get(ctx, "stale-key", user.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "expired records must not replay")

	removed, err := repo.CleanExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

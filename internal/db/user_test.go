package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/car-tracker/internal/models"
)

func TestInMemoryUserStore_InsertUser(t *testing.T) {
	store := NewInMemoryUserStore()

	user, err := store.InsertUser(context.Background(), models.User{
		Username:     "admin",
		Email:        "admin@cartracker.com",
		PasswordHash: "hash",
		Role:         models.RoleAdmin,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.NotZero(t, user.CreatedAt)
	assert.NotZero(t, user.UpdatedAt)
}

func TestInMemoryUserStore_DuplicateUsername(t *testing.T) {
	store := NewInMemoryUserStore()

	_, err := store.InsertUser(context.Background(), models.User{Username: "admin", Email: "a@b.com"})
	require.NoError(t, err)

	_, err = store.InsertUser(context.Background(), models.User{Username: "ADMIN", Email: "other@b.com"})
	assert.True(t, errors.Is(err, ErrDuplicateKey), "case-insensitive username clash should be rejected")

	_, err = store.InsertUser(context.Background(), models.User{Username: "other", Email: "A@B.com"})
	assert.True(t, errors.Is(err, ErrDuplicateKey), "case-insensitive email clash should be rejected")
}

func TestInMemoryUserStore_FindUserByLogin(t *testing.T) {
	store := NewInMemoryUserStore()

	inserted, err := store.InsertUser(context.Background(), models.User{
		Username: "admin",
		Email:    "admin@cartracker.com",
	})
	require.NoError(t, err)

	byName, err := store.FindUserByLogin(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, inserted.ID, byName.ID)

	byEmail, err := store.FindUserByLogin(context.Background(), "admin@cartracker.com")
	require.NoError(t, err)
	assert.Equal(t, inserted.ID, byEmail.ID)

	_, err = store.FindUserByLogin(context.Background(), "nobody")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestInMemoryUserStore_FindUserByID(t *testing.T) {
	store := NewInMemoryUserStore()

	inserted, err := store.InsertUser(context.Background(), models.User{Username: "admin", Email: "a@b.com"})
	require.NoError(t, err)

	found, err := store.FindUserByID(context.Background(), inserted.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin", found.Username)

	_, err = store.FindUserByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestInMemoryUserStore_UpdateLastLogin(t *testing.T) {
	store := NewInMemoryUserStore()

	inserted, err := store.InsertUser(context.Background(), models.User{Username: "admin", Email: "a@b.com"})
	require.NoError(t, err)
	require.Nil(t, inserted.LastLogin)

	require.NoError(t, store.UpdateLastLogin(context.Background(), inserted.ID))

	found, err := store.FindUserByID(context.Background(), inserted.ID)
	require.NoError(t, err)
	assert.NotNil(t, found.LastLogin)

	err = store.UpdateLastLogin(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

package database

import (
	"context"
	"testing"

	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetUser(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	user := &models.User{Name: "Alice", Email: "alice@example.com", TelegramID: 777}
	require.NoError(t, db.CreateUser(ctx, user))
	assert.NotZero(t, user.ID)

	got, err := db.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, int64(777), got.TelegramID)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	first := &models.User{Name: "Alice", Email: "alice@example.com"}
	require.NoError(t, db.CreateUser(ctx, first))

	second := &models.User{Name: "Other Alice", Email: "alice@example.com"}
	assert.Error(t, db.CreateUser(ctx, second))
}

func TestGetUserByID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := db.GetUserByID(context.Background(), 12345)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserExists(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	exists, err := db.UserExists(ctx, 1)
	require.NoError(t, err)
	assert.False(t, exists)

	user := createTestUser(t, db, "bob")
	exists, err = db.UserExists(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

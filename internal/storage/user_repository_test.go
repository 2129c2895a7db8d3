package storage_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ChrisKp1710/gamecall/internal/storage"
	"github.com/ChrisKp1710/gamecall/internal/testutil"
)

func TestUserRepository_LockPair(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	err := db.Transaction(func(tx *gorm.DB) error {
		repo := storage.NewGormUserRepository(tx)
		if err := repo.LockPair(ctx, alice.ID, bob.ID); err != nil {
			return err
		}
		// argument order does not matter
		return repo.LockPair(ctx, bob.ID, alice.ID)
	})
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		return storage.NewGormUserRepository(tx).LockPair(ctx, alice.ID, uuid.New())
	})
	assert.True(t, storage.IsNotFound(err), "got %v", err)
}

package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ChrisKp1710/gamecall/internal/config"
	"github.com/ChrisKp1710/gamecall/internal/models"
	"github.com/ChrisKp1710/gamecall/internal/storage"
)

var userSeq atomic.Int64

// SetupTestDB opens a private in-memory SQLite database and migrates it.
// The pool is pinned to one connection because every new :memory: connection is a new database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := storage.InitDB(config.DatabaseConfig{
		Type:       "sqlite",
		SQLitePath: ":memory:",
		LogLevel:   "silent",
	}, zap.NewNop())
	require.NoError(t, err, "SetupTestDB: InitDB")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, storage.AutoMigrateTables(db), "SetupTestDB: AutoMigrate")
	return db
}

// CreateUser inserts a user with a unique username and friend code.
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	n := userSeq.Add(1)
	user := &models.User{
		Username:     username,
		PasswordHash: "x",
		FriendCode:   fmt.Sprintf("GC-T%03d-%04d", n%1000, n),
		Status:       models.UserStatusOffline,
	}
	require.NoError(t, storage.NewGormUserRepository(db).Create(context.Background(), user))
	return user
}

// MakeFriends writes the two accepted edges of a friendship directly.
func MakeFriends(t *testing.T, db *gorm.DB, a, b *models.User) {
	t.Helper()
	repo := storage.NewGormFriendshipRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.Friendship{UserID: a.ID, FriendID: b.ID, Status: models.FriendshipAccepted}))
	require.NoError(t, repo.Create(ctx, &models.Friendship{UserID: b.ID, FriendID: a.ID, Status: models.FriendshipAccepted}))
}

package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisKp1710/gamecall/internal/models"
	"github.com/ChrisKp1710/gamecall/internal/storage"
	"github.com/ChrisKp1710/gamecall/internal/testutil"
)

func TestMessageRepository_ListBetween(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := storage.NewGormMessageRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	carol := testutil.CreateUser(t, db, "carol")

	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	insert := func(from, to *models.User, content string, offset int) *models.Message {
		m := &models.Message{SenderID: from.ID, ReceiverID: to.ID, Content: content}
		m.CreatedAt = base.Add(time.Duration(offset) * time.Minute)
		require.NoError(t, repo.Create(ctx, m))
		return m
	}
	insert(alice, bob, "one", 1)
	insert(bob, alice, "two", 2)
	third := insert(alice, bob, "three", 3)
	insert(alice, carol, "other pair", 4)

	msgs, err := repo.ListBetween(ctx, bob.ID, alice.ID, 50, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"three", "two", "one"}, contents(msgs))

	msgs, err = repo.ListBetween(ctx, alice.ID, bob.ID, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"three", "two"}, contents(msgs))

	before := third.CreatedAt
	msgs, err = repo.ListBetween(ctx, alice.ID, bob.ID, 50, &before)
	require.NoError(t, err)
	assert.Equal(t, []string{"two", "one"}, contents(msgs), "cursor is exclusive")
}

func TestMessageRepository_ReadTracking(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := storage.NewGormMessageRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	carol := testutil.CreateUser(t, db, "carol")

	for _, m := range []*models.Message{
		{SenderID: alice.ID, ReceiverID: bob.ID, Content: "a1"},
		{SenderID: alice.ID, ReceiverID: bob.ID, Content: "a2"},
		{SenderID: carol.ID, ReceiverID: bob.ID, Content: "c1"},
		{SenderID: bob.ID, ReceiverID: alice.ID, Content: "b1"},
	} {
		require.NoError(t, repo.Create(ctx, m))
	}

	counts, err := repo.CountUnreadBySender(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[alice.ID])
	assert.Equal(t, int64(1), counts[carol.ID])
	assert.Len(t, counts, 2)

	now := time.Now()
	n, err := repo.MarkRead(ctx, bob.ID, alice.ID, now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = repo.MarkRead(ctx, bob.ID, alice.ID, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n, "already read messages keep their first read_at")

	counts, err = repo.CountUnreadBySender(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int64{carol.ID: 1}, counts)
}

func contents(msgs []*models.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Content)
	}
	return out
}

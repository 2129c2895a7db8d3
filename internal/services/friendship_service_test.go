package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ChrisKp1710/gamecall/internal/imtypes"
	"github.com/ChrisKp1710/gamecall/internal/models"
	"github.com/ChrisKp1710/gamecall/internal/storage"
	"github.com/ChrisKp1710/gamecall/internal/testutil"
)

func newTestFriendshipService(t *testing.T) (FriendshipService, *gorm.DB, *recordingNotifier) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	notifier := newRecordingNotifier()
	svc := NewFriendshipService(
		db,
		storage.NewGormUserRepository(db),
		storage.NewGormFriendshipRepository(db),
		notifier,
		zap.NewNop(),
	)
	return svc, db, notifier
}

func TestFriendshipService_RequestAcceptFlow(t *testing.T) {
	svc, db, notifier := newTestFriendshipService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	require.NoError(t, svc.Request(ctx, alice.ID, bob.ID))

	pending, err := svc.ListIncomingPending(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, alice.ID.String(), pending[0].ID)
	assert.Equal(t, models.FriendshipPending, pending[0].FriendshipStatus)

	ok, err := svc.IsAccepted(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.Accept(ctx, bob.ID, alice.ID))

	ok, err = svc.IsAccepted(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.IsAccepted(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	toAlice := notifier.events(alice.ID)
	require.Len(t, toAlice, 1)
	assert.Equal(t, imtypes.FriendAdded{FriendID: bob.ID, FriendUsername: "bob", FriendCode: bob.FriendCode}, toAlice[0])
	toBob := notifier.events(bob.ID)
	require.Len(t, toBob, 1)
	assert.Equal(t, imtypes.FriendAdded{FriendID: alice.ID, FriendUsername: "alice", FriendCode: alice.FriendCode}, toBob[0])
}

func TestFriendshipService_RequestErrors(t *testing.T) {
	svc, db, _ := newTestFriendshipService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	err := svc.Request(ctx, alice.ID, alice.ID)
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, svc.Request(ctx, alice.ID, bob.ID))

	err = svc.Request(ctx, alice.ID, bob.ID)
	assert.ErrorIs(t, err, ErrConflict)
	err = svc.Request(ctx, bob.ID, alice.ID)
	assert.ErrorIs(t, err, ErrConflict, "reverse direction is also a conflict")

	stranger := testutil.CreateUser(t, db, "carol")
	require.NoError(t, db.Delete(stranger).Error)
	err = svc.Request(ctx, alice.ID, stranger.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFriendshipService_AcceptWithoutPending(t *testing.T) {
	svc, db, notifier := newTestFriendshipService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	err := svc.Accept(ctx, bob.ID, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// the requester cannot accept their own request
	require.NoError(t, svc.Request(ctx, alice.ID, bob.ID))
	err = svc.Accept(ctx, alice.ID, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, notifier.events(alice.ID))
}

func TestFriendshipService_AcceptRollsBack(t *testing.T) {
	svc, db, _ := newTestFriendshipService(t)
	ctx := context.Background()
	repo := storage.NewGormFriendshipRepository(db)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	require.NoError(t, repo.Create(ctx, &models.Friendship{UserID: alice.ID, FriendID: bob.ID, Status: models.FriendshipPending}))
	// a blocked mirror edge cannot be turned into a friendship
	require.NoError(t, repo.Create(ctx, &models.Friendship{UserID: bob.ID, FriendID: alice.ID, Status: models.FriendshipBlocked}))

	err := svc.Accept(ctx, bob.ID, alice.ID)
	require.Error(t, err)

	edge, err := repo.FindEdge(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NotNil(t, edge)
	assert.Equal(t, models.FriendshipPending, edge.Status, "promotion must be rolled back")
}

func TestFriendshipService_Reject(t *testing.T) {
	svc, db, _ := newTestFriendshipService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	require.NoError(t, svc.Request(ctx, alice.ID, bob.ID))
	require.NoError(t, svc.Reject(ctx, bob.ID, alice.ID))

	err := svc.Reject(ctx, bob.ID, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// after a rejection a new request may be sent
	require.NoError(t, svc.Request(ctx, alice.ID, bob.ID))
}

func TestFriendshipService_RemoveIsIdempotent(t *testing.T) {
	svc, db, notifier := newTestFriendshipService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	testutil.MakeFriends(t, db, alice, bob)

	require.NoError(t, svc.Remove(ctx, alice.ID, bob.ID))
	ok, err := svc.IsAccepted(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []imtypes.Event{imtypes.FriendRemoved{FriendID: alice.ID}}, notifier.events(bob.ID))

	require.NoError(t, svc.Remove(ctx, alice.ID, bob.ID))
	assert.Len(t, notifier.events(bob.ID), 1, "no event when nothing was removed")
}

func TestFriendshipService_ListAcceptedUsesLivePresence(t *testing.T) {
	svc, db, notifier := newTestFriendshipService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	carol := testutil.CreateUser(t, db, "carol")
	testutil.MakeFriends(t, db, alice, bob)
	testutil.MakeFriends(t, db, alice, carol)
	notifier.online[carol.ID] = true

	friends, err := svc.ListAccepted(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, friends, 2)

	status := map[string]string{}
	for _, f := range friends {
		status[f.Username] = f.Status
		assert.Equal(t, models.FriendshipAccepted, f.FriendshipStatus)
	}
	assert.Equal(t, models.UserStatusOffline, status["bob"])
	assert.Equal(t, models.UserStatusOnline, status["carol"])
}

func TestFriendshipService_RequestByFriendCode(t *testing.T) {
	svc, db, _ := newTestFriendshipService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	target, err := svc.RequestByFriendCode(ctx, alice.ID, bob.FriendCode)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, target.ID)

	_, err = svc.RequestByFriendCode(ctx, alice.ID, "GC-ZZZZ-ZZZZ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFriendshipService_AcceptPromotesCrossedRequests(t *testing.T) {
	svc, db, notifier := newTestFriendshipService(t)
	ctx := context.Background()
	repo := storage.NewGormFriendshipRepository(db)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	// both sides asked at the same time
	require.NoError(t, repo.Create(ctx, &models.Friendship{UserID: alice.ID, FriendID: bob.ID, Status: models.FriendshipPending}))
	require.NoError(t, repo.Create(ctx, &models.Friendship{UserID: bob.ID, FriendID: alice.ID, Status: models.FriendshipPending}))

	require.NoError(t, svc.Accept(ctx, bob.ID, alice.ID))

	for _, pair := range [][2]*models.User{{alice, bob}, {bob, alice}} {
		edge, err := repo.FindEdge(ctx, pair[0].ID, pair[1].ID)
		require.NoError(t, err)
		require.NotNil(t, edge)
		assert.Equal(t, models.FriendshipAccepted, edge.Status)
	}
	assert.Len(t, notifier.events(alice.ID), 1)
	assert.Len(t, notifier.events(bob.ID), 1)

	pending, err := svc.ListIncomingPending(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestFriendshipService_ConcurrentCrossedRequests(t *testing.T) {
	svc, db, _ := newTestFriendshipService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, pair := range [][2]*models.User{{alice, bob}, {bob, alice}} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = svc.Request(ctx, pair[0].ID, pair[1].ID)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrConflict)
	}
	assert.Equal(t, 1, succeeded)

	var edges int64
	require.NoError(t, db.Model(&models.Friendship{}).Count(&edges).Error)
	assert.EqualValues(t, 1, edges, "a pending relationship is a single edge")
}

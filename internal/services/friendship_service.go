package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ChrisKp1710/gamecall/internal/imtypes"
	"github.com/ChrisKp1710/gamecall/internal/models"
	"github.com/ChrisKp1710/gamecall/internal/storage"
)

// LiveNotifier pushes events to connected users. The websocket registry implements it.
type LiveNotifier interface {
	SendTo(user uuid.UUID, ev imtypes.Event)
	IsOnline(user uuid.UUID) bool
}

// FriendshipService 定义了好友关系的状态流转操作。
type FriendshipService interface {
	// Request creates a pending requester -> target edge.
	Request(ctx context.Context, requester, target uuid.UUID) error
	// RequestByFriendCode resolves code and sends a request to its owner.
	RequestByFriendCode(ctx context.Context, requester uuid.UUID, code string) (*models.User, error)
	// Accept promotes the pending requester -> accepter edge and adds its mirror, or promotes a
	// crossed pending request in the other direction.
	Accept(ctx context.Context, accepter, requester uuid.UUID) error
	Reject(ctx context.Context, rejecter, requester uuid.UUID) error
	// Remove deletes every edge between a and b. Removing a missing relationship succeeds.
	Remove(ctx context.Context, a, b uuid.UUID) error
	IsAccepted(ctx context.Context, a, b uuid.UUID) (bool, error)
	ListAccepted(ctx context.Context, user uuid.UUID) ([]*models.FriendWithUser, error)
	ListIncomingPending(ctx context.Context, user uuid.UUID) ([]*models.FriendWithUser, error)
}

type friendshipService struct {
	db             *gorm.DB
	userRepo       storage.UserRepository
	friendshipRepo storage.FriendshipRepository
	notifier       LiveNotifier
	logger         *zap.Logger
}

// NewFriendshipService creates a FriendshipService. notifier may be nil, which disables live events.
func NewFriendshipService(
	db *gorm.DB,
	userRepo storage.UserRepository,
	friendshipRepo storage.FriendshipRepository,
	notifier LiveNotifier,
	logger *zap.Logger,
) FriendshipService {
	return &friendshipService{
		db:             db,
		userRepo:       userRepo,
		friendshipRepo: friendshipRepo,
		notifier:       notifier,
		logger:         logger.Named("friendship"),
	}
}

func (s *friendshipService) Request(ctx context.Context, requester, target uuid.UUID) error {
	if requester == target {
		return ErrSelfFriendship
	}

	// 按 id 顺序锁住双方用户行，交叉的两个请求在此串行化，检查与插入之间不会插入另一条边。
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := storage.NewGormUserRepository(tx).LockPair(ctx, requester, target); err != nil {
			if storage.IsNotFound(err) {
				return ErrUserNotFound
			}
			return storageErr("lock user pair", err)
		}
		txFriendshipRepo := storage.NewGormFriendshipRepository(tx)

		exists, err := txFriendshipRepo.ExistsBetween(ctx, requester, target)
		if err != nil {
			return storageErr("check existing edges", err)
		}
		if exists {
			return ErrRelationshipExists
		}

		edge := &models.Friendship{UserID: requester, FriendID: target, Status: models.FriendshipPending}
		if err := txFriendshipRepo.Create(ctx, edge); err != nil {
			if storage.IsDuplicateKey(err) {
				return ErrRelationshipExists
			}
			return storageErr("create pending edge", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("friend request created",
		zap.Stringer("requester", requester), zap.Stringer("target", target))
	return nil
}

func (s *friendshipService) RequestByFriendCode(ctx context.Context, requester uuid.UUID, code string) (*models.User, error) {
	target, err := s.userRepo.GetByFriendCode(ctx, code)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrFriendCodeNotFound
		}
		return nil, storageErr("get user by friend code", err)
	}
	if err := s.Request(ctx, requester, target.ID); err != nil {
		return nil, err
	}
	return target, nil
}

func (s *friendshipService) Accept(ctx context.Context, accepter, requester uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := storage.NewGormUserRepository(tx).LockPair(ctx, accepter, requester); err != nil {
			if storage.IsNotFound(err) {
				return ErrNoPendingRequest
			}
			return storageErr("lock user pair", err)
		}
		txFriendshipRepo := storage.NewGormFriendshipRepository(tx)

		n, err := txFriendshipRepo.UpdateStatus(ctx, requester, accepter, models.FriendshipPending, models.FriendshipAccepted)
		if err != nil {
			return storageErr("promote pending edge", err)
		}
		if n == 0 {
			return ErrNoPendingRequest
		}

		reverse, err := txFriendshipRepo.FindEdge(ctx, accepter, requester)
		if err != nil {
			return storageErr("find mirror edge", err)
		}
		switch {
		case reverse == nil:
			mirror := &models.Friendship{UserID: accepter, FriendID: requester, Status: models.FriendshipAccepted}
			if err := txFriendshipRepo.Create(ctx, mirror); err != nil {
				if storage.IsDuplicateKey(err) {
					return ErrRelationshipExists
				}
				return storageErr("create mirror edge", err)
			}
		case reverse.Status == models.FriendshipPending:
			// 双方互发了请求，一并提升
			if _, err := txFriendshipRepo.UpdateStatus(ctx, accepter, requester, models.FriendshipPending, models.FriendshipAccepted); err != nil {
				return storageErr("promote reverse edge", err)
			}
		case reverse.Status == models.FriendshipAccepted:
			// 已是好友
		default:
			return ErrRelationshipExists
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("friend request accepted",
		zap.Stringer("accepter", accepter), zap.Stringer("requester", requester))
	s.notifyFriendAdded(ctx, accepter, requester)
	return nil
}

func (s *friendshipService) Reject(ctx context.Context, rejecter, requester uuid.UUID) error {
	n, err := s.friendshipRepo.DeleteEdge(ctx, requester, rejecter, models.FriendshipPending)
	if err != nil {
		return storageErr("delete pending edge", err)
	}
	if n == 0 {
		return ErrNoPendingRequest
	}
	return nil
}

func (s *friendshipService) Remove(ctx context.Context, a, b uuid.UUID) error {
	var n int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 已删除的用户无法再接受请求，此时不加锁直接删除
		if err := storage.NewGormUserRepository(tx).LockPair(ctx, a, b); err != nil && !storage.IsNotFound(err) {
			return storageErr("lock user pair", err)
		}
		var err error
		n, err = storage.NewGormFriendshipRepository(tx).DeleteBetween(ctx, a, b)
		if err != nil {
			return storageErr("delete edges", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if n > 0 && s.notifier != nil {
		s.notifier.SendTo(b, imtypes.FriendRemoved{FriendID: a})
	}
	return nil
}

func (s *friendshipService) IsAccepted(ctx context.Context, a, b uuid.UUID) (bool, error) {
	ok, err := s.friendshipRepo.IsAccepted(ctx, a, b)
	if err != nil {
		return false, storageErr("check accepted edge", err)
	}
	return ok, nil
}

func (s *friendshipService) ListAccepted(ctx context.Context, user uuid.UUID) ([]*models.FriendWithUser, error) {
	edges, err := s.friendshipRepo.ListOutgoing(ctx, user, models.FriendshipAccepted)
	if err != nil {
		return nil, storageErr("list accepted edges", err)
	}
	peers := make([]uuid.UUID, 0, len(edges))
	for _, e := range edges {
		peers = append(peers, e.FriendID)
	}
	return s.withProfiles(ctx, peers, models.FriendshipAccepted)
}

func (s *friendshipService) ListIncomingPending(ctx context.Context, user uuid.UUID) ([]*models.FriendWithUser, error) {
	edges, err := s.friendshipRepo.ListIncoming(ctx, user, models.FriendshipPending)
	if err != nil {
		return nil, storageErr("list pending edges", err)
	}
	requesters := make([]uuid.UUID, 0, len(edges))
	for _, e := range edges {
		requesters = append(requesters, e.UserID)
	}
	return s.withProfiles(ctx, requesters, models.FriendshipPending)
}

// withProfiles joins ids with their public profile, keeping the order of ids.
// Status reflects the registry rather than the stored column.
func (s *friendshipService) withProfiles(ctx context.Context, ids []uuid.UUID, status models.FriendshipStatus) ([]*models.FriendWithUser, error) {
	result := make([]*models.FriendWithUser, 0, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, storageErr("load friend profiles", err)
	}
	for _, id := range ids {
		u, ok := users[id]
		if !ok {
			continue
		}
		info := u.BasicInfo()
		info.Status = models.UserStatusOffline
		if s.notifier != nil && s.notifier.IsOnline(id) {
			info.Status = models.UserStatusOnline
		}
		result = append(result, &models.FriendWithUser{UserBasicInfo: *info, FriendshipStatus: status})
	}
	return result, nil
}

func (s *friendshipService) notifyFriendAdded(ctx context.Context, a, b uuid.UUID) {
	if s.notifier == nil {
		return
	}
	users, err := s.userRepo.GetByIDs(ctx, []uuid.UUID{a, b})
	if err != nil {
		s.logger.Warn("skip friend_added notification", zap.Error(err))
		return
	}
	ua, okA := users[a]
	ub, okB := users[b]
	if !okA || !okB {
		s.logger.Warn("skip friend_added notification", zap.Error(errors.New("user row missing")))
		return
	}
	s.notifier.SendTo(a, imtypes.FriendAdded{FriendID: ub.ID, FriendUsername: ub.Username, FriendCode: ub.FriendCode})
	s.notifier.SendTo(b, imtypes.FriendAdded{FriendID: ua.ID, FriendUsername: ua.Username, FriendCode: ua.FriendCode})
}

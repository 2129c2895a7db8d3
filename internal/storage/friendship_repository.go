package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ChrisKp1710/gamecall/internal/models"
)

// FriendshipRepository stores directed friendship edges.
// State transitions live in services.FriendshipService; this layer only reads and writes rows.
type FriendshipRepository interface {
	Create(ctx context.Context, edge *models.Friendship) error
	// FindEdge returns the owner -> peer edge, or nil, nil when there is none.
	FindEdge(ctx context.Context, owner, peer uuid.UUID) (*models.Friendship, error)
	// ExistsBetween reports whether any edge exists between a and b in either direction.
	ExistsBetween(ctx context.Context, a, b uuid.UUID) (bool, error)
	IsAccepted(ctx context.Context, owner, peer uuid.UUID) (bool, error)
	// UpdateStatus moves the owner -> peer edge from one status to another and returns the rows changed.
	UpdateStatus(ctx context.Context, owner, peer uuid.UUID, from, to models.FriendshipStatus) (int64, error)
	// DeleteEdge removes the owner -> peer edge if it has the given status.
	DeleteEdge(ctx context.Context, owner, peer uuid.UUID, status models.FriendshipStatus) (int64, error)
	// DeleteBetween removes every edge between a and b regardless of status.
	DeleteBetween(ctx context.Context, a, b uuid.UUID) (int64, error)
	ListOutgoing(ctx context.Context, owner uuid.UUID, status models.FriendshipStatus) ([]models.Friendship, error)
	ListIncoming(ctx context.Context, peer uuid.UUID, status models.FriendshipStatus) ([]models.Friendship, error)
}

type gormFriendshipRepository struct {
	db *gorm.DB
}

// NewGormFriendshipRepository creates a new GORM-based FriendshipRepository.
func NewGormFriendshipRepository(db *gorm.DB) FriendshipRepository {
	return &gormFriendshipRepository{db: db}
}

func (r *gormFriendshipRepository) Create(ctx context.Context, edge *models.Friendship) error {
	return r.db.WithContext(ctx).Create(edge).Error
}

func (r *gormFriendshipRepository) FindEdge(ctx context.Context, owner, peer uuid.UUID) (*models.Friendship, error) {
	var edge models.Friendship
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND friend_id = ?", owner, peer).
		First(&edge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &edge, nil
}

func (r *gormFriendshipRepository) ExistsBetween(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Friendship{}).
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)", a, b, b, a).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *gormFriendshipRepository) IsAccepted(ctx context.Context, owner, peer uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Friendship{}).
		Where("user_id = ? AND friend_id = ? AND status = ?", owner, peer, models.FriendshipAccepted).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *gormFriendshipRepository) UpdateStatus(ctx context.Context, owner, peer uuid.UUID, from, to models.FriendshipStatus) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Friendship{}).
		Where("user_id = ? AND friend_id = ? AND status = ?", owner, peer, from).
		Update("status", to)
	return res.RowsAffected, res.Error
}

func (r *gormFriendshipRepository) DeleteEdge(ctx context.Context, owner, peer uuid.UUID, status models.FriendshipStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND friend_id = ? AND status = ?", owner, peer, status).
		Delete(&models.Friendship{})
	return res.RowsAffected, res.Error
}

func (r *gormFriendshipRepository) DeleteBetween(ctx context.Context, a, b uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)", a, b, b, a).
		Delete(&models.Friendship{})
	return res.RowsAffected, res.Error
}

func (r *gormFriendshipRepository) ListOutgoing(ctx context.Context, owner uuid.UUID, status models.FriendshipStatus) ([]models.Friendship, error) {
	var edges []models.Friendship
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", owner, status).
		Order("created_at ASC").
		Find(&edges).Error
	return edges, err
}

func (r *gormFriendshipRepository) ListIncoming(ctx context.Context, peer uuid.UUID, status models.FriendshipStatus) ([]models.Friendship, error) {
	var edges []models.Friendship
	err := r.db.WithContext(ctx).
		Where("friend_id = ? AND status = ?", peer, status).
		Order("created_at ASC").
		Find(&edges).Error
	return edges, err
}

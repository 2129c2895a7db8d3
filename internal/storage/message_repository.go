package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ChrisKp1710/gamecall/internal/models"
)

// MessageRepository 定义了消息数据操作的接口。
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	// ListBetween returns messages exchanged by a and b in either direction, newest first.
	// A non-nil before keeps only messages created strictly earlier.
	ListBetween(ctx context.Context, a, b uuid.UUID, limit int, before *time.Time) ([]*models.Message, error)
	// MarkRead stamps every unread message sender -> receiver with at and returns the rows changed.
	MarkRead(ctx context.Context, receiver, sender uuid.UUID, at time.Time) (int64, error)
	// CountUnreadBySender groups unread messages addressed to receiver by their sender.
	CountUnreadBySender(ctx context.Context, receiver uuid.UUID) (map[uuid.UUID]int64, error)
}

// gormMessageRepository 使用 GORM 实现 MessageRepository。
type gormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository 创建一个新的基于 GORM 的 MessageRepository。
func NewGormMessageRepository(db *gorm.DB) MessageRepository {
	return &gormMessageRepository{db: db}
}

// Create 在数据库中创建一条新的消息记录。
func (r *gormMessageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *gormMessageRepository) ListBetween(ctx context.Context, a, b uuid.UUID, limit int, before *time.Time) ([]*models.Message, error) {
	messages := make([]*models.Message, 0)
	query := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a)
	if before != nil {
		query = query.Where("created_at < ?", before.UTC())
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Order("created_at DESC").Order("id DESC").Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *gormMessageRepository) MarkRead(ctx context.Context, receiver, sender uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND read_at IS NULL", receiver, sender).
		Update("read_at", at.UTC())
	return res.RowsAffected, res.Error
}

func (r *gormMessageRepository) CountUnreadBySender(ctx context.Context, receiver uuid.UUID) (map[uuid.UUID]int64, error) {
	var rows []struct {
		SenderID uuid.UUID
		Count    int64
	}
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Select("sender_id, COUNT(*) AS count").
		Where("receiver_id = ? AND read_at IS NULL", receiver).
		Group("sender_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.SenderID] = row.Count
	}
	return counts, nil
}

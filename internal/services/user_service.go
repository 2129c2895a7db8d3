package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/ChrisKp1710/gamecall/internal/models"
	"github.com/ChrisKp1710/gamecall/internal/storage"
)

// UserService 定义了用户相关服务的接口。
type UserService interface {
	GetUserProfile(ctx context.Context, userID uuid.UUID) (*models.User, error)
	// SetPresence records the stored online/offline column. Live presence comes from the registry.
	SetPresence(ctx context.Context, userID uuid.UUID, online bool) error
}

// userService 是 UserService 的实现。
type userService struct {
	userRepo storage.UserRepository
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo storage.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

// GetUserProfile 获取用户的个人资料。
func (s *userService) GetUserProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, storageErr("get user", err)
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) SetPresence(ctx context.Context, userID uuid.UUID, online bool) error {
	status := models.UserStatusOffline
	if online {
		status = models.UserStatusOnline
	}
	if err := s.userRepo.UpdateStatus(ctx, userID, status); err != nil {
		return storageErr("update user status", err)
	}
	return nil
}

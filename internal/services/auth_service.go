package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ChrisKp1710/gamecall/internal/auth"
	"github.com/ChrisKp1710/gamecall/internal/config"
	"github.com/ChrisKp1710/gamecall/internal/models"
	"github.com/ChrisKp1710/gamecall/internal/storage"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 50
	minPasswordLength = 6
)

// AuthService 定义了用户认证服务的接口。
type AuthService interface {
	// Register creates an account and returns it with a freshly issued token.
	Register(ctx context.Context, username, password string) (token string, user *models.User, err error)
	Login(ctx context.Context, username, password string) (token string, user *models.User, err error)
}

// authService 是 AuthService 的实现。
type authService struct {
	userRepo storage.UserRepository
	cfg      config.AuthConfig
	logger   *zap.Logger
}

// NewAuthService 创建一个新的 AuthService 实例。
func NewAuthService(userRepo storage.UserRepository, cfg config.AuthConfig, logger *zap.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		cfg:      cfg,
		logger:   logger.Named("auth"),
	}
}

// Register 处理用户注册逻辑。
func (s *authService) Register(ctx context.Context, username, password string) (string, *models.User, error) {
	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n < minUsernameLength || n > maxUsernameLength {
		return "", nil, ErrInvalidUsername
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return "", nil, ErrPasswordTooShort
	}

	_, err := s.userRepo.GetByUsername(ctx, username)
	if err == nil {
		return "", nil, ErrUserAlreadyExists
	} else if !storage.IsNotFound(err) {
		return "", nil, storageErr("check username", err)
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", nil, fmt.Errorf("hash password: %w", err)
	}

	code, err := uniqueFriendCode(ctx, s.userRepo.FriendCodeExists)
	if err != nil {
		return "", nil, err
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hashedPassword,
		FriendCode:   code,
		Status:       models.UserStatusOffline,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// 并发注册同名用户时由唯一索引拦截
		if storage.IsDuplicateKey(err) {
			return "", nil, ErrUserAlreadyExists
		}
		return "", nil, storageErr("create user", err)
	}

	token, err := auth.GenerateToken(user.ID, user.Username, s.cfg)
	if err != nil {
		return "", nil, err
	}

	s.logger.Info("user registered", zap.Stringer("user_id", user.ID), zap.String("username", user.Username))
	return token, user, nil
}

// Login 处理用户登录逻辑。
func (s *authService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if storage.IsNotFound(err) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, storageErr("find user", err)
	}

	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, user.Username, s.cfg)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

package auth

import (
	"context"
	"errors"
	"time"
)

// ErrRevocationUnavailable is returned by Revoke when no blacklist store is configured.
var ErrRevocationUnavailable = errors.New("token revocation is not configured")

// TokenBlacklist 定义了 Token 黑名单的存储操作接口
type TokenBlacklist interface {
	// Add blacklists jti until originalTokenExpTime, after which the entry may disappear.
	Add(ctx context.Context, jti string, originalTokenExpTime time.Time) error
	// IsBlacklisted 检查 jti 是否存在于黑名单中。
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

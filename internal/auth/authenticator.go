package auth

import (
	"context"

	"github.com/ChrisKp1710/gamecall/internal/config"
)

// Authenticator turns a bearer credential into verified claims. The REST middleware and the
// websocket upgrade both go through it, so a token is equally trusted whichever way it arrived.
type Authenticator struct {
	secret    string
	blacklist TokenBlacklist
}

// NewAuthenticator creates an Authenticator. blacklist may be nil.
func NewAuthenticator(cfg config.AuthConfig, blacklist TokenBlacklist) *Authenticator {
	return &Authenticator{secret: cfg.JWTSecretKey, blacklist: blacklist}
}

// Authenticate validates tokenString and returns its claims.
func (a *Authenticator) Authenticate(ctx context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenInvalid
	}
	return ValidateToken(ctx, tokenString, a.secret, a.blacklist)
}

// Revoke blacklists the token described by claims until it would have expired anyway.
func (a *Authenticator) Revoke(ctx context.Context, claims *Claims) error {
	if a.blacklist == nil {
		return ErrRevocationUnavailable
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return ErrTokenInvalid
	}
	return a.blacklist.Add(ctx, claims.ID, claims.ExpiresAt.Time)
}

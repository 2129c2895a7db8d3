package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisKp1710/gamecall/internal/config"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecretKey: "test-secret",
		JWTExpiry:    time.Hour,
		JWTIssuer:    "gamecall-test",
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	cfg := testAuthConfig()
	userID := uuid.New()

	token, err := GenerateToken(userID, "mario", cfg)
	require.NoError(t, err)

	claims, err := ValidateToken(context.Background(), token, cfg.JWTSecretKey, nil)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "mario", claims.Username)
	assert.Equal(t, "gamecall-test", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	cfg := testAuthConfig()
	token, err := GenerateToken(uuid.New(), "mario", cfg)
	require.NoError(t, err)

	_, err = ValidateToken(context.Background(), token, "other-secret", nil)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	cfg := testAuthConfig()
	cfg.JWTExpiry = -time.Minute
	token, err := GenerateToken(uuid.New(), "mario", cfg)
	require.NoError(t, err)

	_, err = ValidateToken(context.Background(), token, cfg.JWTSecretKey, nil)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateTokenRejectsOtherAlgorithms(t *testing.T) {
	claims := &Claims{UserID: uuid.New(), Username: "x"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidateToken(context.Background(), token, "test-secret", nil)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAuthenticatorRevoke(t *testing.T) {
	cfg := testAuthConfig()
	a := NewAuthenticator(cfg, NewMemoryBlacklist())
	ctx := context.Background()

	token, err := GenerateToken(uuid.New(), "luigi", cfg)
	require.NoError(t, err)

	claims, err := a.Authenticate(ctx, token)
	require.NoError(t, err)

	require.NoError(t, a.Revoke(ctx, claims))
	_, err = a.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestAuthenticatorWithoutBlacklist(t *testing.T) {
	a := NewAuthenticator(testAuthConfig(), nil)

	_, err := a.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, ErrTokenInvalid)
	assert.ErrorIs(t, a.Revoke(context.Background(), &Claims{}), ErrRevocationUnavailable)
}

func TestMemoryBlacklistExpiry(t *testing.T) {
	b := NewMemoryBlacklist()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, b.Add(ctx, "a", now.Add(time.Minute)))
	require.NoError(t, b.Add(ctx, "old", now.Add(-time.Minute)))

	ok, _ := b.IsBlacklisted(ctx, "a")
	assert.True(t, ok)
	ok, _ = b.IsBlacklisted(ctx, "old")
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = b.IsBlacklisted(ctx, "a")
	assert.False(t, ok)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.True(t, CheckPasswordHash("hunter22", hash))
	assert.False(t, CheckPasswordHash("hunter23", hash))
}

package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockielts/mockielts-backend/internal/config"
	"github.com/mockielts/mockielts-backend/internal/model"
)

func newTestAuth() *AuthService {
	return NewAuthService(&config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour})
}

func TestAuthService_RoundTrip(t *testing.T) {
	auth := newTestAuth()

	token, err := auth.GenerateToken("admin-1", model.RoleAdmin, []string{"tests:write"})
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.True(t, claims.IsAdmin())
	assert.True(t, claims.HasPermission("tests:write"))
	assert.False(t, claims.HasPermission("tests:publish"))
}

func TestAuthService_CandidatesCarryNoPermissions(t *testing.T) {
	auth := newTestAuth()

	token, err := auth.GenerateToken("u1", model.RoleCandidate, []string{"tests:write"})
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Empty(t, claims.Permissions)
}

func TestAuthService_Expired(t *testing.T) {
	auth := newTestAuth()
	auth.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := auth.GenerateToken("u1", model.RoleCandidate, nil)
	require.NoError(t, err)

	auth.now = time.Now
	_, err = auth.ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestAuthService_WrongSecret(t *testing.T) {
	token, err := newTestAuth().GenerateToken("u1", model.RoleCandidate, nil)
	require.NoError(t, err)

	other := NewAuthService(&config.Config{JWTSecret: "other", JWTExpiry: time.Hour})
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = other.ValidateToken("garbage")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

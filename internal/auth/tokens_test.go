package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libshelf/library-api/internal/entities"
)

func testUser(role entities.Role) *entities.User {
	return &entities.User{
		ID:       42,
		Username: "paul",
		Profile:  &entities.Profile{Role: role},
	}
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	tokens := NewTokenService("test-secret", 15*time.Minute, 24*time.Hour)

	pair, err := tokens.IssuePair(testUser(entities.RoleLibrarian))
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)

	claims, err := tokens.VerifyAccess(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "paul", claims.Username)
	assert.Equal(t, entities.RoleLibrarian, claims.Role)

	refreshClaims, err := tokens.VerifyRefresh(pair.Refresh)
	require.NoError(t, err)
	assert.Equal(t, uint(42), refreshClaims.UserID)
}

func TestTokenService_TokenTypeIsEnforced(t *testing.T) {
	tokens := NewTokenService("test-secret", 15*time.Minute, 24*time.Hour)

	pair, err := tokens.IssuePair(testUser(entities.RoleUser))
	require.NoError(t, err)

	_, err = tokens.VerifyAccess(pair.Refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.VerifyRefresh(pair.Access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_ExpiredToken(t *testing.T) {
	tokens := NewTokenService("test-secret", -time.Minute, 24*time.Hour)

	pair, err := tokens.IssuePair(testUser(entities.RoleUser))
	require.NoError(t, err)

	_, err = tokens.VerifyAccess(pair.Access)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenService_WrongSecret(t *testing.T) {
	tokens := NewTokenService("test-secret", 15*time.Minute, 24*time.Hour)
	other := NewTokenService("other-secret", 15*time.Minute, 24*time.Hour)

	pair, err := tokens.IssuePair(testUser(entities.RoleUser))
	require.NoError(t, err)

	_, err = other.VerifyAccess(pair.Access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_MissingProfileDefaultsToUserRole(t *testing.T) {
	tokens := NewTokenService("test-secret", 15*time.Minute, 24*time.Hour)

	pair, err := tokens.IssuePair(&entities.User{ID: 7, Username: "ghost"})
	require.NoError(t, err)

	claims, err := tokens.VerifyAccess(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, entities.RoleUser, claims.Role)
}

func TestTokenService_GarbageToken(t *testing.T) {
	tokens := NewTokenService("test-secret", 15*time.Minute, 24*time.Hour)

	_, err := tokens.VerifyAccess("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashPassword_TooLong(t *testing.T) {
	_, err := HashPassword(string(make([]byte, 73)), 4)
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret123", 4)
	require.NoError(t, err)

	assert.NoError(t, CheckPassword("secret123", hash))
	assert.ErrorIs(t, CheckPassword("wrong", hash), ErrInvalidPassword)
}

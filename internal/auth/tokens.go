package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/libshelf/library-api/internal/entities"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims carries the principal's identity and role inside both token types.
type Claims struct {
	UserID    uint          `json:"uid"`
	Username  string        `json:"username"`
	Role      entities.Role `json:"role"`
	TokenType string        `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair is the response of login and refresh.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// TokenService issues and verifies the signed access/refresh token pair.
type TokenService struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewTokenService(secret string, accessExpiry, refreshExpiry time.Duration) *TokenService {
	return &TokenService{
		secret:        []byte(secret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// IssuePair creates a fresh access/refresh pair for the user.
func (t *TokenService) IssuePair(user *entities.User) (*TokenPair, error) {
	role := entities.RoleUser
	if user.Profile != nil {
		role = user.Profile.Role
	}

	access, err := t.sign(user, role, tokenTypeAccess, t.accessExpiry)
	if err != nil {
		return nil, err
	}
	refresh, err := t.sign(user, role, tokenTypeRefresh, t.refreshExpiry)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// VerifyAccess parses and validates an access token.
func (t *TokenService) VerifyAccess(token string) (*Claims, error) {
	return t.verify(token, tokenTypeAccess)
}

// VerifyRefresh parses and validates a refresh token.
func (t *TokenService) VerifyRefresh(token string) (*Claims, error) {
	return t.verify(token, tokenTypeRefresh)
}

func (t *TokenService) sign(user *entities.User, role entities.Role, tokenType string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (t *TokenService) verify(tokenStr, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != wantType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

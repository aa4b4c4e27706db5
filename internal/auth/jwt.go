package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour

	issuer = "comandas"
)

// Token kinds. A refresh token never authenticates an API call.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenKind    = errors.New("wrong token kind")
)

// Claims is the payload of every token this service signs. Refresh tokens
// leave Name and Role empty.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name,omitempty"`
	Role   string    `json:"role,omitempty"`
	Kind   string    `json:"kind"`
	jwt.RegisteredClaims
}

// GenerateToken signs a short-lived access token for a session.
func GenerateToken(secret string, userID uuid.UUID, name, role string) (string, error) {
	return sign(secret, Claims{UserID: userID, Name: name, Role: role, Kind: KindAccess}, AccessTokenTTL)
}

// GenerateRefreshToken signs a token that can only be exchanged at /auth/refresh.
func GenerateRefreshToken(secret string, userID uuid.UUID) (string, error) {
	return sign(secret, Claims{UserID: userID, Kind: KindRefresh}, RefreshTokenTTL)
}

func sign(secret string, c Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	c.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   c.UserID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

// ValidateToken parses an access token and returns its claims.
func ValidateToken(secret, tokenStr string) (*Claims, error) {
	return parse(secret, tokenStr, KindAccess)
}

// ValidateRefreshToken parses a refresh token and returns the user it was issued to.
func ValidateRefreshToken(secret, tokenStr string) (uuid.UUID, error) {
	c, err := parse(secret, tokenStr, KindRefresh)
	if err != nil {
		return uuid.Nil, err
	}
	return c.UserID, nil
}

func parse(secret, tokenStr, kind string) (*Claims, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(tokenStr, &c, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	if c.Kind != kind {
		return nil, ErrTokenKind
	}
	return &c, nil
}

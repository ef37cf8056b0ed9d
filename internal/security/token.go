package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Actor is the authenticated caller of a transition. Whether the actor is
// buyer or supplier is decided per entity; only the admin flag travels in
// the token.
type Actor struct {
	UserID uuid.UUID
	Admin  bool
}

// UserClaims defines the claims the engine understands. Tokens are issued
// by the surrounding auth system; the engine only validates them.
type UserClaims struct {
	UserID uuid.UUID `json:"user_id"`
	Roles  []string  `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

func (c *UserClaims) Actor() Actor {
	a := Actor{UserID: c.UserID}
	for _, r := range c.Roles {
		if r == "admin" {
			a.Admin = true
		}
	}
	return a
}

type TokenManager interface {
	ValidateToken(tokenString string) (*UserClaims, error)
	// GenerateToken exists for local tooling and tests; production tokens
	// come from the auth service.
	GenerateToken(userID uuid.UUID, roles []string, ttl time.Duration) (string, error)
}

type tokenManager struct {
	secret []byte
}

func NewTokenManager(secret string) TokenManager {
	return &tokenManager{
		secret: []byte(secret),
	}
}

func (m *tokenManager) GenerateToken(userID uuid.UUID, roles []string, ttl time.Duration) (string, error) {
	claims := UserClaims{
		UserID: userID,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "auth-service",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *tokenManager) ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		if claims.UserID == uuid.Nil && claims.Subject != "" {
			if uid, err := uuid.Parse(claims.Subject); err == nil {
				claims.UserID = uid
			}
		}
		return claims, nil
	}

	return nil, ErrInvalidToken
}

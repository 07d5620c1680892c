package service

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token kinds carried in the typ claim. An access token never refreshes and
// a refresh token never authorizes a request.
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

// Claims are embedded in every token the auth service signs.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

// SignToken signs c with HS256.
func SignToken(secret string, c Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

// ParseToken verifies raw and returns its claims when it is an unexpired
// token of kind want. Every failure is ReasonUnauthorized.
func ParseToken(secret, raw, want string) (*Claims, error) {
	c := &Claims{}
	_, err := jwt.ParseWithClaims(raw, c, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, newError(ReasonUnauthorized, "invalid or expired token")
	}
	if c.Type != want {
		return nil, newError(ReasonUnauthorized, "wrong token type")
	}
	if _, err := uuid.Parse(c.UserID); err != nil {
		return nil, newError(ReasonUnauthorized, "malformed token")
	}
	return c, nil
}

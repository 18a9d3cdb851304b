package domain

import "time"

// TokenKind discriminates access tokens from refresh tokens. The two kinds
// are signed with independent secrets and are never interchangeable.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// TokenClaims is the shared claim shape carried by both token kinds.
// Timestamps are second-granularity epoch values.
type TokenClaims struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Kind      TokenKind `json:"kind"`
	IssuedAt  int64     `json:"iat"`
	ExpiresAt int64     `json:"exp"`
}

// IsExpired checks the expiry claim against the wall clock.
func (tc TokenClaims) IsExpired() bool {
	return time.Now().Unix() >= tc.ExpiresAt
}

// TokenPair bundles a freshly issued access/refresh token couple.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

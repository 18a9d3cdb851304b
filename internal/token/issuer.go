// Package token mints and verifies the signed access/refresh token pair.
// Verification is pure: no store access, no network.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lumeo/auth-core/internal/domain"
	autherr "github.com/lumeo/auth-core/internal/errors"
)

const minSecretLength = 32

// Issuer signs and verifies tokens. Each token kind has its own HMAC secret
// and lifetime.
type Issuer struct {
	secrets   map[domain.TokenKind][]byte
	lifetimes map[domain.TokenKind]time.Duration
	now       func() time.Time
}

type signedClaims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	Kind  string `json:"kind"`
	jwt.RegisteredClaims
}

// NewIssuer validates the signing configuration up front. A misconfigured
// secret is fatal at construction time, never mid-request.
func NewIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	if len(accessSecret) < minSecretLength || len(refreshSecret) < minSecretLength {
		return nil, fmt.Errorf("token: signing secrets must be at least %d bytes", minSecretLength)
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("token: access and refresh secrets must differ")
	}
	if accessTTL <= 0 || refreshTTL <= 0 || accessTTL >= refreshTTL {
		return nil, errors.New("token: access token lifetime must be positive and shorter than refresh lifetime")
	}

	return &Issuer{
		secrets: map[domain.TokenKind][]byte{
			domain.TokenKindAccess:  []byte(accessSecret),
			domain.TokenKindRefresh: []byte(refreshSecret),
		},
		lifetimes: map[domain.TokenKind]time.Duration{
			domain.TokenKindAccess:  accessTTL,
			domain.TokenKindRefresh: refreshTTL,
		},
		now: time.Now,
	}, nil
}

// Issue mints a signed token of the given kind for the account.
func (i *Issuer) Issue(kind domain.TokenKind, account *domain.Account) (string, error) {
	secret, ok := i.secrets[kind]
	if !ok {
		return "", fmt.Errorf("token: unknown token kind %q", kind)
	}

	now := i.now().Truncate(time.Second)
	claims := signedClaims{
		Email: account.Email,
		Role:  account.Role,
		Kind:  string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.lifetimes[kind])),
			ID:        uuid.New().String(),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("token: failed to sign %s token: %w", kind, err)
	}

	return tokenString, nil
}

// Verify parses and validates a token of the asserted kind. Malformed
// encoding, signature mismatch, expiry and kind mismatch all collapse into
// ErrInvalidToken; the caller learns nothing beyond "invalid".
func (i *Issuer) Verify(kind domain.TokenKind, tokenString string) (*domain.TokenClaims, error) {
	secret, ok := i.secrets[kind]
	if !ok {
		return nil, fmt.Errorf("token: unknown token kind %q", kind)
	}

	var claims signedClaims
	parsed, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", autherr.ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, autherr.ErrInvalidToken
	}
	if claims.Kind != string(kind) {
		return nil, fmt.Errorf("%w: token kind mismatch", autherr.ErrInvalidToken)
	}
	if claims.Subject == "" || claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing claims", autherr.ErrInvalidToken)
	}

	return &domain.TokenClaims{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
		Kind:      kind,
		IssuedAt:  claims.IssuedAt.Unix(),
		ExpiresAt: claims.ExpiresAt.Unix(),
	}, nil
}

// Lifetime reports the configured lifetime for a token kind.
func (i *Issuer) Lifetime(kind domain.TokenKind) time.Duration {
	return i.lifetimes[kind]
}

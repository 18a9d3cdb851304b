package service

import (
	"context"

	"github.com/lumeo/auth-core/internal/domain"
	"github.com/lumeo/auth-core/internal/dto"
)

// RequestMeta carries the caller attributes recorded with every audit entry.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// AuthService defines the authentication session operations.
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest, meta RequestMeta) (*dto.LoginResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest, meta RequestMeta) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string, meta RequestMeta) (string, error)
	Logout(ctx context.Context, userID string, meta RequestMeta) error
	GetUser(ctx context.Context, userID string) (*dto.UserView, error)
	ValidateToken(ctx context.Context, token string) (*domain.TokenClaims, error)
}

// EmailSender delivers operational mail. Sending is fire-and-forget: failures
// are logged, never propagated to the triggering request.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/lumeo/auth-core/internal/domain"
	"github.com/lumeo/auth-core/internal/dto"
)

// issueTokenPair mints the access/refresh couple for an account.
func (s *authService) issueTokenPair(account *domain.Account) (*domain.TokenPair, error) {
	accessToken, err := s.issuer.Issue(domain.TokenKindAccess, account)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	refreshToken, err := s.issuer.Issue(domain.TokenKindRefresh, account)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// hashToken hashes a token with SHA-256 so the raw refresh token never
// touches the database.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// userView strips the secret hash and raw refresh token from an account.
func userView(account *domain.Account) dto.UserView {
	view := dto.UserView{
		ID:         account.ID,
		Name:       account.Name,
		Email:      account.Email,
		Role:       account.Role,
		Department: account.Department,
		IsActive:   account.IsActive,
		Status:     string(account.Status),
	}
	if account.LastLoginAt != nil {
		lastLogin := account.LastLoginAt.Format(time.RFC3339)
		view.LastLogin = &lastLogin
	}
	return view
}

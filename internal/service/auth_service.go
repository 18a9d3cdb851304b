package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lumeo/auth-core/internal/audit"
	"github.com/lumeo/auth-core/internal/domain"
	"github.com/lumeo/auth-core/internal/dto"
	autherr "github.com/lumeo/auth-core/internal/errors"
	"github.com/lumeo/auth-core/internal/guard"
	"github.com/lumeo/auth-core/internal/repository"
	"github.com/lumeo/auth-core/internal/token"
	"github.com/lumeo/auth-core/internal/utils"
	"github.com/lumeo/auth-core/pkg/observability"
)

const emailSendTimeout = 5 * time.Second

// authService implements AuthService. All mutations to a single account run
// under that account's keyed lock.
type authService struct {
	accounts   repository.AccountRepository
	guard      *guard.Guard
	issuer     *token.Issuer
	recorder   *audit.Recorder
	emails     EmailSender
	locks      *keyedMutex
	logger     *zap.Logger
	metrics    *observability.AuthMetrics
	bcryptCost int
}

// NewAuthService creates a new auth service. metrics may be nil.
func NewAuthService(
	accounts repository.AccountRepository,
	g *guard.Guard,
	issuer *token.Issuer,
	recorder *audit.Recorder,
	emails EmailSender,
	logger *zap.Logger,
	metrics *observability.AuthMetrics,
	bcryptCost int,
) AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if emails == nil {
		emails = NewLogEmailSender(logger)
	}
	return &authService{
		accounts:   accounts,
		guard:      g,
		issuer:     issuer,
		recorder:   recorder,
		emails:     emails,
		locks:      newKeyedMutex(),
		logger:     logger,
		metrics:    metrics,
		bcryptCost: bcryptCost,
	}
}

// Register provisions a new account and establishes its first session.
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest, meta RequestMeta) (*dto.LoginResponse, error) {
	if req == nil || !utils.ValidateEmail(req.Email) {
		return nil, fmt.Errorf("%w: invalid email format", autherr.ErrValidation)
	}
	if !utils.ValidatePassword(req.Password) {
		return nil, fmt.Errorf("%w: password must be at least 8 characters with uppercase, lowercase and a number", autherr.ErrValidation)
	}

	passwordHash, err := utils.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to hash password", autherr.ErrInternal)
	}

	account := &domain.Account{
		Name:         req.Name,
		Email:        utils.SanitizeEmail(req.Email),
		PasswordHash: passwordHash,
		Role:         "user",
		Department:   req.Department,
		IsActive:     true,
		Status:       domain.StatusActive,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, autherr.ErrEmailTaken
		}
		s.logger.Error("account creation failed", zap.Error(err))
		return nil, fmt.Errorf("%w: failed to create account", autherr.ErrInternal)
	}

	return s.establishSession(ctx, account, meta, "register")
}

// Login runs the credential verification and lockout state machine. Every
// terminal branch leaves an audit entry; the caller only ever sees the
// generic category error.
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest, meta RequestMeta) (*dto.LoginResponse, error) {
	if req == nil || req.Email == "" || req.Password == "" {
		s.audit(ctx, "", domain.ActionLoginFailed, map[string]any{"reason": "missing_credentials"}, meta)
		s.metrics.CountLogin(ctx, "bad_request")
		return nil, fmt.Errorf("%w: email and password are required", autherr.ErrValidation)
	}

	email := utils.SanitizeEmail(req.Email)
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Indistinguishable from a wrong password for the caller.
			s.audit(ctx, "", domain.ActionLoginFailed, map[string]any{"reason": "unknown_email", "email": email}, meta)
			s.metrics.CountLogin(ctx, "invalid_credentials")
			return nil, autherr.ErrInvalidCredentials
		}
		s.logger.Error("account lookup failed", zap.Error(err))
		s.metrics.CountLogin(ctx, "error")
		return nil, fmt.Errorf("%w: failed to load account", autherr.ErrInternal)
	}

	unlock := s.locks.Lock(account.ID)
	defer unlock()

	// Re-read under the lock: a concurrent request may have mutated the
	// account between the lookup and the lock acquisition.
	account, err = s.accounts.GetByID(ctx, account.ID)
	if err != nil {
		s.logger.Error("account reload failed", zap.Error(err))
		s.metrics.CountLogin(ctx, "error")
		return nil, fmt.Errorf("%w: failed to load account", autherr.ErrInternal)
	}

	if decision := s.guard.CheckLockout(account); !decision.Allowed {
		s.audit(ctx, account.ID, domain.ActionLoginFailed, map[string]any{
			"reason":       "account_locked",
			"locked_until": decision.Until.UTC().Format(time.RFC3339),
		}, meta)
		s.metrics.CountLogin(ctx, "locked")
		return nil, autherr.ErrAccountLocked
	}

	if !account.CanAuthenticate() {
		s.audit(ctx, account.ID, domain.ActionLoginFailed, map[string]any{
			"reason": "account_disabled",
			"status": string(account.Status),
		}, meta)
		s.metrics.CountLogin(ctx, "invalid_credentials")
		return nil, autherr.ErrInvalidCredentials
	}

	if !utils.CheckPasswordHash(req.Password, account.PasswordHash) {
		return nil, s.recordFailedPassword(ctx, account, meta)
	}

	s.guard.RecordSuccess(account)

	return s.establishSession(ctx, account, meta, "login")
}

// Refresh exchanges a live refresh token for a new access token. The refresh
// token itself is not rotated: the stored hash stays valid until superseded
// by the next login or cleared by logout.
func (s *authService) Refresh(ctx context.Context, refreshToken string, meta RequestMeta) (string, error) {
	claims, err := s.issuer.Verify(domain.TokenKindRefresh, refreshToken)
	if err != nil {
		s.audit(ctx, "", domain.ActionLoginFailed, map[string]any{"reason": "invalid_refresh_token"}, meta)
		s.metrics.CountRefresh(ctx, "invalid")
		return "", autherr.ErrInvalidToken
	}

	account, err := s.accounts.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.audit(ctx, claims.UserID, domain.ActionLoginFailed, map[string]any{"reason": "refresh_unknown_account"}, meta)
			s.metrics.CountRefresh(ctx, "invalid")
			return "", autherr.ErrInvalidToken
		}
		s.logger.Error("account lookup failed", zap.Error(err))
		s.metrics.CountRefresh(ctx, "error")
		return "", fmt.Errorf("%w: failed to load account", autherr.ErrInternal)
	}

	unlock := s.locks.Lock(account.ID)
	defer unlock()

	account, err = s.accounts.GetByID(ctx, account.ID)
	if err != nil {
		s.logger.Error("account reload failed", zap.Error(err))
		s.metrics.CountRefresh(ctx, "error")
		return "", fmt.Errorf("%w: failed to load account", autherr.ErrInternal)
	}

	// Single-active-refresh-token policy: a superseded token fails even when
	// cryptographically well-formed. That is the reuse/leakage signal.
	presented := hashToken(refreshToken)
	if account.CurrentRefreshToken == nil || *account.CurrentRefreshToken != presented {
		s.audit(ctx, account.ID, domain.ActionSecurityAlert, map[string]any{"reason": "refresh_token_reuse"}, meta)
		s.metrics.CountRefresh(ctx, "superseded")
		return "", autherr.ErrInvalidToken
	}

	if !account.CanAuthenticate() {
		s.audit(ctx, account.ID, domain.ActionLoginFailed, map[string]any{
			"reason": "account_disabled",
			"status": string(account.Status),
		}, meta)
		s.metrics.CountRefresh(ctx, "invalid")
		return "", autherr.ErrInvalidToken
	}

	accessToken, err := s.issuer.Issue(domain.TokenKindAccess, account)
	if err != nil {
		s.logger.Error("access token issue failed", zap.Error(err))
		s.metrics.CountRefresh(ctx, "error")
		return "", fmt.Errorf("%w: failed to issue access token", autherr.ErrInternal)
	}

	s.metrics.CountRefresh(ctx, "success")
	return accessToken, nil
}

// Logout invalidates the account's live refresh token. It is idempotent and
// a missing account is not an error.
func (s *authService) Logout(ctx context.Context, userID string, meta RequestMeta) error {
	if err := s.accounts.ClearRefreshToken(ctx, userID); err != nil {
		s.logger.Error("refresh token clear failed", zap.String("user_id", userID), zap.Error(err))
		return fmt.Errorf("%w: failed to clear session", autherr.ErrInternal)
	}

	s.audit(ctx, userID, domain.ActionLogout, nil, meta)
	return nil
}

// GetUser returns the sanitized view of an account.
func (s *authService) GetUser(ctx context.Context, userID string) (*dto.UserView, error) {
	account, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, autherr.ErrInvalidToken
		}
		return nil, fmt.Errorf("%w: failed to load account", autherr.ErrInternal)
	}

	view := userView(account)
	return &view, nil
}

// ValidateToken verifies an access token and returns its claims.
func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*domain.TokenClaims, error) {
	claims, err := s.issuer.Verify(domain.TokenKindAccess, tokenString)
	if err != nil {
		return nil, autherr.ErrInvalidToken
	}
	return claims, nil
}

// recordFailedPassword persists the failure atomically and handles the
// threshold crossing. Always returns ErrInvalidCredentials or ErrInternal.
func (s *authService) recordFailedPassword(ctx context.Context, account *domain.Account, meta RequestMeta) error {
	lockUntil := time.Now().Add(s.guard.LockoutDuration())

	updated, err := s.accounts.RecordFailedAttempt(ctx, account.ID, s.guard.Threshold(), lockUntil)
	if err != nil {
		s.logger.Error("failed attempt persist failed", zap.String("user_id", account.ID), zap.Error(err))
		s.audit(ctx, account.ID, domain.ActionLoginFailed, map[string]any{"reason": "persistence_failure"}, meta)
		s.metrics.CountLogin(ctx, "error")
		return fmt.Errorf("%w: failed to record login failure", autherr.ErrInternal)
	}

	s.audit(ctx, account.ID, domain.ActionLoginFailed, map[string]any{
		"reason":          "invalid_password",
		"failed_attempts": updated.FailedAttempts,
	}, meta)
	s.metrics.CountLogin(ctx, "invalid_credentials")

	// The lockout window was armed by this attempt: either the threshold was
	// just crossed, or a stale counter re-locked after an expired window.
	if updated.LockedUntil != nil && (account.LockedUntil == nil || !updated.LockedUntil.Equal(*account.LockedUntil)) {
		s.metrics.CountLockout(ctx)
		s.audit(ctx, account.ID, domain.ActionSecurityAlert, map[string]any{
			"reason":          "account_lockout",
			"failed_attempts": updated.FailedAttempts,
			"locked_until":    updated.LockedUntil.UTC().Format(time.RFC3339),
		}, meta)
		s.notifyLockout(account)
	}

	return autherr.ErrInvalidCredentials
}

// establishSession issues a fresh token pair, persists the new session state
// atomically and records the success.
func (s *authService) establishSession(ctx context.Context, account *domain.Account, meta RequestMeta, method string) (*dto.LoginResponse, error) {
	pair, err := s.issueTokenPair(account)
	if err != nil {
		s.logger.Error("token issue failed", zap.String("user_id", account.ID), zap.Error(err))
		s.metrics.CountLogin(ctx, "error")
		return nil, fmt.Errorf("%w: failed to issue tokens", autherr.ErrInternal)
	}

	now := time.Now()
	refreshHash := hashToken(pair.RefreshToken)
	account.CurrentRefreshToken = &refreshHash
	account.LastLoginAt = &now

	if err := s.accounts.UpdateSessionState(ctx, account); err != nil {
		s.logger.Error("session persist failed", zap.String("user_id", account.ID), zap.Error(err))
		s.audit(ctx, account.ID, domain.ActionLoginFailed, map[string]any{"reason": "persistence_failure"}, meta)
		s.metrics.CountLogin(ctx, "error")
		return nil, fmt.Errorf("%w: failed to persist session", autherr.ErrInternal)
	}

	s.audit(ctx, account.ID, domain.ActionLoginSuccess, map[string]any{"method": method}, meta)
	s.metrics.CountLogin(ctx, "success")

	return &dto.LoginResponse{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         userView(account),
	}, nil
}

// notifyLockout sends the lockout mail off the request path.
func (s *authService) notifyLockout(account *domain.Account) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emailSendTimeout)
		defer cancel()

		err := s.emails.Send(ctx, account.Email,
			"Your account has been temporarily locked",
			"Too many failed login attempts. The account unlocks automatically after the lockout window.")
		if err != nil {
			s.logger.Warn("lockout email failed", zap.String("user_id", account.ID), zap.Error(err))
		}
	}()
}

func (s *authService) audit(ctx context.Context, userID string, action domain.AuditAction, details map[string]any, meta RequestMeta) {
	s.recorder.Record(ctx, &domain.AuditEntry{
		UserID:    userID,
		Action:    action,
		Details:   details,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
}

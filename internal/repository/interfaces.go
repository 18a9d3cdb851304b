package repository

import (
	"context"
	"time"

	"github.com/lumeo/auth-core/internal/domain"
)

// AccountRepository defines the user-record store consumed by the auth
// service. Every update is atomic per account.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error

	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByID(ctx context.Context, id string) (*domain.Account, error)

	// UpdateSessionState persists the lockout counters, the current refresh
	// token hash and the last-login timestamp from the snapshot in a single
	// statement, so a reader never observes a half-updated account.
	UpdateSessionState(ctx context.Context, account *domain.Account) error

	// RecordFailedAttempt atomically increments the failure counter and, on
	// crossing the threshold, arms the lock window. It returns the updated
	// account so concurrent failures are all reflected.
	RecordFailedAttempt(ctx context.Context, id string, threshold int, lockUntil time.Time) (*domain.Account, error)

	// ClearRefreshToken unconditionally drops the stored refresh token hash.
	// A missing account is not an error.
	ClearRefreshToken(ctx context.Context, id string) error
}

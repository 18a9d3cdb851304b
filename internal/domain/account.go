package domain

import "time"

// AccountStatus describes the lifecycle state of an account.
type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusInactive  AccountStatus = "inactive"
	StatusSuspended AccountStatus = "suspended"
)

// Account represents a user account with its credential and lockout state.
// Only the auth service and the account guard mutate an Account, and always
// under the per-account lock held by the service.
type Account struct {
	ID           string `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
	Role         string `json:"role" db:"role"`
	Department   string `json:"department" db:"department"`

	// Lockout state. LockedUntil is set when FailedAttempts crosses the
	// configured threshold and is cleared only by a successful login.
	FailedAttempts int        `json:"-" db:"failed_attempts"`
	LockedUntil    *time.Time `json:"-" db:"locked_until"`

	// CurrentRefreshToken holds the SHA-256 hash of the single live refresh
	// token. Issuing a new one overwrites it, invalidating the previous token.
	CurrentRefreshToken *string `json:"-" db:"current_refresh_token"`

	LastLoginAt *time.Time    `json:"last_login_at" db:"last_login_at"`
	IsActive    bool          `json:"is_active" db:"is_active"`
	Status      AccountStatus `json:"status" db:"status"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// CanAuthenticate reports whether the account is eligible to log in at all,
// independent of lockout state.
func (a *Account) CanAuthenticate() bool {
	return a.IsActive && a.Status == StatusActive
}

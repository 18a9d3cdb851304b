// Package guard owns the per-account failed-attempt counter and lockout
// window. It is a pure state machine over an account snapshot: no I/O, no
// clock side effects beyond reading time.
package guard

import (
	"time"

	"github.com/lumeo/auth-core/internal/domain"
)

const (
	// DefaultThreshold is the number of consecutive failures that locks an
	// account.
	DefaultThreshold = 5

	// DefaultLockoutDuration bounds how long a lock stays in force.
	DefaultLockoutDuration = 30 * time.Minute
)

// Decision is the outcome of a lockout check.
type Decision struct {
	Allowed bool
	// Until is the lock expiry; zero unless Allowed is false.
	Until time.Time
}

// Guard applies the lockout policy to account snapshots.
type Guard struct {
	threshold int
	lockout   time.Duration
	now       func() time.Time
}

// New builds a Guard. Non-positive arguments fall back to the defaults.
func New(threshold int, lockout time.Duration) *Guard {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if lockout <= 0 {
		lockout = DefaultLockoutDuration
	}
	return &Guard{threshold: threshold, lockout: lockout, now: time.Now}
}

// CheckLockout reports whether the account may attempt authentication.
// An expired lock reports Allowed even though the counter has not been reset;
// the stale counter persists until a success, so the next failure re-locks
// immediately.
func (g *Guard) CheckLockout(account *domain.Account) Decision {
	if account.LockedUntil != nil && g.now().Before(*account.LockedUntil) {
		return Decision{Allowed: false, Until: *account.LockedUntil}
	}
	return Decision{Allowed: true}
}

// RecordFailure increments the failure counter on the snapshot and sets the
// lock window once the counter reaches the threshold.
func (g *Guard) RecordFailure(account *domain.Account) {
	account.FailedAttempts++
	if account.FailedAttempts >= g.threshold {
		until := g.now().Add(g.lockout)
		account.LockedUntil = &until
	}
}

// RecordSuccess resets both the counter and the lock window.
func (g *Guard) RecordSuccess(account *domain.Account) {
	account.FailedAttempts = 0
	account.LockedUntil = nil
}

// Threshold reports the configured failure threshold.
func (g *Guard) Threshold() int {
	return g.threshold
}

// LockoutDuration reports the configured lock window length.
func (g *Guard) LockoutDuration() time.Duration {
	return g.lockout
}

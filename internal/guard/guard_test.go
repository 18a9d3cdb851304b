package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumeo/auth-core/internal/domain"
)

func TestCheckLockout_FreshAccountAllowed(t *testing.T) {
	g := New(5, 30*time.Minute)

	d := g.CheckLockout(&domain.Account{})
	assert.True(t, d.Allowed)
	assert.True(t, d.Until.IsZero())
}

func TestRecordFailure_LocksAtThreshold(t *testing.T) {
	g := New(5, 30*time.Minute)
	acc := &domain.Account{}

	for i := 0; i < 4; i++ {
		g.RecordFailure(acc)
		assert.Nil(t, acc.LockedUntil, "attempt %d must not lock", i+1)
		assert.True(t, g.CheckLockout(acc).Allowed)
	}

	g.RecordFailure(acc)
	require.NotNil(t, acc.LockedUntil)
	assert.Equal(t, 5, acc.FailedAttempts)

	d := g.CheckLockout(acc)
	assert.False(t, d.Allowed)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), d.Until, time.Second)
}

func TestCheckLockout_ExpiredWindowAllowsAgain(t *testing.T) {
	g := New(5, 30*time.Minute)
	acc := &domain.Account{}

	for i := 0; i < 5; i++ {
		g.RecordFailure(acc)
	}
	require.NotNil(t, acc.LockedUntil)

	// Move past the window; the counter stays put.
	g.now = func() time.Time { return time.Now().Add(31 * time.Minute) }

	assert.True(t, g.CheckLockout(acc).Allowed)
	assert.Equal(t, 5, acc.FailedAttempts)
}

func TestRecordFailure_RelocksImmediatelyAfterExpiry(t *testing.T) {
	g := New(5, 30*time.Minute)
	acc := &domain.Account{}

	for i := 0; i < 5; i++ {
		g.RecordFailure(acc)
	}

	later := time.Now().Add(31 * time.Minute)
	g.now = func() time.Time { return later }
	require.True(t, g.CheckLockout(acc).Allowed)

	// One more failure after the window elapsed re-locks without a fresh
	// run to the threshold.
	g.RecordFailure(acc)
	d := g.CheckLockout(acc)
	assert.False(t, d.Allowed)
	assert.Equal(t, later.Add(30*time.Minute), d.Until)
	assert.Equal(t, 6, acc.FailedAttempts)
}

func TestRecordSuccess_ResetsEverything(t *testing.T) {
	g := New(5, 30*time.Minute)
	acc := &domain.Account{}

	for i := 0; i < 7; i++ {
		g.RecordFailure(acc)
	}
	require.NotNil(t, acc.LockedUntil)

	g.RecordSuccess(acc)
	assert.Zero(t, acc.FailedAttempts)
	assert.Nil(t, acc.LockedUntil)
	assert.True(t, g.CheckLockout(acc).Allowed)
}

func TestNew_DefaultsApply(t *testing.T) {
	g := New(0, 0)
	assert.Equal(t, DefaultThreshold, g.Threshold())
	assert.Equal(t, DefaultLockoutDuration, g.LockoutDuration())
}

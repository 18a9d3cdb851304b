package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/lumeo/auth-core/internal/domain"
	"github.com/lumeo/auth-core/pkg/database"
)

const accountColumns = `id, name, email, password_hash, role, department,
	failed_attempts, locked_until, current_refresh_token,
	last_login_at, is_active, status, created_at, updated_at`

// accountRepository implements AccountRepository over postgres.
type accountRepository struct {
	db *database.Postgres
}

// NewAccountRepository creates a new account repository.
func NewAccountRepository(db *database.Postgres) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	if account.ID == "" {
		account.ID = uuid.New().String()
	}

	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = now
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		account.ID,
		account.Name,
		account.Email,
		account.PasswordHash,
		account.Role,
		account.Department,
		account.FailedAttempts,
		account.LockedUntil,
		account.CurrentRefreshToken,
		account.LastLoginAt,
		account.IsActive,
		account.Status,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return fmt.Errorf("account with email %s already exists: %w", account.Email, ErrDuplicateEmail)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email) = LOWER($1)`
	return r.scanOne(r.db.DB.QueryRowContext(ctx, query, email), "email", email)
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanOne(r.db.DB.QueryRowContext(ctx, query, id), "id", id)
}

func (r *accountRepository) UpdateSessionState(ctx context.Context, account *domain.Account) error {
	query := `
		UPDATE accounts
		SET failed_attempts = $2,
		    locked_until = $3,
		    current_refresh_token = $4,
		    last_login_at = $5,
		    updated_at = $6
		WHERE id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query,
		account.ID,
		account.FailedAttempts,
		account.LockedUntil,
		account.CurrentRefreshToken,
		account.LastLoginAt,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update session state: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("account with id %s not found: %w", account.ID, ErrNotFound)
	}

	return nil
}

func (r *accountRepository) RecordFailedAttempt(ctx context.Context, id string, threshold int, lockUntil time.Time) (*domain.Account, error) {
	// The increment and the conditional lock arm in one statement, so two
	// racing bad-password attempts are both counted.
	query := `
		UPDATE accounts
		SET failed_attempts = failed_attempts + 1,
		    locked_until = CASE
		        WHEN failed_attempts + 1 >= $2 THEN $3
		        ELSE locked_until
		    END,
		    updated_at = $4
		WHERE id = $1
		RETURNING ` + accountColumns

	return r.scanOne(r.db.DB.QueryRowContext(ctx, query, id, threshold, lockUntil, time.Now()), "id", id)
}

func (r *accountRepository) ClearRefreshToken(ctx context.Context, id string) error {
	query := `
		UPDATE accounts
		SET current_refresh_token = NULL, updated_at = $2
		WHERE id = $1
	`

	// Zero rows affected is fine: logout is idempotent and absence of the
	// account is not an error.
	if _, err := r.db.DB.ExecContext(ctx, query, id, time.Now()); err != nil {
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *accountRepository) scanOne(row rowScanner, field, value string) (*domain.Account, error) {
	account := &domain.Account{}
	var (
		lockedUntil  sql.NullTime
		refreshToken sql.NullString
		lastLoginAt  sql.NullTime
	)

	err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.PasswordHash,
		&account.Role,
		&account.Department,
		&account.FailedAttempts,
		&lockedUntil,
		&refreshToken,
		&lastLoginAt,
		&account.IsActive,
		&account.Status,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account with %s %s not found: %w", field, value, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account by %s: %w", field, err)
	}

	if lockedUntil.Valid {
		account.LockedUntil = &lockedUntil.Time
	}
	if refreshToken.Valid {
		account.CurrentRefreshToken = &refreshToken.String
	}
	if lastLoginAt.Valid {
		account.LastLoginAt = &lastLoginAt.Time
	}

	return account, nil
}

package repository

import (
	"github.com/lumeo/auth-core/internal/audit"
	"github.com/lumeo/auth-core/pkg/database"
)

// Repositories holds all repository implementations.
type Repositories struct {
	Account AccountRepository
	Audit   audit.Store
}

// NewRepositories creates all repositories over a single connection.
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		Account: NewAccountRepository(db),
		Audit:   NewAuditRepository(db),
	}
}

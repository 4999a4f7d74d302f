package postgres

import (
	"github.com/kozaktomas/face-attendance/internal/database"
)

// Store combines the PostgreSQL repositories into a database.Store
type Store struct {
	*IdentityRepository
	*SessionRepository

	pool *Pool
}

// NewStore wraps a migrated pool
func NewStore(pool *Pool) *Store {
	return &Store{
		IdentityRepository: NewIdentityRepository(pool),
		SessionRepository:  NewSessionRepository(pool),
		pool:               pool,
	}
}

// Close closes the underlying pool
func (s *Store) Close() error {
	return s.pool.Close()
}

var _ database.Store = (*Store)(nil)

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// IdentityRepository provides PostgreSQL-backed identity storage
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new PostgreSQL identity repository
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// UpsertIdentity creates the identity or replaces its name
func (r *IdentityRepository) UpsertIdentity(ctx context.Context, id int64, name string) error {
	query := `
		INSERT INTO identities (id, name)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			updated_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, id, name); err != nil {
		return fmt.Errorf("upsert identity: %w", err)
	}
	return nil
}

// GetIdentity retrieves an identity by ID, returns nil if not found
func (r *IdentityRepository) GetIdentity(ctx context.Context, id int64) (*database.Identity, error) {
	var identity database.Identity
	err := r.pool.QueryRow(ctx, "SELECT id, name, created_at FROM identities WHERE id = $1", id).Scan(
		&identity.ID,
		&identity.Name,
		&identity.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return &identity, nil
}

// ListIdentities returns all identities ordered by ID
func (r *IdentityRepository) ListIdentities(ctx context.Context) ([]database.Identity, error) {
	rows, err := r.pool.Query(ctx, "SELECT id, name, created_at FROM identities ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var identities []database.Identity
	for rows.Next() {
		var identity database.Identity
		if err := rows.Scan(&identity.ID, &identity.Name, &identity.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return identities, nil
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RoleRepository resolves the fixed role set. Roles are seeded by migration
// and never created at runtime.
type RoleRepository interface {
	GetByName(ctx context.Context, name string) (*domain.RoleRecord, error)
}

type roleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository builds the repository.
func NewRoleRepository(pool *pgxpool.Pool) RoleRepository {
	return &roleRepository{pool: pool}
}

// GetByName matches exactly and case-sensitively against the seeded set.
func (r *roleRepository) GetByName(ctx context.Context, name string) (*domain.RoleRecord, error) {
	const query = `SELECT id, name FROM roles WHERE name=$1`
	var record domain.RoleRecord
	if err := r.pool.QueryRow(ctx, query, name).Scan(&record.ID, &record.Name); err != nil {
		return nil, err
	}
	return &record, nil
}

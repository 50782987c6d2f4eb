// Copyright 2026 The EdgePanel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edgepanel/edgepanel/internal/role"
)

// RoleRepository implements role.Repository
type RoleRepository struct {
	db *DB
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// Create inserts a new role. The unique index on name turns concurrent
// duplicate creates into exactly one winner.
func (r *RoleRepository) Create(ctx context.Context, rl *role.Role) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO roles (id, name, description, permission_ids, is_builtin, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		rl.ID, rl.Name, rl.Description, rl.PermissionIDs,
		rl.IsBuiltin, rl.Version, rl.CreatedAt, rl.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return role.ErrRoleNameTaken
		}
		return fmt.Errorf("failed to insert role: %w", err)
	}
	return nil
}

// GetByID retrieves a role by ID
func (r *RoleRepository) GetByID(ctx context.Context, id string) (*role.Role, error) {
	return r.scanOne(r.db.pool.QueryRow(ctx, `
		SELECT id, name, description, permission_ids, is_builtin, version, created_at, updated_at
		FROM roles
		WHERE id = $1
	`, id))
}

// GetByName retrieves a role by name
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*role.Role, error) {
	return r.scanOne(r.db.pool.QueryRow(ctx, `
		SELECT id, name, description, permission_ids, is_builtin, version, created_at, updated_at
		FROM roles
		WHERE name = $1
	`, name))
}

// Update replaces the stored record, guarded by the version the caller
// read. A concurrent writer bumps the version first and this statement
// matches zero rows.
func (r *RoleRepository) Update(ctx context.Context, rl *role.Role) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE roles
		SET name = $2, description = $3, permission_ids = $4, version = $5, updated_at = $6
		WHERE id = $1 AND version = $5 - 1
	`,
		rl.ID, rl.Name, rl.Description, rl.PermissionIDs, rl.Version, rl.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return role.ErrRoleNameTaken
		}
		return fmt.Errorf("failed to update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, rl.ID); errors.Is(err, role.ErrRoleNotFound) {
			return role.ErrRoleNotFound
		}
		return role.ErrRoleModified
	}
	return nil
}

// Delete removes a role. The ON DELETE RESTRICT foreign key from
// admins refuses the delete while any administrator references it.
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return role.ErrRoleInUse
		}
		return fmt.Errorf("failed to delete role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return role.ErrRoleNotFound
	}
	return nil
}

// List returns a page of roles in name order plus the total count.
func (r *RoleRepository) List(ctx context.Context, offset, limit int) ([]*role.Role, int, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, name, description, permission_ids, is_builtin, version, created_at, updated_at,
			COUNT(*) OVER () AS total
		FROM roles
		ORDER BY name
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []*role.Role
	total := 0
	for rows.Next() {
		var rl role.Role
		if err := rows.Scan(
			&rl.ID, &rl.Name, &rl.Description, &rl.PermissionIDs,
			&rl.IsBuiltin, &rl.Version, &rl.CreatedAt, &rl.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, &rl)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read roles: %w", err)
	}

	// The window count is zero rows when the page is out of range.
	if total == 0 && offset > 0 {
		if err := r.db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM roles`).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("failed to count roles: %w", err)
		}
	}
	return roles, total, nil
}

func (r *RoleRepository) scanOne(row pgx.Row) (*role.Role, error) {
	var rl role.Role
	err := row.Scan(
		&rl.ID, &rl.Name, &rl.Description, &rl.PermissionIDs,
		&rl.IsBuiltin, &rl.Version, &rl.CreatedAt, &rl.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, role.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &rl, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

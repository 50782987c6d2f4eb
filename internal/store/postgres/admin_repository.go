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
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/edgepanel/edgepanel/internal/identity"
	"github.com/edgepanel/edgepanel/internal/role"
)

// AdminRepository implements identity.Repository
type AdminRepository struct {
	db *DB
}

// NewAdminRepository creates a new administrator repository
func NewAdminRepository(db *DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// Create inserts a new administrator. The unique index on username
// resolves concurrent duplicate creates to exactly one winner.
func (r *AdminRepository) Create(ctx context.Context, admin *identity.Admin) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO admins (id, username, password_hash, role_id, is_active, last_login, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		admin.ID, admin.Username, admin.PasswordHash, admin.RoleID,
		admin.IsActive, admin.LastLogin, admin.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return identity.ErrUsernameTaken
		}
		if isForeignKeyViolation(err) {
			return role.ErrRoleNotFound
		}
		return fmt.Errorf("failed to insert admin: %w", err)
	}
	return nil
}

// GetByID retrieves an administrator by ID
func (r *AdminRepository) GetByID(ctx context.Context, id string) (*identity.Admin, error) {
	return r.scanOne(r.db.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, role_id, is_active, last_login, created_at
		FROM admins
		WHERE id = $1
	`, id))
}

// GetByUsername retrieves an administrator by username
func (r *AdminRepository) GetByUsername(ctx context.Context, username string) (*identity.Admin, error) {
	return r.scanOne(r.db.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, role_id, is_active, last_login, created_at
		FROM admins
		WHERE username = $1
	`, username))
}

// UpdateRole rebinds an administrator to a different role
func (r *AdminRepository) UpdateRole(ctx context.Context, id, roleID string) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE admins SET role_id = $2 WHERE id = $1
	`, id, roleID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return role.ErrRoleNotFound
		}
		return fmt.Errorf("failed to update admin role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrAdminNotFound
	}
	return nil
}

// Activate marks an administrator active. Already-active accounts are
// a no-op.
func (r *AdminRepository) Activate(ctx context.Context, id string) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE admins SET is_active = TRUE WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to activate admin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrAdminNotFound
	}
	return nil
}

// Deactivate marks an administrator inactive. The guard in the UPDATE
// refuses to deactivate the last active holder of protectedRoleID even
// under concurrent deactivations.
func (r *AdminRepository) Deactivate(ctx context.Context, id, protectedRoleID string) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE admins
		SET is_active = FALSE
		WHERE id = $1
		  AND is_active
		  AND (
			role_id <> $2
			OR EXISTS (
				SELECT 1 FROM admins other
				WHERE other.role_id = $2 AND other.is_active AND other.id <> $1
			)
		  )
	`, id, protectedRoleID)
	if err != nil {
		return fmt.Errorf("failed to deactivate admin: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Zero rows: missing account, already-inactive no-op, or guard hit.
	admin, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !admin.IsActive {
		return nil
	}
	return identity.ErrLastActiveAdmin
}

// UpdateLastLogin stamps the last login time
func (r *AdminRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE admins SET last_login = $2 WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrAdminNotFound
	}
	return nil
}

// Delete removes an administrator account
func (r *AdminRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM admins WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete admin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrAdminNotFound
	}
	return nil
}

// List returns a page of administrators in username order plus the
// total count.
func (r *AdminRepository) List(ctx context.Context, offset, limit int) ([]*identity.Admin, int, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, username, password_hash, role_id, is_active, last_login, created_at,
			COUNT(*) OVER () AS total
		FROM admins
		ORDER BY username
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list admins: %w", err)
	}
	defer rows.Close()

	var admins []*identity.Admin
	total := 0
	for rows.Next() {
		var admin identity.Admin
		var lastLogin sql.NullTime
		if err := rows.Scan(
			&admin.ID, &admin.Username, &admin.PasswordHash, &admin.RoleID,
			&admin.IsActive, &lastLogin, &admin.CreatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan admin: %w", err)
		}
		if lastLogin.Valid {
			admin.LastLogin = &lastLogin.Time
		}
		admins = append(admins, &admin)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read admins: %w", err)
	}

	if total == 0 && offset > 0 {
		if err := r.db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admins`).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("failed to count admins: %w", err)
		}
	}
	return admins, total, nil
}

func (r *AdminRepository) scanOne(row pgx.Row) (*identity.Admin, error) {
	var admin identity.Admin
	var lastLogin sql.NullTime
	err := row.Scan(
		&admin.ID, &admin.Username, &admin.PasswordHash, &admin.RoleID,
		&admin.IsActive, &lastLogin, &admin.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrAdminNotFound
		}
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	if lastLogin.Valid {
		admin.LastLogin = &lastLogin.Time
	}
	return &admin, nil
}

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

package role

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrRoleNotFound      = errors.New("role not found")
	ErrRoleNameTaken     = errors.New("role name already exists")
	ErrBuiltinRole       = errors.New("builtin roles cannot be modified or deleted")
	ErrRoleInUse         = errors.New("role is referenced by one or more administrators")
	ErrRoleModified      = errors.New("role was modified concurrently")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnknownPermission = errors.New("permission id is not registered")
)

// Input bounds enforced on create and update.
const (
	MaxNameLength        = 64
	MaxDescriptionLength = 255
)

// Role is a named bundle of permissions. Builtin roles are seeded at
// startup and are immutable and undeletable; only custom roles may be
// created, edited, or deleted.
//
// Version is bumped on every successful mutation. The authorization
// engine keys its cached permission sets by (ID, Version) so a cached
// set can never outlive the role state it was built from.
type Role struct {
	ID            string
	Name          string
	Description   string
	PermissionIDs []string
	IsBuiltin     bool
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasPermission checks if the role grants a specific permission id.
// Linear scan; callers on the decision hot path use the engine's
// materialized sets instead.
func (r *Role) HasPermission(permissionID string) bool {
	for _, p := range r.PermissionIDs {
		if p == permissionID {
			return true
		}
	}
	return false
}

// Patch describes a partial role update. Nil fields are left unchanged;
// a non-nil PermissionIDs replaces the whole set.
type Patch struct {
	Name          *string
	Description   *string
	PermissionIDs []string
}

// Repository defines the interface for role persistence
type Repository interface {
	// Create persists a new role. Returns ErrRoleNameTaken if the name
	// is already in use (enforced transactionally against concurrent
	// creators).
	Create(ctx context.Context, role *Role) error

	// GetByID retrieves a role by ID
	GetByID(ctx context.Context, id string) (*Role, error)

	// GetByName retrieves a role by name
	GetByName(ctx context.Context, name string) (*Role, error)

	// Update replaces the stored record atomically, guarded by the
	// version the caller read. Returns ErrRoleModified if the stored
	// version no longer matches role.Version-1.
	Update(ctx context.Context, role *Role) error

	// Delete removes a role. Returns ErrRoleInUse while any
	// administrator references it.
	Delete(ctx context.Context, id string) error

	// List returns a page of roles in name order plus the total count.
	List(ctx context.Context, offset, limit int) ([]*Role, int, error)
}

// CacheInvalidator is notified synchronously after every successful
// role mutation so cached decision state for the role id is dropped
// before the mutation returns to the caller.
type CacheInvalidator interface {
	Invalidate(roleID string)
}

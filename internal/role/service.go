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
	"fmt"
	"time"

	"github.com/edgepanel/edgepanel/internal/audit"
	"github.com/edgepanel/edgepanel/internal/id"
	"github.com/edgepanel/edgepanel/internal/permission"
)

// Service provides role lifecycle business logic. All mutators take the
// acting principal explicitly; there is no ambient caller identity.
type Service struct {
	repo        Repository
	registry    *permission.Registry
	invalidator CacheInvalidator
	auditLogger audit.Logger
}

// NewService creates a new role service. invalidator may be nil until
// the authorization engine is wired in (SetInvalidator).
func NewService(repo Repository, registry *permission.Registry, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		registry:    registry,
		auditLogger: auditLogger,
	}
}

// SetInvalidator wires the decision-cache invalidation hook. Must be
// called before the service handles traffic.
func (s *Service) SetInvalidator(inv CacheInvalidator) {
	s.invalidator = inv
}

// Create validates and persists a new custom role.
func (s *Service) Create(ctx context.Context, actorID, name, description string, permissionIDs []string) (*Role, error) {
	if err := s.validateName(name); err != nil {
		return nil, err
	}
	if err := s.validateDescription(description); err != nil {
		return nil, err
	}
	perms, err := s.normalizePermissions(permissionIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	r := &Role{
		ID:            id.NewUUIDv7(),
		Name:          name,
		Description:   description,
		PermissionIDs: perms,
		IsBuiltin:     false,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// Uniqueness is enforced by the store, transactionally: of two
	// concurrent creators with the same name exactly one wins.
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleCreated,
		ActorID:  actorID,
		Resource: "role",
		Metadata: map[string]any{
			audit.AttrRoleID:   r.ID,
			audit.AttrRoleName: r.Name,
		},
	})

	return r, nil
}

// Update applies a patch to a custom role. Builtin roles are read-only.
func (s *Service) Update(ctx context.Context, actorID, roleID string, patch Patch) (*Role, error) {
	current, err := s.repo.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if current.IsBuiltin {
		return nil, ErrBuiltinRole
	}

	updated := *current
	if patch.Name != nil {
		if err := s.validateName(*patch.Name); err != nil {
			return nil, err
		}
		updated.Name = *patch.Name
	}
	if patch.Description != nil {
		if err := s.validateDescription(*patch.Description); err != nil {
			return nil, err
		}
		updated.Description = *patch.Description
	}
	if patch.PermissionIDs != nil {
		perms, err := s.normalizePermissions(patch.PermissionIDs)
		if err != nil {
			return nil, err
		}
		updated.PermissionIDs = perms
	}

	updated.Version = current.Version + 1
	updated.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, err
	}
	s.invalidate(roleID)

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleUpdated,
		ActorID:  actorID,
		Resource: "role",
		Metadata: map[string]any{
			audit.AttrRoleID:   updated.ID,
			audit.AttrRoleName: updated.Name,
		},
	})

	return &updated, nil
}

// Delete removes a custom role. Deletion is blocked while any
// administrator still references the role; reassignment is never
// automatic.
func (s *Service) Delete(ctx context.Context, actorID, roleID string) error {
	current, err := s.repo.GetByID(ctx, roleID)
	if err != nil {
		return err
	}
	if current.IsBuiltin {
		return ErrBuiltinRole
	}

	if err := s.repo.Delete(ctx, roleID); err != nil {
		return err
	}
	s.invalidate(roleID)

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleDeleted,
		ActorID:  actorID,
		Resource: "role",
		Metadata: map[string]any{
			audit.AttrRoleID:   current.ID,
			audit.AttrRoleName: current.Name,
		},
	})

	return nil
}

// Get retrieves a role by ID
func (s *Service) Get(ctx context.Context, roleID string) (*Role, error) {
	return s.repo.GetByID(ctx, roleID)
}

// List returns a page of roles plus the total count.
func (s *Service) List(ctx context.Context, offset, limit int) ([]*Role, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, offset, limit)
}

func (s *Service) invalidate(roleID string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(roleID)
	}
}

func (s *Service) validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: role name is required", ErrInvalidInput)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: role name exceeds %d characters", ErrInvalidInput, MaxNameLength)
	}
	return nil
}

func (s *Service) validateDescription(description string) error {
	if len(description) > MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidInput, MaxDescriptionLength)
	}
	return nil
}

// normalizePermissions validates every id against the registry and
// drops duplicates, preserving first-seen order.
func (s *Service) normalizePermissions(permissionIDs []string) ([]string, error) {
	out := make([]string, 0, len(permissionIDs))
	seen := make(map[string]bool, len(permissionIDs))
	for _, pid := range permissionIDs {
		if !s.registry.Exists(pid) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPermission, pid)
		}
		if seen[pid] {
			continue
		}
		seen[pid] = true
		out = append(out, pid)
	}
	return out, nil
}

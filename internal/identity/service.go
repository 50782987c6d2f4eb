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

package identity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/edgepanel/edgepanel/internal/audit"
	"github.com/edgepanel/edgepanel/internal/id"
	"github.com/edgepanel/edgepanel/internal/role"
)

// Service implements administrator account management.
type Service struct {
	repo        Repository
	roles       role.Repository
	hasher      *PasswordHasher
	minPassword int
	auditLogger audit.Logger
}

// NewService creates an administrator service.
func NewService(repo Repository, roles role.Repository, hasher *PasswordHasher, minPassword int, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		roles:       roles,
		hasher:      hasher,
		minPassword: minPassword,
		auditLogger: auditLogger,
	}
}

// Create registers a new administrator bound to an existing role. The
// account starts active.
func (s *Service) Create(ctx context.Context, actorID, username, password, roleID string) (*Admin, error) {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if len(password) < s.minPassword {
		return nil, fmt.Errorf("%w: minimum %d characters", ErrWeakPassword, s.minPassword)
	}
	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &Admin{
		ID:           id.NewUUIDv7(),
		Username:     username,
		PasswordHash: hash,
		RoleID:       roleID,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, admin); err != nil {
		return nil, err
	}

	s.auditLog(ctx, audit.TypeAdminCreated, actorID, map[string]any{
		audit.AttrUsername: admin.Username,
		audit.AttrRoleID:   admin.RoleID,
	})

	return admin, nil
}

// AssignRole rebinds an administrator to a different role. The new
// role takes effect on the next authorization decision.
func (s *Service) AssignRole(ctx context.Context, actorID, adminID, roleID string) (*Admin, error) {
	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateRole(ctx, adminID, roleID); err != nil {
		return nil, err
	}

	s.auditLog(ctx, audit.TypeRoleAssigned, actorID, map[string]any{
		audit.AttrRoleID: roleID,
		"admin_id":       adminID,
	})

	return s.repo.GetByID(ctx, adminID)
}

// Enable activates an administrator account. Enabling an already
// active account is a no-op.
func (s *Service) Enable(ctx context.Context, actorID, adminID string) (*Admin, error) {
	if err := s.repo.Activate(ctx, adminID); err != nil {
		return nil, err
	}
	s.auditLog(ctx, audit.TypeAdminEnabled, actorID, map[string]any{"admin_id": adminID})
	return s.repo.GetByID(ctx, adminID)
}

// Disable deactivates an administrator account. Disabling an already
// inactive account is a no-op. The repository refuses to deactivate
// the last active holder of the builtin administrator role.
func (s *Service) Disable(ctx context.Context, actorID, adminID string) (*Admin, error) {
	if err := s.repo.Deactivate(ctx, adminID, role.RoleIDAdministrator); err != nil {
		return nil, err
	}
	s.auditLog(ctx, audit.TypeAdminDisabled, actorID, map[string]any{"admin_id": adminID})
	return s.repo.GetByID(ctx, adminID)
}

// Delete removes an administrator account.
func (s *Service) Delete(ctx context.Context, actorID, adminID string) error {
	admin, err := s.repo.GetByID(ctx, adminID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, adminID); err != nil {
		return err
	}
	s.auditLog(ctx, audit.TypeAdminDeleted, actorID, map[string]any{
		audit.AttrUsername: admin.Username,
	})
	return nil
}

// Get returns an administrator by ID.
func (s *Service) Get(ctx context.Context, adminID string) (*Admin, error) {
	return s.repo.GetByID(ctx, adminID)
}

// GetByUsername returns an administrator by username.
func (s *Service) GetByUsername(ctx context.Context, username string) (*Admin, error) {
	return s.repo.GetByUsername(ctx, username)
}

// List returns a page of administrators and the total count.
func (s *Service) List(ctx context.Context, offset, limit int) ([]*Admin, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, offset, limit)
}

// RecordLogin stamps the last login time. Failures are logged and
// swallowed; a missing timestamp must not fail the caller.
func (s *Service) RecordLogin(ctx context.Context, adminID string) {
	if err := s.repo.UpdateLastLogin(ctx, adminID, time.Now().UTC()); err != nil {
		slog.WarnContext(ctx, "failed to record last login",
			slog.String("admin_id", adminID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) auditLog(ctx context.Context, eventType, actorID string, details map[string]any) {
	if s.auditLogger == nil {
		return
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     eventType,
		ActorID:  actorID,
		Resource: "admin",
		Metadata: details,
	})
}

func validateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if len(username) > MaxUsernameLength {
		return fmt.Errorf("%w: username exceeds %d characters", ErrInvalidInput, MaxUsernameLength)
	}
	for _, r := range username {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_' || r == '@' {
			continue
		}
		return fmt.Errorf("%w: username contains invalid character %q", ErrInvalidInput, r)
	}
	return nil
}

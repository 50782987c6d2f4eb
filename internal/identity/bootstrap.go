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
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/edgepanel/edgepanel/internal/audit"
	"github.com/edgepanel/edgepanel/internal/id"
	"github.com/edgepanel/edgepanel/internal/permission"
	"github.com/edgepanel/edgepanel/internal/role"
)

// Bootstrapper seeds the builtin roles and, when configured, the
// initial administrator account. It runs once at startup and is safe
// to run again on every start.
type Bootstrapper struct {
	admins      Repository
	roles       role.Repository
	registry    *permission.Registry
	hasher      *PasswordHasher
	auditLogger audit.Logger
}

// NewBootstrapper creates a startup bootstrapper.
func NewBootstrapper(admins Repository, roles role.Repository, registry *permission.Registry, hasher *PasswordHasher, auditLogger audit.Logger) *Bootstrapper {
	return &Bootstrapper{
		admins:      admins,
		roles:       roles,
		registry:    registry,
		hasher:      hasher,
		auditLogger: auditLogger,
	}
}

// Run seeds builtin roles that do not yet exist, then creates the
// initial administrator when adminUsername is non-empty and no account
// with that username exists. Existing rows are left untouched, so the
// bootstrap never clobbers later edits to role assignments.
func (b *Bootstrapper) Run(ctx context.Context, adminUsername, adminPassword string) error {
	for _, builtin := range role.Builtins(b.registry) {
		_, err := b.roles.GetByID(ctx, builtin.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, role.ErrRoleNotFound) {
			return fmt.Errorf("failed to check builtin role %s: %w", builtin.Name, err)
		}
		if err := b.roles.Create(ctx, builtin); err != nil {
			// Concurrent starts may race on the seed; a name collision
			// means another instance won.
			if errors.Is(err, role.ErrRoleNameTaken) {
				continue
			}
			return fmt.Errorf("failed to seed builtin role %s: %w", builtin.Name, err)
		}
		slog.InfoContext(ctx, "seeded builtin role",
			slog.String("role_id", builtin.ID),
			slog.String("role_name", builtin.Name),
		)
	}

	if adminUsername == "" {
		return nil
	}
	return b.seedAdmin(ctx, adminUsername, adminPassword)
}

func (b *Bootstrapper) seedAdmin(ctx context.Context, username, password string) error {
	_, err := b.admins.GetByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrAdminNotFound) {
		return fmt.Errorf("failed to check bootstrap admin: %w", err)
	}
	if password == "" {
		return fmt.Errorf("bootstrap admin %q configured without a password", username)
	}

	hash, err := b.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap password: %w", err)
	}

	admin := &Admin{
		ID:           id.NewUUIDv7(),
		Username:     username,
		PasswordHash: hash,
		RoleID:       role.RoleIDAdministrator,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := b.admins.Create(ctx, admin); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil
		}
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}

	if b.auditLogger != nil {
		b.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeBootstrap,
			ActorID:  audit.ActorSystemBootstrap,
			Resource: "admin",
			Metadata: map[string]any{
				audit.AttrUsername: admin.Username,
				audit.AttrRoleID:   admin.RoleID,
			},
		})
	}
	slog.InfoContext(ctx, "created bootstrap administrator",
		slog.String("username", admin.Username),
	)
	return nil
}

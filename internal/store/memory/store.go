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

// Package memory provides an in-memory store for tests and single-node
// evaluation deployments. One mutex covers roles and admins together,
// so cross-entity checks (role in use, last active administrator) are
// atomic with the mutation they guard.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/edgepanel/edgepanel/internal/identity"
	"github.com/edgepanel/edgepanel/internal/role"
)

// Store holds all state behind a single lock.
type Store struct {
	mu     sync.RWMutex
	roles  map[string]*role.Role
	admins map[string]*identity.Admin
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		roles:  make(map[string]*role.Role),
		admins: make(map[string]*identity.Admin),
	}
}

// Roles returns the role.Repository view of the store.
func (s *Store) Roles() role.Repository { return &roleRepo{s} }

// Admins returns the identity.Repository view of the store.
func (s *Store) Admins() identity.Repository { return &adminRepo{s} }

type roleRepo struct {
	s *Store
}

func (r *roleRepo) Create(_ context.Context, rl *role.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.roles {
		if existing.Name == rl.Name {
			return role.ErrRoleNameTaken
		}
	}
	r.s.roles[rl.ID] = copyRole(rl)
	return nil
}

func (r *roleRepo) GetByID(_ context.Context, id string) (*role.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rl, ok := r.s.roles[id]
	if !ok {
		return nil, role.ErrRoleNotFound
	}
	return copyRole(rl), nil
}

func (r *roleRepo) GetByName(_ context.Context, name string) (*role.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, rl := range r.s.roles {
		if rl.Name == name {
			return copyRole(rl), nil
		}
	}
	return nil, role.ErrRoleNotFound
}

func (r *roleRepo) Update(_ context.Context, rl *role.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.roles[rl.ID]
	if !ok {
		return role.ErrRoleNotFound
	}
	if stored.Version != rl.Version-1 {
		return role.ErrRoleModified
	}
	for _, other := range r.s.roles {
		if other.ID != rl.ID && other.Name == rl.Name {
			return role.ErrRoleNameTaken
		}
	}
	r.s.roles[rl.ID] = copyRole(rl)
	return nil
}

func (r *roleRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[id]; !ok {
		return role.ErrRoleNotFound
	}
	for _, admin := range r.s.admins {
		if admin.RoleID == id {
			return role.ErrRoleInUse
		}
	}
	delete(r.s.roles, id)
	return nil
}

func (r *roleRepo) List(_ context.Context, offset, limit int) ([]*role.Role, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := make([]*role.Role, 0, len(r.s.roles))
	for _, rl := range r.s.roles {
		all = append(all, copyRole(rl))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	total := len(all)
	return page(all, offset, limit), total, nil
}

type adminRepo struct {
	s *Store
}

func (r *adminRepo) Create(_ context.Context, admin *identity.Admin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.admins {
		if existing.Username == admin.Username {
			return identity.ErrUsernameTaken
		}
	}
	if _, ok := r.s.roles[admin.RoleID]; !ok {
		return role.ErrRoleNotFound
	}
	r.s.admins[admin.ID] = copyAdmin(admin)
	return nil
}

func (r *adminRepo) GetByID(_ context.Context, id string) (*identity.Admin, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	admin, ok := r.s.admins[id]
	if !ok {
		return nil, identity.ErrAdminNotFound
	}
	return copyAdmin(admin), nil
}

func (r *adminRepo) GetByUsername(_ context.Context, username string) (*identity.Admin, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, admin := range r.s.admins {
		if admin.Username == username {
			return copyAdmin(admin), nil
		}
	}
	return nil, identity.ErrAdminNotFound
}

func (r *adminRepo) UpdateRole(_ context.Context, id, roleID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	admin, ok := r.s.admins[id]
	if !ok {
		return identity.ErrAdminNotFound
	}
	if _, ok := r.s.roles[roleID]; !ok {
		return role.ErrRoleNotFound
	}
	admin.RoleID = roleID
	return nil
}

func (r *adminRepo) Activate(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	admin, ok := r.s.admins[id]
	if !ok {
		return identity.ErrAdminNotFound
	}
	admin.IsActive = true
	return nil
}

func (r *adminRepo) Deactivate(_ context.Context, id, protectedRoleID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	admin, ok := r.s.admins[id]
	if !ok {
		return identity.ErrAdminNotFound
	}
	if !admin.IsActive {
		return nil
	}
	if admin.RoleID == protectedRoleID {
		others := 0
		for _, other := range r.s.admins {
			if other.ID != id && other.RoleID == protectedRoleID && other.IsActive {
				others++
			}
		}
		if others == 0 {
			return identity.ErrLastActiveAdmin
		}
	}
	admin.IsActive = false
	return nil
}

func (r *adminRepo) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	admin, ok := r.s.admins[id]
	if !ok {
		return identity.ErrAdminNotFound
	}
	admin.LastLogin = &at
	return nil
}

func (r *adminRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.admins[id]; !ok {
		return identity.ErrAdminNotFound
	}
	delete(r.s.admins, id)
	return nil
}

func (r *adminRepo) List(_ context.Context, offset, limit int) ([]*identity.Admin, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := make([]*identity.Admin, 0, len(r.s.admins))
	for _, admin := range r.s.admins {
		all = append(all, copyAdmin(admin))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })
	total := len(all)
	return page(all, offset, limit), total, nil
}

func copyRole(rl *role.Role) *role.Role {
	cp := *rl
	cp.PermissionIDs = append([]string(nil), rl.PermissionIDs...)
	return &cp
}

func copyAdmin(admin *identity.Admin) *identity.Admin {
	cp := *admin
	if admin.LastLogin != nil {
		t := *admin.LastLogin
		cp.LastLogin = &t
	}
	return &cp
}

func page[T any](all []T, offset, limit int) []T {
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

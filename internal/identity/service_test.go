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
	"sort"
	"testing"
	"time"

	"github.com/edgepanel/edgepanel/internal/audit"
	"github.com/edgepanel/edgepanel/internal/permission"
	"github.com/edgepanel/edgepanel/internal/role"
)

// MockAdminRepository is a simple in-memory implementation of Repository
type MockAdminRepository struct {
	admins map[string]*Admin
}

func NewMockAdminRepository() *MockAdminRepository {
	return &MockAdminRepository{admins: make(map[string]*Admin)}
}

func (m *MockAdminRepository) Create(_ context.Context, admin *Admin) error {
	for _, a := range m.admins {
		if a.Username == admin.Username {
			return ErrUsernameTaken
		}
	}
	cp := *admin
	m.admins[admin.ID] = &cp
	return nil
}

func (m *MockAdminRepository) GetByID(_ context.Context, id string) (*Admin, error) {
	a, ok := m.admins[id]
	if !ok {
		return nil, ErrAdminNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MockAdminRepository) GetByUsername(_ context.Context, username string) (*Admin, error) {
	for _, a := range m.admins {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAdminNotFound
}

func (m *MockAdminRepository) UpdateRole(_ context.Context, id, roleID string) error {
	a, ok := m.admins[id]
	if !ok {
		return ErrAdminNotFound
	}
	a.RoleID = roleID
	return nil
}

func (m *MockAdminRepository) Activate(_ context.Context, id string) error {
	a, ok := m.admins[id]
	if !ok {
		return ErrAdminNotFound
	}
	a.IsActive = true
	return nil
}

func (m *MockAdminRepository) Deactivate(_ context.Context, id, protectedRoleID string) error {
	a, ok := m.admins[id]
	if !ok {
		return ErrAdminNotFound
	}
	if !a.IsActive {
		return nil
	}
	if a.RoleID == protectedRoleID {
		others := 0
		for _, other := range m.admins {
			if other.ID != id && other.RoleID == protectedRoleID && other.IsActive {
				others++
			}
		}
		if others == 0 {
			return ErrLastActiveAdmin
		}
	}
	a.IsActive = false
	return nil
}

func (m *MockAdminRepository) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	a, ok := m.admins[id]
	if !ok {
		return ErrAdminNotFound
	}
	a.LastLogin = &at
	return nil
}

func (m *MockAdminRepository) Delete(_ context.Context, id string) error {
	if _, ok := m.admins[id]; !ok {
		return ErrAdminNotFound
	}
	delete(m.admins, id)
	return nil
}

func (m *MockAdminRepository) List(_ context.Context, offset, limit int) ([]*Admin, int, error) {
	all := make([]*Admin, 0, len(m.admins))
	for _, a := range m.admins {
		cp := *a
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// mockRoleRepository holds just enough role state for existence checks.
type mockRoleRepository struct {
	roles map[string]*role.Role
}

func newMockRoleRepository() *mockRoleRepository {
	return &mockRoleRepository{roles: make(map[string]*role.Role)}
}

func (m *mockRoleRepository) Create(_ context.Context, r *role.Role) error {
	m.roles[r.ID] = r
	return nil
}

func (m *mockRoleRepository) GetByID(_ context.Context, id string) (*role.Role, error) {
	r, ok := m.roles[id]
	if !ok {
		return nil, role.ErrRoleNotFound
	}
	return r, nil
}

func (m *mockRoleRepository) GetByName(_ context.Context, name string) (*role.Role, error) {
	for _, r := range m.roles {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, role.ErrRoleNotFound
}

func (m *mockRoleRepository) Update(_ context.Context, r *role.Role) error {
	m.roles[r.ID] = r
	return nil
}

func (m *mockRoleRepository) Delete(_ context.Context, id string) error {
	delete(m.roles, id)
	return nil
}

func (m *mockRoleRepository) List(_ context.Context, _, _ int) ([]*role.Role, int, error) {
	return nil, len(m.roles), nil
}

func newTestService(t *testing.T) (*Service, *MockAdminRepository, *mockRoleRepository) {
	t.Helper()
	repo := NewMockAdminRepository()
	roles := newMockRoleRepository()
	for _, b := range role.Builtins(permission.NewRegistry()) {
		roles.roles[b.ID] = b
	}
	hasher := NewPasswordHasher(65536, 3, 4, 16, 32)
	s := NewService(repo, roles, hasher, 12, audit.NewSlogLogger())
	return s, repo, roles
}

// TestPurpose: Validates administrator creation, including password policy and role existence checks.
// Scope: Unit Test
// Security: Weak passwords and dangling role references are rejected at creation.
// Expected: Active account with hashed password on success; ErrWeakPassword and role.ErrRoleNotFound on the failure paths.
// Test Case ID: ADM-01
func TestIdentity_Service_Create(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	admin, err := s.Create(ctx, "actor-1", "alice", "CorrectHorseBattery", role.RoleIDOperator)
	if err != nil {
		t.Fatalf("failed to create admin: %v", err)
	}
	if !admin.IsActive {
		t.Error("new admin must start active")
	}
	if admin.PasswordHash == "" || admin.PasswordHash == "CorrectHorseBattery" {
		t.Error("password must be stored hashed")
	}

	_, err = s.Create(ctx, "actor-1", "bob", "short", role.RoleIDOperator)
	if !errors.Is(err, ErrWeakPassword) {
		t.Errorf("expected ErrWeakPassword, got %v", err)
	}

	_, err = s.Create(ctx, "actor-1", "bob", "CorrectHorseBattery", "no-such-role")
	if !errors.Is(err, role.ErrRoleNotFound) {
		t.Errorf("expected ErrRoleNotFound, got %v", err)
	}
}

// TestPurpose: Validates username validation and uniqueness on creation.
// Scope: Unit Test
// Security: Data Integrity and Unique Constraint Enforcement
// Expected: ErrInvalidInput for malformed usernames, ErrUsernameTaken for duplicates.
// Test Case ID: ADM-02
func TestIdentity_Service_Create_UsernameRules(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "actor-1", "", "CorrectHorseBattery", role.RoleIDOperator); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty username, got %v", err)
	}
	if _, err := s.Create(ctx, "actor-1", "bad name", "CorrectHorseBattery", role.RoleIDOperator); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for spaced username, got %v", err)
	}

	if _, err := s.Create(ctx, "actor-1", "carol", "CorrectHorseBattery", role.RoleIDOperator); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if _, err := s.Create(ctx, "actor-1", "carol", "CorrectHorseBattery", role.RoleIDAuditor); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
}

// TestPurpose: Validates role reassignment for an existing administrator.
// Scope: Unit Test
// Expected: New role id visible on the returned record; unknown roles rejected.
// Test Case ID: ADM-03
func TestIdentity_Service_AssignRole(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	admin, err := s.Create(ctx, "actor-1", "alice", "CorrectHorseBattery", role.RoleIDOperator)
	if err != nil {
		t.Fatalf("failed to create admin: %v", err)
	}

	updated, err := s.AssignRole(ctx, "actor-1", admin.ID, role.RoleIDAuditor)
	if err != nil {
		t.Fatalf("failed to assign role: %v", err)
	}
	if updated.RoleID != role.RoleIDAuditor {
		t.Errorf("expected auditor role, got %s", updated.RoleID)
	}

	if _, err := s.AssignRole(ctx, "actor-1", admin.ID, "no-such-role"); !errors.Is(err, role.ErrRoleNotFound) {
		t.Errorf("expected ErrRoleNotFound, got %v", err)
	}
}

// TestPurpose: Validates enable/disable transitions, their idempotency, and the last-administrator lockout guard.
// Scope: Unit Test
// Security: The console must always retain at least one active administrator-role account.
// Expected: Repeated enable/disable are no-ops; disabling the last active administrator returns ErrLastActiveAdmin.
// Test Case ID: ADM-04
func TestIdentity_Service_EnableDisable(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	root, err := s.Create(ctx, "actor-1", "root", "CorrectHorseBattery", role.RoleIDAdministrator)
	if err != nil {
		t.Fatalf("failed to create admin: %v", err)
	}
	op, err := s.Create(ctx, "actor-1", "ops", "CorrectHorseBattery", role.RoleIDOperator)
	if err != nil {
		t.Fatalf("failed to create admin: %v", err)
	}

	// Disable and re-disable the operator: second call is a no-op.
	for i := 0; i < 2; i++ {
		got, err := s.Disable(ctx, "actor-1", op.ID)
		if err != nil {
			t.Fatalf("disable %d failed: %v", i, err)
		}
		if got.IsActive {
			t.Error("expected inactive account")
		}
	}
	for i := 0; i < 2; i++ {
		got, err := s.Enable(ctx, "actor-1", op.ID)
		if err != nil {
			t.Fatalf("enable %d failed: %v", i, err)
		}
		if !got.IsActive {
			t.Error("expected active account")
		}
	}

	// root is the only active administrator-role account.
	if _, err := s.Disable(ctx, "actor-1", root.ID); !errors.Is(err, ErrLastActiveAdmin) {
		t.Errorf("expected ErrLastActiveAdmin, got %v", err)
	}

	second, err := s.Create(ctx, "actor-1", "root2", "CorrectHorseBattery", role.RoleIDAdministrator)
	if err != nil {
		t.Fatalf("failed to create second admin: %v", err)
	}
	if _, err := s.Disable(ctx, "actor-1", root.ID); err != nil {
		t.Fatalf("disable with a second active administrator failed: %v", err)
	}
	if _, err := s.Disable(ctx, "actor-1", second.ID); !errors.Is(err, ErrLastActiveAdmin) {
		t.Errorf("expected ErrLastActiveAdmin for remaining admin, got %v", err)
	}
}

// TestPurpose: Validates administrator deletion and last-login recording.
// Scope: Unit Test
// Expected: Deleted accounts are gone; RecordLogin stamps a timestamp and tolerates unknown ids.
// Test Case ID: ADM-05
func TestIdentity_Service_DeleteAndLogin(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	admin, err := s.Create(ctx, "actor-1", "alice", "CorrectHorseBattery", role.RoleIDOperator)
	if err != nil {
		t.Fatalf("failed to create admin: %v", err)
	}

	s.RecordLogin(ctx, admin.ID)
	got, err := s.Get(ctx, admin.ID)
	if err != nil {
		t.Fatalf("failed to get admin: %v", err)
	}
	if got.LastLogin == nil {
		t.Error("expected last login to be stamped")
	}

	// Unknown id must not panic or surface an error.
	s.RecordLogin(ctx, "no-such-admin")

	if err := s.Delete(ctx, "actor-1", admin.ID); err != nil {
		t.Fatalf("failed to delete admin: %v", err)
	}
	if _, err := s.Get(ctx, admin.ID); !errors.Is(err, ErrAdminNotFound) {
		t.Errorf("expected ErrAdminNotFound, got %v", err)
	}
	if err := s.Delete(ctx, "actor-1", admin.ID); !errors.Is(err, ErrAdminNotFound) {
		t.Errorf("expected ErrAdminNotFound on double delete, got %v", err)
	}
}

// TestPurpose: Validates that the startup bootstrap seeds builtin roles and the initial administrator exactly once.
// Scope: Unit Test
// Security: Builtin roles and the break-glass account must survive restarts without duplication or clobbering.
// Expected: Three builtin roles and one admin after two runs; an edited role assignment survives the second run.
// Test Case ID: ADM-06
func TestIdentity_Bootstrap_Idempotent(t *testing.T) {
	repo := NewMockAdminRepository()
	roles := newMockRoleRepository()
	reg := permission.NewRegistry()
	hasher := NewPasswordHasher(65536, 3, 4, 16, 32)
	b := NewBootstrapper(repo, roles, reg, hasher, audit.NewSlogLogger())
	ctx := context.Background()

	if err := b.Run(ctx, "root", "BootstrapSecret1"); err != nil {
		t.Fatalf("first bootstrap failed: %v", err)
	}
	if len(roles.roles) != 3 {
		t.Fatalf("expected 3 builtin roles, got %d", len(roles.roles))
	}
	admin, err := repo.GetByUsername(ctx, "root")
	if err != nil {
		t.Fatalf("bootstrap admin missing: %v", err)
	}
	if admin.RoleID != role.RoleIDAdministrator {
		t.Errorf("expected administrator role, got %s", admin.RoleID)
	}

	// Simulate a later edit, then re-run the bootstrap.
	repo.admins[admin.ID].RoleID = role.RoleIDAuditor
	if err := b.Run(ctx, "root", "BootstrapSecret1"); err != nil {
		t.Fatalf("second bootstrap failed: %v", err)
	}
	if len(repo.admins) != 1 {
		t.Errorf("expected 1 admin after re-run, got %d", len(repo.admins))
	}
	again, _ := repo.GetByUsername(ctx, "root")
	if again.RoleID != role.RoleIDAuditor {
		t.Error("bootstrap re-run must not clobber an edited role assignment")
	}
}

// TestPurpose: Validates Argon2id hashing round trips and rejects wrong passwords and malformed encodings.
// Scope: Unit Test
// Security: Credential storage
// Expected: Verify true for the original password, false for others, error for garbage hashes.
// Test Case ID: ADM-07
func TestIdentity_PasswordHasher(t *testing.T) {
	hasher := NewPasswordHasher(65536, 3, 4, 16, 32)

	hash, err := hasher.Hash("CorrectHorseBattery")
	if err != nil {
		t.Fatalf("failed to hash: %v", err)
	}

	ok, err := hasher.Verify("CorrectHorseBattery", hash)
	if err != nil || !ok {
		t.Errorf("expected match, got ok=%v err=%v", ok, err)
	}
	ok, err = hasher.Verify("WrongPassword", hash)
	if err != nil || ok {
		t.Errorf("expected mismatch, got ok=%v err=%v", ok, err)
	}
	if _, err := hasher.Verify("x", "$not-a-hash"); err == nil {
		t.Error("expected error for malformed hash")
	}
}

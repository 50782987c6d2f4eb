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

package authz

import (
	"context"
	"testing"

	"github.com/edgepanel/edgepanel/internal/audit"
	"github.com/edgepanel/edgepanel/internal/identity"
	"github.com/edgepanel/edgepanel/internal/permission"
	"github.com/edgepanel/edgepanel/internal/role"
)

type mockAdminResolver struct {
	admins map[string]*identity.Admin
}

func (m *mockAdminResolver) GetByID(_ context.Context, id string) (*identity.Admin, error) {
	a, ok := m.admins[id]
	if !ok {
		return nil, identity.ErrAdminNotFound
	}
	cp := *a
	return &cp, nil
}

type mockRoleResolver struct {
	roles map[string]*role.Role
	reads int
}

func (m *mockRoleResolver) GetByID(_ context.Context, id string) (*role.Role, error) {
	m.reads++
	r, ok := m.roles[id]
	if !ok {
		return nil, role.ErrRoleNotFound
	}
	cp := *r
	return &cp, nil
}

func newTestEngine() (*Service, *mockAdminResolver, *mockRoleResolver) {
	admins := &mockAdminResolver{admins: make(map[string]*identity.Admin)}
	roles := &mockRoleResolver{roles: make(map[string]*role.Role)}
	s := NewService(admins, roles, permission.NewRegistry(), audit.NewSlogLogger())
	return s, admins, roles
}

// TestPurpose: Validates the core allow/deny decision for a principal bound to a limited role.
// Scope: Unit Test
// Security: Additive allow-lists; anything not granted is denied.
// Expected: Allow for a granted permission, deny for an ungranted one on the same resource.
// Test Case ID: ATZ-01
func TestAuthz_Service_Authorize(t *testing.T) {
	s, admins, roles := newTestEngine()
	ctx := context.Background()

	roles.roles["r1"] = &role.Role{
		ID:      "r1",
		Name:    "restarter",
		Version: 1,
		PermissionIDs: []string{
			permission.Key(permission.ResourceServices, permission.ActionRestart),
		},
	}
	admins.admins["p1"] = &identity.Admin{ID: "p1", Username: "ops", RoleID: "r1", IsActive: true}

	d, err := s.Authorize(ctx, "p1", permission.ResourceServices, permission.ActionRestart)
	if err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if !d.Allowed {
		t.Errorf("expected allow, got deny (%s)", d.Reason)
	}

	d, err = s.Authorize(ctx, "p1", permission.ResourceServices, permission.ActionDelete)
	if err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if d.Allowed {
		t.Error("expected deny for ungranted permission")
	}
	if d.Reason != ReasonPermissionMissing {
		t.Errorf("expected reason %q, got %q", ReasonPermissionMissing, d.Reason)
	}
}

// TestPurpose: Validates denial for unknown, missing, and deactivated principals and unknown permission keys.
// Scope: Unit Test
// Security: Fail closed on every unresolvable input.
// Expected: Deny with the specific reason, never an error.
// Test Case ID: ATZ-02
func TestAuthz_Service_Denials(t *testing.T) {
	s, admins, roles := newTestEngine()
	ctx := context.Background()

	roles.roles["r1"] = &role.Role{
		ID:            "r1",
		Version:       1,
		PermissionIDs: []string{permission.Key(permission.ResourceServices, permission.ActionRead)},
	}
	admins.admins["inactive"] = &identity.Admin{ID: "inactive", RoleID: "r1", IsActive: false}
	admins.admins["dangling"] = &identity.Admin{ID: "dangling", RoleID: "gone", IsActive: true}

	cases := []struct {
		name        string
		principalID string
		resource    string
		action      string
		reason      string
	}{
		{"unknown principal", "ghost", permission.ResourceServices, permission.ActionRead, ReasonPrincipalNotFound},
		{"inactive principal", "inactive", permission.ResourceServices, permission.ActionRead, ReasonPrincipalInactive},
		{"dangling role", "dangling", permission.ResourceServices, permission.ActionRead, ReasonPermissionMissing},
		{"unknown permission", "inactive", "services", "teleport", ReasonUnknownPermission},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := s.Authorize(ctx, tc.principalID, tc.resource, tc.action)
			if err != nil {
				t.Fatalf("authorize errored: %v", err)
			}
			if d.Allowed {
				t.Error("expected deny")
			}
			if d.Reason != tc.reason {
				t.Errorf("expected reason %q, got %q", tc.reason, d.Reason)
			}
		})
	}
}

// TestPurpose: Validates that a permission revoked by a role update is denied on the very next decision.
// Scope: Unit Test
// Security: A cached permission set must never outlive the role version it was built from.
// Expected: Allow before the update, deny immediately after the version bump and invalidation.
// Test Case ID: ATZ-03
func TestAuthz_Service_RevocationVisible(t *testing.T) {
	s, admins, roles := newTestEngine()
	ctx := context.Background()

	pid := permission.Key(permission.ResourceBackups, permission.ActionRestore)
	roles.roles["r1"] = &role.Role{ID: "r1", Version: 1, PermissionIDs: []string{pid}}
	admins.admins["p1"] = &identity.Admin{ID: "p1", RoleID: "r1", IsActive: true}

	d, err := s.Authorize(ctx, "p1", permission.ResourceBackups, permission.ActionRestore)
	if err != nil || !d.Allowed {
		t.Fatalf("expected allow before revocation, got d=%+v err=%v", d, err)
	}

	// Revoke: bump the version and drop the permission, then invalidate
	// the way the role service does on every mutation.
	roles.roles["r1"] = &role.Role{ID: "r1", Version: 2, PermissionIDs: nil}
	s.Invalidate("r1")

	d, err = s.Authorize(ctx, "p1", permission.ResourceBackups, permission.ActionRestore)
	if err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if d.Allowed {
		t.Error("revoked permission still allowed")
	}
}

// TestPurpose: Validates that even without an explicit invalidation a stale cached set is never consulted for a newer role version.
// Scope: Unit Test
// Security: Stale-allow must be structurally impossible, not just unlikely.
// Expected: Deny right after the version bump with no Invalidate call.
// Test Case ID: ATZ-04
func TestAuthz_Service_VersionKeyedCache(t *testing.T) {
	s, admins, roles := newTestEngine()
	ctx := context.Background()

	pid := permission.Key(permission.ResourceWebhooks, permission.ActionWrite)
	roles.roles["r1"] = &role.Role{ID: "r1", Version: 1, PermissionIDs: []string{pid}}
	admins.admins["p1"] = &identity.Admin{ID: "p1", RoleID: "r1", IsActive: true}

	if d, _ := s.Authorize(ctx, "p1", permission.ResourceWebhooks, permission.ActionWrite); !d.Allowed {
		t.Fatal("expected allow before revocation")
	}

	roles.roles["r1"] = &role.Role{ID: "r1", Version: 2, PermissionIDs: nil}

	d, err := s.Authorize(ctx, "p1", permission.ResourceWebhooks, permission.ActionWrite)
	if err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if d.Allowed {
		t.Error("cached set for an older role version was honored")
	}
}

// TestPurpose: Validates that repeated decisions for the same role version reuse the cached set.
// Scope: Unit Test
// Expected: The permission set is materialized once; subsequent decisions hit the cache.
// Test Case ID: ATZ-05
func TestAuthz_Service_CacheReuse(t *testing.T) {
	s, admins, roles := newTestEngine()
	ctx := context.Background()

	pid := permission.Key(permission.ResourceDomains, permission.ActionRead)
	roles.roles["r1"] = &role.Role{ID: "r1", Version: 1, PermissionIDs: []string{pid}}
	admins.admins["p1"] = &identity.Admin{ID: "p1", RoleID: "r1", IsActive: true}

	for i := 0; i < 5; i++ {
		if d, err := s.Authorize(ctx, "p1", permission.ResourceDomains, permission.ActionRead); err != nil || !d.Allowed {
			t.Fatalf("decision %d: d=%+v err=%v", i, d, err)
		}
	}

	// The role record is read on every decision; the cached set is
	// keyed by the version it reports.
	if roles.reads != 5 {
		t.Errorf("expected 5 role reads, got %d", roles.reads)
	}
	s.mu.RLock()
	entries := len(s.cache)
	s.mu.RUnlock()
	if entries != 1 {
		t.Errorf("expected a single cache entry, got %d", entries)
	}
}

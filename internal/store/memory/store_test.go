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

package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/edgepanel/edgepanel/internal/identity"
	"github.com/edgepanel/edgepanel/internal/role"
)

func seedRole(t *testing.T, s *Store, id, name string) *role.Role {
	t.Helper()
	rl := &role.Role{ID: id, Name: name, Version: 1, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := s.Roles().Create(context.Background(), rl); err != nil {
		t.Fatalf("failed to seed role %s: %v", name, err)
	}
	return rl
}

func seedAdmin(t *testing.T, s *Store, id, username, roleID string, active bool) *identity.Admin {
	t.Helper()
	admin := &identity.Admin{ID: id, Username: username, PasswordHash: "x", RoleID: roleID, IsActive: active, CreatedAt: time.Now()}
	if err := s.Admins().Create(context.Background(), admin); err != nil {
		t.Fatalf("failed to seed admin %s: %v", username, err)
	}
	return admin
}

// TestPurpose: Validates that of N concurrent creates with the same role name exactly one succeeds.
// Scope: Unit Test (concurrency)
// Security: Data Integrity and Unique Constraint Enforcement
// Expected: One nil error, N-1 ErrRoleNameTaken.
// Test Case ID: MEM-01
func TestMemory_Store_ConcurrentDuplicateRoleCreate(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	const n = 16
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Roles().Create(ctx, &role.Role{
				ID:      fmt.Sprintf("r-%d", i),
				Name:    "support",
				Version: 1,
			})
		}(i)
	}
	wg.Wait()

	winners, losers := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, role.ErrRoleNameTaken):
			losers++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if winners != 1 || losers != n-1 {
		t.Errorf("expected 1 winner and %d conflicts, got %d/%d", n-1, winners, losers)
	}
}

// TestPurpose: Validates that a role referenced by an administrator cannot be deleted, and can be once the reference moves.
// Scope: Unit Test
// Expected: ErrRoleInUse while referenced, success after reassignment.
// Test Case ID: MEM-02
func TestMemory_Store_RoleInUse(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	rl := seedRole(t, s, "r1", "support")
	other := seedRole(t, s, "r2", "fallback")
	admin := seedAdmin(t, s, "a1", "alice", rl.ID, true)

	if err := s.Roles().Delete(ctx, rl.ID); !errors.Is(err, role.ErrRoleInUse) {
		t.Errorf("expected ErrRoleInUse, got %v", err)
	}
	if err := s.Admins().UpdateRole(ctx, admin.ID, other.ID); err != nil {
		t.Fatalf("failed to reassign: %v", err)
	}
	if err := s.Roles().Delete(ctx, rl.ID); err != nil {
		t.Errorf("expected delete to succeed, got %v", err)
	}
}

// TestPurpose: Validates the version guard on role updates under a concurrent writer.
// Scope: Unit Test
// Expected: The update based on a stale version returns ErrRoleModified.
// Test Case ID: MEM-03
func TestMemory_Store_VersionGuard(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	rl := seedRole(t, s, "r1", "support")

	first := *rl
	first.Description = "first writer"
	first.Version = rl.Version + 1
	if err := s.Roles().Update(ctx, &first); err != nil {
		t.Fatalf("first update failed: %v", err)
	}

	stale := *rl
	stale.Description = "second writer"
	stale.Version = rl.Version + 1
	if err := s.Roles().Update(ctx, &stale); !errors.Is(err, role.ErrRoleModified) {
		t.Errorf("expected ErrRoleModified, got %v", err)
	}
}

// TestPurpose: Validates the last-active-administrator guard under concurrent deactivations.
// Scope: Unit Test (concurrency)
// Security: The store must never reach a state with zero active administrator-role accounts.
// Expected: At most one of two concurrent deactivations succeeds; one active admin remains.
// Test Case ID: MEM-04
func TestMemory_Store_LastAdminGuard(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	seedRole(t, s, role.RoleIDAdministrator, "administrator")
	a := seedAdmin(t, s, "a1", "root1", role.RoleIDAdministrator, true)
	b := seedAdmin(t, s, "a2", "root2", role.RoleIDAdministrator, true)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{a.ID, b.ID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			errs[i] = s.Admins().Deactivate(ctx, id, role.RoleIDAdministrator)
		}(i, id)
	}
	wg.Wait()

	active := 0
	for _, id := range []string{a.ID, b.ID} {
		admin, err := s.Admins().GetByID(ctx, id)
		if err != nil {
			t.Fatalf("failed to read admin: %v", err)
		}
		if admin.IsActive {
			active++
		}
	}
	guarded := 0
	for _, err := range errs {
		if errors.Is(err, identity.ErrLastActiveAdmin) {
			guarded++
		} else if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if active != 1 || guarded != 1 {
		t.Errorf("expected exactly one active admin and one guarded error, got active=%d guarded=%d", active, guarded)
	}
}

// TestPurpose: Validates that records returned by the store are snapshots, not aliases of internal state.
// Scope: Unit Test
// Expected: Mutating a returned role does not change the stored copy.
// Test Case ID: MEM-05
func TestMemory_Store_SnapshotIsolation(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	rl := &role.Role{ID: "r1", Name: "support", PermissionIDs: []string{"services:read"}, Version: 1}
	if err := s.Roles().Create(ctx, rl); err != nil {
		t.Fatalf("failed to create role: %v", err)
	}

	got, err := s.Roles().GetByID(ctx, "r1")
	if err != nil {
		t.Fatalf("failed to get role: %v", err)
	}
	got.PermissionIDs[0] = "services:delete"
	got.Name = "tampered"

	again, err := s.Roles().GetByID(ctx, "r1")
	if err != nil {
		t.Fatalf("failed to get role: %v", err)
	}
	if again.Name != "support" || again.PermissionIDs[0] != "services:read" {
		t.Errorf("stored role mutated through a returned snapshot: %+v", again)
	}
}

// TestPurpose: Validates pagination bounds on list operations.
// Scope: Unit Test
// Expected: Stable name order, correct totals, empty page past the end.
// Test Case ID: MEM-06
func TestMemory_Store_ListPagination(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		seedRole(t, s, fmt.Sprintf("r%d", i), fmt.Sprintf("role-%d", i))
	}

	pageOne, total, err := s.Roles().List(ctx, 0, 2)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if total != 5 || len(pageOne) != 2 {
		t.Errorf("expected total 5 page 2, got total=%d page=%d", total, len(pageOne))
	}
	if pageOne[0].Name != "role-0" || pageOne[1].Name != "role-1" {
		t.Errorf("unexpected order: %s, %s", pageOne[0].Name, pageOne[1].Name)
	}

	empty, total, err := s.Roles().List(ctx, 10, 2)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if total != 5 || len(empty) != 0 {
		t.Errorf("expected empty page with total 5, got total=%d page=%d", total, len(empty))
	}
}

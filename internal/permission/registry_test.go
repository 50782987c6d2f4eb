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

package permission

import "testing"

// TestPurpose: Validates the catalog invariants: unique (resource, action)
// keys, stable listing order, and id lookups.
// Scope: Unit Test
func TestPermission_Registry_CatalogIntegrity(t *testing.T) {
	r := NewRegistry()

	if r.Len() == 0 {
		t.Fatal("catalog must not be empty")
	}

	seen := make(map[string]bool)
	for _, p := range r.List() {
		if p.ID != Key(p.Resource, p.Action) {
			t.Errorf("permission %q: id does not match resource/action key", p.ID)
		}
		if p.Name == "" {
			t.Errorf("permission %q: missing human label", p.ID)
		}
		if seen[p.ID] {
			t.Errorf("duplicate permission id %q in catalog", p.ID)
		}
		seen[p.ID] = true
		if !r.Exists(p.ID) {
			t.Errorf("Exists(%q) = false for listed permission", p.ID)
		}
	}

	if r.Exists("services:fly") {
		t.Error("Exists must reject an unregistered action")
	}
	if r.Exists("") {
		t.Error("Exists must reject the empty id")
	}
}

// TestPurpose: Validates that listing is stable across calls and that the
// returned slice is a copy the caller may mutate freely.
// Scope: Unit Test
func TestPermission_Registry_ListIsStableCopy(t *testing.T) {
	r := NewRegistry()

	first := r.List()
	first[0].Name = "tampered"

	second := r.List()
	if second[0].Name == "tampered" {
		t.Error("List must return a copy, not the backing slice")
	}

	for i := range second {
		if second[i].ID != r.List()[i].ID {
			t.Fatalf("listing order unstable at index %d", i)
		}
	}
}

// TestPurpose: Validates the derived resource grouping used by the console
// permission tree: every permission appears exactly once under its
// resource, with order preserved.
// Scope: Unit Test
func TestPermission_Registry_GroupByResource(t *testing.T) {
	r := NewRegistry()
	groups := r.GroupByResource()

	total := 0
	for _, g := range groups {
		if len(g.Permissions) == 0 {
			t.Errorf("resource %q has an empty group", g.Resource)
		}
		for _, p := range g.Permissions {
			if p.Resource != g.Resource {
				t.Errorf("permission %q grouped under wrong resource %q", p.ID, g.Resource)
			}
		}
		total += len(g.Permissions)
	}
	if total != r.Len() {
		t.Errorf("grouping lost permissions: got %d, want %d", total, r.Len())
	}

	// Grouping preserves catalog order: first group is the first resource listed.
	if groups[0].Resource != r.List()[0].Resource {
		t.Error("group order must follow catalog order")
	}
}

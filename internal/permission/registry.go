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

// Registry is the read-only view over the permission catalog.
// It is safe for concurrent use: its maps are built once in NewRegistry
// and never written afterwards.
type Registry struct {
	ordered []Permission
	byID    map[string]Permission
}

// NewRegistry materializes the catalog with IDs assigned from the
// (resource, action) natural key.
func NewRegistry() *Registry {
	r := &Registry{
		ordered: make([]Permission, 0, len(catalog)),
		byID:    make(map[string]Permission, len(catalog)),
	}
	for _, p := range catalog {
		p.ID = Key(p.Resource, p.Action)
		r.ordered = append(r.ordered, p)
		r.byID[p.ID] = p
	}
	return r
}

// List returns all permissions in stable order (by resource, then action
// as laid out in the catalog). The returned slice is a copy.
func (r *Registry) List() []Permission {
	out := make([]Permission, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Exists reports whether a permission id is registered.
func (r *Registry) Exists(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// Get returns a permission by id.
func (r *Registry) Get(id string) (Permission, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// Len returns the catalog size.
func (r *Registry) Len() int {
	return len(r.ordered)
}

// AllIDs returns every registered permission id in listing order.
func (r *Registry) AllIDs() []string {
	ids := make([]string, 0, len(r.ordered))
	for _, p := range r.ordered {
		ids = append(ids, p.ID)
	}
	return ids
}

// ResourceGroup is a per-resource slice of the catalog, used by the
// console to render its permission tree. Derived, never persisted.
type ResourceGroup struct {
	Resource    string       `json:"resource"`
	Permissions []Permission `json:"permissions"`
}

// GroupByResource returns the catalog grouped by resource, preserving
// listing order for both groups and members.
func (r *Registry) GroupByResource() []ResourceGroup {
	var groups []ResourceGroup
	index := make(map[string]int)
	for _, p := range r.ordered {
		i, ok := index[p.Resource]
		if !ok {
			i = len(groups)
			index[p.Resource] = i
			groups = append(groups, ResourceGroup{Resource: p.Resource})
		}
		groups[i].Permissions = append(groups[i].Permissions, p)
	}
	return groups
}

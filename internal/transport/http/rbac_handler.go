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

package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/edgepanel/edgepanel/internal/permission"
	"github.com/edgepanel/edgepanel/internal/role"
)

type roleResponse struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Permissions []permission.Permission `json:"permissions"`
	IsBuiltin   bool                    `json:"is_builtin"`
	Version     int64                   `json:"version"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// toRoleResponse resolves the stored permission ids against the catalog
// so the console gets full permission objects, as its role editor expects.
func (h *Handler) toRoleResponse(r *role.Role) roleResponse {
	perms := make([]permission.Permission, 0, len(r.PermissionIDs))
	for _, id := range r.PermissionIDs {
		if p, ok := h.registry.Get(id); ok {
			perms = append(perms, p)
		}
	}
	return roleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Permissions: perms,
		IsBuiltin:   r.IsBuiltin,
		Version:     r.Version,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type createRoleRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	PermissionIDs []string `json:"permission_ids"`
}

type updateRoleRequest struct {
	Name          *string   `json:"name"`
	Description   *string   `json:"description"`
	PermissionIDs *[]string `json:"permission_ids"`
}

// ListPermissions returns the full permission catalog in stable order.
// @Summary List permissions
// @Description Full permission catalog in stable order
// @Tags Permissions
// @Produce json
// @Success 200 {object} listResponse
// @Failure 401 {object} map[string]string
// @Security BearerAuth
// @Router /permissions [get]
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms := h.registry.List()
	respondJSON(w, http.StatusOK, listResponse{Total: len(perms), Items: perms})
}

// ListPermissionsByResource returns the catalog grouped by resource,
// the shape the role editor consumes.
// @Summary List permissions by resource
// @Tags Permissions
// @Produce json
// @Success 200 {object} listResponse
// @Failure 401 {object} map[string]string
// @Security BearerAuth
// @Router /permissions/by-resource [get]
func (h *Handler) ListPermissionsByResource(w http.ResponseWriter, r *http.Request) {
	groups := h.registry.GroupByResource()
	respondJSON(w, http.StatusOK, listResponse{Total: len(groups), Items: groups})
}

// ListRoles returns a page of roles.
// @Summary List roles
// @Tags Roles
// @Produce json
// @Param skip query int false "Items to skip"
// @Param limit query int false "Page size"
// @Success 200 {object} listResponse
// @Failure 401 {object} map[string]string
// @Security BearerAuth
// @Router /roles [get]
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r)
	roles, total, err := h.roleService.List(r.Context(), offset, limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	items := make([]roleResponse, 0, len(roles))
	for _, rl := range roles {
		items = append(items, h.toRoleResponse(rl))
	}
	respondJSON(w, http.StatusOK, listResponse{Total: total, Items: items})
}

// CreateRole creates a custom role.
// @Summary Create role
// @Description Create a custom role bundling catalog permissions
// @Tags Roles
// @Accept json
// @Produce json
// @Param request body createRoleRequest true "Role data"
// @Success 201 {object} roleResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /roles [post]
func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rl, err := h.roleService.Create(r.Context(), GetPrincipalID(r.Context()), req.Name, req.Description, req.PermissionIDs)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, h.toRoleResponse(rl))
}

// GetRole returns a single role.
// @Summary Get role
// @Tags Roles
// @Produce json
// @Param roleID path string true "Role ID"
// @Success 200 {object} roleResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /roles/{roleID} [get]
func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	rl, err := h.roleService.Get(r.Context(), chi.URLParam(r, "roleID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toRoleResponse(rl))
}

// UpdateRole applies a partial update to a custom role.
// @Summary Update role
// @Description Partial update; builtin roles are immutable
// @Tags Roles
// @Accept json
// @Produce json
// @Param roleID path string true "Role ID"
// @Param request body updateRoleRequest true "Fields to change"
// @Success 200 {object} roleResponse
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /roles/{roleID} [put]
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patch := role.Patch{Name: req.Name, Description: req.Description}
	if req.PermissionIDs != nil {
		ids := *req.PermissionIDs
		if ids == nil {
			ids = []string{}
		}
		patch.PermissionIDs = ids
	}

	rl, err := h.roleService.Update(r.Context(), GetPrincipalID(r.Context()), chi.URLParam(r, "roleID"), patch)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toRoleResponse(rl))
}

// DeleteRole removes a custom role that no administrator references.
// @Summary Delete role
// @Description Builtin roles and roles still bound to an administrator are refused
// @Tags Roles
// @Param roleID path string true "Role ID"
// @Success 204
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /roles/{roleID} [delete]
func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	if err := h.roleService.Delete(r.Context(), GetPrincipalID(r.Context()), chi.URLParam(r, "roleID")); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

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
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/edgepanel/edgepanel/internal/identity"
)

// adminResponse never carries the password hash. The bound role is
// embedded so the console does not need a second round trip.
type adminResponse struct {
	ID        string        `json:"id"`
	Username  string        `json:"username"`
	RoleID    string        `json:"role_id"`
	Role      *roleResponse `json:"role,omitempty"`
	IsActive  bool          `json:"is_active"`
	LastLogin *time.Time    `json:"last_login,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

func (h *Handler) toAdminResponse(ctx context.Context, admin *identity.Admin) adminResponse {
	resp := adminResponse{
		ID:        admin.ID,
		Username:  admin.Username,
		RoleID:    admin.RoleID,
		IsActive:  admin.IsActive,
		LastLogin: admin.LastLogin,
		CreatedAt: admin.CreatedAt,
	}
	if rl, err := h.roleService.Get(ctx, admin.RoleID); err == nil {
		rr := h.toRoleResponse(rl)
		resp.Role = &rr
	}
	return resp
}

type createAdminRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	RoleID   string `json:"role_id"`
}

type assignRoleRequest struct {
	RoleID string `json:"role_id"`
}

// ListAdmins returns a page of administrator accounts.
// @Summary List administrators
// @Description Page of administrator accounts with their bound role embedded
// @Tags Admins
// @Produce json
// @Param skip query int false "Items to skip"
// @Param limit query int false "Page size"
// @Success 200 {object} listResponse
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /admins [get]
func (h *Handler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r)
	admins, total, err := h.adminService.List(r.Context(), offset, limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	items := make([]adminResponse, 0, len(admins))
	for _, admin := range admins {
		items = append(items, h.toAdminResponse(r.Context(), admin))
	}
	respondJSON(w, http.StatusOK, listResponse{Total: total, Items: items})
}

// CreateAdmin registers a new administrator account.
// @Summary Create administrator
// @Description Register an administrator bound to an existing role
// @Tags Admins
// @Accept json
// @Produce json
// @Param request body createAdminRequest true "Account data"
// @Success 201 {object} adminResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /admins [post]
func (h *Handler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req createAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	admin, err := h.adminService.Create(r.Context(), GetPrincipalID(r.Context()), req.Username, req.Password, req.RoleID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, h.toAdminResponse(r.Context(), admin))
}

// GetAdmin returns a single administrator account.
// @Summary Get administrator
// @Tags Admins
// @Produce json
// @Param adminID path string true "Administrator ID"
// @Success 200 {object} adminResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /admins/{adminID} [get]
func (h *Handler) GetAdmin(w http.ResponseWriter, r *http.Request) {
	admin, err := h.adminService.Get(r.Context(), chi.URLParam(r, "adminID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toAdminResponse(r.Context(), admin))
}

// AssignAdminRole rebinds an administrator to a different role.
// @Summary Assign role
// @Tags Admins
// @Accept json
// @Produce json
// @Param adminID path string true "Administrator ID"
// @Param request body assignRoleRequest true "Target role"
// @Success 200 {object} adminResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /admins/{adminID}/role [put]
func (h *Handler) AssignAdminRole(w http.ResponseWriter, r *http.Request) {
	var req assignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	admin, err := h.adminService.AssignRole(r.Context(), GetPrincipalID(r.Context()), chi.URLParam(r, "adminID"), req.RoleID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toAdminResponse(r.Context(), admin))
}

// EnableAdmin activates an administrator account.
// @Summary Enable administrator
// @Tags Admins
// @Produce json
// @Param adminID path string true "Administrator ID"
// @Success 200 {object} adminResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /admins/{adminID}/enable [post]
func (h *Handler) EnableAdmin(w http.ResponseWriter, r *http.Request) {
	admin, err := h.adminService.Enable(r.Context(), GetPrincipalID(r.Context()), chi.URLParam(r, "adminID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toAdminResponse(r.Context(), admin))
}

// DisableAdmin deactivates an administrator account.
// @Summary Disable administrator
// @Description Deactivate an account; the last active administrator cannot be disabled
// @Tags Admins
// @Produce json
// @Param adminID path string true "Administrator ID"
// @Success 200 {object} adminResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /admins/{adminID}/disable [post]
func (h *Handler) DisableAdmin(w http.ResponseWriter, r *http.Request) {
	admin, err := h.adminService.Disable(r.Context(), GetPrincipalID(r.Context()), chi.URLParam(r, "adminID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toAdminResponse(r.Context(), admin))
}

// DeleteAdmin removes an administrator account.
// @Summary Delete administrator
// @Tags Admins
// @Param adminID path string true "Administrator ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /admins/{adminID} [delete]
func (h *Handler) DeleteAdmin(w http.ResponseWriter, r *http.Request) {
	if err := h.adminService.Delete(r.Context(), GetPrincipalID(r.Context()), chi.URLParam(r, "adminID")); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

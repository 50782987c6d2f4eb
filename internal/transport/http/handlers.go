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

// @title EdgePanel RBAC API
// @version 1.0.0
// @description Role-based access control for the EdgePanel admin console
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://www.swagger.io/support
// @contact.email support@swagger.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0

// @host localhost:8080
// @BasePath /api/v1/rbac

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// Package http exposes the authorization core over a chi router.
// Request identity comes from a verified bearer token; every
// access-administration route is guarded by a permission check against
// the authorization engine.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/edgepanel/edgepanel/internal/audit"
	"github.com/edgepanel/edgepanel/internal/authz"
	"github.com/edgepanel/edgepanel/internal/identity"
	"github.com/edgepanel/edgepanel/internal/permission"
	"github.com/edgepanel/edgepanel/internal/role"
)

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	SigningKey []byte
	Issuer     string
}

// Handler holds HTTP handlers and dependencies
type Handler struct {
	registry     *permission.Registry
	roleService  *role.Service
	adminService *identity.Service
	authzService *authz.Service
	auditLogger  audit.Logger
	signingKey   []byte
	tokenIssuer  string

	// loginStamps tracks the last activity stamp per principal id.
	// Shared across every route chain so the throttle holds no matter
	// how many times chi instantiates the auth middleware.
	loginStamps sync.Map
}

// NewHandler creates a new HTTP handler
func NewHandler(
	registry *permission.Registry,
	roleService *role.Service,
	adminService *identity.Service,
	authzService *authz.Service,
	auditLogger audit.Logger,
	authConfig AuthConfig,
) *Handler {
	return &Handler{
		registry:     registry,
		roleService:  roleService,
		adminService: adminService,
		authzService: authzService,
		auditLogger:  auditLogger,
		signingKey:   authConfig.SigningKey,
		tokenIssuer:  authConfig.Issuer,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1/rbac", func(r chi.Router) {
		r.Use(h.AuthMiddleware)

		// Permission catalog and role reads are open to any
		// authenticated principal; the console needs them to render
		// names for whatever the caller can see.
		r.Get("/permissions", h.ListPermissions)
		r.Get("/permissions/by-resource", h.ListPermissionsByResource)

		// Roles
		r.Route("/roles", func(r chi.Router) {
			r.Get("/", h.ListRoles)
			r.With(h.RequirePermission(permission.ResourceRoles, permission.ActionWrite)).
				Post("/", h.CreateRole)
			r.Route("/{roleID}", func(r chi.Router) {
				r.Get("/", h.GetRole)
				r.With(h.RequirePermission(permission.ResourceRoles, permission.ActionWrite)).
					Put("/", h.UpdateRole)
				r.With(h.RequirePermission(permission.ResourceRoles, permission.ActionDelete)).
					Delete("/", h.DeleteRole)
			})
		})

		// Administrators
		r.Route("/admins", func(r chi.Router) {
			r.With(h.RequirePermission(permission.ResourceAdmins, permission.ActionRead)).
				Get("/", h.ListAdmins)
			r.With(h.RequirePermission(permission.ResourceAdmins, permission.ActionWrite)).
				Post("/", h.CreateAdmin)
			r.Route("/{adminID}", func(r chi.Router) {
				r.With(h.RequirePermission(permission.ResourceAdmins, permission.ActionRead)).
					Get("/", h.GetAdmin)
				r.With(h.RequirePermission(permission.ResourceAdmins, permission.ActionWrite)).
					Put("/role", h.AssignAdminRole)
				r.With(h.RequirePermission(permission.ResourceAdmins, permission.ActionWrite)).
					Post("/enable", h.EnableAdmin)
				r.With(h.RequirePermission(permission.ResourceAdmins, permission.ActionWrite)).
					Post("/disable", h.DisableAdmin)
				r.With(h.RequirePermission(permission.ResourceAdmins, permission.ActionDelete)).
					Delete("/", h.DeleteAdmin)
			})
		})
	})

	return r
}

// HealthCheck returns the health status
// @Summary Health Check
// @Description Checks if the service is up and running
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "edgepanel",
	})
}

// listResponse is the envelope for every collection endpoint.
type listResponse struct {
	Total int `json:"total"`
	Items any `json:"items"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"detail": message,
	})
}

// respondDomainError maps domain errors onto the wire contract.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, role.ErrInvalidInput),
		errors.Is(err, role.ErrUnknownPermission),
		errors.Is(err, identity.ErrInvalidInput),
		errors.Is(err, identity.ErrWeakPassword):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, role.ErrRoleNotFound),
		errors.Is(err, identity.ErrAdminNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, role.ErrBuiltinRole):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, role.ErrRoleNameTaken),
		errors.Is(err, role.ErrRoleInUse),
		errors.Is(err, role.ErrRoleModified),
		errors.Is(err, identity.ErrUsernameTaken),
		errors.Is(err, identity.ErrLastActiveAdmin):
		respondError(w, http.StatusConflict, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// pageParams reads skip/limit query parameters, falling back to the
// service defaults on absent or malformed values.
func pageParams(r *http.Request) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	return offset, limit
}

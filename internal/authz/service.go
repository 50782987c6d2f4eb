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

// Package authz implements the authorization decision engine. Every
// decision resolves the principal's current role record and checks the
// requested permission against that role's allow-list. Permissions are
// additive; there are no deny rules and no wildcards.
package authz

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/edgepanel/edgepanel/internal/audit"
	"github.com/edgepanel/edgepanel/internal/identity"
	"github.com/edgepanel/edgepanel/internal/observability/metrics"
	"github.com/edgepanel/edgepanel/internal/permission"
	"github.com/edgepanel/edgepanel/internal/role"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Deny reasons. These feed the audit trail, not client responses.
const (
	ReasonGranted           = "granted"
	ReasonPrincipalNotFound = "principal not found"
	ReasonPrincipalInactive = "principal is deactivated"
	ReasonPermissionMissing = "role does not grant permission"
	ReasonUnknownPermission = "permission is not registered"
)

// AdminResolver resolves a principal id to its current account record.
type AdminResolver interface {
	GetByID(ctx context.Context, id string) (*identity.Admin, error)
}

// RoleResolver resolves a role id to its current record.
type RoleResolver interface {
	GetByID(ctx context.Context, id string) (*role.Role, error)
}

type cacheKey struct {
	roleID  string
	version int64
}

// Service is the authorization engine. It caches materialized
// permission sets keyed by (role id, role version): the key is derived
// from the role record read on this very decision, so a cached set can
// never be consulted for a role state newer than the one it was built
// from. Role mutations additionally drop superseded entries via
// Invalidate before the mutation returns.
type Service struct {
	admins      AdminResolver
	roles       RoleResolver
	registry    *permission.Registry
	auditLogger audit.Logger
	instruments *metrics.DecisionInstruments

	mu    sync.RWMutex
	cache map[cacheKey]map[string]struct{}
}

// NewService creates the authorization engine.
func NewService(admins AdminResolver, roles RoleResolver, registry *permission.Registry, auditLogger audit.Logger) *Service {
	return &Service{
		admins:      admins,
		roles:       roles,
		registry:    registry,
		auditLogger: auditLogger,
		cache:       make(map[cacheKey]map[string]struct{}),
	}
}

// SetInstruments wires the optional decision metrics.
func (s *Service) SetInstruments(in *metrics.DecisionInstruments) {
	s.instruments = in
}

// Authorize decides whether principalID may perform action on resource.
// A missing or deactivated principal denies; errors are reserved for
// infrastructure failures, never for an unfavorable decision.
func (s *Service) Authorize(ctx context.Context, principalID, resource, action string) (Decision, error) {
	start := time.Now()
	d, err := s.decide(ctx, principalID, resource, action)
	if err != nil {
		return Decision{}, err
	}

	s.record(ctx, resource, action, d, time.Since(start))
	if !d.Allowed {
		s.auditDeny(ctx, principalID, resource, action, d.Reason)
	}
	return d, nil
}

func (s *Service) decide(ctx context.Context, principalID, resource, action string) (Decision, error) {
	permissionID := permission.Key(resource, action)
	if !s.registry.Exists(permissionID) {
		return Decision{Reason: ReasonUnknownPermission}, nil
	}

	admin, err := s.admins.GetByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, identity.ErrAdminNotFound) {
			return Decision{Reason: ReasonPrincipalNotFound}, nil
		}
		return Decision{}, err
	}
	if !admin.IsActive {
		return Decision{Reason: ReasonPrincipalInactive}, nil
	}

	r, err := s.roles.GetByID(ctx, admin.RoleID)
	if err != nil {
		if errors.Is(err, role.ErrRoleNotFound) {
			// A dangling role binding fails closed.
			return Decision{Reason: ReasonPermissionMissing}, nil
		}
		return Decision{}, err
	}

	if s.grants(r, permissionID) {
		return Decision{Allowed: true, Reason: ReasonGranted}, nil
	}
	return Decision{Reason: ReasonPermissionMissing}, nil
}

// grants checks permissionID against the materialized set for the role
// record just read, building and caching the set on first use of this
// (id, version) pair.
func (s *Service) grants(r *role.Role, permissionID string) bool {
	key := cacheKey{roleID: r.ID, version: r.Version}

	s.mu.RLock()
	set, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		_, granted := set[permissionID]
		return granted
	}

	set = make(map[string]struct{}, len(r.PermissionIDs))
	for _, pid := range r.PermissionIDs {
		set[pid] = struct{}{}
	}

	s.mu.Lock()
	// Drop any entry for an older version of this role while we hold
	// the lock; only the set for the version just read survives.
	for k := range s.cache {
		if k.roleID == r.ID && k.version != r.Version {
			delete(s.cache, k)
		}
	}
	s.cache[key] = set
	s.mu.Unlock()

	_, granted := set[permissionID]
	return granted
}

// Invalidate drops every cached set for roleID. Called synchronously
// from role mutations so revoked permissions stop being honored before
// the mutation returns.
func (s *Service) Invalidate(roleID string) {
	s.mu.Lock()
	for k := range s.cache {
		if k.roleID == roleID {
			delete(s.cache, k)
		}
	}
	s.mu.Unlock()
}

func (s *Service) auditDeny(ctx context.Context, principalID, resource, action, reason string) {
	if s.auditLogger == nil {
		return
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAccessDenied,
		ActorID:  principalID,
		Resource: resource,
		Metadata: map[string]any{
			audit.AttrResource: resource,
			audit.AttrAction:   action,
			audit.AttrReason:   reason,
		},
	})
}

func (s *Service) record(ctx context.Context, resource, action string, d Decision, elapsed time.Duration) {
	if s.instruments == nil {
		return
	}
	outcome := "deny"
	if d.Allowed {
		outcome = "allow"
	}
	attrs := metric.WithAttributes(
		attribute.String("resource", resource),
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	)
	s.instruments.Decisions.Add(ctx, 1, attrs)
	s.instruments.Latency.Record(ctx, float64(elapsed.Microseconds())/1000.0, attrs)
}

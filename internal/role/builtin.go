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

package role

import "github.com/edgepanel/edgepanel/internal/permission"

// Builtin role IDs. Seeded during bootstrap and referenced by the
// self-lockout guard; these values must remain stable.
const (
	// RoleIDAdministrator holds every registered permission and always
	// has at least one active principal bound to it.
	RoleIDAdministrator = "20000000-0000-0000-0000-000000000001"

	// RoleIDOperator manages the proxy estate but not administrators,
	// roles, or the audit log.
	RoleIDOperator = "20000000-0000-0000-0000-000000000002"

	// RoleIDAuditor is read-only across every resource.
	RoleIDAuditor = "20000000-0000-0000-0000-000000000003"
)

// Canonical builtin role names.
const (
	RoleAdministrator = "administrator"
	RoleOperator      = "operator"
	RoleAuditor       = "auditor"
)

// Builtins returns the seed definitions for the builtin roles, with
// permission sets resolved against the registry. Called once during
// bootstrap; the stored copies are immutable afterwards.
func Builtins(reg *permission.Registry) []*Role {
	operator := make([]string, 0, reg.Len())
	auditor := make([]string, 0, reg.Len())
	for _, p := range reg.List() {
		switch p.Resource {
		case permission.ResourceAdmins, permission.ResourceRoles, permission.ResourceAudit:
			// Operator stays out of access administration.
		case permission.ResourceSettings:
			if p.Action == permission.ActionRead {
				operator = append(operator, p.ID)
			}
		default:
			operator = append(operator, p.ID)
		}
		if p.Action == permission.ActionRead {
			auditor = append(auditor, p.ID)
		}
	}

	return []*Role{
		{
			ID:            RoleIDAdministrator,
			Name:          RoleAdministrator,
			Description:   "Full access to every console resource",
			PermissionIDs: reg.AllIDs(),
			IsBuiltin:     true,
			Version:       1,
		},
		{
			ID:            RoleIDOperator,
			Name:          RoleOperator,
			Description:   "Day-to-day management of services, subscribers, domains and certificates",
			PermissionIDs: operator,
			IsBuiltin:     true,
			Version:       1,
		},
		{
			ID:            RoleIDAuditor,
			Name:          RoleAuditor,
			Description:   "Read-only access including the audit log",
			PermissionIDs: auditor,
			IsBuiltin:     true,
			Version:       1,
		},
	}
}

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

// Package permission holds the immutable catalog of administrative
// permissions. The catalog is fixed at process initialization; there is
// no create or delete API for permissions themselves.
package permission

import "fmt"

// Permission is an atomic (resource, action) capability unit.
// (Resource, Action) is the natural key; Name is a human label.
type Permission struct {
	ID       string `json:"id"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Name     string `json:"name"`
}

// Key returns the canonical permission identifier for a resource/action pair.
func Key(resource, action string) string {
	return fmt.Sprintf("%s:%s", resource, action)
}

// Resource names covered by the catalog. The console groups its
// navigation by these.
const (
	ResourceServices     = "services"
	ResourceSubscribers  = "subscribers"
	ResourceDomains      = "domains"
	ResourceCertificates = "certificates"
	ResourceBackups      = "backups"
	ResourceWebhooks     = "webhooks"
	ResourceAlerts       = "alerts"
	ResourceSettings     = "settings"
	ResourceAdmins       = "admins"
	ResourceRoles        = "roles"
	ResourceAudit        = "audit"
)

// Common action names.
const (
	ActionRead    = "read"
	ActionWrite   = "write"
	ActionDelete  = "delete"
	ActionRestart = "restart"
	ActionRenew   = "renew"
	ActionCreate  = "create"
	ActionRestore = "restore"
	ActionAck     = "ack"
)

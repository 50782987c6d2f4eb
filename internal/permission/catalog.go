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

// catalog is the authoritative permission list. Order here defines the
// stable listing order: grouped by resource, actions within a resource.
// Adding an entry is a code change, never a runtime mutation.
var catalog = []Permission{
	{Resource: ResourceServices, Action: ActionRead, Name: "View proxy services"},
	{Resource: ResourceServices, Action: ActionWrite, Name: "Create and edit proxy services"},
	{Resource: ResourceServices, Action: ActionRestart, Name: "Restart proxy services"},
	{Resource: ResourceServices, Action: ActionDelete, Name: "Delete proxy services"},

	{Resource: ResourceSubscribers, Action: ActionRead, Name: "View subscriber accounts"},
	{Resource: ResourceSubscribers, Action: ActionWrite, Name: "Create and edit subscriber accounts"},
	{Resource: ResourceSubscribers, Action: ActionDelete, Name: "Delete subscriber accounts"},

	{Resource: ResourceDomains, Action: ActionRead, Name: "View domains"},
	{Resource: ResourceDomains, Action: ActionWrite, Name: "Create and edit domains"},
	{Resource: ResourceDomains, Action: ActionDelete, Name: "Delete domains"},

	{Resource: ResourceCertificates, Action: ActionRead, Name: "View certificates"},
	{Resource: ResourceCertificates, Action: ActionRenew, Name: "Renew certificates"},

	{Resource: ResourceBackups, Action: ActionRead, Name: "View backups"},
	{Resource: ResourceBackups, Action: ActionCreate, Name: "Create backups"},
	{Resource: ResourceBackups, Action: ActionRestore, Name: "Restore backups"},

	{Resource: ResourceWebhooks, Action: ActionRead, Name: "View webhooks"},
	{Resource: ResourceWebhooks, Action: ActionWrite, Name: "Create and edit webhooks"},
	{Resource: ResourceWebhooks, Action: ActionDelete, Name: "Delete webhooks"},

	{Resource: ResourceAlerts, Action: ActionRead, Name: "View alerts"},
	{Resource: ResourceAlerts, Action: ActionAck, Name: "Acknowledge alerts"},

	{Resource: ResourceSettings, Action: ActionRead, Name: "View system settings"},
	{Resource: ResourceSettings, Action: ActionWrite, Name: "Change system settings"},

	{Resource: ResourceAdmins, Action: ActionRead, Name: "View administrators"},
	{Resource: ResourceAdmins, Action: ActionWrite, Name: "Create and manage administrators"},
	{Resource: ResourceAdmins, Action: ActionDelete, Name: "Delete administrators"},

	{Resource: ResourceRoles, Action: ActionRead, Name: "View roles"},
	{Resource: ResourceRoles, Action: ActionWrite, Name: "Create and edit roles"},
	{Resource: ResourceRoles, Action: ActionDelete, Name: "Delete roles"},

	{Resource: ResourceAudit, Action: ActionRead, Name: "View audit log"},
}

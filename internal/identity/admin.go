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

// Package identity manages console administrator accounts: creation,
// role assignment, and activation state. Every admin holds exactly one
// role; the authorization engine resolves that role to a permission set
// at decision time.
package identity

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAdminNotFound is returned when an administrator does not exist.
	ErrAdminNotFound = errors.New("administrator not found")

	// ErrUsernameTaken is returned when the username is already in use.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrWeakPassword is returned when a password fails the minimum
	// length policy.
	ErrWeakPassword = errors.New("password does not meet minimum length")

	// ErrLastActiveAdmin is returned when an operation would leave the
	// console without any active administrator-role account.
	ErrLastActiveAdmin = errors.New("cannot deactivate the last active administrator")

	// ErrInvalidInput is returned for malformed fields.
	ErrInvalidInput = errors.New("invalid input")
)

// MaxUsernameLength bounds usernames at the validation layer.
const MaxUsernameLength = 64

// Admin is a console administrator account. PasswordHash is the
// Argon2id encoding and is never serialized to the wire.
type Admin struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	RoleID       string     `json:"role_id"`
	IsActive     bool       `json:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Repository defines the persistence contract for administrators.
//
// Create enforces username uniqueness transactionally and returns
// ErrUsernameTaken on collision. Deactivate refuses to deactivate the
// last active holder of protectedRoleID and returns ErrLastActiveAdmin;
// it is a no-op when the account is already inactive.
type Repository interface {
	Create(ctx context.Context, admin *Admin) error
	GetByID(ctx context.Context, id string) (*Admin, error)
	GetByUsername(ctx context.Context, username string) (*Admin, error)
	UpdateRole(ctx context.Context, id, roleID string) error
	Activate(ctx context.Context, id string) error
	Deactivate(ctx context.Context, id, protectedRoleID string) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, offset, limit int) ([]*Admin, int, error)
}

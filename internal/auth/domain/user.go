// Package domain defines authentication domain models: users, roles and the
// credential/session failure taxonomy.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role determines a user's authorization level on protected resources.
type Role string

const (
	// RoleAdmin can manage users, delete patient records and query the full audit trail.
	RoleAdmin Role = "admin"

	// RoleDoctor can read and write patient records in their care.
	RoleDoctor Role = "doctor"

	// RoleNurse can read patient records and append observations.
	RoleNurse Role = "nurse"

	// RoleStaff covers administrative staff without clinical record access.
	RoleStaff Role = "staff"
)

// User is an authenticated principal of the hub.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"password_hash"`
	MFAEnabled   bool      `json:"mfa_enabled"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Redacted returns a copy safe to embed in sessions and responses:
// the password hash never leaves the auth layer.
func (u *User) Redacted() User {
	copied := *u
	copied.PasswordHash = ""
	return copied
}

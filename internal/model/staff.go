package model

import (
	"fmt"
	"time"
)

// StaffUser represents a console API account (separate from people, who are
// chat identities).
type StaffUser struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Staff roles.
const (
	StaffAdmin  = "admin"
	StaffViewer = "viewer"
)

// StaffRoleAtLeast checks if role meets or exceeds the minimum required role.
func StaffRoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		StaffAdmin:  2,
		StaffViewer: 1,
	}
	return levels[role] >= levels[minimum]
}

// ValidatePassword rejects passwords that are too short.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}

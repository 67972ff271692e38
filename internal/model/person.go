package model

import "time"

// Person represents a chat account that can hold equipment. The storehouse is
// a reserved Person row that holds everything not checked out to anyone.
type Person struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Handle    string    `json:"handle,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Person roles. Roles only move up the ladder: an admin verifies an
// unverified person into a member, and members can be promoted to admin.
const (
	RoleUnverified = "unverified"
	RoleMember     = "member"
	RoleAdmin      = "admin"
)

// IsAdmin reports whether the person holds the admin role.
func (p *Person) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// IsVerified reports whether the person may use equipment flows.
func (p *Person) IsVerified() bool {
	return p.Role == RoleMember || p.Role == RoleAdmin
}

// NextRole returns the role one step up the ladder. Admin is terminal.
func NextRole(role string) string {
	switch role {
	case RoleUnverified:
		return RoleMember
	case RoleMember:
		return RoleAdmin
	default:
		return role
	}
}

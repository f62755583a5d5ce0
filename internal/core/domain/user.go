package domain

import (
	"strings"
	"time"
)

// Role is the authorization role carried by a user and its bearer tokens.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// knownRoles is the closed set of roles the system understands. A role that
// is not listed here is never granted anything.
var knownRoles = map[Role]struct{}{
	RoleUser:  {},
	RoleAdmin: {},
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	_, ok := knownRoles[r]
	return ok
}

// User models an account. Password and reset material never leave the
// process in JSON.
type User struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"`
	Role             Role       `json:"role"`
	ResetTokenHash   string     `json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// HasPendingReset reports whether a reset token is stored and still live at now.
func (u *User) HasPendingReset(now time.Time) bool {
	return u.ResetTokenHash != "" && u.ResetTokenExpiry != nil && u.ResetTokenExpiry.After(now)
}

// ClearReset drops both reset fields together.
func (u *User) ClearReset() {
	u.ResetTokenHash = ""
	u.ResetTokenExpiry = nil
}

// Principal is the authenticated identity attached to a request.
type Principal struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

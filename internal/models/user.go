package models

import "time"

// UserRole enumerates the three access levels.
type UserRole string

const (
	RoleSuperAdmin UserRole = "super_admin"
	RoleAdmin      UserRole = "admin"
	RoleInstructor UserRole = "instructor"
)

// ValidRole reports whether the given role is one of the known three.
func ValidRole(r UserRole) bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleInstructor:
		return true
	}
	return false
}

// HasRole reports whether the user's role is among the allowed set.
func HasRole(role UserRole, allowed []UserRole) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

// User is a staff account able to sign in.
type User struct {
	ID           string     `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	FullName     string     `db:"full_name" json:"full_name"`
	Email        string     `db:"email" json:"email"`
	Phone        string     `db:"phone" json:"phone"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

package domain

import "time"

// Role gates what a user can see and do. Every protected route declares the
// minimal set of roles it requires.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

type User struct {
	ID           string
	Name         string
	Email        string // stored lowercased; unique
	PasswordHash string // argon2id encoded
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

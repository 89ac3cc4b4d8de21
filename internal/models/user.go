package models

import "slices"

// User is a staff account inside one tenant.
type User struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	TenantID string   `json:"tenant_id"`
	IsActive bool     `json:"is_active"`
}

// IsPureAdmin reports whether the role set is exactly {"admin"}.
func (u User) IsPureAdmin() bool {
	return len(u.Roles) == 1 && u.Roles[0] == RoleAdmin
}

func (u User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

type UserCreate struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}

// UserUpdate is a partial PATCH body; nil fields are not sent.
type UserUpdate struct {
	Roles    []string `json:"roles,omitempty"`
	IsActive *bool    `json:"is_active,omitempty"`
}

type PasswordReset struct {
	Password string `json:"password"`
}

// GlobalAdmin is a clinic admin row as listed for the platform operator.
type GlobalAdmin struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	ClinicName string `json:"clinic_name"`
	ClinicID   string `json:"clinic_id"`
	IsActive   bool   `json:"is_active"`
	CreatedAt  string `json:"created_at,omitempty"`
}

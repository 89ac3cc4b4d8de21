package models

import "slices"

// Staff roles known to the console. The backend stores roles as free strings.
const (
	RoleAdmin        = "admin"
	RoleDoctor       = "doctor"
	RoleNurse        = "nurse"
	RoleFrontDesk    = "front_desk"
	RoleLabScientist = "lab_scientist"
)

// AllRoles is the assignable role set in display order.
var AllRoles = []string{RoleAdmin, RoleDoctor, RoleNurse, RoleFrontDesk, RoleLabScientist}

// RootAdminUsername is the HQ account allowed to manage other platform admins.
const RootAdminUsername = "admin"

// UserProfile is the identity returned by GET /users/me.
type UserProfile struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	Roles        []string `json:"roles"`
	TenantID     string   `json:"tenant_id"`
	TenantName   string   `json:"tenant_name"`
	LogoURL      string   `json:"logo_url,omitempty"`
	IsSuperAdmin bool     `json:"is_super_admin"`
}

// HasRole reports whether the profile carries role.
func (p *UserProfile) HasRole(role string) bool {
	return p != nil && slices.Contains(p.Roles, role)
}

// HasAnyRole reports whether the profile carries at least one of roles.
func (p *UserProfile) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}

// TokenResponse is the body of POST /auth/token and impersonation.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

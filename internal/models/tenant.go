package models

// Tenant is one clinic organization. Exactly one tenant is HQ.
type Tenant struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Domain        string `json:"domain"`
	IsSuperAdmin  bool   `json:"is_super_admin"`
	AdminUsername string `json:"admin_username,omitempty"`
}

// IsHQ reports whether this is the platform tenant, which cannot be deleted
// or impersonated.
func (t Tenant) IsHQ() bool {
	return t.IsSuperAdmin
}

type TenantCreate struct {
	Name          string `json:"name"`
	AdminUsername string `json:"admin_username"`
	AdminPassword string `json:"admin_password"`
}

package models

// ClinicSettings is the tenant branding block. PATCH replaces every field.
type ClinicSettings struct {
	TenantID   string `json:"tenant_id,omitempty"`
	ClinicName string `json:"clinic_name"`
	LogoURL    string `json:"logo_url"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	Website    string `json:"website"`
}

package models

type OverviewStats struct {
	TotalTenants      int  `json:"total_tenants"`
	TotalPatients     int  `json:"total_patients"`
	TotalStaff        int  `json:"total_staff"`
	TodayAppointments int  `json:"today_appointments"`
	IsSuperAdmin      bool `json:"is_super_admin"`
}

// GrowthPoint is one bucket of the clinic growth series.
type GrowthPoint struct {
	Name    string `json:"name"`
	Clinics int    `json:"clinics"`
}

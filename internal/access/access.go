// Package access holds the role rules the console applies before showing
// pages and actions. The backend enforces its own authorization; these rules
// only decide what is offered.
package access

import "github.com/otcheredev/clinic-console/internal/models"

// clinicalRoles may work with patients and appointments.
var clinicalRoles = []string{models.RoleAdmin, models.RoleDoctor, models.RoleNurse, models.RoleFrontDesk}

// labRoles may run bulk lab imports.
var labRoles = []string{models.RoleAdmin, models.RoleDoctor, models.RoleNurse, models.RoleLabScientist}

// Super admins pass every check below.

func CanManageTenants(p *models.UserProfile) bool {
	return p != nil && p.IsSuperAdmin
}

func CanManageStaff(p *models.UserProfile) bool {
	return p != nil && (p.IsSuperAdmin || p.HasRole(models.RoleAdmin))
}

func CanViewClinical(p *models.UserProfile) bool {
	return p != nil && (p.IsSuperAdmin || p.HasAnyRole(clinicalRoles...))
}

func CanImportLabs(p *models.UserProfile) bool {
	return p != nil && (p.IsSuperAdmin || p.HasAnyRole(labRoles...))
}

func CanManageSettings(p *models.UserProfile) bool {
	return p != nil && (p.IsSuperAdmin || p.HasRole(models.RoleAdmin))
}

// CanViewTimeline hides clinical history from front desk accounts.
func CanViewTimeline(p *models.UserProfile) bool {
	return p != nil && !p.HasRole(models.RoleFrontDesk)
}

func CanAddRecord(p *models.UserProfile) bool {
	return p.HasAnyRole(models.RoleDoctor, models.RoleNurse, models.RoleAdmin)
}

// CanWritePrescription is limited to doctors and clinic admins.
func CanWritePrescription(p *models.UserProfile) bool {
	return p.HasAnyRole(models.RoleDoctor, models.RoleAdmin)
}

// CanManagePlatformAdmins is true only for the root HQ account.
func CanManagePlatformAdmins(p *models.UserProfile) bool {
	return p != nil && p.IsSuperAdmin && p.Username == models.RootAdminUsername
}

// CanModifyUser reports whether actor may suspend or delete target. Pure
// admins are protected from everyone but super admins.
func CanModifyUser(actor *models.UserProfile, target models.User) bool {
	if actor == nil {
		return false
	}
	if target.IsPureAdmin() {
		return actor.IsSuperAdmin
	}
	return true
}

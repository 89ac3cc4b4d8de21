package services

import "errors"

// Local validation failures. These are raised before any API call.
var (
	ErrNoRoles       = errors.New("please select at least one role")
	ErrProtectedUser = errors.New("pure admins can only be modified by a super admin")
	ErrSelfDelete    = errors.New("cannot delete yourself")
	ErrUserNotFound  = errors.New("user not found")
	ErrHQTenant      = errors.New("the HQ tenant cannot be deleted or impersonated")
	ErrTenantMissing = errors.New("tenant not found")
	ErrRootAdmin     = errors.New("the root admin account cannot be deleted")
	ErrNotRootAdmin  = errors.New("only the root admin can manage platform admins")
	ErrRequired      = errors.New("required field missing")
	ErrInvalidInput  = errors.New("invalid input")
)

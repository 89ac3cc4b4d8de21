package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/otcheredev/clinic-console/internal/models"
)

type TenantAPI interface {
	ListTenants(ctx context.Context) ([]models.Tenant, error)
	CreateTenant(ctx context.Context, in models.TenantCreate) (*models.Tenant, error)
	DeleteTenant(ctx context.Context, id string) error
	Impersonate(ctx context.Context, id string) (string, error)
}

type TenantService struct {
	api   TenantAPI
	audit *Auditor
}

func NewTenantService(api TenantAPI, audit AuditRecorder, actor *models.UserProfile) *TenantService {
	return &TenantService{api: api, audit: NewAuditor(audit, actor)}
}

func (s *TenantService) List(ctx context.Context) ([]models.Tenant, error) {
	return s.api.ListTenants(ctx)
}

func (s *TenantService) Create(ctx context.Context, in models.TenantCreate) error {
	in.Name = strings.TrimSpace(in.Name)
	in.AdminUsername = strings.TrimSpace(in.AdminUsername)
	if in.Name == "" || in.AdminUsername == "" || in.AdminPassword == "" {
		return fmt.Errorf("%w: clinic name, admin username and password", ErrRequired)
	}
	start := time.Now()
	t, err := s.api.CreateTenant(ctx, in)
	id := in.Name
	if t != nil {
		id = t.ID
	}
	s.audit.Track(ctx, "tenant.create", "tenant", id, start, err)
	return err
}

// Delete refuses the HQ tenant locally.
func (s *TenantService) Delete(ctx context.Context, id string) error {
	if err := s.guard(ctx, id); err != nil {
		return err
	}
	start := time.Now()
	err := s.api.DeleteTenant(ctx, id)
	s.audit.Track(ctx, "tenant.delete", "tenant", id, start, err)
	return err
}

// Impersonate returns a token acting as the tenant's admin.
func (s *TenantService) Impersonate(ctx context.Context, id string) (string, error) {
	if err := s.guard(ctx, id); err != nil {
		return "", err
	}
	start := time.Now()
	token, err := s.api.Impersonate(ctx, id)
	s.audit.Track(ctx, "tenant.impersonate", "tenant", id, start, err)
	return token, err
}

func (s *TenantService) guard(ctx context.Context, id string) error {
	tenants, err := s.api.ListTenants(ctx)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(tenants, func(t models.Tenant) bool { return t.ID == id })
	if i < 0 {
		return ErrTenantMissing
	}
	if tenants[i].IsHQ() {
		return ErrHQTenant
	}
	return nil
}

package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/otcheredev/clinic-console/internal/access"
	"github.com/otcheredev/clinic-console/internal/models"
	"golang.org/x/sync/errgroup"
)

type SettingsAPI interface {
	Settings(ctx context.Context) (*models.ClinicSettings, error)
	UpdateSettings(ctx context.Context, in models.ClinicSettings) (*models.ClinicSettings, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	ListGlobalAdmins(ctx context.Context) ([]models.GlobalAdmin, error)
	CreateUser(ctx context.Context, in models.UserCreate) (*models.User, error)
	ResetPassword(ctx context.Context, id, password string) error
	DeleteUser(ctx context.Context, id string) error
}

type SettingsService struct {
	api   SettingsAPI
	actor *models.UserProfile
	audit *Auditor
}

func NewSettingsService(api SettingsAPI, audit AuditRecorder, actor *models.UserProfile) *SettingsService {
	return &SettingsService{api: api, actor: actor, audit: NewAuditor(audit, actor)}
}

// PlatformView is the super admin settings page.
type PlatformView struct {
	Settings     *models.ClinicSettings
	Admins       []models.User
	ClinicAdmins []models.GlobalAdmin
	CanManage    bool
}

func (s *SettingsService) Clinic(ctx context.Context) (*models.ClinicSettings, error) {
	return s.api.Settings(ctx)
}

// Platform loads HQ settings, HQ users and all clinic admins concurrently.
func (s *SettingsService) Platform(ctx context.Context) (*PlatformView, error) {
	v := &PlatformView{CanManage: access.CanManagePlatformAdmins(s.actor)}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		v.Settings, err = s.api.Settings(gctx)
		return err
	})
	g.Go(func() (err error) {
		v.Admins, err = s.api.ListUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		v.ClinicAdmins, err = s.api.ListGlobalAdmins(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return v, nil
}

// Save sends the whole settings block.
func (s *SettingsService) Save(ctx context.Context, in models.ClinicSettings) error {
	in.ClinicName = strings.TrimSpace(in.ClinicName)
	if in.ClinicName == "" {
		return fmt.Errorf("%w: clinic name", ErrRequired)
	}
	start := time.Now()
	_, err := s.api.UpdateSettings(ctx, in)
	s.audit.Track(ctx, "settings.update", "settings", in.ClinicName, start, err)
	return err
}

// AddPlatformAdmin creates an HQ account with the admin role.
func (s *SettingsService) AddPlatformAdmin(ctx context.Context, username, password string) error {
	if !access.CanManagePlatformAdmins(s.actor) {
		return ErrNotRootAdmin
	}
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password", ErrRequired)
	}
	start := time.Now()
	_, err := s.api.CreateUser(ctx, models.UserCreate{Username: username, Password: password, Roles: []string{models.RoleAdmin}})
	s.audit.Track(ctx, "platform_admin.create", "user", username, start, err)
	return err
}

func (s *SettingsService) ResetAdminPassword(ctx context.Context, id, password string) error {
	if !access.CanManagePlatformAdmins(s.actor) {
		return ErrNotRootAdmin
	}
	if password == "" {
		return fmt.Errorf("%w: password", ErrRequired)
	}
	start := time.Now()
	err := s.api.ResetPassword(ctx, id, password)
	s.audit.Track(ctx, "platform_admin.reset_password", "user", id, start, err)
	return err
}

// DeleteAdmin removes an HQ account. The root account itself is kept.
func (s *SettingsService) DeleteAdmin(ctx context.Context, id string) error {
	if !access.CanManagePlatformAdmins(s.actor) {
		return ErrNotRootAdmin
	}
	users, err := s.api.ListUsers(ctx)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(users, func(u models.User) bool { return u.ID == id })
	if i < 0 {
		return ErrUserNotFound
	}
	if users[i].Username == models.RootAdminUsername {
		return ErrRootAdmin
	}
	start := time.Now()
	err = s.api.DeleteUser(ctx, id)
	s.audit.Track(ctx, "platform_admin.delete", "user", id, start, err)
	return err
}

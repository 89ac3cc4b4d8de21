package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/otcheredev/clinic-console/internal/access"
	"github.com/otcheredev/clinic-console/internal/models"
)

// StaffAPI is the user management part of the clinical API.
type StaffAPI interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, in models.UserCreate) (*models.User, error)
	UpdateUser(ctx context.Context, id string, in models.UserUpdate) error
	ResetPassword(ctx context.Context, id, password string) error
	DeleteUser(ctx context.Context, id string) error
}

// StaffService applies the console's staff rules on behalf of actor.
type StaffService struct {
	api   StaffAPI
	actor *models.UserProfile
	audit *Auditor
}

func NewStaffService(api StaffAPI, audit AuditRecorder, actor *models.UserProfile) *StaffService {
	return &StaffService{api: api, actor: actor, audit: NewAuditor(audit, actor)}
}

func (s *StaffService) List(ctx context.Context) ([]models.User, error) {
	return s.api.ListUsers(ctx)
}

// NormalizeRoles trims, drops blanks and duplicates, keeping order.
func NormalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.TrimSpace(r)
		if r != "" && !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}

func (s *StaffService) Create(ctx context.Context, username, password string, roles []string) error {
	roles = NormalizeRoles(roles)
	if strings.TrimSpace(username) == "" || password == "" {
		return fmt.Errorf("%w: username and password", ErrRequired)
	}
	if len(roles) == 0 {
		return ErrNoRoles
	}

	start := time.Now()
	_, err := s.api.CreateUser(ctx, models.UserCreate{Username: strings.TrimSpace(username), Password: password, Roles: roles})
	s.audit.Track(ctx, "user.create", "user", username, start, err)
	return err
}

// UpdateRoles replaces the role set of a user. An empty selection is refused
// without contacting the API.
func (s *StaffService) UpdateRoles(ctx context.Context, id string, roles []string) error {
	roles = NormalizeRoles(roles)
	if len(roles) == 0 {
		return ErrNoRoles
	}

	start := time.Now()
	err := s.api.UpdateUser(ctx, id, models.UserUpdate{Roles: roles})
	s.audit.Track(ctx, "user.roles", "user", id, start, err)
	return err
}

// ToggleStatus flips is_active for id inside users. The returned list is the
// optimistic one on success and the untouched snapshot on failure.
func (s *StaffService) ToggleStatus(ctx context.Context, users []models.User, id string) ([]models.User, error) {
	toggle, err := BeginStatusToggle(users, id)
	if err != nil {
		return users, err
	}
	if !access.CanModifyUser(s.actor, toggle.Target()) {
		return toggle.Rollback(), ErrProtectedUser
	}

	active := toggle.Active()
	start := time.Now()
	err = s.api.UpdateUser(ctx, id, models.UserUpdate{IsActive: &active})
	s.audit.Track(ctx, "user.status", "user", id, start, err)
	if err != nil {
		return toggle.Rollback(), err
	}
	return toggle.Optimistic(), nil
}

func (s *StaffService) ResetPassword(ctx context.Context, id, password string) error {
	if password == "" {
		return fmt.Errorf("%w: password", ErrRequired)
	}
	start := time.Now()
	err := s.api.ResetPassword(ctx, id, password)
	s.audit.Track(ctx, "user.reset_password", "user", id, start, err)
	return err
}

// Delete removes a staff account after the local protection checks.
func (s *StaffService) Delete(ctx context.Context, id string) error {
	users, err := s.api.ListUsers(ctx)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(users, func(u models.User) bool { return u.ID == id })
	if i < 0 {
		return ErrUserNotFound
	}
	if s.actor != nil && users[i].ID == s.actor.ID {
		return ErrSelfDelete
	}
	if !access.CanModifyUser(s.actor, users[i]) {
		return ErrProtectedUser
	}

	start := time.Now()
	err = s.api.DeleteUser(ctx, id)
	s.audit.Track(ctx, "user.delete", "user", id, start, err)
	return err
}

// StatusToggle is an optimistic is_active flip that can be rolled back to the
// exact list it started from.
type StatusToggle struct {
	index  int
	before []models.User
	after  []models.User
}

// BeginStatusToggle snapshots users and prepares the flipped list.
func BeginStatusToggle(users []models.User, id string) (*StatusToggle, error) {
	i := slices.IndexFunc(users, func(u models.User) bool { return u.ID == id })
	if i < 0 {
		return nil, ErrUserNotFound
	}
	t := &StatusToggle{index: i, before: cloneUsers(users), after: cloneUsers(users)}
	t.after[i].IsActive = !t.after[i].IsActive
	return t, nil
}

func (t *StatusToggle) Target() models.User { return t.before[t.index] }

// Active is the is_active value being requested.
func (t *StatusToggle) Active() bool { return t.after[t.index].IsActive }

func (t *StatusToggle) Optimistic() []models.User { return cloneUsers(t.after) }

func (t *StatusToggle) Rollback() []models.User { return cloneUsers(t.before) }

func cloneUsers(users []models.User) []models.User {
	out := make([]models.User, len(users))
	for i, u := range users {
		u.Roles = slices.Clone(u.Roles)
		out[i] = u
	}
	return out
}

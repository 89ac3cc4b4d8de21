package handlers

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/otcheredev/clinic-console/internal/access"
	"github.com/otcheredev/clinic-console/internal/models"
	"github.com/otcheredev/clinic-console/internal/services"
	"github.com/otcheredev/clinic-console/internal/session"
	"github.com/otcheredev/clinic-console/internal/widgets"
)

type StaffHandler struct {
	base
}

func NewStaffHandler(d Deps) *StaffHandler {
	return &StaffHandler{base: newBase(d)}
}

type staffRow struct {
	models.User
	Protected bool
	CanModify bool
	IsSelf    bool
}

type staffView struct {
	Rows     []staffRow
	Create   widgets.Dialog
	Roles    widgets.Dialog
	Password widgets.Dialog
	// RoleSelect is prefilled with the roles of the Roles dialog target.
	RoleSelect widgets.Select
	Target     *models.User
}

func roleOptions() []widgets.Option {
	opts := make([]widgets.Option, len(models.AllRoles))
	for i, r := range models.AllRoles {
		opts[i] = widgets.Option{Value: r, Label: title(r)}
	}
	return opts
}

func (h *StaffHandler) service(r *http.Request) *services.StaffService {
	return services.NewStaffService(h.client(r), h.audit, h.actor(r))
}

func (h *StaffHandler) view(r *http.Request, users []models.User) staffView {
	q := r.URL.Query()
	actor := h.actor(r)
	v := staffView{
		Create:   widgets.NewDialog(q, "create"),
		Roles:    widgets.NewDialog(q, "roles"),
		Password: widgets.NewDialog(q, "password"),
	}
	v.RoleSelect = widgets.Select{Name: "roles", Options: roleOptions(), Multiple: true}
	for _, u := range users {
		v.Rows = append(v.Rows, staffRow{
			User:      u,
			Protected: u.IsPureAdmin(),
			CanModify: access.CanModifyUser(actor, u),
			IsSelf:    actor != nil && u.ID == actor.ID,
		})
	}
	if i := slices.IndexFunc(users, func(u models.User) bool { return u.ID == v.Roles.Target || u.ID == v.Password.Target }); i >= 0 {
		target := users[i]
		v.Target = &target
		v.RoleSelect.Selected = target.Roles
	}
	return v
}

func (h *StaffHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service(r).List(r.Context())
	if err != nil && h.readFailed(w, r, err, "staff") {
		return
	}
	h.render(w, r, "users", h.view(r, users), nil)
}

func (h *StaffHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	err := h.service(r).Create(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"), r.PostForm["roles"])
	if err != nil {
		h.fail(w, r, err, "Failed to create user", "/users?dialog=create")
		return
	}
	h.done(w, r, "User created", "/users")
}

func (h *StaffHandler) UpdateRoles(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.service(r).UpdateRoles(r.Context(), id, r.PostForm["roles"]); err != nil {
		h.fail(w, r, err, "Failed to update roles", "/users?dialog=roles&target="+id)
		return
	}
	h.done(w, r, "Roles updated", "/users")
}

// ToggleStatus renders the list it ends with: the flipped one on success,
// the exact pre-toggle one when the API refuses.
func (h *StaffHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	svc := h.service(r)
	users, err := svc.List(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to update status", "/users")
		return
	}
	users, err = svc.ToggleStatus(r.Context(), users, chi.URLParam(r, "id"))
	if err != nil {
		if h.expired(w, r, err) {
			return
		}
		h.render(w, r, "users", h.view(r, users), errorFlash(err, "Failed to update status"))
		return
	}
	h.render(w, r, "users", h.view(r, users), &session.Flash{Kind: session.FlashSuccess, Message: "Status updated"})
}

func (h *StaffHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service(r).ResetPassword(r.Context(), id, r.PostFormValue("password")); err != nil {
		h.fail(w, r, err, "Failed to reset password", "/users?dialog=password&target="+id)
		return
	}
	h.done(w, r, "Password reset", "/users")
}

func (h *StaffHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service(r).Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err, "Failed to delete user", "/users")
		return
	}
	h.done(w, r, "User deleted", "/users")
}

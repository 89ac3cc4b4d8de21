package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/otcheredev/clinic-console/internal/models"
	"github.com/otcheredev/clinic-console/internal/services"
	"github.com/otcheredev/clinic-console/internal/widgets"
)

type SettingsHandler struct {
	base
}

func NewSettingsHandler(d Deps) *SettingsHandler {
	return &SettingsHandler{base: newBase(d)}
}

type clinicSettingsView struct {
	Settings models.ClinicSettings
	Tabs     widgets.Tabs
}

type platformSettingsView struct {
	*services.PlatformView
	AddAdmin widgets.Dialog
	Password widgets.Dialog
	RootName string
}

func (h *SettingsHandler) service(r *http.Request) *services.SettingsService {
	return services.NewSettingsService(h.client(r), h.audit, h.actor(r))
}

// Show renders the platform view for super admins and the clinic tabs for
// everyone else.
func (h *SettingsHandler) Show(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if p := h.actor(r); p != nil && p.IsSuperAdmin {
		v, err := h.service(r).Platform(r.Context())
		if err != nil {
			if h.readFailed(w, r, err, "platform settings") {
				return
			}
			v = &services.PlatformView{Settings: &models.ClinicSettings{}}
		}
		h.render(w, r, "settings_platform", platformSettingsView{
			PlatformView: v,
			AddAdmin:     widgets.NewDialog(q, "add-admin"),
			Password:     widgets.NewDialog(q, "password"),
			RootName:     models.RootAdminUsername,
		}, nil)
		return
	}

	view := clinicSettingsView{Tabs: widgets.NewTabs(q, "tab",
		widgets.Tab{Key: "branding", Label: "Branding"},
		widgets.Tab{Key: "details", Label: "Details"},
		widgets.Tab{Key: "security", Label: "Security"},
	)}
	s, err := h.service(r).Clinic(r.Context())
	if err != nil {
		if h.readFailed(w, r, err, "settings") {
			return
		}
	} else {
		view.Settings = *s
	}
	h.render(w, r, "settings", view, nil)
}

// Save replaces the whole settings block. Every tab posts all fields.
func (h *SettingsHandler) Save(w http.ResponseWriter, r *http.Request) {
	back := "/settings"
	if tab := r.PostFormValue("tab"); tab != "" {
		back += "?tab=" + tab
	}
	in := models.ClinicSettings{
		ClinicName: r.PostFormValue("clinic_name"),
		LogoURL:    r.PostFormValue("logo_url"),
		Address:    r.PostFormValue("address"),
		Phone:      r.PostFormValue("phone"),
		Website:    r.PostFormValue("website"),
	}
	if err := h.service(r).Save(r.Context(), in); err != nil {
		h.fail(w, r, err, "Failed to save settings", back)
		return
	}
	h.done(w, r, "Settings saved", back)
}

func (h *SettingsHandler) AddAdmin(w http.ResponseWriter, r *http.Request) {
	if err := h.service(r).AddPlatformAdmin(r.Context(), r.PostFormValue("username"), r.PostFormValue("password")); err != nil {
		h.fail(w, r, err, "Failed to add admin", "/settings?dialog=add-admin")
		return
	}
	h.done(w, r, "Admin added", "/settings")
}

func (h *SettingsHandler) ResetAdminPassword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service(r).ResetAdminPassword(r.Context(), id, r.PostFormValue("password")); err != nil {
		h.fail(w, r, err, "Failed to reset password", "/settings?dialog=password&target="+id)
		return
	}
	h.done(w, r, "Password reset", "/settings")
}

func (h *SettingsHandler) DeleteAdmin(w http.ResponseWriter, r *http.Request) {
	if err := h.service(r).DeleteAdmin(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err, "Failed to delete admin", "/settings")
		return
	}
	h.done(w, r, "Admin deleted", "/settings")
}

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/otcheredev/clinic-console/internal/models"
	"github.com/otcheredev/clinic-console/internal/services"
	"github.com/otcheredev/clinic-console/internal/widgets"
	"github.com/rs/zerolog/log"
)

type TenantHandler struct {
	base
}

func NewTenantHandler(d Deps) *TenantHandler {
	return &TenantHandler{base: newBase(d)}
}

type tenantsView struct {
	Tenants []models.Tenant
	Create  widgets.Dialog
	Delete  widgets.Dialog
}

func (h *TenantHandler) service(r *http.Request) *services.TenantService {
	return services.NewTenantService(h.client(r), h.audit, h.actor(r))
}

func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view := tenantsView{Create: widgets.NewDialog(q, "create"), Delete: widgets.NewDialog(q, "delete")}

	tenants, err := h.service(r).List(r.Context())
	if err != nil && h.readFailed(w, r, err, "tenants") {
		return
	}
	view.Tenants = tenants
	h.render(w, r, "tenants", view, nil)
}

func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	in := models.TenantCreate{
		Name:          r.PostFormValue("name"),
		AdminUsername: r.PostFormValue("admin_username"),
		AdminPassword: r.PostFormValue("admin_password"),
	}
	if err := h.service(r).Create(r.Context(), in); err != nil {
		h.fail(w, r, err, "Failed to create clinic", "/tenants?dialog=create")
		return
	}
	h.done(w, r, "Clinic created", "/tenants")
}

func (h *TenantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service(r).Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err, "Failed to delete clinic", "/tenants")
		return
	}
	h.done(w, r, "Clinic deleted", "/tenants")
}

// Impersonate swaps the session token for one acting as the clinic's admin.
func (h *TenantHandler) Impersonate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	token, err := h.service(r).Impersonate(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "Failed to impersonate clinic", "/tenants")
		return
	}
	if err := h.sessions.SetToken(w, r, token); err != nil {
		h.fail(w, r, err, "Failed to switch session", "/tenants")
		return
	}
	log.Info().Str("tenant_id", id).Str("actor", h.actor(r).Username).Msg("Impersonating clinic")
	h.redirect(w, r, "/")
}

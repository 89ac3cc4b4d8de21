package handlers

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/otcheredev/clinic-console/internal/middleware"
	"github.com/otcheredev/clinic-console/internal/models"
)

// Register mounts the console pages, auth and health endpoints on r.
func Register(r chi.Router, d Deps) {
	health := NewHealthHandler(d.DB, d.API, d.Store)
	auth := NewAuthHandler(d)
	overview := NewOverviewHandler(d)
	tenants := NewTenantHandler(d)
	staff := NewStaffHandler(d)
	patients := NewPatientHandler(d)
	appointments := NewAppointmentHandler(d)
	labs := NewLabImportHandler(d)
	settings := NewSettingsHandler(d)

	r.Get("/health", health.Health)
	r.Get("/ready", health.Ready)

	r.Get("/login", auth.LoginPage)
	r.Post("/login", auth.Login)
	r.Get("/logout", auth.Logout)
	r.Post("/logout", auth.Logout)

	fetchProfile := func(ctx context.Context, token string) (*models.UserProfile, error) {
		return d.API.WithToken(token).Me(ctx)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireToken(d.Sessions))
		r.Use(middleware.Profile(d.Sessions, fetchProfile))
		r.Use(middleware.MenuAccess)

		r.Get("/", overview.Show)

		r.Route("/tenants", func(r chi.Router) {
			r.Get("/", tenants.List)
			r.Post("/", tenants.Create)
			r.Post("/{id}/delete", tenants.Delete)
			r.Post("/{id}/impersonate", tenants.Impersonate)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", staff.List)
			r.Post("/", staff.Create)
			r.Post("/{id}/roles", staff.UpdateRoles)
			r.Post("/{id}/status", staff.ToggleStatus)
			r.Post("/{id}/password", staff.ResetPassword)
			r.Post("/{id}/delete", staff.Delete)
		})

		r.Route("/patients", func(r chi.Router) {
			r.Get("/", patients.List)
			r.Post("/", patients.Create)
			r.Get("/{id}", patients.Profile)
			r.Post("/{id}", patients.Update)
			r.Get("/{id}/summary", patients.Summary)
			r.Post("/{id}/records", patients.AddRecord)
			r.Post("/{id}/attachments", patients.AddAttachment)
		})

		r.Route("/appointments", func(r chi.Router) {
			r.Get("/", appointments.List)
			r.Post("/", appointments.Book)
			r.Post("/{id}/status", appointments.UpdateStatus)
			r.Post("/{id}/prescriptions", appointments.Prescription)
		})
		r.Get("/prescriptions/{id}/pdf", appointments.PrescriptionPDF)

		r.Route("/lab-import", func(r chi.Router) {
			r.Get("/", labs.Show)
			r.Post("/", labs.Upload)
			r.Post("/{id}/start", labs.Start)
			r.Get("/{id}/progress", labs.Progress)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", settings.Show)
			r.Post("/", settings.Save)
			r.Post("/admins", settings.AddAdmin)
			r.Post("/admins/{id}/password", settings.ResetAdminPassword)
			r.Post("/admins/{id}/delete", settings.DeleteAdmin)
		})
	})
}

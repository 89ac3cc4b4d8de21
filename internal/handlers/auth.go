package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/otcheredev/clinic-console/internal/apiclient"
	"github.com/otcheredev/clinic-console/internal/metrics"
	"github.com/otcheredev/clinic-console/internal/middleware"
	"github.com/otcheredev/clinic-console/internal/session"
	"github.com/rs/zerolog/log"
)

type AuthHandler struct {
	base
}

func NewAuthHandler(d Deps) *AuthHandler {
	return &AuthHandler{base: newBase(d)}
}

type loginView struct {
	Username string
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.Token(r); ok {
		h.redirect(w, r, "/")
		return
	}
	h.renderLogin(w, r, http.StatusOK, loginView{}, nil)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	view := loginView{Username: username}

	if username == "" || password == "" {
		h.renderLogin(w, r, http.StatusUnprocessableEntity, view, &session.Flash{Kind: session.FlashError, Message: "Username and password are required"})
		return
	}

	token, err := h.api.Login(r.Context(), username, password)
	if err != nil {
		metrics.Logins.WithLabelValues("failure").Inc()
		log.Warn().Err(err).Str("username", username).Msg("Login failed")
		h.renderLogin(w, r, http.StatusUnauthorized, view, &session.Flash{Kind: session.FlashError, Message: loginMessage(err)})
		return
	}
	if err := h.sessions.SetToken(w, r, token); err != nil {
		log.Error().Err(err).Msg("Failed to start session")
		h.renderLogin(w, r, http.StatusInternalServerError, view, &session.Flash{Kind: session.FlashError, Message: "Could not start a session, please try again"})
		return
	}

	metrics.Logins.WithLabelValues("success").Inc()
	log.Info().Str("username", username).Str("subject", session.Subject(token)).Msg("User logged in")
	h.redirect(w, r, "/")
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.Logout(h.sessions, w, r)
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, view loginView, flash *session.Flash) {
	h.views.Render(w, status, layoutBare, "login", &Page{Title: "Sign in", Flash: flash, Path: r.URL.Path, Data: view})
}

func loginMessage(err error) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized:
			return "Invalid credentials"
		case http.StatusForbidden:
			return "Account deactivated"
		}
	}
	return apiclient.Message(err, "Login failed, please try again")
}

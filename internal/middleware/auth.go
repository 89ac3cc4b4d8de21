package middleware

import (
	"context"
	"net/http"

	"github.com/otcheredev/clinic-console/internal/models"
	"github.com/otcheredev/clinic-console/internal/navigation"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	TokenKey   contextKey = "token"
	ProfileKey contextKey = "profile"
)

// LoginPath is where unauthenticated requests are sent.
const LoginPath = "/login"

// Sessions is the part of the session manager the guards need.
type Sessions interface {
	Token(r *http.Request) (string, bool)
	Clear(w http.ResponseWriter, r *http.Request) error
}

// ProfileFetcher resolves the profile behind a bearer token.
type ProfileFetcher func(ctx context.Context, token string) (*models.UserProfile, error)

// Logout clears the session and sends the browser to the login page.
func Logout(sessions Sessions, w http.ResponseWriter, r *http.Request) {
	if err := sessions.Clear(w, r); err != nil {
		log.Warn().Err(err).Msg("Failed to clear session")
	}
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

// RequireToken redirects to the login page when the session holds no token.
// No API call is made in that case.
func RequireToken(sessions Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := sessions.Token(r)
			if !ok {
				Logout(sessions, w, r)
				return
			}
			ctx := context.WithValue(r.Context(), TokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Profile loads the current user for every protected page. A failed fetch
// ends the session. Must run after RequireToken.
func Profile(sessions Sessions, fetch ProfileFetcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := GetToken(r.Context())
			if !ok {
				Logout(sessions, w, r)
				return
			}
			p, err := fetch(r.Context(), token)
			if err != nil || p == nil {
				log.Warn().Err(err).Str("path", r.URL.Path).Msg("Failed to load profile")
				Logout(sessions, w, r)
				return
			}
			ctx := context.WithValue(r.Context(), ProfileKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MenuAccess sends users back to the overview when the path belongs to a
// menu item they cannot see.
func MenuAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := GetProfile(r.Context())
		if !navigation.Allowed(p, r.URL.Path) {
			log.Warn().Str("path", r.URL.Path).Msg("Page not available for role")
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetToken extracts the bearer token from context
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok && token != ""
}

// GetProfile extracts the current user from context
func GetProfile(ctx context.Context) (*models.UserProfile, bool) {
	p, ok := ctx.Value(ProfileKey).(*models.UserProfile)
	return p, ok && p != nil
}

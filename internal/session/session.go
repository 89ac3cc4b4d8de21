package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/otcheredev/clinic-console/internal/cache"
)

// Options configures the session cookie.
type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Manager keeps the bearer token server side. The browser only holds an
// opaque session id cookie.
type Manager struct {
	store  cache.Cache
	cookie string
	ttl    time.Duration
	secure bool
}

func NewManager(store cache.Cache, opts Options) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = "clinic_session"
	}
	if opts.TTL <= 0 {
		opts.TTL = 12 * time.Hour
	}
	return &Manager{store: store, cookie: opts.CookieName, ttl: opts.TTL, secure: opts.Secure}
}

func tokenKey(sid string) string { return cache.Key("session", sid, "token") }
func flashKey(sid string) string { return cache.Key("session", sid, "flash") }

func (m *Manager) sessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(m.cookie)
	if err != nil || c.Value == "" {
		return "", false
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return "", false
	}
	return c.Value, true
}

// Token returns the stored bearer token for the request's session.
func (m *Manager) Token(r *http.Request) (string, bool) {
	sid, ok := m.sessionID(r)
	if !ok {
		return "", false
	}
	val, err := m.store.Get(r.Context(), tokenKey(sid))
	if err != nil || len(val) == 0 {
		return "", false
	}
	return string(val), true
}

// SetToken stores token under a freshly issued session id. Any previous
// session of this browser is dropped.
func (m *Manager) SetToken(w http.ResponseWriter, r *http.Request, token string) error {
	if old, ok := m.sessionID(r); ok {
		m.drop(r.Context(), old)
	}
	sid := uuid.NewString()
	if err := m.store.Set(r.Context(), tokenKey(sid), []byte(token), m.ttl); err != nil {
		return fmt.Errorf("failed to store session token: %w", err)
	}
	m.writeCookie(w, sid, int(m.ttl.Seconds()))
	return nil
}

// Clear forgets the token and expires the cookie.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request) error {
	sid, ok := m.sessionID(r)
	m.writeCookie(w, "", -1)
	if !ok {
		return nil
	}
	return m.drop(r.Context(), sid)
}

func (m *Manager) drop(ctx context.Context, sid string) error {
	return errors.Join(
		m.store.Delete(ctx, tokenKey(sid)),
		m.store.Delete(ctx, flashKey(sid)),
	)
}

func (m *Manager) writeCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Subject returns the unverified "sub" claim of a JWT bearer token, or "" when
// the token is opaque. Only used to attribute audit entries.
func Subject(token string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}

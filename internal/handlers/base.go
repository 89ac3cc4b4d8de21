package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/otcheredev/clinic-console/internal/apiclient"
	"github.com/otcheredev/clinic-console/internal/cache"
	"github.com/otcheredev/clinic-console/internal/labimport"
	"github.com/otcheredev/clinic-console/internal/middleware"
	"github.com/otcheredev/clinic-console/internal/models"
	"github.com/otcheredev/clinic-console/internal/navigation"
	"github.com/otcheredev/clinic-console/internal/rx"
	"github.com/otcheredev/clinic-console/internal/services"
	"github.com/otcheredev/clinic-console/internal/session"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Deps is everything the page handlers share.
type Deps struct {
	API      *apiclient.Client
	Sessions *session.Manager
	Views    *Renderer
	Audit    services.AuditRecorder
	Imports  *labimport.Registry
	// History lists finished imports. Nil when persistence is disabled.
	History ImportHistory
	// Store backs Sessions; /health pings it.
	Store cache.Cache
	// DB is nil when persistence is disabled.
	DB        *gorm.DB
	MaxUpload int64
	Location  *time.Location
}

// ImportHistory is implemented by repository.ImportRunRepository.
type ImportHistory interface {
	Recent(ctx context.Context, actor string, limit int) ([]models.ImportRun, error)
}

type base struct {
	api      *apiclient.Client
	sessions *session.Manager
	views    *Renderer
	audit    services.AuditRecorder
}

func newBase(d Deps) base {
	audit := d.Audit
	if audit == nil {
		audit = services.NopAudit{}
	}
	return base{api: d.API, sessions: d.Sessions, views: d.Views, audit: audit}
}

// client is the API client authenticated as the current session.
func (b *base) client(r *http.Request) *apiclient.Client {
	token, _ := middleware.GetToken(r.Context())
	return b.api.WithToken(token)
}

func (b *base) actor(r *http.Request) *models.UserProfile {
	p, _ := middleware.GetProfile(r.Context())
	return p
}

// page builds the layout view for the current request. A nil flash pops the
// queued one.
func (b *base) page(r *http.Request, data any, flash *session.Flash) *Page {
	p := b.actor(r)
	if flash == nil {
		flash = b.sessions.PopFlash(r)
	}
	menu := navigation.Build(p, r.URL.Path)
	return &Page{
		Title:   navigation.Title(menu),
		Console: navigation.ConsoleLabel(p),
		Profile: p,
		Menu:    menu,
		Flash:   flash,
		Path:    r.URL.Path,
		Query:   r.URL.Query(),
		Data:    data,
	}
}

func (b *base) render(w http.ResponseWriter, r *http.Request, name string, data any, flash *session.Flash) {
	b.views.Render(w, http.StatusOK, layoutConsole, name, b.page(r, data, flash))
}

func (b *base) redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// localPath returns to when it is a path on this console, fallback otherwise.
func localPath(to, fallback string) string {
	if !strings.HasPrefix(to, "/") || strings.HasPrefix(to, "//") || strings.HasPrefix(to, "/\\") {
		return fallback
	}
	u, err := url.Parse(to)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return to
}

// done queues a success alert and redirects back.
func (b *base) done(w http.ResponseWriter, r *http.Request, message, back string) {
	b.flash(r, session.FlashSuccess, message)
	b.redirect(w, r, back)
}

// fail handles a mutation error: an expired session logs out, anything else
// becomes an error alert on the page at back.
func (b *base) fail(w http.ResponseWriter, r *http.Request, err error, action, back string) {
	if b.expired(w, r, err) {
		return
	}
	log.Warn().Err(err).Str("path", r.URL.Path).Msg(action)
	b.flash(r, session.FlashError, userMessage(err, action))
	b.redirect(w, r, back)
}

// readFailed logs a failed page read. It reports true when the response has
// been written, which only happens for an expired session.
func (b *base) readFailed(w http.ResponseWriter, r *http.Request, err error, what string) bool {
	if b.expired(w, r, err) {
		return true
	}
	log.Error().Err(err).Str("path", r.URL.Path).Msgf("Failed to load %s", what)
	return false
}

func (b *base) expired(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, apiclient.ErrUnauthorized) {
		return false
	}
	log.Info().Str("path", r.URL.Path).Msg("Session expired")
	middleware.Logout(b.sessions, w, r)
	return true
}

func (b *base) flash(r *http.Request, kind, message string) {
	if err := b.sessions.AddFlash(r, kind, message); err != nil {
		log.Warn().Err(err).Msg("Failed to queue alert")
	}
}

func errorFlash(err error, action string) *session.Flash {
	return &session.Flash{Kind: session.FlashError, Message: userMessage(err, action)}
}

var localErrors = []error{
	services.ErrNoRoles,
	services.ErrProtectedUser,
	services.ErrSelfDelete,
	services.ErrUserNotFound,
	services.ErrHQTenant,
	services.ErrTenantMissing,
	services.ErrRootAdmin,
	services.ErrNotRootAdmin,
	services.ErrRequired,
	services.ErrInvalidInput,
	rx.ErrNoDrugs,
	rx.ErrLastLine,
	labimport.ErrUnsupportedFile,
	labimport.ErrEmptySheet,
	labimport.ErrJobNotFound,
	labimport.ErrJobStarted,
}

// userMessage is the alert text for err. Local validation errors are shown as
// they are; API errors become "<action>: <server detail>".
func userMessage(err error, action string) string {
	for _, local := range localErrors {
		if errors.Is(err, local) {
			return sentence(err.Error())
		}
	}
	return action + ": " + apiclient.Message(err, "please try again")
}

func sentence(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/otcheredev/clinic-console/internal/apiclient"
	"github.com/otcheredev/clinic-console/internal/cache"
	"github.com/otcheredev/clinic-console/internal/labimport"
	"github.com/otcheredev/clinic-console/internal/models"
	"github.com/otcheredev/clinic-console/internal/services"
	"github.com/otcheredev/clinic-console/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backend is a fake clinical API. It records every call it receives.
type backend struct {
	mu          sync.Mutex
	calls       []string
	attachments []string
	srv         *httptest.Server
}

var profiles = map[string]models.UserProfile{
	"super-token": {ID: "hq-admin", Username: "admin", TenantName: "HQ", IsSuperAdmin: true, Roles: []string{"admin"}},
	"desk-token":  {ID: "desk-1", Username: "desk", TenantName: "Sunrise", Roles: []string{"front_desk"}},
	"lab-token":   {ID: "lab-1", Username: "lab", TenantName: "Sunrise", Roles: []string{"lab_scientist"}},
}

var logins = map[string]string{"admin": "super-token", "desk": "desk-token", "lab": "lab-token"}

func newBackend(t *testing.T) *backend {
	b := &backend{}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			b.mu.Lock()
			b.calls = append(b.calls, req.Method+" "+req.URL.Path)
			b.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})

	r.Get("/ping-check", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/auth/token", func(w http.ResponseWriter, req *http.Request) {
		token, ok := logins[req.FormValue("username")]
		if !ok || req.FormValue("password") != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect username or password"})
			return
		}
		writeJSON(w, http.StatusOK, models.TokenResponse{AccessToken: token, TokenType: "bearer"})
	})

	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				token := strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
				if _, ok := profiles[token]; !ok {
					writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
					return
				}
				next.ServeHTTP(w, req)
			})
		})
		r.Get("/users/me", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, profiles[strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")])
		})
		r.Get("/stats/overview", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, models.OverviewStats{TotalPatients: 3})
		})
		r.Get("/stats/growth", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, []models.GrowthPoint{{Name: "Jan", Clinics: 1}})
		})
		r.Get("/users", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, []models.User{
				{ID: "u1", Username: "nurse.joy", Roles: []string{"nurse"}, IsActive: true},
				{ID: "d1", Username: "dr.grey", Roles: []string{"doctor"}, IsActive: true},
			})
		})
		r.Patch("/users/{id}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		r.Patch("/patients/{id}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		r.Post("/patients/{id}/attachments", func(w http.ResponseWriter, req *http.Request) {
			b.mu.Lock()
			b.attachments = append(b.attachments, req.URL.Query().Get("file_name"))
			b.mu.Unlock()
			writeJSON(w, http.StatusCreated, models.Attachment{ID: "att-1", FileName: req.URL.Query().Get("file_name")})
		})
		r.Get("/patients", func(w http.ResponseWriter, req *http.Request) {
			switch req.URL.Query().Get("q") {
			case "M1":
				writeJSON(w, http.StatusOK, []models.Patient{{ID: "p1", MRN: "M1", Name: "Ada"}})
			case "M3":
				writeJSON(w, http.StatusOK, []models.Patient{{ID: "p3", MRN: "M3", Name: "Grace"}})
			case "":
				writeJSON(w, http.StatusOK, []models.Patient{{ID: "p1", MRN: "M1", Name: "Ada"}})
			default:
				writeJSON(w, http.StatusOK, []models.Patient{})
			}
		})
		r.Post("/patients/{id}/records", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusCreated, models.ClinicalRecord{ID: "r1", RecordType: "lab_result"})
		})
		r.Get("/appointments", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, []models.Appointment{{ID: "a1", PatientID: "p1", DoctorID: "d1", StartTime: "2026-03-02T09:00:00", Status: "scheduled"}})
		})
		r.Post("/appointments/{id}/prescriptions", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusCreated, models.Prescription{ID: "rx-9"})
		})
		r.Get("/prescriptions/{id}/pdf", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.4"))
		})
	})

	b.srv = httptest.NewServer(r)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backend) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = nil
}

func (b *backend) received() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type console struct {
	t       *testing.T
	api     *backend
	srv     *httptest.Server
	client  *http.Client
	imports *labimport.Registry
}

func newConsole(t *testing.T, opts ...func(*Deps)) *console {
	api := newBackend(t)
	views, err := NewRenderer()
	require.NoError(t, err)

	imports := labimport.NewRegistry(labimport.RegistryOptions{})
	deps := Deps{
		API:      apiclient.New(apiclient.Config{BaseURL: api.srv.URL}),
		Sessions: session.NewManager(cache.NewMemoryCache(), session.Options{}),
		Views:    views,
		Imports:  imports,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	r := chi.NewRouter()
	Register(r, deps)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &console{
		t:       t,
		api:     api,
		srv:     srv,
		imports: imports,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *console) do(method, path string, body io.Reader, contentType string) (*http.Response, string) {
	req, err := http.NewRequest(method, c.srv.URL+path, body)
	require.NoError(c.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.client.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, string(raw)
}

func (c *console) get(path string) (*http.Response, string) {
	return c.do(http.MethodGet, path, nil, "")
}

func (c *console) post(path string, form url.Values) (*http.Response, string) {
	return c.do(http.MethodPost, path, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func (c *console) login(username string) {
	resp, _ := c.post("/login", url.Values{"username": {username}, "password": {"secret"}})
	require.Equal(c.t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(c.t, "/", resp.Header.Get("Location"))
}

func TestLoginShowsSuperAdminMenu(t *testing.T) {
	c := newConsole(t)
	c.login("admin")

	resp, body := c.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Super Admin Console")
	assert.Contains(t, body, "Clinics (Tenants)")
	assert.Contains(t, body, "Staff Management")
	assert.Contains(t, body, "Lab Import")
	assert.Contains(t, body, "Clinic Growth")
	assert.Contains(t, c.api.received(), "GET /users/me")
}

func TestFrontDeskMenu(t *testing.T) {
	c := newConsole(t)
	c.login("desk")

	resp, body := c.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Sunrise Console")
	assert.Contains(t, body, "Patients")
	assert.Contains(t, body, "Appointments")
	assert.NotContains(t, body, "Lab Import")
	assert.NotContains(t, body, "Staff Management")
	assert.NotContains(t, body, "Clinics (Tenants)")
	assert.NotContains(t, c.api.received(), "GET /stats/growth")

	resp, _ = c.get("/lab-import")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestInvalidLogin(t *testing.T) {
	c := newConsole(t)
	resp, body := c.post("/login", url.Values{"username": {"admin"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Invalid credentials")
}

func TestLogoutThenProtectedPageRedirects(t *testing.T) {
	c := newConsole(t)
	c.login("admin")

	resp, _ := c.post("/logout", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/login", resp.Header.Get("Location"))

	c.api.reset()
	resp, _ = c.get("/patients")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Empty(t, c.api.received())
}

func TestEmptyRoleEditShowsMessageWithoutPatch(t *testing.T) {
	c := newConsole(t)
	c.login("admin")
	c.api.reset()

	resp, _ := c.post("/users/u1/roles", url.Values{})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	next := resp.Header.Get("Location")
	assert.Equal(t, "/users?dialog=roles&target=u1", next)

	resp, body := c.get(next)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Please select at least one role")
	assert.NotContains(t, c.api.received(), "PATCH /users/u1")
}

func TestRoleEditPatches(t *testing.T) {
	c := newConsole(t)
	c.login("admin")

	resp, _ := c.post("/users/u1/roles", url.Values{"roles": {"nurse", "doctor"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/users", resp.Header.Get("Location"))
	assert.Contains(t, c.api.received(), "PATCH /users/u1")
}

func TestLabImportThreeRows(t *testing.T) {
	c := newConsole(t)
	c.login("lab")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "results.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("MRN,Test,Value\nM1,Hb,13.2\n,Hb,12.0\nM3,Hb,14.1\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, _ := c.do(http.MethodPost, "/lab-import", &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	jobID := loc.Query().Get("job")
	require.NotEmpty(t, jobID)

	resp, body := c.get(loc.String())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "3 rows found")
	assert.Contains(t, body, "Start Import")

	c.api.reset()
	resp, _ = c.post("/lab-import/"+jobID+"/start", url.Values{})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	c.imports.Wait()

	resp, body = c.get("/lab-import/" + jobID + "/progress")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap labimport.Snapshot
	require.NoError(t, json.Unmarshal([]byte(body), &snap))
	assert.Equal(t, labimport.StateCompleted, snap.State)
	assert.Equal(t, labimport.Progress{Total: 3, Current: 3, Success: 2, Fail: 1}, snap.Progress)

	var lookups, uploads int
	for _, call := range c.api.received() {
		switch call {
		case "GET /patients":
			lookups++
		case "POST /patients/p1/records", "POST /patients/p3/records":
			uploads++
		}
	}
	assert.Equal(t, 2, lookups, "the row without identity makes no lookup")
	assert.Equal(t, 2, uploads)

	_, body = c.get(loc.String())
	assert.Contains(t, body, "2 succeeded, 1 failed")
}

func TestLabImportJobsAreOwnerScoped(t *testing.T) {
	c := newConsole(t)
	sheet := &labimport.Sheet{Headers: []string{"MRN"}, Rows: []labimport.Row{{"MRN": "M1"}}}
	snap := c.imports.Stage("someone-else", "x.csv", sheet)

	c.login("lab")
	resp, _ := c.get("/lab-import/" + snap.ID + "/progress")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPatientUpdateStaysOnConsole(t *testing.T) {
	c := newConsole(t)
	c.login("admin")

	for _, back := range []string{"//evil.example/phish", "/\\evil.example", "https://evil.example/", "patients"} {
		resp, _ := c.post("/patients/p1", url.Values{"name": {"Ada"}, "back": {back}})
		require.Equal(t, http.StatusSeeOther, resp.StatusCode, back)
		assert.Equal(t, "/patients/p1", resp.Header.Get("Location"), back)
	}

	resp, _ := c.post("/patients/p1", url.Values{"name": {"Ada"}, "back": {"/patients?q=Ada"}})
	assert.Equal(t, "/patients?q=Ada", resp.Header.Get("Location"))

	resp, _ = c.post("/patients/p1", url.Values{"name": {""}, "back": {"//evil.example/phish"}})
	assert.Equal(t, "/patients/p1", resp.Header.Get("Location"))
}

func TestLocalPath(t *testing.T) {
	assert.Equal(t, "/patients/p1?tab=timeline", localPath("/patients/p1?tab=timeline", "/x"))
	assert.Equal(t, "/x", localPath("", "/x"))
	assert.Equal(t, "/x", localPath("//evil.example", "/x"))
	assert.Equal(t, "/x", localPath("/\\evil.example", "/x"))
	assert.Equal(t, "/x", localPath("javascript:alert(1)", "/x"))
}

func TestAttachmentNameFromUpload(t *testing.T) {
	c := newConsole(t)
	c.login("admin")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "scan.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("file_type", "pdf"))
	require.NoError(t, mw.Close())

	resp, _ := c.do(http.MethodPost, "/patients/p1/attachments", &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/patients/p1?tab=attachments", resp.Header.Get("Location"))

	c.api.mu.Lock()
	defer c.api.mu.Unlock()
	assert.Equal(t, []string{"scan.pdf"}, c.api.attachments)
}

type runHistory struct {
	actor string
	limit int
}

func (h *runHistory) Recent(_ context.Context, actor string, limit int) ([]models.ImportRun, error) {
	h.actor, h.limit = actor, limit
	return []models.ImportRun{{
		Actor: actor, FileName: "march-labs.xlsx", Total: 4, Success: 3, Fail: 1,
		FinishedAt: time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC),
	}}, nil
}

func TestLabImportListsRecentRuns(t *testing.T) {
	history := &runHistory{}
	c := newConsole(t, func(d *Deps) { d.History = history })
	c.login("lab")

	resp, body := c.get("/lab-import")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Recent Imports")
	assert.Contains(t, body, "march-labs.xlsx")
	assert.Contains(t, body, "02 Mar 2026 10:30")
	assert.Equal(t, "lab", history.actor)
	assert.Equal(t, recentRuns, history.limit)
}

func TestPrescriptionRequiresDrug(t *testing.T) {
	c := newConsole(t)
	c.login("admin")
	c.api.reset()

	resp, body := c.post("/appointments/a1/prescriptions", url.Values{
		"drug[]": {"  "}, "dose[]": {"500mg"}, "freq[]": {""}, "duration[]": {""}, "op": {"save"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Add at least one drug")
	assert.NotContains(t, c.api.received(), "POST /appointments/a1/prescriptions")
}

func TestPrescriptionComposerAddsLine(t *testing.T) {
	c := newConsole(t)
	c.login("admin")

	_, body := c.post("/appointments/a1/prescriptions", url.Values{
		"drug[]": {"Amoxicillin"}, "dose[]": {"500mg"}, "freq[]": {"2x"}, "duration[]": {"7 days"}, "op": {"add"},
	})
	assert.Equal(t, 2, strings.Count(body, `name="drug[]"`))
	assert.Contains(t, body, `value="Amoxicillin"`)
	assert.NotContains(t, c.api.received(), "POST /appointments/a1/prescriptions")
}

func TestPrescriptionSaveAndDownload(t *testing.T) {
	c := newConsole(t)
	c.login("admin")

	resp, body := c.post("/appointments/a1/prescriptions", url.Values{
		"drug[]": {"Amoxicillin", ""}, "dose[]": {"500mg", ""}, "freq[]": {"2x", ""}, "duration[]": {"7 days", ""}, "op": {"save"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "/prescriptions/rx-9/pdf")

	resp, body = c.get("/prescriptions/rx-9/pdf")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "attachment; filename=prescription.pdf", resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, "%PDF-1.4", body)
}

func TestAppointmentsBoardResolvesNames(t *testing.T) {
	c := newConsole(t)
	c.login("desk")

	resp, body := c.get("/appointments")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Ada")
	assert.Contains(t, body, "dr.grey")
	assert.NotContains(t, body, "Prescribe")
}

func TestHealthWithoutDatabase(t *testing.T) {
	c := newConsole(t)
	resp, body := c.get("/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var h healthResponse
	require.NoError(t, json.Unmarshal([]byte(body), &h))
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, "disabled", h.Services["database"])
	assert.Equal(t, "healthy", h.Services["api"])
}

func TestHealthChecksSessionStore(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := cache.NewRedisCache(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	c := newConsole(t, func(d *Deps) { d.Store = store })

	resp, body := c.get("/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var h healthResponse
	require.NoError(t, json.Unmarshal([]byte(body), &h))
	assert.Equal(t, "healthy", h.Services["sessions"])

	mr.Close()
	resp, body = c.get("/health")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.NoError(t, json.Unmarshal([]byte(body), &h))
	assert.Equal(t, "degraded", h.Status)
	assert.Equal(t, "unhealthy", h.Services["sessions"])

	resp, _ = c.get("/ready")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRendererParsesEveryPage(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	for _, page := range []string{"login", "overview", "tenants", "users", "patients", "patient", "patient_summary", "appointments", "lab_import", "settings", "settings_platform"} {
		assert.Contains(t, r.pages, page)
	}
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Please select at least one role", userMessage(services.ErrNoRoles, "Failed to update roles"))
	assert.Equal(t, "Failed to create user: Username taken", userMessage(&apiclient.APIError{Status: 400, Detail: "Username taken"}, "Failed to create user"))
	assert.Equal(t, "Failed to create user: please try again", userMessage(io.ErrUnexpectedEOF, "Failed to create user"))
}

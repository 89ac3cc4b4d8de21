package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/otcheredev/clinic-console/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestLoginPostsFormEncodedCredentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/token", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "alice", r.PostForm.Get("username"))
		assert.Equal(t, "s3cret", r.PostForm.Get("password"))
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "tok-1", "token_type": "bearer"})
	})

	token, err := c.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
}

func TestLoginInvalidCredentialsSurfacesDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid credentials"})
	})

	_, err := c.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, "Invalid credentials", Message(err, "Login failed"))
}

func TestBearerTokenAttached(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-9", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, models.UserProfile{
			ID: "u1", Username: "root", Roles: []string{"admin"}, TenantName: "HQ", IsSuperAdmin: true,
		})
	})

	p, err := c.WithToken("tok-9").Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "root", p.Username)
	assert.True(t, p.IsSuperAdmin)
}

func TestUnauthorizedMapsToSentinel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.WithToken("stale").ListUsers(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAPIErrorDetailForms(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"string detail", http.StatusBadRequest, `{"detail":"Prescription already exists"}`, "Prescription already exists"},
		{"validation detail", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","name"],"msg":"field required"}]}`, "name: field required"},
		{"no detail", http.StatusInternalServerError, `oops`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			err := c.WithToken("t").DeleteUser(context.Background(), "u1")
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.want, apiErr.Detail)
			assert.False(t, errors.Is(err, ErrUnauthorized))
		})
	}
}

func TestMessageFallback(t *testing.T) {
	assert.Equal(t, "Failed", Message(errors.New("dial tcp: refused"), "Failed"))
	assert.Equal(t, "Failed", Message(&APIError{Status: 500}, "Failed"))
}

func TestListPatientsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/patients", r.URL.Path)
		assert.Equal(t, "MRN-001", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Empty(t, r.URL.Query().Get("skip"))
		writeJSON(w, http.StatusOK, []models.Patient{{ID: "p1", MRN: "MRN-001", Name: "Ada"}})
	})

	got, err := c.WithToken("t").ListPatients(context.Background(), models.PatientQuery{Q: "MRN-001", Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)
}

func TestUpdateUserSendsOnlySetFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/users/u1", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"is_active": false}, body)
		w.WriteHeader(http.StatusOK)
	})

	inactive := false
	err := c.WithToken("t").UpdateUser(context.Background(), "u1", models.UserUpdate{IsActive: &inactive})
	require.NoError(t, err)
}

func TestAddAttachmentUsesQueryParameters(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/patients/p1/attachments", r.URL.Path)
		assert.Equal(t, "xray.png", r.URL.Query().Get("file_name"))
		assert.Equal(t, "image/png", r.URL.Query().Get("file_type"))
		writeJSON(w, http.StatusOK, models.Attachment{ID: "a1", FileName: "xray.png"})
	})

	a, err := c.WithToken("t").AddAttachment(context.Background(), "p1", "xray.png", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "a1", a.ID)
}

func TestPrescriptionPDF(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/prescriptions/rx1/pdf", r.URL.Path)
		assert.Equal(t, "Bearer t", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/pdf")
		io.WriteString(w, "%PDF-1.4 fake")
	})

	body, ct, err := c.WithToken("t").PrescriptionPDF(context.Background(), "rx1")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", ct)
	assert.Equal(t, "%PDF-1.4 fake", string(body))
}

func TestContextCancellationAborts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.WithToken("t").ListTenants(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

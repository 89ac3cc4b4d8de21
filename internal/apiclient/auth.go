package apiclient

import (
	"context"
	"errors"
	"net/http"

	"github.com/otcheredev/clinic-console/internal/models"
)

// Login exchanges credentials for a bearer token using the form encoded
// password grant.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	req := c.rest.R().SetContext(ctx).SetFormData(map[string]string{
		"username": username,
		"password": password,
	})
	var out models.TokenResponse
	if err := c.call(req, http.MethodPost, "/auth/token", &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", errors.New("login response carried no access token")
	}
	return out.AccessToken, nil
}

// Me returns the profile of the authenticated user.
func (c *Client) Me(ctx context.Context) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := c.call(c.request(ctx), http.MethodGet, "/users/me", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

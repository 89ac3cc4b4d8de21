package apiclient

import (
	"context"
	"errors"
	"net/http"

	"github.com/otcheredev/clinic-console/internal/models"
)

func (c *Client) ListTenants(ctx context.Context) ([]models.Tenant, error) {
	var out []models.Tenant
	if err := c.call(c.request(ctx), http.MethodGet, "/tenants", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTenant(ctx context.Context, in models.TenantCreate) (*models.Tenant, error) {
	var out models.Tenant
	if err := c.call(c.request(ctx).SetBody(in), http.MethodPost, "/tenants", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTenant(ctx context.Context, id string) error {
	return c.call(c.request(ctx), http.MethodDelete, pathf("/tenants/%s", id), nil)
}

// Impersonate returns a token for the target tenant's admin.
func (c *Client) Impersonate(ctx context.Context, id string) (string, error) {
	var out models.TokenResponse
	if err := c.call(c.request(ctx), http.MethodPost, pathf("/tenants/%s/impersonate", id), &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", errors.New("impersonation response carried no access token")
	}
	return out.AccessToken, nil
}

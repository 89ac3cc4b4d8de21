package apiclient

import (
	"context"
	"net/http"

	"github.com/otcheredev/clinic-console/internal/models"
)

func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if err := c.call(c.request(ctx), http.MethodGet, "/users", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListGlobalAdmins(ctx context.Context) ([]models.GlobalAdmin, error) {
	var out []models.GlobalAdmin
	if err := c.call(c.request(ctx), http.MethodGet, "/users/global-admins", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateUser(ctx context.Context, in models.UserCreate) (*models.User, error) {
	var out models.User
	if err := c.call(c.request(ctx).SetBody(in), http.MethodPost, "/users", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateUser(ctx context.Context, id string, in models.UserUpdate) error {
	return c.call(c.request(ctx).SetBody(in), http.MethodPatch, pathf("/users/%s", id), nil)
}

func (c *Client) ResetPassword(ctx context.Context, id, password string) error {
	body := models.PasswordReset{Password: password}
	return c.call(c.request(ctx).SetBody(body), http.MethodPost, pathf("/users/%s/reset-password", id), nil)
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.call(c.request(ctx), http.MethodDelete, pathf("/users/%s", id), nil)
}

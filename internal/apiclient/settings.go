package apiclient

import (
	"context"
	"net/http"

	"github.com/otcheredev/clinic-console/internal/models"
)

func (c *Client) Settings(ctx context.Context) (*models.ClinicSettings, error) {
	var out models.ClinicSettings
	if err := c.call(c.request(ctx), http.MethodGet, "/settings", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSettings sends every field; the backend replaces the stored block.
func (c *Client) UpdateSettings(ctx context.Context, in models.ClinicSettings) (*models.ClinicSettings, error) {
	in.TenantID = ""
	var out models.ClinicSettings
	if err := c.call(c.request(ctx).SetBody(in), http.MethodPatch, "/settings", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

package apiclient

import (
	"context"
	"net/http"

	"github.com/otcheredev/clinic-console/internal/models"
)

func (c *Client) OverviewStats(ctx context.Context) (*models.OverviewStats, error) {
	var out models.OverviewStats
	if err := c.call(c.request(ctx), http.MethodGet, "/stats/overview", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Growth(ctx context.Context) ([]models.GrowthPoint, error) {
	var out []models.GrowthPoint
	if err := c.call(c.request(ctx), http.MethodGet, "/stats/growth", &out); err != nil {
		return nil, err
	}
	return out, nil
}

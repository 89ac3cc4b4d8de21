package services

import (
	"context"

	"github.com/otcheredev/clinic-console/internal/models"
	"golang.org/x/sync/errgroup"
)

type OverviewAPI interface {
	OverviewStats(ctx context.Context) (*models.OverviewStats, error)
	Growth(ctx context.Context) ([]models.GrowthPoint, error)
}

type Overview struct {
	Stats      *models.OverviewStats
	Growth     []models.GrowthPoint
	MaxClinics int
}

// GrowthPercent scales a point against the tallest bar.
func (o *Overview) GrowthPercent(p models.GrowthPoint) int {
	if o.MaxClinics == 0 {
		return 0
	}
	return p.Clinics * 100 / o.MaxClinics
}

type OverviewService struct {
	api   OverviewAPI
	actor *models.UserProfile
}

func NewOverviewService(api OverviewAPI, actor *models.UserProfile) *OverviewService {
	return &OverviewService{api: api, actor: actor}
}

// Load fetches the stats cards, and the growth series for super admins.
func (s *OverviewService) Load(ctx context.Context) (*Overview, error) {
	o := &Overview{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		o.Stats, err = s.api.OverviewStats(gctx)
		return err
	})
	if s.actor != nil && s.actor.IsSuperAdmin {
		g.Go(func() (err error) {
			o.Growth, err = s.api.Growth(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, p := range o.Growth {
		o.MaxClinics = max(o.MaxClinics, p.Clinics)
	}
	return o, nil
}

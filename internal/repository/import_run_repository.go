package repository

import (
	"context"
	"fmt"

	"github.com/otcheredev/clinic-console/internal/models"
	"gorm.io/gorm"
)

// ImportRunRepository stores lab import summaries.
type ImportRunRepository struct {
	db *gorm.DB
}

func NewImportRunRepository(db *gorm.DB) *ImportRunRepository {
	return &ImportRunRepository{db: db}
}

func (r *ImportRunRepository) RecordRun(ctx context.Context, run *models.ImportRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to create import run: %w", err)
	}
	return nil
}

// Recent lists the newest runs started by actor.
func (r *ImportRunRepository) Recent(ctx context.Context, actor string, limit int) ([]models.ImportRun, error) {
	if limit <= 0 {
		limit = 10
	}
	var runs []models.ImportRun
	if err := r.db.WithContext(ctx).
		Where("actor = ?", actor).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list import runs: %w", err)
	}
	return runs, nil
}

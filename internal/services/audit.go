package services

import (
	"context"
	"time"

	"github.com/otcheredev/clinic-console/internal/models"
	"github.com/rs/zerolog/log"
)

// AuditRecorder persists audit entries. repository.AuditRepository implements it.
type AuditRecorder interface {
	Record(ctx context.Context, entry *models.AuditLog) error
}

// NopAudit discards entries. Used when the database is disabled.
type NopAudit struct{}

func (NopAudit) Record(context.Context, *models.AuditLog) error { return nil }

// Auditor stamps entries with the acting user.
type Auditor struct {
	rec   AuditRecorder
	actor *models.UserProfile
}

func NewAuditor(rec AuditRecorder, actor *models.UserProfile) *Auditor {
	if rec == nil {
		rec = NopAudit{}
	}
	return &Auditor{rec: rec, actor: actor}
}

// Track records the outcome of an action that started at start. Recording
// failures are logged and never returned.
func (a *Auditor) Track(ctx context.Context, action, resourceType, resourceID string, start time.Time, err error) {
	entry := &models.AuditLog{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Status:       models.AuditSuccess,
		Duration:     time.Since(start).Milliseconds(),
	}
	if a.actor != nil {
		entry.Actor = a.actor.Username
		entry.TenantName = a.actor.TenantName
	}
	if err != nil {
		entry.Status = models.AuditFailure
		entry.ErrorMessage = err.Error()
	}
	if recErr := a.rec.Record(context.WithoutCancel(ctx), entry); recErr != nil {
		log.Error().Err(recErr).Str("action", action).Msg("Failed to record audit entry")
	}
}

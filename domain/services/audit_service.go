package services

import (
	"context"

	"eals-backend/domain/models"
)

// AuditService appends structured action lines to the daily audit file and
// maintains the per-day aggregate row. Write failures never block the
// triggering action.
type AuditService interface {
	// Record appends "YYYY-MM-DD HH:MM:SS - text" to today's file and
	// refreshes the aggregate row.
	Record(ctx context.Context, text string)

	// RecomputeAggregate rebuilds the aggregate row for a date from the
	// attendance log.
	RecomputeAggregate(ctx context.Context, date string) (*models.SystemLog, error)

	GetAggregate(ctx context.Context, date string) (*models.SystemLog, error)

	// CleanupOldLogs prunes audit files older than the retention policy.
	CleanupOldLogs(ctx context.Context, retentionDays int) error
}

package repositories

import (
	"context"

	"eals-backend/domain/models"
)

type SettingsRepository interface {
	// Get returns the singleton row, creating it with defaults on first use.
	Get(ctx context.Context) (*models.SystemSettings, error)
	Update(ctx context.Context, settings *models.SystemSettings) error
}

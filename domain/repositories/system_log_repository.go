package repositories

import (
	"context"

	"eals-backend/domain/models"
)

type SystemLogRepository interface {
	GetByDate(ctx context.Context, date string) (*models.SystemLog, error)

	// Upsert creates the day's row lazily or refreshes the existing one.
	Upsert(ctx context.Context, log *models.SystemLog) error

	List(ctx context.Context, offset, limit int) ([]models.SystemLog, int64, error)
}

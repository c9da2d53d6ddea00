package repositories

import (
	"context"

	"eals-backend/domain/models"
)

type FingerprintRepository interface {
	Create(ctx context.Context, fp *models.Fingerprint) error
	GetByEmployee(ctx context.Context, employeeID string) (*models.Fingerprint, error)

	// GetAll feeds the 1:N identification and duplicate scans.
	GetAll(ctx context.Context) ([]models.Fingerprint, error)

	UpdatePath(ctx context.Context, employeeID, path string) error
	DeleteByEmployee(ctx context.Context, employeeID string) error
	ExistsByEmployee(ctx context.Context, employeeID string) (bool, error)
}

package repositories

import (
	"context"

	"github.com/google/uuid"

	"eals-backend/domain/models"
)

type EnrollmentSessionRepository interface {
	Create(ctx context.Context, session *models.EnrollmentSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.EnrollmentSession, error)
	GetActiveByEmployee(ctx context.Context, employeeID string) (*models.EnrollmentSession, error)
	Update(ctx context.Context, id uuid.UUID, session *models.EnrollmentSession) error
}

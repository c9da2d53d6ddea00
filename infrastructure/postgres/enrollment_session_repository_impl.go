package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"eals-backend/domain/models"
	"eals-backend/domain/repositories"
)

type EnrollmentSessionRepositoryImpl struct {
	db *gorm.DB
}

func NewEnrollmentSessionRepository(db *gorm.DB) repositories.EnrollmentSessionRepository {
	return &EnrollmentSessionRepositoryImpl{db: db}
}

func (r *EnrollmentSessionRepositoryImpl) Create(ctx context.Context, session *models.EnrollmentSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *EnrollmentSessionRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.EnrollmentSession, error) {
	var session models.EnrollmentSession
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *EnrollmentSessionRepositoryImpl) GetActiveByEmployee(ctx context.Context, employeeID string) (*models.EnrollmentSession, error) {
	var session models.EnrollmentSession
	err := r.db.WithContext(ctx).
		Where("employee_id = ? AND status = ?", employeeID, models.SessionStatusActive).
		Order("created_at DESC").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *EnrollmentSessionRepositoryImpl) Update(ctx context.Context, id uuid.UUID, session *models.EnrollmentSession) error {
	session.ID = id
	return r.db.WithContext(ctx).Save(session).Error
}

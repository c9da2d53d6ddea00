package postgres

import (
	"context"

	"gorm.io/gorm"

	"eals-backend/domain/models"
	"eals-backend/domain/repositories"
)

type FingerprintRepositoryImpl struct {
	db *gorm.DB
}

func NewFingerprintRepository(db *gorm.DB) repositories.FingerprintRepository {
	return &FingerprintRepositoryImpl{db: db}
}

func (r *FingerprintRepositoryImpl) Create(ctx context.Context, fp *models.Fingerprint) error {
	return r.db.WithContext(ctx).Create(fp).Error
}

func (r *FingerprintRepositoryImpl) GetByEmployee(ctx context.Context, employeeID string) (*models.Fingerprint, error) {
	var fp models.Fingerprint
	err := r.db.WithContext(ctx).Where("employee_id = ?", employeeID).First(&fp).Error
	if err != nil {
		return nil, err
	}
	return &fp, nil
}

func (r *FingerprintRepositoryImpl) GetAll(ctx context.Context) ([]models.Fingerprint, error) {
	var fps []models.Fingerprint
	err := r.db.WithContext(ctx).Find(&fps).Error
	return fps, err
}

func (r *FingerprintRepositoryImpl) UpdatePath(ctx context.Context, employeeID, path string) error {
	return r.db.WithContext(ctx).Model(&models.Fingerprint{}).
		Where("employee_id = ?", employeeID).
		Update("template_path", path).Error
}

func (r *FingerprintRepositoryImpl) DeleteByEmployee(ctx context.Context, employeeID string) error {
	return r.db.WithContext(ctx).Where("employee_id = ?", employeeID).Delete(&models.Fingerprint{}).Error
}

func (r *FingerprintRepositoryImpl) ExistsByEmployee(ctx context.Context, employeeID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Fingerprint{}).Where("employee_id = ?", employeeID).Count(&count).Error
	return count > 0, err
}

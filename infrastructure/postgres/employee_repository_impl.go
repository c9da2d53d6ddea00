package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"eals-backend/domain/models"
	"eals-backend/domain/repositories"
)

type EmployeeRepositoryImpl struct {
	db *gorm.DB
}

func NewEmployeeRepository(db *gorm.DB) repositories.EmployeeRepository {
	return &EmployeeRepositoryImpl{db: db}
}

func (r *EmployeeRepositoryImpl) Create(ctx context.Context, employee *models.Employee) error {
	return r.db.WithContext(ctx).Create(employee).Error
}

func (r *EmployeeRepositoryImpl) GetByID(ctx context.Context, id string) (*models.Employee, error) {
	var employee models.Employee
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&employee).Error
	if err != nil {
		return nil, err
	}
	return &employee, nil
}

func (r *EmployeeRepositoryImpl) List(ctx context.Context, offset, limit int) ([]models.Employee, int64, error) {
	var employees []models.Employee
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Employee{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Order("last_name, first_name").
		Offset(offset).
		Limit(limit).
		Find(&employees).Error

	return employees, total, err
}

func (r *EmployeeRepositoryImpl) Update(ctx context.Context, id string, employee *models.Employee) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Updates(employee).Error
}

func (r *EmployeeRepositoryImpl) UpdateStatus(ctx context.Context, id string, status string) error {
	return r.db.WithContext(ctx).Model(&models.Employee{}).Where("id = ?", id).Update("status", status).Error
}

func (r *EmployeeRepositoryImpl) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Select("Fingerprint", "FaceModel", "FaceArtifacts", "AttendanceLogs").
		Delete(&models.Employee{ID: id}).Error
}

func (r *EmployeeRepositoryImpl) ExistsByID(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Employee{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *EmployeeRepositoryImpl) ExistsByName(ctx context.Context, firstName, lastName string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Employee{}).
		Where("lower(first_name) = lower(?) AND lower(last_name) = lower(?)", firstName, lastName).
		Count(&count).Error
	return count > 0, err
}

func (r *EmployeeRepositoryImpl) ListActiveNonHR(ctx context.Context) ([]models.Employee, error) {
	var employees []models.Employee
	err := r.db.WithContext(ctx).
		Where("status = ? AND is_hr = false", models.StatusActive).
		Find(&employees).Error
	return employees, err
}

func (r *EmployeeRepositoryImpl) IncrementCounters(ctx context.Context, id string, attendance, late, absent int) error {
	updates := map[string]interface{}{}
	if attendance != 0 {
		updates["attendance_count"] = gorm.Expr("attendance_count + ?", attendance)
	}
	if late != 0 {
		updates["late_count"] = gorm.Expr("late_count + ?", late)
	}
	if absent != 0 {
		updates["absent_count"] = gorm.Expr("absent_count + ?", absent)
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Employee{}).Where("id = ?", id).Updates(updates).Error
}

// IsNotFound reports whether err is the record-not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

package postgres

import (
	"context"

	"gorm.io/gorm"

	"eals-backend/domain/models"
	"eals-backend/domain/repositories"
)

type AttendanceRepositoryImpl struct {
	db *gorm.DB
}

func NewAttendanceRepository(db *gorm.DB) repositories.AttendanceRepository {
	return &AttendanceRepositoryImpl{db: db}
}

func (r *AttendanceRepositoryImpl) Create(ctx context.Context, log *models.AttendanceLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *AttendanceRepositoryImpl) ListByEmployeeAndDate(ctx context.Context, employeeID, date string) ([]models.AttendanceLog, error) {
	var logs []models.AttendanceLog
	err := r.db.WithContext(ctx).
		Where("employee_id = ? AND date = ?", employeeID, date).
		Order("time").
		Find(&logs).Error
	return logs, err
}

func (r *AttendanceRepositoryImpl) CountOnDateFrom(ctx context.Context, employeeID, date, fromTime string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AttendanceLog{}).
		Where("employee_id = ? AND date = ? AND time >= ?", employeeID, date, fromTime).
		Count(&count).Error
	return count, err
}

func (r *AttendanceRepositoryImpl) CountOnDateUntil(ctx context.Context, employeeID, date, untilTime string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AttendanceLog{}).
		Where("employee_id = ? AND date = ? AND time <= ?", employeeID, date, untilTime).
		Count(&count).Error
	return count, err
}

func (r *AttendanceRepositoryImpl) CountOnDate(ctx context.Context, employeeID, date string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AttendanceLog{}).
		Where("employee_id = ? AND date = ?", employeeID, date).
		Count(&count).Error
	return count, err
}

func (r *AttendanceRepositoryImpl) ListByDate(ctx context.Context, date string) ([]models.AttendanceLog, error) {
	var logs []models.AttendanceLog
	err := r.db.WithContext(ctx).
		Where("date = ?", date).
		Order("employee_id, time").
		Find(&logs).Error
	return logs, err
}

func (r *AttendanceRepositoryImpl) DeleteByEmployee(ctx context.Context, employeeID string) error {
	return r.db.WithContext(ctx).Where("employee_id = ?", employeeID).Delete(&models.AttendanceLog{}).Error
}

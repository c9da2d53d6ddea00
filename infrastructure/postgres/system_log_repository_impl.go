package postgres

import (
	"context"

	"gorm.io/gorm"

	"eals-backend/domain/models"
	"eals-backend/domain/repositories"
)

type SystemLogRepositoryImpl struct {
	db *gorm.DB
}

func NewSystemLogRepository(db *gorm.DB) repositories.SystemLogRepository {
	return &SystemLogRepositoryImpl{db: db}
}

func (r *SystemLogRepositoryImpl) GetByDate(ctx context.Context, date string) (*models.SystemLog, error) {
	var log models.SystemLog
	err := r.db.WithContext(ctx).Where("date = ?", date).First(&log).Error
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *SystemLogRepositoryImpl) Upsert(ctx context.Context, log *models.SystemLog) error {
	var existing models.SystemLog
	err := r.db.WithContext(ctx).Where("date = ?", log.Date).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.db.WithContext(ctx).Create(log).Error
	}
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
		"present_count":      log.PresentCount,
		"absent_count":       log.AbsentCount,
		"late_count":         log.LateCount,
		"average_work_hours": log.AverageWorkHours,
	}).Error
}

func (r *SystemLogRepositoryImpl) List(ctx context.Context, offset, limit int) ([]models.SystemLog, int64, error) {
	var logs []models.SystemLog
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.SystemLog{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Order("date DESC").
		Offset(offset).
		Limit(limit).
		Find(&logs).Error

	return logs, total, err
}

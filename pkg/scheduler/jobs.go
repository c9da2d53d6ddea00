package scheduler

import (
	"context"
	"time"

	"eals-backend/domain/models"
	"eals-backend/domain/repositories"
	"eals-backend/domain/services"
	"eals-backend/pkg/logger"
)

const (
	jobDailyClose       = "daily_close"
	jobRetentionCleanup = "retention_cleanup"
)

// RegisterJobs wires the recurring attendance jobs into the scheduler.
//
//	daily_close       23:59: final aggregate for the day plus absent
//	                  counter bumps for active staff with no event.
//	retention_cleanup 02:00: prune audit files past the retention policy.
func RegisterJobs(
	s EventScheduler,
	audit services.AuditService,
	employeeRepo repositories.EmployeeRepository,
	attendanceRepo repositories.AttendanceRepository,
	settingsRepo repositories.SettingsRepository,
) error {
	if err := s.AddJob(jobDailyClose, "59 23 * * *", func() {
		runDailyClose(audit, employeeRepo, attendanceRepo)
	}); err != nil {
		return err
	}

	return s.AddJob(jobRetentionCleanup, "0 2 * * *", func() {
		runRetentionCleanup(audit, settingsRepo)
	})
}

func runDailyClose(
	audit services.AuditService,
	employeeRepo repositories.EmployeeRepository,
	attendanceRepo repositories.AttendanceRepository,
) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	date := time.Now().Format("2006-01-02")

	row, err := audit.RecomputeAggregate(ctx, date)
	if err != nil {
		logger.SchedulerError("daily_close", "aggregate recompute failed", err, map[string]interface{}{"date": date})
		return
	}

	// Bump the absent counter for active staff with no event today.
	staff, err := employeeRepo.ListActiveNonHR(ctx)
	if err != nil {
		logger.SchedulerError("daily_close", "staff listing failed", err, nil)
		return
	}
	events, err := attendanceRepo.ListByDate(ctx, date)
	if err != nil {
		logger.SchedulerError("daily_close", "attendance listing failed", err, map[string]interface{}{"date": date})
		return
	}

	present := make(map[string]bool, len(events))
	for _, e := range events {
		present[e.EmployeeID] = true
	}

	absent := 0
	for _, emp := range staff {
		if present[emp.ID] {
			continue
		}
		if err := employeeRepo.IncrementCounters(ctx, emp.ID, 0, 0, 1); err != nil {
			logger.SchedulerError("daily_close", "absent counter bump failed", err, map[string]interface{}{
				"employee_id": emp.ID,
			})
			continue
		}
		absent++
	}

	logger.Scheduler("daily_close", "day closed", map[string]interface{}{
		"date":          date,
		"present":       presentCount(row),
		"absent_bumped": absent,
	})
}

func presentCount(row *models.SystemLog) int {
	if row == nil {
		return 0
	}
	return row.PresentCount
}

func runRetentionCleanup(audit services.AuditService, settingsRepo repositories.SettingsRepository) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	settings, err := settingsRepo.Get(ctx)
	if err != nil {
		logger.SchedulerError("retention_cleanup", "settings load failed", err, nil)
		return
	}

	if err := audit.CleanupOldLogs(ctx, settings.RetentionDays); err != nil {
		logger.SchedulerError("retention_cleanup", "audit log cleanup failed", err, map[string]interface{}{
			"retention_days": settings.RetentionDays,
		})
	}
}

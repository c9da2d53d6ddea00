package repositories

import (
	"context"

	"eals-backend/domain/models"
)

type AttendanceRepository interface {
	Create(ctx context.Context, log *models.AttendanceLog) error

	// ListByEmployeeAndDate returns the employee's events on a calendar
	// date ordered by time ascending.
	ListByEmployeeAndDate(ctx context.Context, employeeID, date string) ([]models.AttendanceLog, error)

	// CountOnDateFrom counts events on date with time >= fromTime. Used by
	// the overnight-shift cap (current-date 22:00 window).
	CountOnDateFrom(ctx context.Context, employeeID, date, fromTime string) (int64, error)

	// CountOnDateUntil counts events on date with time <= untilTime. Used
	// by the overnight-shift cap (post-midnight tail of the previous
	// shift instance).
	CountOnDateUntil(ctx context.Context, employeeID, date, untilTime string) (int64, error)

	CountOnDate(ctx context.Context, employeeID, date string) (int64, error)

	// ListByDate returns every employee's events on a date, for the daily
	// aggregate computation.
	ListByDate(ctx context.Context, date string) ([]models.AttendanceLog, error)

	DeleteByEmployee(ctx context.Context, employeeID string) error
}

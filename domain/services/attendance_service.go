package services

import (
	"context"
	"errors"
	"time"

	"eals-backend/domain/models"
)

// Attendance validation errors
var (
	ErrInactiveEmployee = errors.New("employee is inactive")
	ErrOutsideShift     = errors.New("current time is outside the scheduled shift")
	ErrShiftCapExceeded = errors.New("already completed your attendance for this shift")
)

// AttendanceDecision is the validator's verdict for one login.
type AttendanceDecision struct {
	EmployeeID string `json:"employee_id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Remark     string `json:"remark"`
	IsLate     bool   `json:"is_late"`

	// NeedsConfirmation is set instead of recording when the login would be
	// a Clock Out less than eight hours after the Clock In. The caller
	// re-submits with confirmed=true after the user acknowledges.
	NeedsConfirmation bool `json:"needs_confirmation"`
}

// AttendanceService is the shift-aware validator: double-log cap, in/out
// direction, shift-window membership and lateness.
type AttendanceService interface {
	// RecordLogin validates and, on acceptance, appends the attendance
	// event and bumps the employee counters.
	RecordLogin(ctx context.Context, employee *models.Employee, now time.Time, confirmed bool) (*AttendanceDecision, error)

	// CheckShiftWindow is the reduced validation applied to HR staff: only
	// shift-window membership, no cap or lateness bookkeeping.
	CheckShiftWindow(schedule string, now time.Time) error

	ListByEmployeeAndDate(ctx context.Context, employeeID, date string) ([]models.AttendanceLog, error)
	ListByDate(ctx context.Context, date string) ([]models.AttendanceLog, error)
}

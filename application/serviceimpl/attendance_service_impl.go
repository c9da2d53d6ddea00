package serviceimpl

import (
	"context"
	"fmt"
	"time"

	"eals-backend/domain/models"
	"eals-backend/domain/repositories"
	"eals-backend/domain/services"
	"eals-backend/pkg/logger"
	"eals-backend/pkg/shift"
)

// minShiftDuration is the worked span under which a Clock Out asks for
// confirmation before it is recorded.
const minShiftDuration = 8 * time.Hour

// shiftLogCap is the number of events one employee may log per shift instance.
const shiftLogCap = 2

type AttendanceServiceImpl struct {
	attendanceRepo repositories.AttendanceRepository
	employeeRepo   repositories.EmployeeRepository
	audit          services.AuditService
}

func NewAttendanceService(
	attendanceRepo repositories.AttendanceRepository,
	employeeRepo repositories.EmployeeRepository,
	audit services.AuditService,
) services.AttendanceService {
	return &AttendanceServiceImpl{
		attendanceRepo: attendanceRepo,
		employeeRepo:   employeeRepo,
		audit:          audit,
	}
}

// RecordLogin validates one login against the employee's shift and appends
// the attendance event. HR staff skip the cap and lateness bookkeeping and
// only have their shift window checked.
func (s *AttendanceServiceImpl) RecordLogin(ctx context.Context, employee *models.Employee, now time.Time, confirmed bool) (*services.AttendanceDecision, error) {
	if !employee.IsActive() {
		return nil, services.ErrInactiveEmployee
	}

	sh, err := shift.Parse(employee.Schedule)
	if err != nil {
		return nil, fmt.Errorf("employee %s has unparseable schedule %q: %w", employee.ID, employee.Schedule, err)
	}

	date := now.Format("2006-01-02")
	clock := now.Format("15:04:05")

	if employee.IsHR {
		if !sh.Contains(now.Hour()) {
			return nil, services.ErrOutsideShift
		}
		events, err := s.attendanceRepo.ListByEmployeeAndDate(ctx, employee.ID, date)
		if err != nil {
			return nil, err
		}
		remark := models.RemarkClockIn
		if len(events) > 0 {
			remark = models.RemarkClockOut
		}
		return s.append(ctx, employee, date, clock, remark, false)
	}

	count, err := s.shiftInstanceCount(ctx, employee.ID, sh, now)
	if err != nil {
		return nil, err
	}
	if count >= shiftLogCap {
		return nil, services.ErrShiftCapExceeded
	}

	events, err := s.shiftInstanceEvents(ctx, employee.ID, sh, now)
	if err != nil {
		return nil, err
	}

	if len(events) > 0 {
		// Second event of the instance: a Clock Out, allowed at any hour.
		if !confirmed {
			if lastIn := lastClockIn(events); lastIn != nil {
				if at, err := lastIn.At(now.Location()); err == nil && now.Sub(at) < minShiftDuration {
					return &services.AttendanceDecision{
						EmployeeID:        employee.ID,
						Date:              date,
						Time:              clock,
						Remark:            models.RemarkClockOut,
						NeedsConfirmation: true,
					}, nil
				}
			}
		}
		return s.append(ctx, employee, date, clock, models.RemarkClockOut, false)
	}

	// First event of the instance: a Clock In, only inside the shift window.
	if !sh.Contains(now.Hour()) {
		return nil, services.ErrOutsideShift
	}
	return s.append(ctx, employee, date, clock, models.RemarkClockIn, sh.IsLate(now))
}

// CheckShiftWindow reports whether now falls inside the schedule's window.
func (s *AttendanceServiceImpl) CheckShiftWindow(schedule string, now time.Time) error {
	sh, err := shift.Parse(schedule)
	if err != nil {
		return err
	}
	if !sh.Contains(now.Hour()) {
		return services.ErrOutsideShift
	}
	return nil
}

func (s *AttendanceServiceImpl) ListByEmployeeAndDate(ctx context.Context, employeeID, date string) ([]models.AttendanceLog, error) {
	return s.attendanceRepo.ListByEmployeeAndDate(ctx, employeeID, date)
}

func (s *AttendanceServiceImpl) ListByDate(ctx context.Context, date string) ([]models.AttendanceLog, error) {
	return s.attendanceRepo.ListByDate(ctx, date)
}

func (s *AttendanceServiceImpl) append(ctx context.Context, employee *models.Employee, date, clock, remark string, isLate bool) (*services.AttendanceDecision, error) {
	entry := &models.AttendanceLog{
		EmployeeID: employee.ID,
		Date:       date,
		Time:       clock,
		Remark:     remark,
		IsLate:     isLate,
	}
	if err := s.attendanceRepo.Create(ctx, entry); err != nil {
		return nil, err
	}

	if remark == models.RemarkClockIn {
		lateBump := 0
		if isLate {
			lateBump = 1
		}
		if err := s.employeeRepo.IncrementCounters(ctx, employee.ID, 1, lateBump, 0); err != nil {
			logger.AttendanceError("counters", "failed to bump attendance counters", err, map[string]interface{}{
				"employee_id": employee.ID,
			})
		}
	}

	text := employee.ID + " " + remark
	if isLate {
		text += " (Late)"
	}
	s.audit.Record(ctx, text)

	logger.Attendance("record", remark+" recorded", map[string]interface{}{
		"employee_id": employee.ID,
		"date":        date,
		"time":        clock,
		"is_late":     isLate,
	})

	return &services.AttendanceDecision{
		EmployeeID: employee.ID,
		Date:       date,
		Time:       clock,
		Remark:     remark,
		IsLate:     isLate,
	}, nil
}

// shiftInstanceCount counts the events already logged in the shift instance
// now belongs to. Day shifts use the calendar date; the overnight shift
// counts the evening half from the previous date together with the
// post-midnight tail.
func (s *AttendanceServiceImpl) shiftInstanceCount(ctx context.Context, employeeID string, sh shift.Shift, now time.Time) (int64, error) {
	date := now.Format("2006-01-02")
	if !sh.Wraps() {
		return s.attendanceRepo.CountOnDate(ctx, employeeID, date)
	}

	startClock := fmt.Sprintf("%02d:00:00", sh.Start)
	endClock := fmt.Sprintf("%02d:00:00", sh.End)

	switch {
	case now.Hour() >= sh.Start:
		// Evening half: this instance began today at the shift start, so
		// anything logged earlier today belongs to the previous instance.
		return s.attendanceRepo.CountOnDateFrom(ctx, employeeID, date, startClock)
	case now.Hour() < sh.End:
		// Post-midnight half: the instance began yesterday evening.
		prev := now.AddDate(0, 0, -1).Format("2006-01-02")
		evening, err := s.attendanceRepo.CountOnDateFrom(ctx, employeeID, prev, startClock)
		if err != nil {
			return 0, err
		}
		tail, err := s.attendanceRepo.CountOnDateUntil(ctx, employeeID, date, endClock)
		if err != nil {
			return 0, err
		}
		return evening + tail, nil
	default:
		return s.attendanceRepo.CountOnDate(ctx, employeeID, date)
	}
}

// shiftInstanceEvents returns the events of the current shift instance in
// time order, mirroring shiftInstanceCount's windows.
func (s *AttendanceServiceImpl) shiftInstanceEvents(ctx context.Context, employeeID string, sh shift.Shift, now time.Time) ([]models.AttendanceLog, error) {
	date := now.Format("2006-01-02")
	if !sh.Wraps() {
		return s.attendanceRepo.ListByEmployeeAndDate(ctx, employeeID, date)
	}

	startClock := fmt.Sprintf("%02d:00:00", sh.Start)
	endClock := fmt.Sprintf("%02d:00:00", sh.End)

	switch {
	case now.Hour() >= sh.Start:
		today, err := s.attendanceRepo.ListByEmployeeAndDate(ctx, employeeID, date)
		if err != nil {
			return nil, err
		}
		return filterFrom(today, startClock), nil
	case now.Hour() < sh.End:
		prev := now.AddDate(0, 0, -1).Format("2006-01-02")
		evening, err := s.attendanceRepo.ListByEmployeeAndDate(ctx, employeeID, prev)
		if err != nil {
			return nil, err
		}
		today, err := s.attendanceRepo.ListByEmployeeAndDate(ctx, employeeID, date)
		if err != nil {
			return nil, err
		}
		return append(filterFrom(evening, startClock), filterUntil(today, endClock)...), nil
	default:
		return s.attendanceRepo.ListByEmployeeAndDate(ctx, employeeID, date)
	}
}

func filterFrom(events []models.AttendanceLog, fromClock string) []models.AttendanceLog {
	out := make([]models.AttendanceLog, 0, len(events))
	for _, e := range events {
		if e.Time >= fromClock {
			out = append(out, e)
		}
	}
	return out
}

func filterUntil(events []models.AttendanceLog, untilClock string) []models.AttendanceLog {
	out := make([]models.AttendanceLog, 0, len(events))
	for _, e := range events {
		if e.Time <= untilClock {
			out = append(out, e)
		}
	}
	return out
}

func lastClockIn(events []models.AttendanceLog) *models.AttendanceLog {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Remark == models.RemarkClockIn {
			return &events[i]
		}
	}
	return nil
}

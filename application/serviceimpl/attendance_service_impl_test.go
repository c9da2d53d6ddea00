package serviceimpl

import (
	"context"
	"errors"
	"testing"
	"time"

	"eals-backend/domain/models"
	"eals-backend/domain/services"
	"eals-backend/pkg/shift"
)

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", value, time.Local)
	if err != nil {
		t.Fatalf("bad test time %q: %v", value, err)
	}
	return ts
}

func morningEmployee(id string) *models.Employee {
	return &models.Employee{
		ID:        id,
		FirstName: "Maria",
		LastName:  "Santos",
		Schedule:  shift.Morning,
		Status:    models.StatusActive,
	}
}

func nightEmployee(id string) *models.Employee {
	e := morningEmployee(id)
	e.Schedule = shift.Night
	return e
}

func newAttendanceFixture(employees ...*models.Employee) (*AttendanceServiceImpl, *fakeAttendanceRepo, *fakeEmployeeRepo, *fakeAudit) {
	attendanceRepo := &fakeAttendanceRepo{}
	employeeRepo := newFakeEmployeeRepo(employees...)
	audit := &fakeAudit{}
	svc := NewAttendanceService(attendanceRepo, employeeRepo, audit).(*AttendanceServiceImpl)
	return svc, attendanceRepo, employeeRepo, audit
}

func TestClockInOnTime(t *testing.T) {
	emp := morningEmployee("emp-01-0001")
	svc, repo, empRepo, _ := newAttendanceFixture(emp)

	decision, err := svc.RecordLogin(context.Background(), emp, at(t, "2025-06-04 06:10:00"), false)
	if err != nil {
		t.Fatalf("RecordLogin: %v", err)
	}
	if decision.Remark != models.RemarkClockIn || decision.IsLate {
		t.Errorf("got remark=%q late=%v, want on-time Clock In", decision.Remark, decision.IsLate)
	}
	if len(repo.logs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(repo.logs))
	}
	if got := empRepo.employees[emp.ID].AttendanceCount; got != 1 {
		t.Errorf("attendance counter = %d, want 1", got)
	}
}

func TestClockInPastGraceIsLate(t *testing.T) {
	emp := morningEmployee("emp-01-0001")
	svc, _, empRepo, audit := newAttendanceFixture(emp)

	decision, err := svc.RecordLogin(context.Background(), emp, at(t, "2025-06-04 06:16:00"), false)
	if err != nil {
		t.Fatalf("RecordLogin: %v", err)
	}
	if !decision.IsLate {
		t.Error("06:16 on a 6am shift should be late")
	}
	if got := empRepo.employees[emp.ID].LateCount; got != 1 {
		t.Errorf("late counter = %d, want 1", got)
	}
	if len(audit.lines) != 1 || audit.lines[0] != "emp-01-0001 Clock In (Late)" {
		t.Errorf("audit lines = %v", audit.lines)
	}
}

func TestClockInOutsideWindowRejected(t *testing.T) {
	emp := morningEmployee("emp-01-0001")
	svc, _, _, _ := newAttendanceFixture(emp)

	_, err := svc.RecordLogin(context.Background(), emp, at(t, "2025-06-04 15:00:00"), false)
	if !errors.Is(err, services.ErrOutsideShift) {
		t.Fatalf("got %v, want ErrOutsideShift", err)
	}
}

func TestInactiveEmployeeRejected(t *testing.T) {
	emp := morningEmployee("emp-01-0001")
	emp.Status = models.StatusInactive
	svc, _, _, _ := newAttendanceFixture(emp)

	_, err := svc.RecordLogin(context.Background(), emp, at(t, "2025-06-04 06:10:00"), false)
	if !errors.Is(err, services.ErrInactiveEmployee) {
		t.Fatalf("got %v, want ErrInactiveEmployee", err)
	}
}

func TestShortShiftClockOutNeedsConfirmation(t *testing.T) {
	emp := morningEmployee("emp-01-0001")
	svc, repo, _, _ := newAttendanceFixture(emp)
	ctx := context.Background()

	if _, err := svc.RecordLogin(ctx, emp, at(t, "2025-06-04 06:10:00"), false); err != nil {
		t.Fatalf("clock in: %v", err)
	}

	decision, err := svc.RecordLogin(ctx, emp, at(t, "2025-06-04 10:00:00"), false)
	if err != nil {
		t.Fatalf("clock out: %v", err)
	}
	if !decision.NeedsConfirmation {
		t.Fatal("a 3h50m shift should ask for confirmation")
	}
	if len(repo.logs) != 1 {
		t.Fatalf("unconfirmed clock out must not be recorded, have %d events", len(repo.logs))
	}

	decision, err = svc.RecordLogin(ctx, emp, at(t, "2025-06-04 10:00:30"), true)
	if err != nil {
		t.Fatalf("confirmed clock out: %v", err)
	}
	if decision.NeedsConfirmation || decision.Remark != models.RemarkClockOut {
		t.Errorf("confirmed decision = %+v", decision)
	}
	if len(repo.logs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(repo.logs))
	}
}

func TestFullShiftClockOutRecordsDirectly(t *testing.T) {
	emp := morningEmployee("emp-01-0001")
	svc, repo, _, _ := newAttendanceFixture(emp)
	ctx := context.Background()

	if _, err := svc.RecordLogin(ctx, emp, at(t, "2025-06-04 06:10:00"), false); err != nil {
		t.Fatalf("clock in: %v", err)
	}

	// Past the window end, but a Clock Out is allowed at any hour.
	decision, err := svc.RecordLogin(ctx, emp, at(t, "2025-06-04 14:20:00"), false)
	if err != nil {
		t.Fatalf("clock out: %v", err)
	}
	if decision.NeedsConfirmation {
		t.Error("an 8h10m shift must not ask for confirmation")
	}
	if decision.Remark != models.RemarkClockOut {
		t.Errorf("remark = %q, want Clock Out", decision.Remark)
	}
	if len(repo.logs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(repo.logs))
	}
}

func TestShiftCap(t *testing.T) {
	emp := morningEmployee("emp-01-0001")
	svc, _, _, _ := newAttendanceFixture(emp)
	ctx := context.Background()

	if _, err := svc.RecordLogin(ctx, emp, at(t, "2025-06-04 06:10:00"), false); err != nil {
		t.Fatalf("clock in: %v", err)
	}
	if _, err := svc.RecordLogin(ctx, emp, at(t, "2025-06-04 14:20:00"), false); err != nil {
		t.Fatalf("clock out: %v", err)
	}

	_, err := svc.RecordLogin(ctx, emp, at(t, "2025-06-04 14:30:00"), false)
	if !errors.Is(err, services.ErrShiftCapExceeded) {
		t.Fatalf("third event got %v, want ErrShiftCapExceeded", err)
	}
}

func TestNightShiftClockOutAfterMidnight(t *testing.T) {
	emp := nightEmployee("emp-01-0002")
	svc, repo, _, _ := newAttendanceFixture(emp)
	ctx := context.Background()

	if _, err := svc.RecordLogin(ctx, emp, at(t, "2025-06-03 22:03:00"), false); err != nil {
		t.Fatalf("clock in: %v", err)
	}

	// 05:45 next day closes the same shift instance; 7h42m needs the
	// short-shift confirmation first.
	decision, err := svc.RecordLogin(ctx, emp, at(t, "2025-06-04 05:45:00"), false)
	if err != nil {
		t.Fatalf("clock out: %v", err)
	}
	if !decision.NeedsConfirmation {
		t.Fatal("7h42m shift should ask for confirmation")
	}

	decision, err = svc.RecordLogin(ctx, emp, at(t, "2025-06-04 05:45:10"), true)
	if err != nil {
		t.Fatalf("confirmed clock out: %v", err)
	}
	if decision.Remark != models.RemarkClockOut {
		t.Errorf("remark = %q, want Clock Out across midnight", decision.Remark)
	}
	if len(repo.logs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(repo.logs))
	}
}

func TestNightShiftCapSpansMidnight(t *testing.T) {
	emp := nightEmployee("emp-01-0002")
	svc, _, _, _ := newAttendanceFixture(emp)
	ctx := context.Background()

	if _, err := svc.RecordLogin(ctx, emp, at(t, "2025-06-03 22:03:00"), false); err != nil {
		t.Fatalf("clock in: %v", err)
	}
	if _, err := svc.RecordLogin(ctx, emp, at(t, "2025-06-04 05:45:00"), true); err != nil {
		t.Fatalf("clock out: %v", err)
	}

	_, err := svc.RecordLogin(ctx, emp, at(t, "2025-06-04 05:50:00"), false)
	if !errors.Is(err, services.ErrShiftCapExceeded) {
		t.Fatalf("third event in instance got %v, want ErrShiftCapExceeded", err)
	}
}

func TestNightShiftNewInstanceAtTen(t *testing.T) {
	emp := nightEmployee("emp-01-0002")
	svc, _, _, _ := newAttendanceFixture(emp)
	ctx := context.Background()

	if _, err := svc.RecordLogin(ctx, emp, at(t, "2025-06-03 22:03:00"), false); err != nil {
		t.Fatalf("first clock in: %v", err)
	}
	if _, err := svc.RecordLogin(ctx, emp, at(t, "2025-06-04 05:45:00"), true); err != nil {
		t.Fatalf("first clock out: %v", err)
	}

	// Same calendar date, but 22:10 opens a fresh shift instance.
	decision, err := svc.RecordLogin(ctx, emp, at(t, "2025-06-04 22:10:00"), false)
	if err != nil {
		t.Fatalf("second night clock in: %v", err)
	}
	if decision.Remark != models.RemarkClockIn {
		t.Errorf("remark = %q, want Clock In for the new instance", decision.Remark)
	}
	if decision.IsLate {
		t.Error("22:10 is inside the 15 minute grace window")
	}
}

func TestHRSkipsCapAndLateness(t *testing.T) {
	emp := morningEmployee("emp-hr-0001")
	emp.IsHR = true
	svc, repo, _, _ := newAttendanceFixture(emp)
	ctx := context.Background()

	// Well past the grace window; HR is never flagged late.
	decision, err := svc.RecordLogin(ctx, emp, at(t, "2025-06-04 09:30:00"), false)
	if err != nil {
		t.Fatalf("HR clock in: %v", err)
	}
	if decision.IsLate {
		t.Error("HR logins must not carry a late flag")
	}
	if decision.Remark != models.RemarkClockIn {
		t.Errorf("remark = %q, want Clock In", decision.Remark)
	}

	// But the shift window still applies.
	if _, err := svc.RecordLogin(ctx, emp, at(t, "2025-06-04 17:00:00"), false); !errors.Is(err, services.ErrOutsideShift) {
		t.Fatalf("HR outside window got %v, want ErrOutsideShift", err)
	}

	if len(repo.logs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(repo.logs))
	}
}

func TestCheckShiftWindow(t *testing.T) {
	svc, _, _, _ := newAttendanceFixture()

	if err := svc.CheckShiftWindow(shift.Night, at(t, "2025-06-04 23:00:00")); err != nil {
		t.Errorf("23:00 should be inside the night window: %v", err)
	}
	if err := svc.CheckShiftWindow(shift.Night, at(t, "2025-06-04 12:00:00")); !errors.Is(err, services.ErrOutsideShift) {
		t.Errorf("noon should be outside the night window, got %v", err)
	}
	if err := svc.CheckShiftWindow("not a schedule", at(t, "2025-06-04 12:00:00")); err == nil {
		t.Error("garbage schedule should fail")
	}
}

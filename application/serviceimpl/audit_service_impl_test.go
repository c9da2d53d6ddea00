package serviceimpl

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"eals-backend/domain/models"
	"eals-backend/pkg/shift"
)

func newAuditFixture(t *testing.T, employees ...*models.Employee) (*AuditServiceImpl, *fakeAttendanceRepo, *fakeSystemLogRepo, string) {
	t.Helper()
	dir := t.TempDir()
	attendanceRepo := &fakeAttendanceRepo{}
	systemLogRepo := newFakeSystemLogRepo()
	svc := NewAuditService(dir, newFakeEmployeeRepo(employees...), attendanceRepo, systemLogRepo, nil).(*AuditServiceImpl)
	return svc, attendanceRepo, systemLogRepo, dir
}

func TestRecordAppendsDailyLine(t *testing.T) {
	svc, _, _, dir := newAuditFixture(t)
	svc.now = func() time.Time {
		return time.Date(2025, 6, 4, 8, 10, 11, 0, time.Local)
	}

	svc.Record(context.Background(), "emp-01-0001 Clock In (Late)")
	svc.Record(context.Background(), "emp-01-0002 Clock In")

	data, err := os.ReadFile(filepath.Join(dir, "20250604.txt"))
	if err != nil {
		t.Fatalf("daily file missing: %v", err)
	}
	want := "2025-06-04 08:10:11 - emp-01-0001 Clock In (Late)\n" +
		"2025-06-04 08:10:11 - emp-01-0002 Clock In\n"
	if string(data) != want {
		t.Errorf("file contents:\n%q\nwant:\n%q", data, want)
	}
}

func TestRecomputeAggregate(t *testing.T) {
	present := &models.Employee{ID: "emp-01-0001", Schedule: shift.Morning, Status: models.StatusActive}
	lateOne := &models.Employee{ID: "emp-01-0002", Schedule: shift.Morning, Status: models.StatusActive}
	absent := &models.Employee{ID: "emp-01-0003", Schedule: shift.Morning, Status: models.StatusActive}
	hr := &models.Employee{ID: "emp-hr-0001", Schedule: shift.Morning, Status: models.StatusActive, IsHR: true}

	svc, attendanceRepo, systemLogRepo, _ := newAuditFixture(t, present, lateOne, absent, hr)
	ctx := context.Background()

	events := []models.AttendanceLog{
		{EmployeeID: "emp-01-0001", Date: "2025-06-04", Time: "06:05:00", Remark: models.RemarkClockIn},
		{EmployeeID: "emp-01-0001", Date: "2025-06-04", Time: "14:05:00", Remark: models.RemarkClockOut},
		{EmployeeID: "emp-01-0002", Date: "2025-06-04", Time: "06:20:00", Remark: models.RemarkClockIn, IsLate: true},
		// HR activity must not count toward the aggregate.
		{EmployeeID: "emp-hr-0001", Date: "2025-06-04", Time: "09:00:00", Remark: models.RemarkClockIn},
	}
	for i := range events {
		if err := attendanceRepo.Create(ctx, &events[i]); err != nil {
			t.Fatal(err)
		}
	}

	row, err := svc.RecomputeAggregate(ctx, "2025-06-04")
	if err != nil {
		t.Fatalf("RecomputeAggregate: %v", err)
	}
	if row.PresentCount != 2 || row.AbsentCount != 1 || row.LateCount != 1 {
		t.Errorf("counts = present %d absent %d late %d, want 2/1/1",
			row.PresentCount, row.AbsentCount, row.LateCount)
	}
	if math.Abs(row.AverageWorkHours-8.0) > 1e-9 {
		t.Errorf("average hours = %f, want 8.0 from the single closed pair", row.AverageWorkHours)
	}

	if _, err := systemLogRepo.GetByDate(ctx, "2025-06-04"); err != nil {
		t.Errorf("aggregate row not persisted: %v", err)
	}
}

func TestRecomputeAggregateCreditsOvernightPair(t *testing.T) {
	nocturnal := &models.Employee{ID: "emp-01-0002", Schedule: shift.Night, Status: models.StatusActive}
	svc, attendanceRepo, _, _ := newAuditFixture(t, nocturnal)
	ctx := context.Background()

	events := []models.AttendanceLog{
		{EmployeeID: "emp-01-0002", Date: "2025-06-03", Time: "22:00:00", Remark: models.RemarkClockIn},
		{EmployeeID: "emp-01-0002", Date: "2025-06-04", Time: "06:00:00", Remark: models.RemarkClockOut},
	}
	for i := range events {
		if err := attendanceRepo.Create(ctx, &events[i]); err != nil {
			t.Fatal(err)
		}
	}

	row, err := svc.RecomputeAggregate(ctx, "2025-06-03")
	if err != nil {
		t.Fatalf("RecomputeAggregate: %v", err)
	}
	if math.Abs(row.AverageWorkHours-8.0) > 1e-9 {
		t.Errorf("average hours = %f, want 8.0 credited to the Clock In date", row.AverageWorkHours)
	}
}

func TestCleanupOldLogs(t *testing.T) {
	svc, _, _, dir := newAuditFixture(t)
	svc.now = func() time.Time {
		return time.Date(2025, 6, 4, 23, 59, 0, 0, time.Local)
	}

	old := filepath.Join(dir, "20250101.txt")
	recent := filepath.Join(dir, "20250601.txt")
	stray := filepath.Join(dir, "notes.md")
	for _, path := range []string{old, recent, stray} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := svc.CleanupOldLogs(context.Background(), 90); err != nil {
		t.Fatalf("CleanupOldLogs: %v", err)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("file older than retention should be removed")
	}
	if _, err := os.Stat(recent); err != nil {
		t.Error("file inside retention must survive")
	}
	if _, err := os.Stat(stray); err != nil {
		t.Error("non-audit files must be left alone")
	}
}

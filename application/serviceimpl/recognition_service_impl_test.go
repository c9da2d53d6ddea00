package serviceimpl

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"eals-backend/domain/models"
	"eals-backend/domain/services"
	"eals-backend/infrastructure/websocket"
	"eals-backend/pkg/config"
	"eals-backend/pkg/shift"
)

type stubAttendance struct {
	decision  *services.AttendanceDecision
	err       error
	confirmed []bool
}

func (s *stubAttendance) RecordLogin(ctx context.Context, employee *models.Employee, now time.Time, confirmed bool) (*services.AttendanceDecision, error) {
	s.confirmed = append(s.confirmed, confirmed)
	if s.err != nil {
		return nil, s.err
	}
	if s.decision != nil {
		return s.decision, nil
	}
	return &services.AttendanceDecision{EmployeeID: employee.ID, Remark: "Clock In"}, nil
}

func (s *stubAttendance) CheckShiftWindow(schedule string, now time.Time) error { return nil }

func (s *stubAttendance) ListByEmployeeAndDate(ctx context.Context, employeeID, date string) ([]models.AttendanceLog, error) {
	return nil, nil
}

func (s *stubAttendance) ListByDate(ctx context.Context, date string) ([]models.AttendanceLog, error) {
	return nil, nil
}

type stubScanner struct {
	arms    int
	disarms int
}

func (s *stubScanner) Arm()    { s.arms++ }
func (s *stubScanner) Disarm() { s.disarms++ }

type dispatcherFixture struct {
	svc            *RecognitionServiceImpl
	attendance     *stubAttendance
	fingerprintSvc *stubFingerprintEngine
	faceSvc        *stubFaceEngine
	scanner        *stubScanner
	audit          *fakeAudit
}

func newDispatcherFixture(employees ...*models.Employee) *dispatcherFixture {
	f := &dispatcherFixture{
		attendance:     &stubAttendance{},
		fingerprintSvc: &stubFingerprintEngine{},
		faceSvc:        &stubFaceEngine{},
		scanner:        &stubScanner{},
		audit:          &fakeAudit{},
	}
	f.svc = NewRecognitionService(
		&fakeSettingsRepo{settings: models.SystemSettings{IsFaceOn: true, IsFingerprintOn: true}},
		newFakeEmployeeRepo(employees...),
		f.attendance,
		f.faceSvc,
		f.fingerprintSvc,
		f.audit,
		&websocket.Hub{},
		nil,
		config.BiometricConfig{FaceCooldownSeconds: 10},
	)
	f.svc.SetScanner(f.scanner)
	return f
}

func staffEmployee() *models.Employee {
	return &models.Employee{
		ID:        "emp-01-0001",
		FirstName: "Maria",
		LastName:  "Santos",
		Schedule:  shift.Morning,
		Status:    models.StatusActive,
	}
}

func TestTakeCooldownSuppressesRepeats(t *testing.T) {
	f := newDispatcherFixture()
	base := time.Date(2026, 8, 24, 7, 0, 0, 0, time.UTC)
	now := base
	f.svc.now = func() time.Time { return now }

	if !f.svc.takeCooldown("emp-01-0001") {
		t.Fatal("first hit must pass")
	}
	now = base.Add(9 * time.Second)
	if f.svc.takeCooldown("emp-01-0001") {
		t.Error("hit inside the window must be suppressed")
	}
	if !f.svc.takeCooldown("emp-01-0002") {
		t.Error("a different subject has an independent window")
	}
	now = base.Add(10 * time.Second)
	if !f.svc.takeCooldown("emp-01-0001") {
		t.Error("hit at the window edge must pass")
	}
}

func TestStartSessionFallsBackWhenEnginesFail(t *testing.T) {
	f := newDispatcherFixture()
	f.fingerprintSvc.openErr = errors.New("sensor unplugged")
	f.faceSvc.initErr = errors.New("analysis service down")

	state, err := f.svc.StartSession(context.Background())
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if state.FaceEnabled || state.FingerprintEnabled || !state.CredentialFallback {
		t.Errorf("state = %+v, want credential fallback with both modalities off", state)
	}
	if f.svc.SessionActive() {
		t.Error("session must not be active with no engine up")
	}
	if _, err := f.svc.HandleFaceFrame(context.Background(), nil); !errors.Is(err, services.ErrNoSession) {
		t.Errorf("frame without a session got %v, want ErrNoSession", err)
	}
}

func TestFaceMatchRecordsLoginAndStopsSession(t *testing.T) {
	f := newDispatcherFixture(staffEmployee())
	f.faceSvc.frame = &services.FrameResult{
		Match: &services.FaceMatch{EmployeeID: "emp-01-0001", Fused: 0.82},
	}
	ctx := context.Background()

	if _, err := f.svc.StartSession(ctx); err != nil {
		t.Fatal(err)
	}
	if f.scanner.arms != 1 {
		t.Fatalf("scanner arms = %d, want 1", f.scanner.arms)
	}

	out, err := f.svc.HandleFaceFrame(ctx, []byte("frame"))
	if err != nil {
		t.Fatalf("HandleFaceFrame: %v", err)
	}
	if out.Login == nil || !out.Login.Accepted {
		t.Fatalf("login = %+v, want accepted", out.Login)
	}
	if out.Login.FirstName != "Maria" || out.Login.LastName != "Santos" {
		t.Errorf("login names = %q %q", out.Login.FirstName, out.Login.LastName)
	}

	// An accepted login tears the engines down for the result screen.
	if f.svc.SessionActive() {
		t.Error("session must stop after an accepted login")
	}
	if f.scanner.disarms == 0 || f.fingerprintSvc.closes == 0 {
		t.Error("accepted login must disarm the scanner and close the sensor")
	}
}

func TestRejectedLoginKeepsScanning(t *testing.T) {
	f := newDispatcherFixture(staffEmployee())
	f.attendance.err = services.ErrOutsideShift
	f.faceSvc.frame = &services.FrameResult{
		Match: &services.FaceMatch{EmployeeID: "emp-01-0001", Fused: 0.82},
	}
	ctx := context.Background()

	if _, err := f.svc.StartSession(ctx); err != nil {
		t.Fatal(err)
	}
	out, err := f.svc.HandleFaceFrame(ctx, []byte("frame"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Login == nil || out.Login.Accepted {
		t.Fatalf("login = %+v, want rejected", out.Login)
	}
	if out.Login.Reason != services.ErrOutsideShift.Error() {
		t.Errorf("reason = %q", out.Login.Reason)
	}
	if !f.svc.SessionActive() {
		t.Error("rejection must leave the session running")
	}
	if len(f.audit.lines) == 0 || !strings.Contains(f.audit.lines[0], "rejected") {
		t.Errorf("audit lines = %v, want a rejection entry", f.audit.lines)
	}
}

func TestDispatcherShortShiftClockOutNeedsConfirmation(t *testing.T) {
	f := newDispatcherFixture(staffEmployee())
	f.attendance.decision = &services.AttendanceDecision{
		EmployeeID:        "emp-01-0001",
		Remark:            "Clock Out",
		NeedsConfirmation: true,
	}
	ctx := context.Background()

	if _, err := f.svc.StartSession(ctx); err != nil {
		t.Fatal(err)
	}
	login, err := f.svc.HandleFingerprintMatch(ctx, "emp-01-0001", 72)
	if err != nil {
		t.Fatal(err)
	}
	if login.Accepted {
		t.Fatal("a short-shift Clock Out must not auto-accept")
	}
	if login.Reason != "confirm short shift clock out" {
		t.Errorf("reason = %q", login.Reason)
	}
	if !f.svc.SessionActive() {
		t.Error("pending confirmation must leave the session running")
	}

	// The subject confirms; the validator runs again with confirmed set.
	f.attendance.decision = &services.AttendanceDecision{EmployeeID: "emp-01-0001", Remark: "Clock Out"}
	confirmed, err := f.svc.ConfirmLogin(ctx, "emp-01-0001")
	if err != nil {
		t.Fatal(err)
	}
	if !confirmed.Accepted {
		t.Fatalf("confirmed login = %+v, want accepted", confirmed)
	}
	want := []bool{false, true}
	if len(f.attendance.confirmed) != 2 || f.attendance.confirmed[0] != want[0] || f.attendance.confirmed[1] != want[1] {
		t.Errorf("confirmed flags = %v, want %v", f.attendance.confirmed, want)
	}
	if f.svc.SessionActive() {
		t.Error("accepted confirmation must stop the session")
	}
}

func TestFaceCooldownSkipsSecondFrame(t *testing.T) {
	f := newDispatcherFixture(staffEmployee())
	f.attendance.err = services.ErrShiftCapExceeded
	f.faceSvc.frame = &services.FrameResult{
		Match: &services.FaceMatch{EmployeeID: "emp-01-0001", Fused: 0.82},
	}
	base := time.Date(2026, 8, 24, 7, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return base }
	ctx := context.Background()

	if _, err := f.svc.StartSession(ctx); err != nil {
		t.Fatal(err)
	}
	first, err := f.svc.HandleFaceFrame(ctx, []byte("frame"))
	if err != nil {
		t.Fatal(err)
	}
	if first.Login == nil {
		t.Fatal("first frame must reach the validator")
	}
	second, err := f.svc.HandleFaceFrame(ctx, []byte("frame"))
	if err != nil {
		t.Fatal(err)
	}
	if second.Login != nil {
		t.Error("second frame inside the cooldown must be dropped")
	}
	if len(f.attendance.confirmed) != 1 {
		t.Errorf("validator calls = %d, want 1", len(f.attendance.confirmed))
	}
}

func TestConfirmLoginUnknownEmployee(t *testing.T) {
	f := newDispatcherFixture()
	if _, err := f.svc.ConfirmLogin(context.Background(), "emp-99-9999"); !errors.Is(err, services.ErrEmployeeNotFound) {
		t.Errorf("got %v, want ErrEmployeeNotFound", err)
	}
}

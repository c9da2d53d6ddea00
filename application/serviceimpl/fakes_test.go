package serviceimpl

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"eals-backend/domain/models"
	"eals-backend/domain/repositories"
)

type fakeEmployeeRepo struct {
	mu        sync.Mutex
	employees map[string]*models.Employee
}

func newFakeEmployeeRepo(employees ...*models.Employee) *fakeEmployeeRepo {
	r := &fakeEmployeeRepo{employees: make(map[string]*models.Employee)}
	for _, e := range employees {
		r.employees[e.ID] = e
	}
	return r
}

func (r *fakeEmployeeRepo) Create(ctx context.Context, employee *models.Employee) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.employees[employee.ID] = employee
	return nil
}

func (r *fakeEmployeeRepo) GetByID(ctx context.Context, id string) (*models.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.employees[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return e, nil
}

func (r *fakeEmployeeRepo) List(ctx context.Context, offset, limit int) ([]models.Employee, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Employee
	for _, e := range r.employees {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *fakeEmployeeRepo) Update(ctx context.Context, id string, employee *models.Employee) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.employees[id] = employee
	return nil
}

func (r *fakeEmployeeRepo) UpdateStatus(ctx context.Context, id string, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.employees[id]; ok {
		e.Status = status
	}
	return nil
}

func (r *fakeEmployeeRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.employees, id)
	return nil
}

func (r *fakeEmployeeRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.employees[id]
	return ok, nil
}

func (r *fakeEmployeeRepo) ExistsByName(ctx context.Context, firstName, lastName string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.employees {
		if e.FirstName == firstName && e.LastName == lastName {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeEmployeeRepo) ListActiveNonHR(ctx context.Context) ([]models.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Employee
	for _, e := range r.employees {
		if e.IsActive() && !e.IsHR {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeEmployeeRepo) IncrementCounters(ctx context.Context, id string, attendance, late, absent int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.employees[id]; ok {
		e.AttendanceCount += attendance
		e.LateCount += late
		e.AbsentCount += absent
	}
	return nil
}

var _ repositories.EmployeeRepository = (*fakeEmployeeRepo)(nil)

type fakeAttendanceRepo struct {
	mu   sync.Mutex
	logs []models.AttendanceLog
}

func (r *fakeAttendanceRepo) Create(ctx context.Context, log *models.AttendanceLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *log)
	return nil
}

func (r *fakeAttendanceRepo) ListByEmployeeAndDate(ctx context.Context, employeeID, date string) ([]models.AttendanceLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AttendanceLog
	for _, l := range r.logs {
		if l.EmployeeID == employeeID && l.Date == date {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

func (r *fakeAttendanceRepo) CountOnDateFrom(ctx context.Context, employeeID, date, fromTime string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, l := range r.logs {
		if l.EmployeeID == employeeID && l.Date == date && l.Time >= fromTime {
			n++
		}
	}
	return n, nil
}

func (r *fakeAttendanceRepo) CountOnDateUntil(ctx context.Context, employeeID, date, untilTime string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, l := range r.logs {
		if l.EmployeeID == employeeID && l.Date == date && l.Time <= untilTime {
			n++
		}
	}
	return n, nil
}

func (r *fakeAttendanceRepo) CountOnDate(ctx context.Context, employeeID, date string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, l := range r.logs {
		if l.EmployeeID == employeeID && l.Date == date {
			n++
		}
	}
	return n, nil
}

func (r *fakeAttendanceRepo) ListByDate(ctx context.Context, date string) ([]models.AttendanceLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AttendanceLog
	for _, l := range r.logs {
		if l.Date == date {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EmployeeID != out[j].EmployeeID {
			return out[i].EmployeeID < out[j].EmployeeID
		}
		return out[i].Time < out[j].Time
	})
	return out, nil
}

func (r *fakeAttendanceRepo) DeleteByEmployee(ctx context.Context, employeeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.logs[:0]
	for _, l := range r.logs {
		if l.EmployeeID != employeeID {
			kept = append(kept, l)
		}
	}
	r.logs = kept
	return nil
}

var _ repositories.AttendanceRepository = (*fakeAttendanceRepo)(nil)

type fakeSystemLogRepo struct {
	mu   sync.Mutex
	rows map[string]*models.SystemLog
}

func newFakeSystemLogRepo() *fakeSystemLogRepo {
	return &fakeSystemLogRepo{rows: make(map[string]*models.SystemLog)}
}

func (r *fakeSystemLogRepo) GetByDate(ctx context.Context, date string) (*models.SystemLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[date]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return row, nil
}

func (r *fakeSystemLogRepo) Upsert(ctx context.Context, log *models.SystemLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[log.Date] = log
	return nil
}

func (r *fakeSystemLogRepo) List(ctx context.Context, offset, limit int) ([]models.SystemLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.SystemLog
	for _, row := range r.rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, int64(len(out)), nil
}

var _ repositories.SystemLogRepository = (*fakeSystemLogRepo)(nil)

type fakeSettingsRepo struct {
	settings models.SystemSettings
}

func (r *fakeSettingsRepo) Get(ctx context.Context) (*models.SystemSettings, error) {
	s := r.settings
	return &s, nil
}

func (r *fakeSettingsRepo) Update(ctx context.Context, settings *models.SystemSettings) error {
	r.settings = *settings
	return nil
}

var _ repositories.SettingsRepository = (*fakeSettingsRepo)(nil)

// fakeAudit collects recorded lines so validator tests can assert on them
// without touching the filesystem.
type fakeAudit struct {
	mu    sync.Mutex
	lines []string
}

func (a *fakeAudit) Record(ctx context.Context, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lines = append(a.lines, text)
}

func (a *fakeAudit) RecomputeAggregate(ctx context.Context, date string) (*models.SystemLog, error) {
	return nil, nil
}

func (a *fakeAudit) GetAggregate(ctx context.Context, date string) (*models.SystemLog, error) {
	return nil, nil
}

func (a *fakeAudit) CleanupOldLogs(ctx context.Context, retentionDays int) error {
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.EnrollmentSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*models.EnrollmentSession)}
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *models.EnrollmentSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.ID.String()] = &copied
	return nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.EnrollmentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id.String()]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *fakeSessionRepo) GetActiveByEmployee(ctx context.Context, employeeID string) (*models.EnrollmentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.EmployeeID == employeeID && s.Status == models.SessionStatusActive {
			copied := *s
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSessionRepo) Update(ctx context.Context, id uuid.UUID, session *models.EnrollmentSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	copied.ID = id
	r.sessions[id.String()] = &copied
	return nil
}

var _ repositories.EnrollmentSessionRepository = (*fakeSessionRepo)(nil)

type fakeFingerprintRepo struct {
	mu   sync.Mutex
	rows map[string]*models.Fingerprint
}

func newFakeFingerprintRepo() *fakeFingerprintRepo {
	return &fakeFingerprintRepo{rows: make(map[string]*models.Fingerprint)}
}

func (r *fakeFingerprintRepo) Create(ctx context.Context, fp *models.Fingerprint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[fp.EmployeeID] = fp
	return nil
}

func (r *fakeFingerprintRepo) GetByEmployee(ctx context.Context, employeeID string) (*models.Fingerprint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fp, ok := r.rows[employeeID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return fp, nil
}

func (r *fakeFingerprintRepo) GetAll(ctx context.Context) ([]models.Fingerprint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Fingerprint
	for _, fp := range r.rows {
		out = append(out, *fp)
	}
	return out, nil
}

func (r *fakeFingerprintRepo) UpdatePath(ctx context.Context, employeeID, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fp, ok := r.rows[employeeID]; ok {
		fp.TemplatePath = path
	}
	return nil
}

func (r *fakeFingerprintRepo) DeleteByEmployee(ctx context.Context, employeeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, employeeID)
	return nil
}

func (r *fakeFingerprintRepo) ExistsByEmployee(ctx context.Context, employeeID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rows[employeeID]
	return ok, nil
}

var _ repositories.FingerprintRepository = (*fakeFingerprintRepo)(nil)

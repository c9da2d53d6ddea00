package serviceimpl

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"eals-backend/domain/models"
	"eals-backend/domain/repositories"
	"eals-backend/domain/services"
	redisinfra "eals-backend/infrastructure/redis"
	"eals-backend/pkg/logger"
	"eals-backend/pkg/shift"
)

const aggregateCacheTTL = 5 * time.Minute

func aggregateCacheKey(date string) string {
	return "eals:aggregate:" + date
}

// AuditServiceImpl appends human-readable action lines to a per-day text
// file and keeps the day's aggregate row fresh. Failures here are logged
// and swallowed so the triggering action never fails on bookkeeping.
type AuditServiceImpl struct {
	logDir         string
	employeeRepo   repositories.EmployeeRepository
	attendanceRepo repositories.AttendanceRepository
	systemLogRepo  repositories.SystemLogRepository
	cache          *redisinfra.RedisClient

	now func() time.Time
}

func NewAuditService(
	logDir string,
	employeeRepo repositories.EmployeeRepository,
	attendanceRepo repositories.AttendanceRepository,
	systemLogRepo repositories.SystemLogRepository,
	cache *redisinfra.RedisClient,
) services.AuditService {
	return &AuditServiceImpl{
		logDir:         logDir,
		employeeRepo:   employeeRepo,
		attendanceRepo: attendanceRepo,
		systemLogRepo:  systemLogRepo,
		cache:          cache,
		now:            time.Now,
	}
}

// Record appends one timestamped line to today's audit file and refreshes
// the aggregate row.
func (s *AuditServiceImpl) Record(ctx context.Context, text string) {
	now := s.now()
	line := now.Format("2006-01-02 15:04:05") + " - " + text + "\n"
	path := filepath.Join(s.logDir, now.Format("20060102")+".txt")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.AuditError("append", "failed to open audit file", err, map[string]interface{}{"path": path})
	} else {
		if _, err := f.WriteString(line); err != nil {
			logger.AuditError("append", "failed to write audit line", err, map[string]interface{}{"path": path})
		}
		f.Close()
	}

	if _, err := s.RecomputeAggregate(ctx, now.Format("2006-01-02")); err != nil {
		logger.AuditError("aggregate", "failed to refresh daily aggregate", err, nil)
	}
}

// RecomputeAggregate rebuilds one date's aggregate row from the attendance
// log. Present, absent and late are computed over active non-HR staff;
// worked hours pair each Clock In with the following Clock Out, and an
// overnight shift's dangling Clock In is matched against the next morning's
// early Clock Out so the pair is credited to the Clock In date.
func (s *AuditServiceImpl) RecomputeAggregate(ctx context.Context, date string) (*models.SystemLog, error) {
	staff, err := s.employeeRepo.ListActiveNonHR(ctx)
	if err != nil {
		return nil, err
	}
	events, err := s.attendanceRepo.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	staffByID := make(map[string]models.Employee, len(staff))
	for _, e := range staff {
		staffByID[e.ID] = e
	}

	present := make(map[string]bool)
	late := make(map[string]bool)
	byEmployee := make(map[string][]models.AttendanceLog)
	for _, ev := range events {
		if _, ok := staffByID[ev.EmployeeID]; !ok {
			continue
		}
		present[ev.EmployeeID] = true
		if ev.IsLate {
			late[ev.EmployeeID] = true
		}
		byEmployee[ev.EmployeeID] = append(byEmployee[ev.EmployeeID], ev)
	}

	var total time.Duration
	pairs := 0
	for employeeID, evs := range byEmployee {
		sort.Slice(evs, func(i, j int) bool { return evs[i].Time < evs[j].Time })

		var openIn *time.Time
		for _, ev := range evs {
			at, err := ev.At(time.Local)
			if err != nil {
				continue
			}
			switch ev.Remark {
			case models.RemarkClockIn:
				t := at
				openIn = &t
			case models.RemarkClockOut:
				if openIn != nil {
					total += at.Sub(*openIn)
					pairs++
					openIn = nil
				}
			}
		}

		if openIn != nil {
			if out, ok := s.overnightClockOut(ctx, staffByID[employeeID], date); ok {
				total += out.Sub(*openIn)
				pairs++
			}
		}
	}

	avg := 0.0
	if pairs > 0 {
		avg = math.Round(total.Hours()/float64(pairs)*100) / 100
	}

	row := &models.SystemLog{
		Date:             date,
		PresentCount:     len(present),
		AbsentCount:      len(staff) - len(present),
		LateCount:        len(late),
		AverageWorkHours: avg,
	}
	if err := s.systemLogRepo.Upsert(ctx, row); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, aggregateCacheKey(date)); err != nil {
			logger.AuditError("cache", "aggregate cache invalidation failed", err, nil)
		}
	}
	return row, nil
}

// overnightClockOut looks for the early-morning Clock Out that closes an
// overnight shift started on date. Only wrapping schedules qualify.
func (s *AuditServiceImpl) overnightClockOut(ctx context.Context, employee models.Employee, date string) (time.Time, bool) {
	sh, err := shift.Parse(employee.Schedule)
	if err != nil || !sh.Wraps() {
		return time.Time{}, false
	}

	day, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	nextDate := day.AddDate(0, 0, 1).Format("2006-01-02")

	nextEvents, err := s.attendanceRepo.ListByEmployeeAndDate(ctx, employee.ID, nextDate)
	if err != nil {
		return time.Time{}, false
	}
	endClock := fmt.Sprintf("%02d:00:00", sh.End)
	for _, ev := range nextEvents {
		if ev.Remark == models.RemarkClockOut && ev.Time <= endClock {
			if at, err := ev.At(time.Local); err == nil {
				return at, true
			}
		}
	}
	return time.Time{}, false
}

func (s *AuditServiceImpl) GetAggregate(ctx context.Context, date string) (*models.SystemLog, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, aggregateCacheKey(date)); err == nil {
			var row models.SystemLog
			if json.Unmarshal([]byte(raw), &row) == nil {
				return &row, nil
			}
		}
	}

	row, err := s.systemLogRepo.GetByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if b, err := json.Marshal(row); err == nil {
			if err := s.cache.Set(ctx, aggregateCacheKey(date), string(b), aggregateCacheTTL); err != nil {
				logger.AuditError("cache", "aggregate cache write failed", err, nil)
			}
		}
	}
	return row, nil
}

// CleanupOldLogs removes audit files older than the retention window.
func (s *AuditServiceImpl) CleanupOldLogs(ctx context.Context, retentionDays int) error {
	cutoff := s.now().AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(s.logDir)
	if err != nil {
		return err
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != ".txt" {
			continue
		}
		day, err := time.ParseInLocation("20060102", name[:len(name)-len(".txt")], time.Local)
		if err != nil {
			continue
		}
		if day.Before(cutoff) {
			if err := os.Remove(filepath.Join(s.logDir, name)); err != nil {
				logger.AuditError("cleanup", "failed to remove audit file", err, map[string]interface{}{"file": name})
				continue
			}
			removed++
		}
	}

	logger.Audit("cleanup", "old audit files pruned", map[string]interface{}{
		"removed":        removed,
		"retention_days": retentionDays,
	})
	return nil
}

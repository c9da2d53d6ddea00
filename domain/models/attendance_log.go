package models

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceLog is one append-only clock event. Date and Time are stored as
// the site's canonical strings ("2006-01-02", "15:04:05") so the overnight
// window queries can compare the time column lexicographically.
type AttendanceLog struct {
	ID         uuid.UUID `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	EmployeeID string    `gorm:"not null;index:idx_attendance_employee_date"`
	Date       string    `gorm:"not null;index:idx_attendance_employee_date;index"`
	Time       string    `gorm:"not null"`
	Remark     string    `gorm:"not null"` // Clock In | Clock Out
	IsLate     bool      `gorm:"default:false"`

	CreatedAt time.Time
}

func (AttendanceLog) TableName() string {
	return "attendance_logs"
}

// At reconstructs the event's wall-clock timestamp.
func (a *AttendanceLog) At(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04:05", a.Date+" "+a.Time, loc)
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// SystemLog is the per-day aggregate row over non-HR active staff: created
// lazily on the first audited action of the day, refreshed on every
// subsequent action and closed by the nightly sweep.
type SystemLog struct {
	ID               uuid.UUID `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Date             string    `gorm:"uniqueIndex;not null"` // "2006-01-02"
	PresentCount     int       `gorm:"default:0"`
	AbsentCount      int       `gorm:"default:0"`
	LateCount        int       `gorm:"default:0"`
	AverageWorkHours float64   `gorm:"default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SystemLog) TableName() string {
	return "system_logs"
}

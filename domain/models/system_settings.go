package models

import (
	"time"

	"github.com/google/uuid"
)

// SystemSettings is the singleton configuration row. The biometric toggles
// are honored on the next login-screen session initialization.
type SystemSettings struct {
	ID              uuid.UUID `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	BackupPolicy    string    `gorm:"default:'weekly'"`
	RetentionDays   int       `gorm:"default:90"`
	IsFaceOn        bool      `gorm:"default:true"`
	IsFingerprintOn bool      `gorm:"default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SystemSettings) TableName() string {
	return "system_settings"
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Fingerprint registers the merged template blob for one employee. At most
// one active template per employee; the blob itself lives on disk.
type Fingerprint struct {
	ID           uuid.UUID `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	EmployeeID   string    `gorm:"uniqueIndex;not null"`
	TemplatePath string    `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Fingerprint) TableName() string {
	return "fingerprints"
}

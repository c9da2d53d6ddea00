package models

import (
	"time"

	"github.com/google/uuid"
)

// Enrollment session states
const (
	SessionStepDemographics = "demographics"
	SessionStepFingerprint  = "fingerprint"
	SessionStepFace         = "face"

	SessionStatusActive    = "active"
	SessionStatusCommitted = "committed"
	SessionStatusDiscarded = "discarded"
)

// Enrollment session modes
const (
	ModeNew      = "new"
	ModeReenroll = "reenroll"
)

// EnrollmentSession tracks one pass through the three-step enrollment
// machine. Re-enrollment sessions divert artifact writes to the staging area
// until an explicit commit.
type EnrollmentSession struct {
	ID         uuid.UUID `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	EmployeeID string    `gorm:"not null;index"`
	Mode       string    `gorm:"not null"` // new | reenroll
	Step       string    `gorm:"not null"`
	Status     string    `gorm:"not null;default:'active'"`

	FingerprintDone bool `gorm:"default:false"`
	PosesCaptured   int  `gorm:"default:0"`

	// Original artifact paths recorded before a re-enrollment starts, used
	// by the rollback path.
	OriginalFingerprintPath string
	OriginalFacePaths       string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (EnrollmentSession) TableName() string {
	return "enrollment_sessions"
}

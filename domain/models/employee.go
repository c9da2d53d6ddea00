package models

import (
	"time"
)

// Employee status values
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// Attendance remark values
const (
	RemarkClockIn  = "Clock In"
	RemarkClockOut = "Clock Out"
)

// Employee is the primary identity row. The identifier is the site's
// prefix-year-number triple (e.g. "emp-25-0001"), assigned at enrollment.
type Employee struct {
	ID            string    `gorm:"primaryKey"`
	FirstName     string    `gorm:"not null;uniqueIndex:idx_employees_name"`
	LastName      string    `gorm:"not null;uniqueIndex:idx_employees_name"`
	MiddleInitial string
	Birthday      time.Time `gorm:"not null"`
	Gender        string
	Department    string `gorm:"not null"`
	Position      string `gorm:"not null"`
	Schedule      string `gorm:"not null"` // one of the three fixed shift strings
	IsHR          bool   `gorm:"default:false"`
	Status        string `gorm:"default:'Active'"`

	// Credential slot owned by the external password subsystem. Enrollment
	// seeds it with the uppercased surname; the subsystem hashes on first use.
	PasswordHash    string
	PasswordChanged bool `gorm:"default:false"`

	ProfilePicture string
	Email          string `gorm:"uniqueIndex;not null"`

	// Cached counters bumped by the attendance validator and the nightly sweep
	AttendanceCount int `gorm:"default:0"`
	LateCount       int `gorm:"default:0"`
	AbsentCount     int `gorm:"default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// Relations
	Fingerprint    *Fingerprint    `gorm:"foreignKey:EmployeeID;constraint:OnDelete:CASCADE"`
	FaceModel      *FaceModel      `gorm:"foreignKey:EmployeeID;constraint:OnDelete:CASCADE"`
	FaceArtifacts  []FaceArtifact  `gorm:"foreignKey:EmployeeID;constraint:OnDelete:CASCADE"`
	AttendanceLogs []AttendanceLog `gorm:"foreignKey:EmployeeID;constraint:OnDelete:CASCADE"`
}

func (Employee) TableName() string {
	return "employees"
}

// IsActive reports whether the employee may log attendance.
func (e *Employee) IsActive() bool {
	return e.Status == StatusActive
}

// FullName returns "First Last" for display and profile picture naming.
func (e *Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

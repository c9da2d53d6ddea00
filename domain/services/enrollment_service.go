package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"eals-backend/domain/models"
)

// Enrollment errors
var (
	ErrEmployeeIDTaken      = errors.New("employee identifier already registered")
	ErrNameTaken            = errors.New("an employee with this first and last name already exists")
	ErrUnderage             = errors.New("employee must be at least 18 years old")
	ErrIncompleteEnrollment = errors.New("enrollment steps not completed")
	ErrSessionNotActive     = errors.New("enrollment session is not active")
	ErrSessionNotFound      = errors.New("enrollment session not found")
	ErrEmployeeNotFound     = errors.New("employee not found")
)

// Demographics is the step-one payload. Validation rules: names are letters
// and spaces only, middle initial is at most one letter, e-mail must carry a
// dotted domain, age >= 18, identifier and (first, last) pair unique, and a
// profile picture must be present. HR role forces department and position.
type Demographics struct {
	EmployeeID     string `json:"employee_id" validate:"required"`
	FirstName      string `json:"first_name" validate:"required"`
	LastName       string `json:"last_name" validate:"required"`
	MiddleInitial  string `json:"middle_initial" validate:"omitempty,len=1,alpha"`
	Birthday       string `json:"birthday" validate:"required"` // "2006-01-02"
	Gender         string `json:"gender" validate:"required,oneof=Male Female"`
	Department     string `json:"department" validate:"required"`
	Position       string `json:"position" validate:"required"`
	Schedule       string `json:"schedule" validate:"required"`
	IsHR           bool   `json:"is_hr"`
	Email          string `json:"email" validate:"required,email"`
	ProfilePicture string `json:"profile_picture" validate:"required"`
}

// EnrollmentService drives the three-step enrollment machine and the
// transactional re-enrollment workflow.
type EnrollmentService interface {
	// Begin validates demographics and opens a session. The employee row is
	// not inserted until Commit.
	Begin(ctx context.Context, d Demographics) (*models.EnrollmentSession, error)

	// EnrollFingerprint runs the engine's three-capture enrollment for the
	// session. Skipped automatically when fingerprint is disabled.
	EnrollFingerprint(ctx context.Context, sessionID uuid.UUID, onProgress func(capture, total int)) error

	// FaceTick feeds one camera frame to the six-pose capture loop.
	FaceTick(ctx context.Context, sessionID uuid.UUID, frame []byte) (*EnrollmentTick, error)

	// Commit inserts the employee row and activates the artifacts written
	// during steps two and three.
	Commit(ctx context.Context, sessionID uuid.UUID) (*models.Employee, error)

	// Cancel aborts the session and removes any partial artifacts.
	Cancel(ctx context.Context, sessionID uuid.UUID) error

	// Re-enrollment: artifact writes go to the staging area; the live
	// artifacts stay untouched until CommitReenrollment.
	BeginReenrollment(ctx context.Context, employeeID string) (*models.EnrollmentSession, error)
	CommitReenrollment(ctx context.Context, sessionID uuid.UUID) error
	DiscardReenrollment(ctx context.Context, sessionID uuid.UUID) error
}
